// Package log defines standard attribute keys for weldsim operations.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples", "weld.segments") to enable structured log analysis.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "RandomForestRegressor", "StandardScaler", "LogisticRegression"
	ModelNameKey = "model.name"

	// TargetKey names the predicted quantity: "penetration", "bead_width", "defect".
	TargetKey = "model.target"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "transform", "simulate", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "weld", "server", "registry", "cli"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Model bank context
const (
	// BankIDKey is the UUID of a trained model bank.
	BankIDKey = "bank.id"

	// BankKindKey is the estimator family of a bank: "forest" or "linear".
	BankKindKey = "bank.kind"

	// EstimatorsKey is the number of trees per forest.
	EstimatorsKey = "bank.estimators"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// HoldoutKey indicates the number of rows held out for evaluation.
	HoldoutKey = "data.holdout"
)

// Simulation context
const (
	// SegmentsKey is the number of segments in a trajectory simulation.
	SegmentsKey = "weld.segments"

	// LengthMmKey is the simulated pass length in millimetres.
	LengthMmKey = "weld.length_mm"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classifier accuracy on the hold-out rows.
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error for regression.
	RMSEKey = "metrics.rmse"
)

// HTTP context
const (
	RequestIDKey = "http.request_id"
	MethodKey    = "http.method"
	PathKey      = "http.path"
	StatusKey    = "http.status"
	ClientIPKey  = "http.client_ip"
)

// Error and Warning Context
const (
	// ErrorKindKey carries the pipeline error kind, e.g. "InvalidInputError".
	ErrorKindKey = "error.kind"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated when an error is logged.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ConfigVersionKey tracks configuration or model version.
	ConfigVersionKey = "config.version"
)

// Standard attribute value constants for common operations.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationSimulate  = "simulate"
	OperationScore     = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
