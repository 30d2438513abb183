package weld

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/linear"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/pkg/log"
	"github.com/YuminosukeSato/weldsim/preprocessing"
	"github.com/YuminosukeSato/weldsim/sklearn/ensemble"
	"github.com/YuminosukeSato/weldsim/sklearn/linear_model"
)

func init() {
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&ensemble.RandomForestClassifier{})
	gob.Register(&linear.LinearRegression{})
	gob.Register(&linear_model.LogisticRegression{})
}

// Kind selects the estimator family of a bank.
type Kind string

const (
	KindForest Kind = "forest"
	KindLinear Kind = "linear"
)

// ParseKind validates a bank kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindForest, KindLinear:
		return Kind(s), nil
	default:
		return "", errors.NewValidationError("kind", "must be 'forest' or 'linear'", s)
	}
}

// DefaultEstimators is the number of trees per forest.
const DefaultEstimators = 200

// PredictionResult is the output of one inference.
type PredictionResult struct {
	PenetrationMm     float64 `json:"penetration_mm"`
	BeadWidthMm       float64 `json:"bead_width_mm"`
	DefectProbability float64 `json:"defect_probability"`
	DefectLabel       int     `json:"defect_label"`
}

// RegressionScores are hold-out scores of a regressor.
type RegressionScores struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// ClassificationScores are hold-out scores of the defect classifier.
type ClassificationScores struct {
	Accuracy float64 `json:"accuracy"`
	LogLoss  float64 `json:"log_loss"`
	AUC      float64 `json:"auc"`
}

// EvaluationReport holds hold-out metrics computed at train time.
type EvaluationReport struct {
	HoldoutSamples int                  `json:"holdout_samples"`
	Penetration    RegressionScores     `json:"penetration"`
	BeadWidth      RegressionScores     `json:"bead_width"`
	Defect         ClassificationScores `json:"defect"`
}

// BankInfo describes a trained bank.
type BankInfo struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Seed       uint64            `json:"seed"`
	Samples    int               `json:"samples"`
	Estimators int               `json:"estimators,omitempty"`
	Source     string            `json:"source,omitempty"`
	TrainedAt  time.Time         `json:"trained_at"`
	Report     *EvaluationReport `json:"metrics,omitempty"`
}

// ModelDescriptions names the three models of a bank.
type ModelDescriptions struct {
	Penetration string `json:"penetration"`
	BeadWidth   string `json:"bead_width"`
	Defect      string `json:"defect"`
}

type bankConfig struct {
	kind       Kind
	estimators int
	maxDepth   int
	seed       uint64
	jobs       int
	holdout    float64
	source     string
	logger     log.Logger
}

// BankOption configures Train.
type BankOption func(*bankConfig)

// WithKind selects the estimator family.
func WithKind(kind Kind) BankOption {
	return func(c *bankConfig) { c.kind = kind }
}

// WithEstimators sets the number of trees per forest.
func WithEstimators(n int) BankOption {
	return func(c *bankConfig) { c.estimators = n }
}

// WithMaxDepth limits forest tree depth. 0 means unlimited.
func WithMaxDepth(depth int) BankOption {
	return func(c *bankConfig) { c.maxDepth = depth }
}

// WithSeed sets the base seed; the three models use seed, seed+1 and seed+2.
func WithSeed(seed uint64) BankOption {
	return func(c *bankConfig) { c.seed = seed }
}

// WithJobs sets the number of goroutines used to grow trees.
func WithJobs(n int) BankOption {
	return func(c *bankConfig) { c.jobs = n }
}

// WithHoldout reserves a fraction of rows for the evaluation report.
func WithHoldout(frac float64) BankOption {
	return func(c *bankConfig) { c.holdout = frac }
}

// WithSource records where the training data came from.
func WithSource(source string) BankOption {
	return func(c *bankConfig) { c.source = source }
}

// WithLogger sets the logger used during training.
func WithLogger(logger log.Logger) BankOption {
	return func(c *bankConfig) { c.logger = logger }
}

func (c *bankConfig) validate() error {
	if _, err := ParseKind(string(c.kind)); err != nil {
		return err
	}
	if c.estimators < 1 {
		return errors.NewValidationError("estimators", "must be >= 1", c.estimators)
	}
	if c.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", c.maxDepth)
	}
	if c.holdout < 0 || c.holdout >= 1 || math.IsNaN(c.holdout) {
		return errors.NewValidationError("holdout", "must be in [0, 1)", c.holdout)
	}
	return nil
}

// ModelBank is a fitted scaler plus the three fitted models. It is immutable
// after Train and safe for concurrent use.
type ModelBank struct {
	info         BankInfo
	scaler       *preprocessing.StandardScaler
	penetration  model.Regressor
	beadWidth    model.Regressor
	defect       model.Classifier
	descriptions ModelDescriptions
	positive     int // column of class 1 in defect.PredictProba
}

// Train fits the scaler once and the three models on the scaled features.
func Train(ctx context.Context, ts TrainingSet, opts ...BankOption) (*ModelBank, error) {
	cfg := bankConfig{
		kind:       KindForest,
		estimators: DefaultEstimators,
		logger:     log.GetLoggerWithName("weld.bank"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	train, test, err := splitHoldout(ts, cfg.holdout, cfg.seed)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger.With(log.BankKindKey, string(cfg.kind), log.SamplesKey, train.Len())
	logger.Info("training model bank", log.PhaseKey, log.PhaseTraining, log.HoldoutKey, test.Len())

	scaler := preprocessing.NewStandardScalerDefault().WithFeatureNames(FeatureNames()...)
	Xs, err := scaler.FitTransform(train.featureMatrix())
	if err != nil {
		return nil, err
	}

	bank := &ModelBank{scaler: scaler}
	bank.penetration, bank.beadWidth, bank.defect, bank.descriptions = newModels(cfg)

	steps := []struct {
		name string
		fit  func() error
	}{
		{"penetration", func() error { return bank.penetration.Fit(Xs, column(train.Penetration)) }},
		{"bead_width", func() error { return bank.beadWidth.Fit(Xs, column(train.BeadWidth)) }},
		{"defect", func() error { return bank.defect.Fit(Xs, labelColumn(train.Defect)) }},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "training cancelled")
		}
		t0 := time.Now()
		if err := errors.SafeExecute("Train."+step.name, step.fit); err != nil {
			return nil, errors.Wrapf(err, "fit %s model", step.name)
		}
		logger.Debug("model fitted", log.TargetKey, step.name, log.DurationMsKey, time.Since(t0).Milliseconds())
	}

	bank.positive = -1
	for i, c := range bank.defect.Classes() {
		if c == 1 {
			bank.positive = i
		}
	}
	if bank.positive < 0 {
		return nil, errors.NewInsufficientTrainingDataError(train.Len(), "defect classifier saw no positive class")
	}

	bank.info = BankInfo{
		ID:        uuid.NewString(),
		Kind:      cfg.kind,
		Seed:      cfg.seed,
		Samples:   ts.Len(),
		Source:    cfg.source,
		TrainedAt: time.Now().UTC(),
	}
	if cfg.kind == KindForest {
		bank.info.Estimators = cfg.estimators
	}

	if test.Len() > 0 {
		report, err := bank.evaluate(test)
		if err != nil {
			return nil, err
		}
		bank.info.Report = report
		logger.Info("hold-out evaluation",
			log.PhaseKey, log.PhaseValidation,
			log.R2ScoreKey, report.Penetration.R2,
			log.RMSEKey, report.Penetration.RMSE,
			log.AccuracyKey, report.Defect.Accuracy)
	}

	logger.Info("model bank trained",
		log.BankIDKey, bank.info.ID,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return bank, nil
}

// newModels builds the unfitted estimators for the configured kind.
func newModels(cfg bankConfig) (model.Regressor, model.Regressor, model.Classifier, ModelDescriptions) {
	if cfg.kind == KindLinear {
		return linear.NewLinearRegression(),
			linear.NewLinearRegression(),
			linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(1000)),
			ModelDescriptions{
				Penetration: "LinearRegression",
				BeadWidth:   "LinearRegression",
				Defect:      "LogisticRegression (max_iter=1000)",
			}
	}

	forest := func(offset uint64) []ensemble.Option {
		return []ensemble.Option{
			ensemble.WithNEstimators(cfg.estimators),
			ensemble.WithMaxDepth(cfg.maxDepth),
			ensemble.WithRandomState(cfg.seed + offset),
			ensemble.WithNJobs(cfg.jobs),
		}
	}
	return ensemble.NewRandomForestRegressor(forest(0)...),
		ensemble.NewRandomForestRegressor(forest(1)...),
		ensemble.NewRandomForestClassifier(forest(2)...),
		ModelDescriptions{
			Penetration: fmt.Sprintf("RandomForestRegressor (n_estimators=%d)", cfg.estimators),
			BeadWidth:   fmt.Sprintf("RandomForestRegressor (n_estimators=%d)", cfg.estimators),
			Defect:      fmt.Sprintf("RandomForestClassifier (n_estimators=%d)", cfg.estimators),
		}
}

// splitHoldout shuffles row indices with a seeded stream and splits off a test part.
func splitHoldout(ts TrainingSet, frac float64, seed uint64) (TrainingSet, TrainingSet, error) {
	if frac == 0 {
		return ts, TrainingSet{}, nil
	}

	n := ts.Len()
	nTest := int(math.Round(frac * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if n-nTest < MinTrainingRows {
		return TrainingSet{}, TrainingSet{}, errors.NewInsufficientTrainingDataError(n, "hold-out leaves fewer than 2 training rows")
	}

	perm := rand.New(rand.NewPCG(seed, 0x5eed)).Perm(n)
	train := ts.Subset(perm[nTest:])
	test := ts.Subset(perm[:nTest])
	if err := train.Validate(); err != nil {
		return TrainingSet{}, TrainingSet{}, err
	}
	return train, test, nil
}

// PredictVector scales v, runs the three models and rounds each output to 4 decimals.
func (b *ModelBank) PredictVector(v FeatureVector) (res PredictionResult, err error) {
	defer errors.Recover(&err, "ModelBank.PredictVector")

	z, err := b.scaler.TransformVec(v[:])
	if err != nil {
		return PredictionResult{}, errors.NewPredictionError("scale", err)
	}
	X := mat.NewDense(1, NumFeatures, z)

	pen, err := b.penetration.Predict(X)
	if err != nil {
		return PredictionResult{}, errors.NewPredictionError("penetration", err)
	}
	bead, err := b.beadWidth.Predict(X)
	if err != nil {
		return PredictionResult{}, errors.NewPredictionError("bead_width", err)
	}
	proba, err := b.defect.PredictProba(X)
	if err != nil {
		return PredictionResult{}, errors.NewPredictionError("defect", err)
	}

	raw := []float64{pen.At(0, 0), bead.At(0, 0), proba.At(0, b.positive)}
	if err := errors.CheckNumericalStability("ModelBank.PredictVector", raw, -1); err != nil {
		return PredictionResult{}, errors.NewPredictionError("predict", err)
	}

	p := round(raw[2], 4)
	return PredictionResult{
		PenetrationMm:     round(raw[0], 4),
		BeadWidthMm:       round(raw[1], 4),
		DefectProbability: p,
		DefectLabel:       DefectLabel(p),
	}, nil
}

// evaluate scores the bank on rows it was not trained on.
func (b *ModelBank) evaluate(test TrainingSet) (*EvaluationReport, error) {
	Xs, err := b.scaler.Transform(test.featureMatrix())
	if err != nil {
		return nil, err
	}
	report := &EvaluationReport{HoldoutSamples: test.Len()}

	if report.Penetration, err = regressionScores(b.penetration, Xs, test.Penetration); err != nil {
		return nil, errors.Wrap(err, "evaluate penetration")
	}
	if report.BeadWidth, err = regressionScores(b.beadWidth, Xs, test.BeadWidth); err != nil {
		return nil, errors.Wrap(err, "evaluate bead_width")
	}
	if report.Defect, err = classificationScores(b.defect, b.positive, Xs, test.Defect); err != nil {
		return nil, errors.Wrap(err, "evaluate defect")
	}
	return report, nil
}

// FeatureOrder returns the feature names in the order the models expect.
func (b *ModelBank) FeatureOrder() []string {
	return FeatureNames()
}

// Info describes the bank.
func (b *ModelBank) Info() BankInfo {
	return b.info
}

// Describe names the three models.
func (b *ModelBank) Describe() ModelDescriptions {
	return b.descriptions
}

// Report returns the hold-out evaluation, or nil when trained without hold-out.
func (b *ModelBank) Report() *EvaluationReport {
	return b.info.Report
}

// ScalerState returns a copy of the fitted scaler statistics.
func (b *ModelBank) ScalerState() preprocessing.ScalerState {
	return b.scaler.State()
}

// bankSnapshot is the gob form of a ModelBank.
type bankSnapshot struct {
	Info         BankInfo
	Scaler       *preprocessing.StandardScaler
	Penetration  model.Regressor
	BeadWidth    model.Regressor
	Defect       model.Classifier
	Descriptions ModelDescriptions
	Positive     int
}

func (b *ModelBank) snapshot() *bankSnapshot {
	return &bankSnapshot{
		Info:         b.info,
		Scaler:       b.scaler,
		Penetration:  b.penetration,
		BeadWidth:    b.beadWidth,
		Defect:       b.defect,
		Descriptions: b.descriptions,
		Positive:     b.positive,
	}
}

// Save writes the bank in gob form.
func (b *ModelBank) Save(w io.Writer) error {
	return model.SaveModelToWriter(b.snapshot(), w)
}

// SaveFile writes the bank to path.
func (b *ModelBank) SaveFile(path string) error {
	return model.SaveModel(b.snapshot(), path)
}

// LoadBankFile reads a bank written by SaveFile.
func LoadBankFile(path string) (*ModelBank, error) {
	var snap bankSnapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return nil, err
	}
	return snap.bank()
}

// LoadBank reads a bank written by Save.
func LoadBank(r io.Reader) (*ModelBank, error) {
	var snap bankSnapshot
	if err := model.LoadModelFromReader(&snap, r); err != nil {
		return nil, err
	}
	return snap.bank()
}

func (snap *bankSnapshot) bank() (*ModelBank, error) {
	if snap.Scaler == nil || snap.Penetration == nil || snap.BeadWidth == nil || snap.Defect == nil {
		return nil, errors.New("model bank snapshot is incomplete")
	}
	if !snap.Scaler.IsFitted() || !snap.Penetration.IsFitted() || !snap.BeadWidth.IsFitted() || !snap.Defect.IsFitted() {
		return nil, errors.New("model bank snapshot contains unfitted models")
	}
	if n := snap.Scaler.NFeatures; n != NumFeatures {
		return nil, errors.NewDimensionError("LoadBank", NumFeatures, n, 1)
	}
	return &ModelBank{
		info:         snap.Info,
		scaler:       snap.Scaler,
		penetration:  snap.Penetration,
		beadWidth:    snap.BeadWidth,
		defect:       snap.Defect,
		descriptions: snap.Descriptions,
		positive:     snap.Positive,
	}, nil
}
