package weld

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/pkg/log"
)

// Service answers prediction and simulation requests against the installed bank.
// It is safe for concurrent use.
type Service struct {
	bank    atomic.Pointer[ModelBank]
	logger  log.Logger
	monitor DriftMonitor
}

// DriftMonitor watches the stream of predicted defect probabilities.
// Implementations must be safe for concurrent use.
type DriftMonitor interface {
	Update(value float64) bool
	Reset()
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger log.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithDriftMonitor feeds every predicted defect probability to m and logs a
// warning when m reports a change.
func WithDriftMonitor(m DriftMonitor) ServiceOption {
	return func(s *Service) { s.monitor = m }
}

// NewService installs bank and returns a ready service.
func NewService(bank *ModelBank, opts ...ServiceOption) *Service {
	s := &Service{logger: log.GetLoggerWithName("weld.service")}
	for _, opt := range opts {
		opt(s)
	}
	s.bank.Store(bank)
	return s
}

// Bank returns the bank currently serving requests.
func (s *Service) Bank() *ModelBank {
	return s.bank.Load()
}

// Swap installs bank and returns the previous one. In-flight requests finish
// on the bank they loaded. The drift monitor starts over, since the old
// window describes the old bank's outputs.
func (s *Service) Swap(bank *ModelBank) *ModelBank {
	old := s.bank.Swap(bank)
	if s.monitor != nil {
		s.monitor.Reset()
	}
	if bank != nil {
		s.logger.Info("model bank swapped", log.BankIDKey, bank.Info().ID)
	}
	return old
}

// Predict builds the feature vector from raw and runs the bank.
func (s *Service) Predict(ctx context.Context, raw RawInput) (res PredictionResult, err error) {
	defer errors.Recover(&err, "Service.Predict")

	if err := ctx.Err(); err != nil {
		return PredictionResult{}, errors.NewPredictionError("Service.Predict", err)
	}
	v, err := BuildFeatures(raw)
	if err != nil {
		return PredictionResult{}, err
	}
	bank := s.bank.Load()
	if bank == nil {
		return PredictionResult{}, errors.NewPredictionError("Service.Predict", errors.New("no model bank loaded"))
	}
	res, err = bank.PredictVector(v)
	if err != nil {
		return PredictionResult{}, err
	}
	if s.monitor != nil && s.monitor.Update(res.DefectProbability) {
		s.logger.Warn("defect probability drift detected",
			log.BankIDKey, bank.Info().ID,
			"defect_probability", res.DefectProbability)
	}
	return res, nil
}

// Simulate builds the base vector from raw and simulates a pass of lengthMm
// split into segments.
func (s *Service) Simulate(ctx context.Context, raw RawInput, lengthMm float64, segments int) ([]TrajectoryPoint, error) {
	v, err := BuildFeatures(raw)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	points, err := SimulateTrajectory(ctx, s.bank.Load(), v, lengthMm, segments)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("trajectory simulated",
		log.OperationKey, log.OperationSimulate,
		log.SegmentsKey, segments,
		log.LengthMmKey, lengthMm,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return points, nil
}

// Retrain trains a new bank on ts and installs it. On failure the current
// bank keeps serving.
func (s *Service) Retrain(ctx context.Context, ts TrainingSet, opts ...BankOption) (*ModelBank, error) {
	bank, err := Train(ctx, ts, append([]BankOption{WithLogger(s.logger)}, opts...)...)
	if err != nil {
		s.logger.Error("retrain failed, keeping current bank", err, log.ErrorKindKey, ErrorKind(err))
		return nil, err
	}
	s.Swap(bank)
	return bank, nil
}

// ErrorKind returns the error kind name of err, one of the four pipeline kinds.
func ErrorKind(err error) string {
	return errors.KindOf(err)
}

// ErrorResponse is the structured form of a pipeline error.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Trace string `json:"trace"`
}

// ToErrorResponse converts err to its structured form. Trace holds the
// detailed form with stack frames.
func ToErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error: err.Error(),
		Kind:  ErrorKind(err),
		Trace: fmt.Sprintf("%+v", err),
	}
}
