package weld

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/pkg/log"
)

func TestService_Predict(t *testing.T) {
	svc := NewService(fixedBank(t))

	res, err := svc.Predict(context.Background(), RawInput{"torch_angle": 6.0, "travel_speed": "10"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.PenetrationMm)
	assert.Equal(t, 5.2, res.BeadWidthMm)
	assert.Equal(t, 0.7311, res.DefectProbability)
	assert.Equal(t, 1, res.DefectLabel)
}

func TestService_PredictInvalidInput(t *testing.T) {
	svc := NewService(fixedBank(t))

	_, err := svc.Predict(context.Background(), RawInput{"voltage": "abc"})
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, ErrorKind(err))

	resp := ToErrorResponse(err)
	assert.Equal(t, errors.KindInvalidInput, resp.Kind)
	assert.Contains(t, resp.Error, "voltage")
	assert.NotEmpty(t, resp.Trace)
}

func TestService_NoBank(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.Predict(context.Background(), RawInput{})
	require.Error(t, err)
	assert.Equal(t, errors.KindPrediction, ErrorKind(err))

	_, err = svc.Simulate(context.Background(), RawInput{}, 100, 3)
	require.Error(t, err)
	assert.Equal(t, errors.KindPrediction, ErrorKind(err))
}

func TestService_ConcurrentPredict(t *testing.T) {
	svc := NewService(smallForestBank(t))
	want, err := svc.Predict(context.Background(), RawInput{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]PredictionResult, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Predict(context.Background(), RawInput{})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want, results[i])
	}
}

func TestService_Simulate(t *testing.T) {
	svc := NewService(fixedBank(t))

	points, err := svc.Simulate(context.Background(), RawInput{}, 200, 5)
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.Equal(t, 200.0, points[4].PositionMm)

	_, err = svc.Simulate(context.Background(), RawInput{"mode": []any{}}, 200, 5)
	assert.Equal(t, errors.KindInvalidInput, ErrorKind(err))
}

func TestService_RetrainFailureKeepsBank(t *testing.T) {
	logger, buf := log.NewTestLogger(log.LevelDebug)
	old := fixedBank(t)
	svc := NewService(old, WithServiceLogger(logger))

	ts, err := GenerateSynthetic(40, 9)
	require.NoError(t, err)
	for i := range ts.Defect {
		ts.Defect[i] = 1
	}

	_, err = svc.Retrain(context.Background(), ts, WithEstimators(2))
	require.Error(t, err)
	assert.Equal(t, errors.KindInsufficientTrainingData, ErrorKind(err))
	assert.Same(t, old, svc.Bank())
	assert.Contains(t, buf.String(), "retrain failed")
}

func TestService_RetrainSwaps(t *testing.T) {
	old := fixedBank(t)
	svc := NewService(old)

	ts, err := GenerateSynthetic(80, 9)
	require.NoError(t, err)

	bank, err := svc.Retrain(context.Background(), ts, WithEstimators(3), WithSeed(1))
	require.NoError(t, err)
	assert.Same(t, bank, svc.Bank())
	assert.NotEqual(t, old.Info().ID, svc.Bank().Info().ID)

	prev := svc.Swap(old)
	assert.Same(t, bank, prev)
}

type countingMonitor struct {
	values []float64
	fireAt int
	resets int
}

func (m *countingMonitor) Update(v float64) bool {
	m.values = append(m.values, v)
	return len(m.values) == m.fireAt
}

func (m *countingMonitor) Reset() {
	m.values = nil
	m.resets++
}

func TestService_DriftMonitor(t *testing.T) {
	logger, buf := log.NewTestLogger(log.LevelDebug)
	mon := &countingMonitor{fireAt: 2}
	svc := NewService(fixedBank(t), WithServiceLogger(logger), WithDriftMonitor(mon))

	for i := 0; i < 3; i++ {
		_, err := svc.Predict(context.Background(), RawInput{})
		require.NoError(t, err)
	}
	_, err := svc.Predict(context.Background(), RawInput{"current": "bad"})
	require.Error(t, err)

	assert.Equal(t, []float64{0.5, 0.5, 0.5}, mon.values)
	assert.Contains(t, buf.String(), "drift detected")
}

func TestService_SwapResetsDriftMonitor(t *testing.T) {
	mon := &countingMonitor{}
	svc := NewService(fixedBank(t), WithDriftMonitor(mon))

	for i := 0; i < 2; i++ {
		_, err := svc.Predict(context.Background(), RawInput{})
		require.NoError(t, err)
	}
	require.Len(t, mon.values, 2)

	svc.Swap(fixedBank(t))
	assert.Equal(t, 1, mon.resets)
	assert.Empty(t, mon.values)

	_, err := svc.Predict(context.Background(), RawInput{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, mon.values)
}
