package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/weld"
)

func openTemp(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRecordAndGet(t *testing.T) {
	reg := openTemp(t)
	ctx := context.Background()

	info := weld.BankInfo{
		ID:         "run-1",
		Kind:       weld.KindForest,
		Seed:       7,
		Samples:    2500,
		Estimators: 200,
		Source:     "synthetic",
		TrainedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Report: &weld.EvaluationReport{
			HoldoutSamples: 500,
			Penetration:    weld.RegressionScores{R2: 0.91, RMSE: 0.5, MAE: 0.4},
			Defect:         weld.ClassificationScores{Accuracy: 0.7, LogLoss: 0.55, AUC: 0.75},
		},
	}
	require.NoError(t, reg.Record(ctx, info))

	got, err := reg.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, info.Kind, got.Kind)
	assert.Equal(t, info.Seed, got.Seed)
	assert.Equal(t, info.Samples, got.Samples)
	assert.Equal(t, info.Source, got.Source)
	assert.True(t, info.TrainedAt.Equal(got.TrainedAt))
	require.NotNil(t, got.Report)
	assert.Equal(t, *info.Report, *got.Report)
}

func TestGet_NotFound(t *testing.T) {
	reg := openTemp(t)
	_, err := reg.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList(t *testing.T) {
	reg := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Record(ctx, weld.BankInfo{
			ID:        id,
			Kind:      weld.KindLinear,
			Samples:   100,
			TrainedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := reg.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Nil(t, runs[0].Report)

	all, err := reg.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
