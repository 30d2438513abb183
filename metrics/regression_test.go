package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestRegressionScores(t *testing.T) {
	// 溶け込み深さ (mm) の実測と予測
	yTrue := vec(1.2, 1.8, 2.4, 3.0)
	yPred := vec(1.0, 2.0, 2.4, 3.4)

	mse, err := MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.06, mse, 1e-12)

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.06), rmse, 1e-12)

	mae, err := MAE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, mae, 1e-12)

	// mean 2.1, TSS = 0.81+0.09+0.09+0.81 = 1.8, RSS = 0.24
	r2, err := R2Score(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 1-0.24/1.8, r2, 1e-12)
}

func TestRegressionScores_Perfect(t *testing.T) {
	y := vec(4.1, 5.3, 6.0)

	mse, err := MSE(y, y)
	require.NoError(t, err)
	assert.Zero(t, mse)

	r2, err := R2Score(y, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)
}

func TestR2Score_WorseThanMean(t *testing.T) {
	r2, err := R2Score(vec(1, 2, 3), vec(3, 2, 1))
	require.NoError(t, err)
	assert.InDelta(t, -3.0, r2, 1e-12)
}

func TestRegressionScores_Errors(t *testing.T) {
	fns := map[string]func(a, b *mat.VecDense) (float64, error){
		"MSE":     MSE,
		"RMSE":    RMSE,
		"MAE":     MAE,
		"R2Score": R2Score,
	}
	for name, fn := range fns {
		t.Run(name+"/dimension mismatch", func(t *testing.T) {
			_, err := fn(vec(1, 2, 3), vec(1, 2))
			assert.Error(t, err)
		})
		t.Run(name+"/nil", func(t *testing.T) {
			_, err := fn(nil, nil)
			assert.Error(t, err)
		})
	}

	_, err := R2Score(vec(2, 2, 2), vec(1, 2, 3))
	assert.ErrorContains(t, err, "no variance")
}

func BenchmarkRMSE(b *testing.B) {
	n := 10000
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i%97)*0.05)
		yPred.SetVec(i, float64(i%89)*0.05)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = RMSE(yTrue, yPred)
	}
}
