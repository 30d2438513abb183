package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScalerDefault()
	Z, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 25}, scaler.Mean, 1e-12)
	// ddof=0: sqrt(1.25)
	assert.InDelta(t, math.Sqrt(1.25), scaler.Scale[0], 1e-12)
	assert.InDelta(t, math.Sqrt(125), scaler.Scale[1], 1e-12)

	r, c := Z.Dims()
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += Z.At(i, j)
		}
		assert.InDelta(t, 0, sum/float64(r), 1e-12)
	}
	assert.InDelta(t, -1.5/math.Sqrt(1.25), Z.At(0, 0), 1e-12)
}

func TestStandardScaler_InverseRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 3, []float64{
		0.5, 120, 1,
		-2, 300, 0,
		7.25, 40, 1,
	})
	scaler := NewStandardScalerDefault()
	require.NoError(t, scaler.Fit(X))

	Z, err := scaler.Transform(X)
	require.NoError(t, err)
	back, err := scaler.InverseTransform(Z)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-9))

	row := []float64{3, 150, 0.5}
	z, err := scaler.TransformVec(row)
	require.NoError(t, err)
	orig, err := scaler.InverseTransformVec(z)
	require.NoError(t, err)
	assert.InDeltaSlice(t, row, orig, 1e-9)
}

func TestStandardScaler_DegenerateColumn(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
	})

	scaler := NewStandardScalerDefault().WithFeatureNames("current", "gas_flow_rate")
	err := scaler.Fit(X)
	require.Error(t, err)

	var degenerate *errors.DegenerateFeatureError
	require.True(t, errors.As(err, &degenerate))
	assert.Equal(t, 1, degenerate.Index)
	assert.Equal(t, "gas_flow_rate", degenerate.Feature)
	assert.Equal(t, 5.0, degenerate.Value)
	assert.Equal(t, errors.KindDegenerateFeature, errors.KindOf(err))
	assert.False(t, scaler.IsFitted())
}

func TestStandardScaler_WithoutStdAllowsConstantColumn(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{3, 3})
	scaler := NewStandardScaler(true, false)
	require.NoError(t, scaler.Fit(X))
	assert.Equal(t, []float64{1}, scaler.Scale)
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, err = scaler.TransformVec([]float64{1})
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))

	var dim *errors.DimensionError
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	assert.True(t, errors.As(err, &dim))
	_, err = scaler.TransformVec([]float64{1, 2, 3})
	assert.True(t, errors.As(err, &dim))

	err = NewStandardScalerDefault().Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}))
	var unstable *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &unstable))

	err = NewStandardScalerDefault().WithFeatureNames("a").Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	assert.True(t, errors.As(err, &dim))
}

func TestStandardScaler_StateIsACopy(t *testing.T) {
	scaler := NewStandardScalerDefault()
	require.NoError(t, scaler.Fit(mat.NewDense(2, 1, []float64{0, 2})))

	state := scaler.State()
	state.Mean[0] = 99
	assert.Equal(t, 1.0, scaler.Mean[0])
	assert.Equal(t, []float64{1}, scaler.State().Scale)
	assert.Contains(t, scaler.String(), "n_features=1")
}
