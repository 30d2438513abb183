package weld

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/weldsim/linear"
	"github.com/YuminosukeSato/weldsim/preprocessing"
	"github.com/YuminosukeSato/weldsim/sklearn/linear_model"
)

var (
	forestOnce sync.Once
	forestBank *ModelBank
	forestErr  error
)

// smallForestBank trains a small forest bank once per test binary.
func smallForestBank(t *testing.T) *ModelBank {
	t.Helper()
	forestOnce.Do(func() {
		ts, err := GenerateSynthetic(300, DefaultDataSeed)
		if err != nil {
			forestErr = err
			return
		}
		forestBank, forestErr = Train(context.Background(), ts, WithEstimators(10), WithMaxDepth(8))
	})
	require.NoError(t, forestErr)
	return forestBank
}

// fixedBank returns a bank with hand-set linear models over an identity scaler:
// penetration = 1 + 0.1*travel_speed, bead_width = 4 + 0.2*torch_angle,
// defect probability = sigmoid(torch_angle - 5).
func fixedBank(t *testing.T) *ModelBank {
	t.Helper()

	scaler := preprocessing.NewStandardScalerDefault().WithFeatureNames(FeatureNames()...)
	scaler.Mean = make([]float64, NumFeatures)
	scaler.Scale = make([]float64, NumFeatures)
	for j := range scaler.Scale {
		scaler.Scale[j] = 1
	}
	scaler.NFeatures = NumFeatures
	scaler.SetFitted(NumFeatures, 2)

	linearModel := func(idx int, w, intercept float64) *linear.LinearRegression {
		lr := linear.NewLinearRegression()
		lr.Weights = make([]float64, NumFeatures)
		lr.Weights[idx] = w
		lr.Intercept = intercept
		lr.SetFitted(NumFeatures, 2)
		return lr
	}

	clf := linear_model.NewLogisticRegression()
	clf.Coef = [][]float64{make([]float64, NumFeatures)}
	clf.Coef[0][IdxTorchAngle] = 1
	clf.Intercepts = []float64{-5}
	clf.ClassLabels = []int{0, 1}
	clf.SetFitted(NumFeatures, 2)

	return &ModelBank{
		info:        BankInfo{ID: "fixed", Kind: KindLinear},
		scaler:      scaler,
		penetration: linearModel(IdxTravelSpeed, 0.1, 1),
		beadWidth:   linearModel(IdxTorchAngle, 0.2, 4),
		defect:      clf,
		descriptions: ModelDescriptions{
			Penetration: "LinearRegression",
			BeadWidth:   "LinearRegression",
			Defect:      "LogisticRegression",
		},
		positive: 1,
	}
}
