package weld

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/metrics"
)

func regressionScores(m model.Regressor, X mat.Matrix, y []float64) (RegressionScores, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return RegressionScores{}, err
	}
	yTrue := mat.NewVecDense(len(y), append([]float64(nil), y...))
	yPred := mat.NewVecDense(len(y), nil)
	for i := range y {
		yPred.SetVec(i, pred.At(i, 0))
	}

	var s RegressionScores
	if s.R2, err = metrics.R2Score(yTrue, yPred); err != nil {
		return RegressionScores{}, err
	}
	if s.RMSE, err = metrics.RMSE(yTrue, yPred); err != nil {
		return RegressionScores{}, err
	}
	if s.MAE, err = metrics.MAE(yTrue, yPred); err != nil {
		return RegressionScores{}, err
	}
	return s, nil
}

func classificationScores(m model.Classifier, positive int, X mat.Matrix, labels []int) (ClassificationScores, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return ClassificationScores{}, err
	}
	n := len(labels)
	yTrue := mat.NewVecDense(n, nil)
	yProb := mat.NewVecDense(n, nil)
	yHat := mat.NewVecDense(n, nil)
	for i, l := range labels {
		p := proba.At(i, positive)
		yTrue.SetVec(i, float64(l))
		yProb.SetVec(i, p)
		yHat.SetVec(i, float64(DefectLabel(p)))
	}

	var s ClassificationScores
	if s.Accuracy, err = metrics.Accuracy(yTrue, yHat); err != nil {
		return ClassificationScores{}, err
	}
	if s.LogLoss, err = metrics.BinaryLogLoss(yTrue, yProb); err != nil {
		return ClassificationScores{}, err
	}
	if s.AUC, err = metrics.AUC(yTrue, yProb); err != nil {
		return ClassificationScores{}, err
	}
	return s, nil
}
