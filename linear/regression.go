// Package linear provides ordinary least squares regression.
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/core/parallel"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.StateManager

	// 学習結果 - gobで保存するため公開
	Weights   []float64 // 重み（係数）
	Intercept float64   // 切片
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit はモデルを訓練データで学習させる
// 切片列を加えた計画行列に対して最小二乗問題をQR分解で解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if r <= c {
		return errors.NewValueError("LinearRegression.Fit",
			fmt.Sprintf("need more samples than features, got %d samples for %d features", r, c))
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", X, r, c); err != nil {
		return err
	}

	// 切片項のために X に 1 の列を追加
	// X_with_intercept = [1, X]
	XWithIntercept := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			XWithIntercept.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				XWithIntercept.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var qr mat.QR
	qr.Factorize(XWithIntercept)

	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	weights := make([]float64, c)
	for j := 0; j < c; j++ {
		weights[j] = coef.At(j+1, 0)
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", weights, -1); err != nil {
		return err
	}

	lr.Intercept = coef.At(0, 0)
	lr.Weights = weights
	lr.SetFitted(c, r)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := lr.CheckFeatures("LinearRegression.Predict", X); err != nil {
		return nil, err
	}

	// 予測: y = X * weights + intercept
	r, _ := X.Dims()
	predictions := mat.NewDense(r, 1, nil)
	predictions.Mul(X, mat.NewVecDense(len(lr.Weights), lr.Weights))
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, predictions.At(i, 0)+lr.Intercept)
	}

	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	return append([]float64(nil), lr.Weights...)
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()

	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	// 全変動 (TSS) と残差変動 (RSS) を計算
	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		yPredVal := yPred.At(i, 0)

		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += (yTrue - yPredVal) * (yTrue - yPredVal)
	}

	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}

	return 1 - rss/tss, nil
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return "LinearRegression()"
	}
	return fmt.Sprintf("LinearRegression(n_features=%d)", len(lr.Weights))
}
