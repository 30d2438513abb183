package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n_samples × 1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は溶け込み深さ・ビード幅の回帰モデル (ForestとLinearの両方) が満たす
type Regressor interface {
	Fitter
	Predictor

	// IsFitted はモデルが学習済みかどうかを返す
	IsFitted() bool
}

// Classifier は欠陥判定の分類モデルが満たす
type Classifier interface {
	Fitter
	Predictor

	// PredictProba は各クラスの確率を返す (n_samples × n_classes)。
	// 列の順序は Classes() の順序に一致する。
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に見たクラスラベルを昇順で返す
	Classes() []int

	// IsFitted はモデルが学習済みかどうかを返す
	IsFitted() bool
}
