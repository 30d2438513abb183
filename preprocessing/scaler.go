// Package preprocessing はデータの前処理（標準化）を提供する
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/weldsim/core/model"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// degenerateTolerance は標準偏差がゼロとみなされる相対しきい値
const degenerateTolerance = 1e-12

// ScalerState は学習済みスケーラーの統計情報のスナップショット
type ScalerState struct {
	Mean  []float64
	Scale []float64
}

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
//
// 標準偏差は母標準偏差 (ddof=0) を使う。分散がゼロの列があるとFitは
// DegenerateFeatureErrorで失敗する（1で割って黙って通すことはしない）。
type StandardScaler struct {
	model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// FeatureNames はエラーメッセージに使う列名 (任意)
	FeatureNames []string

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// パラメータ:
//   - withMean: 平均を引くかどうか (デフォルト: true)
//   - withStd: 標準偏差で割るかどうか (デフォルト: true)
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// WithFeatureNames は列名を設定する。DegenerateFeatureErrorのメッセージに使われる。
func (s *StandardScaler) WithFeatureNames(names ...string) *StandardScaler {
	s.FeatureNames = append([]string(nil), names...)
	return s
}

func (s *StandardScaler) featureName(j int) string {
	if j < len(s.FeatureNames) {
		return s.FeatureNames[j]
	}
	return ""
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("StandardScaler.Fit", X, r, c); err != nil {
		return err
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != c {
		return errors.NewDimensionError("StandardScaler.Fit", len(s.FeatureNames), c, 1)
	}

	mean := make([]float64, c)
	scale := make([]float64, c)
	col := make([]float64, r)

	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m, variance := stat.PopMeanVariance(col, nil)
		std := math.Sqrt(variance)

		if s.WithMean {
			mean[j] = m
		}

		if !s.WithStd {
			scale[j] = 1.0
			continue
		}
		if std <= degenerateTolerance*math.Max(1, math.Abs(m)) {
			s.Reset()
			return errors.NewDegenerateFeatureError(j, s.featureName(j), col[0])
		}
		scale[j] = std
	}

	s.Mean = mean
	s.Scale = scale
	s.NFeatures = c
	s.SetFitted(c, r)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}

	return result, nil
}

// TransformVec は1サンプル分のベクトルを標準化する。推論時の1行変換用。
func (s *StandardScaler) TransformVec(x []float64) ([]float64, error) {
	if err := s.RequireFitted("StandardScaler", "TransformVec"); err != nil {
		return nil, err
	}
	if len(x) != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.TransformVec", s.NFeatures, len(x), 1)
	}

	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// InverseTransformVec はTransformVecの逆変換
func (s *StandardScaler) InverseTransformVec(z []float64) ([]float64, error) {
	if err := s.RequireFitted("StandardScaler", "InverseTransformVec"); err != nil {
		return nil, err
	}
	if len(z) != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransformVec", s.NFeatures, len(z), 1)
	}

	out := make([]float64, len(z))
	for j, v := range z {
		out[j] = v*s.Scale[j] + s.Mean[j]
	}
	return out, nil
}

// State は学習済みの統計情報のコピーを返す。未学習の場合は空。
func (s *StandardScaler) State() ScalerState {
	return ScalerState{
		Mean:  append([]float64(nil), s.Mean...),
		Scale: append([]float64(nil), s.Scale...),
	}
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}
