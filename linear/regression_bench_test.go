package linear

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// benchData は y = 1 + Σ 0.5·(j+1)·x_j + ノイズ のデータを生成する
func benchData(rows, cols int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(42, 42))

	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 1.0
		for j := 0; j < cols; j++ {
			v := rng.Float64()*2 - 1
			X.Set(i, j, v)
			sum += v * float64(j+1) * 0.5
		}
		y.Set(i, 0, sum+(rng.Float64()-0.5)*0.1)
	}
	return X, y
}

// 閾値 (parallelThreshold) の前後と学習データの既定サイズ
func BenchmarkLinearRegressionFit(b *testing.B) {
	sizes := []struct {
		name       string
		rows, cols int
	}{
		{"Sequential_900x8", 900, 8},
		{"Parallel_1000x8", 1000, 8},
		{"Bank_2500x8", 2500, 8},
		{"Large_20000x8", 20000, 8},
	}

	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			X, y := benchData(size.rows, size.cols)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := NewLinearRegression().Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLinearRegressionPredict(b *testing.B) {
	X, y := benchData(2500, 8)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		b.Fatal(err)
	}
	row := mat.NewDense(1, 8, mat.Row(nil, 0, X))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := lr.Predict(row); err != nil {
			b.Fatal(err)
		}
	}
}
