package weld

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// Defaults of the synthetic training set.
const (
	DefaultSamples  = 2500
	DefaultDataSeed = 42
)

// MinTrainingRows is the smallest training set accepted by Train.
const MinTrainingRows = 2

// TrainingSet holds the features and the three targets, row-aligned.
type TrainingSet struct {
	Features    [][]float64 // rows × NumFeatures
	Penetration []float64
	BeadWidth   []float64
	Defect      []int // 0 or 1
}

// Len returns the number of rows.
func (ts TrainingSet) Len() int {
	return len(ts.Features)
}

// Validate checks row alignment, row width, label values and that both defect
// classes are present.
func (ts TrainingSet) Validate() error {
	n := ts.Len()
	if len(ts.Penetration) != n || len(ts.BeadWidth) != n || len(ts.Defect) != n {
		return errors.NewInsufficientTrainingDataError(n, "features and targets have different lengths")
	}
	if n < MinTrainingRows {
		return errors.NewInsufficientTrainingDataError(n, "need at least 2 rows")
	}

	var seen [2]bool
	for i, row := range ts.Features {
		if len(row) != NumFeatures {
			return errors.NewInsufficientTrainingDataError(n, "every row needs 8 feature columns")
		}
		d := ts.Defect[i]
		if d != 0 && d != 1 {
			return errors.NewInsufficientTrainingDataError(n, "defect labels must be 0 or 1")
		}
		seen[d] = true
	}
	if !seen[0] || !seen[1] {
		return errors.NewInsufficientTrainingDataError(n, "defect target contains a single class")
	}
	return nil
}

// Subset returns the rows at idx.
func (ts TrainingSet) Subset(idx []int) TrainingSet {
	out := TrainingSet{
		Features:    make([][]float64, len(idx)),
		Penetration: make([]float64, len(idx)),
		BeadWidth:   make([]float64, len(idx)),
		Defect:      make([]int, len(idx)),
	}
	for k, i := range idx {
		out.Features[k] = ts.Features[i]
		out.Penetration[k] = ts.Penetration[i]
		out.BeadWidth[k] = ts.BeadWidth[i]
		out.Defect[k] = ts.Defect[i]
	}
	return out
}

func (ts TrainingSet) featureMatrix() *mat.Dense {
	X := mat.NewDense(ts.Len(), NumFeatures, nil)
	for i, row := range ts.Features {
		X.SetRow(i, row)
	}
	return X
}

func column(values []float64) *mat.Dense {
	return mat.NewDense(len(values), 1, append([]float64(nil), values...))
}

func labelColumn(labels []int) *mat.Dense {
	y := mat.NewDense(len(labels), 1, nil)
	for i, l := range labels {
		y.Set(i, 0, float64(l))
	}
	return y
}

// GenerateSynthetic builds a physics-inspired training set: penetration grows
// with current and thickness and falls with travel speed; bead width grows with
// voltage, current and MIG wire feed; the defect probability is a logistic
// function of a settings/thickness mismatch score.
func GenerateSynthetic(n int, seed uint64) (TrainingSet, error) {
	if n < MinTrainingRows {
		return TrainingSet{}, errors.NewInvalidInputError("samples", n, "must be at least 2")
	}

	src := rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)
	uniform := func(lo, hi float64) []float64 {
		d := distuv.Uniform{Min: lo, Max: hi, Src: src}
		out := make([]float64, n)
		for i := range out {
			out[i] = d.Rand()
		}
		return out
	}

	modeDist := distuv.Bernoulli{P: 0.5, Src: src}
	mode := make([]float64, n)
	for i := range mode {
		mode[i] = modeDist.Rand()
	}
	current := uniform(40, 300)
	voltage := uniform(10, 40)
	wireFeed := uniform(0, 20)
	travel := uniform(1, 15)
	torch := uniform(0, 15)
	gas := uniform(5, 30)
	thickness := uniform(0.5, 12)

	penNoise := distuv.Normal{Mu: 0, Sigma: 0.5, Src: src}
	beadNoise := distuv.Normal{Mu: 0, Sigma: 0.3, Src: src}
	draw := distuv.Uniform{Min: 0, Max: 1, Src: src}

	ts := TrainingSet{
		Features:    make([][]float64, n),
		Penetration: make([]float64, n),
		BeadWidth:   make([]float64, n),
		Defect:      make([]int, n),
	}
	for i := 0; i < n; i++ {
		ts.Features[i] = []float64{
			mode[i], current[i], voltage[i], wireFeed[i],
			travel[i], torch[i], gas[i], thickness[i],
		}
		ts.Penetration[i] = 0.01*current[i] +
			0.2*math.Log1p(thickness[i]) -
			0.3*travel[i] +
			0.5*mode[i] +
			penNoise.Rand()
	}
	for i := 0; i < n; i++ {
		bead := 0.02*voltage[i] +
			0.01*current[i] +
			0.5*wireFeed[i]*mode[i] -
			0.1*travel[i] +
			0.2*math.Log1p(thickness[i]) +
			beadNoise.Rand()
		ts.BeadWidth[i] = math.Max(bead, 0.5)
	}
	for i := 0; i < n; i++ {
		mismatch := math.Abs(0.5*thickness[i]-0.01*current[i]) +
			0.2*math.Max(0, travel[i]-(1+0.8*thickness[i])) +
			0.3*math.Max(0, 10-gas[i]) +
			0.05*torch[i]
		p := 1 / (1 + math.Exp(-0.5*(mismatch-2.5)))
		if draw.Rand() < p {
			ts.Defect[i] = 1
		}
	}
	return ts, nil
}
