// Package ensemble implements bagged random forests on top of sklearn/tree.
package ensemble

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// forestParams holds the hyperparameters shared by both forests.
type forestParams struct {
	nEstimators    int
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int // 0 means the estimator's default
	bootstrap      bool
	randomState    uint64
	nJobs          int // <= 0 means one worker per CPU
}

func defaultForestParams() forestParams {
	return forestParams{
		nEstimators:    100,
		minSamplesLeaf: 1,
		bootstrap:      true,
	}
}

// Option configures a random forest.
type Option func(*forestParams)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(p *forestParams) { p.nEstimators = n }
}

// WithMaxDepth limits the depth of every tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(p *forestParams) { p.maxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum samples per leaf of every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(p *forestParams) { p.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features considered per split.
// Defaults: all features for regression, floor(sqrt(n_features)) for classification.
func WithMaxFeatures(n int) Option {
	return func(p *forestParams) { p.maxFeatures = n }
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(bootstrap bool) Option {
	return func(p *forestParams) { p.bootstrap = bootstrap }
}

// WithRandomState seeds the forest. Tree i draws from a stream derived from
// (seed, i), so the result does not depend on WithNJobs.
func WithRandomState(seed uint64) Option {
	return func(p *forestParams) { p.randomState = seed }
}

// WithNJobs sets the number of goroutines used to grow trees.
func WithNJobs(n int) Option {
	return func(p *forestParams) { p.nJobs = n }
}

func (p *forestParams) validate() error {
	if p.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", p.nEstimators)
	}
	if p.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", p.maxDepth)
	}
	if p.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", p.minSamplesLeaf)
	}
	if p.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", p.maxFeatures)
	}
	return nil
}

func (p *forestParams) getParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     p.nEstimators,
		"max_depth":        p.maxDepth,
		"min_samples_leaf": p.minSamplesLeaf,
		"max_features":     p.maxFeatures,
		"bootstrap":        p.bootstrap,
		"random_state":     p.randomState,
		"n_jobs":           p.nJobs,
	}
}

// treeStream returns the random stream owned by tree i.
func (p *forestParams) treeStream(i int) *rand.Rand {
	return rand.New(rand.NewPCG(p.randomState, uint64(i)+1))
}

// bootstrapWeights draws n rows with replacement and returns per-row counts.
// Without bootstrap every row has weight 1.
func (p *forestParams) bootstrapWeights(rng *rand.Rand, n int) []float64 {
	w := make([]float64, n)
	if !p.bootstrap {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	for k := 0; k < n; k++ {
		w[rng.IntN(n)]++
	}
	return w
}

func sqrtFeatures(nFeatures int) int {
	return max(1, int(math.Sqrt(float64(nFeatures))))
}
