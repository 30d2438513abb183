package tree

import (
	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// params holds the hyperparameters shared by both tree estimators.
type params struct {
	criterion       string
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features
	randomState     uint64
}

func defaultParams(criterion string) params {
	return params{
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
}

// Option configures a decision tree.
type Option func(*params)

// WithCriterion sets the split criterion: "gini" or "entropy" for
// classification, "squared_error" for regression.
func WithCriterion(criterion string) Option {
	return func(p *params) { p.criterion = criterion }
}

// WithMaxDepth limits tree depth. 0 grows until leaves are pure.
func WithMaxDepth(depth int) Option {
	return func(p *params) { p.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(p *params) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *params) { p.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are considered per split. 0 means all.
func WithMaxFeatures(n int) Option {
	return func(p *params) { p.maxFeatures = n }
}

// WithRandomState seeds the feature permutation used at each split.
func WithRandomState(seed uint64) Option {
	return func(p *params) { p.randomState = seed }
}

func (p *params) validate(criteria ...string) error {
	valid := false
	for _, c := range criteria {
		if p.criterion == c {
			valid = true
		}
	}
	if !valid {
		return errors.NewValidationError("criterion", "unsupported criterion", p.criterion)
	}
	if p.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", p.maxDepth)
	}
	if p.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", p.minSamplesSplit)
	}
	if p.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", p.minSamplesLeaf)
	}
	if p.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", p.maxFeatures)
	}
	return nil
}

func (p *params) getParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         p.criterion,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"random_state":      p.randomState,
	}
}

func (p *params) setParams(values map[string]interface{}) error {
	for key, value := range values {
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			p.criterion = s
		case "random_state":
			switch v := value.(type) {
			case uint64:
				p.randomState = v
			case int:
				p.randomState = uint64(v)
			default:
				return errors.NewValidationError(key, "must be an integer", value)
			}
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			switch key {
			case "max_depth":
				p.maxDepth = v
			case "min_samples_split":
				p.minSamplesSplit = v
			case "min_samples_leaf":
				p.minSamplesLeaf = v
			case "max_features":
				p.maxFeatures = v
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}
