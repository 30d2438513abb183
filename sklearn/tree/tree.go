// Package tree implements CART decision trees for regression and classification.
//
// Both estimators store the fitted tree as a flat slice of nodes with exported
// fields so that a fitted model survives gob encoding unchanged.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is a single node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int       // split feature, -1 for leaves
	Threshold float64   // samples with x[Feature] <= Threshold go left
	Left      int       // index of the left child in Tree.Nodes
	Right     int       // index of the right child in Tree.Nodes
	Value     []float64 // leaf output: [mean] for regression, class proportions for classification
	Impurity  float64
	NSamples  int
	Depth     int
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a fitted binary tree. Node 0 is the root.
type Tree struct {
	Nodes     []Node
	NFeatures int
}

// apply returns the leaf reached by x.
func (t *Tree) apply(x []float64) *Node {
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = &t.Nodes[node.Left]
		} else {
			node = &t.Nodes[node.Right]
		}
	}
	return node
}

// Depth returns the depth of the deepest leaf (root has depth 0).
func (t *Tree) Depth() int {
	depth := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > depth {
			depth = t.Nodes[i].Depth
		}
	}
	return depth
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// splitInfo is the best split found for a node.
type splitInfo struct {
	feature   int
	threshold float64
	score     float64 // larger is better; comparable only within one node
	found     bool
}

// builder grows a tree depth-first from weighted samples.
type builder struct {
	p         *params
	cols      [][]float64 // column-major copy of X
	nFeatures int

	// regression target
	y []float64
	// classification target (class index per row)
	yClass   []int
	nClasses int

	w   []float64
	rng *rand.Rand

	nodes       []Node
	importances []float64
}

func newBuilder(p *params, X mat.Matrix, w []float64) *builder {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		cols[j] = mat.Col(nil, j, X)
	}
	seed := p.randomState
	return &builder{
		p:           p,
		cols:        cols,
		nFeatures:   c,
		w:           w,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		nodes:       make([]Node, 0, 2*r/max(1, p.minSamplesLeaf)),
		importances: make([]float64, c),
	}
}

func (b *builder) classification() bool {
	return b.yClass != nil
}

// grow builds the tree from the rows in indices (rows with zero weight excluded).
func (b *builder) grow(indices []int) *Tree {
	b.build(indices, 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	return &Tree{Nodes: b.nodes, NFeatures: b.nFeatures}
}

// nodeStats computes the leaf value, impurity and weight of a sample set.
func (b *builder) nodeStats(indices []int) (value []float64, impurity, weight float64) {
	if b.classification() {
		counts := make([]float64, b.nClasses)
		for _, i := range indices {
			counts[b.yClass[i]] += b.w[i]
			weight += b.w[i]
		}
		impurity = b.classImpurity(counts, weight)
		for k := range counts {
			counts[k] /= weight
		}
		return counts, impurity, weight
	}

	sum, sumSq := 0.0, 0.0
	for _, i := range indices {
		sum += b.w[i] * b.y[i]
		sumSq += b.w[i] * b.y[i] * b.y[i]
		weight += b.w[i]
	}
	mean := sum / weight
	impurity = math.Max(0, sumSq/weight-mean*mean)
	return []float64{mean}, impurity, weight
}

func (b *builder) classImpurity(counts []float64, weight float64) float64 {
	if weight <= 0 {
		return 0
	}
	imp := 0.0
	switch b.p.criterion {
	case "entropy", "log_loss":
		for _, c := range counts {
			if c > 0 {
				p := c / weight
				imp -= p * math.Log2(p)
			}
		}
	default:
		imp = 1.0
		for _, c := range counts {
			p := c / weight
			imp -= p * p
		}
	}
	return imp
}

func (b *builder) build(indices []int, depth int) int {
	nodeIdx := len(b.nodes)
	value, impurity, weight := b.nodeStats(indices)
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    value,
		Impurity: impurity,
		NSamples: len(indices),
		Depth:    depth,
	})

	// Check stopping conditions
	if (b.p.maxDepth > 0 && depth >= b.p.maxDepth) ||
		len(indices) < b.p.minSamplesSplit ||
		len(indices) < 2*b.p.minSamplesLeaf ||
		impurity <= 1e-12 {
		return nodeIdx
	}

	split := b.findBestSplit(indices)
	if !split.found {
		return nodeIdx
	}

	leftIndices, rightIndices := b.splitData(indices, split)
	_, impL, wL := b.nodeStats(leftIndices)
	_, impR, wR := b.nodeStats(rightIndices)
	b.importances[split.feature] += weight*impurity - wL*impL - wR*impR

	b.nodes[nodeIdx].Feature = split.feature
	b.nodes[nodeIdx].Threshold = split.threshold

	left := b.build(leftIndices, depth+1)
	right := b.build(rightIndices, depth+1)
	b.nodes[nodeIdx].Left = left
	b.nodes[nodeIdx].Right = right

	return nodeIdx
}

// findBestSplit evaluates candidate features in random order. With max_features
// set, the search stops after that many non-constant features were evaluated.
func (b *builder) findBestSplit(indices []int) splitInfo {
	features := b.rng.Perm(b.nFeatures)
	limit := b.nFeatures
	if b.p.maxFeatures > 0 && b.p.maxFeatures < limit {
		limit = b.p.maxFeatures
	}

	best := splitInfo{score: math.Inf(-1)}
	sorted := make([]int, len(indices))
	evaluated := 0
	for _, f := range features {
		if evaluated >= limit {
			break
		}
		copy(sorted, indices)
		col := b.cols[f]
		sort.Slice(sorted, func(i, j int) bool {
			return col[sorted[i]] < col[sorted[j]]
		})
		if col[sorted[0]] == col[sorted[len(sorted)-1]] {
			continue
		}
		evaluated++

		split := b.findBestSplitForFeature(sorted, f)
		if split.found && split.score > best.score {
			best = split
		}
	}
	return best
}

// findBestSplitForFeature sweeps the sorted samples once, keeping running
// left-side statistics.
func (b *builder) findBestSplitForFeature(sorted []int, feature int) splitInfo {
	col := b.cols[feature]
	n := len(sorted)
	minLeaf := b.p.minSamplesLeaf
	best := splitInfo{feature: feature, score: math.Inf(-1)}

	var (
		totalW, totalSum       float64
		leftW, leftSum         float64
		totalCounts, leftCount []float64
	)
	if b.classification() {
		totalCounts = make([]float64, b.nClasses)
		leftCount = make([]float64, b.nClasses)
	}
	for _, i := range sorted {
		totalW += b.w[i]
		if b.classification() {
			totalCounts[b.yClass[i]] += b.w[i]
		} else {
			totalSum += b.w[i] * b.y[i]
		}
	}

	rightCounts := make([]float64, len(totalCounts))
	for k := 0; k < n-1; k++ {
		i := sorted[k]
		leftW += b.w[i]
		if b.classification() {
			leftCount[b.yClass[i]] += b.w[i]
		} else {
			leftSum += b.w[i] * b.y[i]
		}

		// Skip if same value
		if col[i] == col[sorted[k+1]] {
			continue
		}
		if k+1 < minLeaf || n-k-1 < minLeaf {
			continue
		}

		rightW := totalW - leftW
		var score float64
		if b.classification() {
			for c := range totalCounts {
				rightCounts[c] = totalCounts[c] - leftCount[c]
			}
			score = -(leftW*b.classImpurity(leftCount, leftW) + rightW*b.classImpurity(rightCounts, rightW))
		} else {
			// Minimizing weighted SSE is maximizing sumL²/wL + sumR²/wR.
			rightSum := totalSum - leftSum
			score = leftSum*leftSum/leftW + rightSum*rightSum/rightW
		}

		if score > best.score {
			lo, hi := col[i], col[sorted[k+1]]
			threshold := lo + (hi-lo)/2
			if threshold >= hi {
				threshold = lo
			}
			best.score = score
			best.threshold = threshold
			best.found = true
		}
	}
	return best
}

func (b *builder) splitData(indices []int, split splitInfo) ([]int, []int) {
	var leftIndices, rightIndices []int
	col := b.cols[split.feature]
	for _, idx := range indices {
		if col[idx] <= split.threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

// sampleIndices returns the rows with positive weight, or every row when w is nil
// (in which case it also fills w with ones).
func sampleIndices(n int, w []float64) ([]int, []float64) {
	if w == nil {
		w = make([]float64, n)
		for i := range w {
			w[i] = 1
		}
	}
	indices := make([]int, 0, n)
	for i, v := range w {
		if v > 0 {
			indices = append(indices, i)
		}
	}
	return indices, w
}

func rowOf(X mat.Matrix, i int, buf []float64) []float64 {
	for j := range buf {
		buf[j] = X.At(i, j)
	}
	return buf
}
