// Package drift detects changes in the mean of a stream of bounded values.
package drift

import (
	"math"
	"sync"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// Detector is the common interface of drift detectors.
type Detector interface {
	// Update adds value and reports whether a change was detected.
	Update(value float64) bool

	// Reset clears the window.
	Reset()
}

// ADWIN (Adaptive Windowing) keeps the longest recent window whose older and
// newer parts have statistically equal means.
// A. Bifet, R. Gavalda (2007) "Learning from time-changing data with adaptive windowing"
//
// The window is a ring of running totals, so any sub-window sum is one
// subtraction. Splits are tested at newer-part lengths growing by a quarter
// per step, which keeps Update at O(log width).
//
// Values are expected in [0, 1]; the Hoeffding bound assumes that range.
type ADWIN struct {
	delta      float64 // confidence, smaller is less sensitive
	maxWidth   int     // oldest values are dropped beyond this
	minSubSize int     // smallest sub-window tested on either side of a split

	mu         sync.Mutex
	totals     []float64 // totals[k%len] is the sum of values before absolute index k
	head, tail int       // window is [head, tail)
	detections int
}

// Stats is a snapshot of the detector state.
type Stats struct {
	Width      int     `json:"width"`
	Mean       float64 `json:"mean"`
	Detections int     `json:"detections"`
}

// ADWINOption configures an ADWIN.
type ADWINOption func(*ADWIN)

// WithDelta sets the confidence parameter (default 0.002).
func WithDelta(delta float64) ADWINOption {
	return func(a *ADWIN) { a.delta = delta }
}

// WithMaxWidth bounds the window length (default 1000).
func WithMaxWidth(n int) ADWINOption {
	return func(a *ADWIN) { a.maxWidth = n }
}

// WithMinSubWindow sets the smallest sub-window on each side of a split (default 5).
func WithMinSubWindow(n int) ADWINOption {
	return func(a *ADWIN) { a.minSubSize = n }
}

// NewADWIN returns a detector with an empty window.
func NewADWIN(opts ...ADWINOption) (*ADWIN, error) {
	a := &ADWIN{
		delta:      0.002,
		maxWidth:   1000,
		minSubSize: 5,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.delta <= 0 || a.delta >= 1 {
		return nil, errors.NewValidationError("delta", "must be in (0, 1)", a.delta)
	}
	if a.minSubSize < 1 {
		return nil, errors.NewValidationError("min_sub_window", "must be >= 1", a.minSubSize)
	}
	if a.maxWidth < 2*a.minSubSize {
		return nil, errors.NewValidationError("max_width", "must be at least twice min_sub_window", a.maxWidth)
	}
	return a, nil
}

// Update adds value. When the mean of an older part of the window differs
// from the rest by more than the Hoeffding bound, the older part is dropped
// and Update returns true.
func (a *ADWIN) Update(value float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.totals == nil {
		a.totals = make([]float64, a.maxWidth+1)
	}
	next := a.total(a.tail) + value
	a.tail++
	a.totals[a.tail%len(a.totals)] = next
	if a.tail-a.head > a.maxWidth {
		a.head++
	}

	cut := a.findCut()
	if cut == 0 {
		return false
	}
	a.head += cut
	a.detections++
	return true
}

func (a *ADWIN) total(k int) float64 {
	return a.totals[k%len(a.totals)]
}

// findCut returns the length of the oldest prefix to drop, or 0. The
// longest significant prefix wins.
func (a *ADWIN) findCut() int {
	n := a.tail - a.head
	if n < 2*a.minSubSize {
		return 0
	}
	sum := a.total(a.tail) - a.total(a.head)
	logTerm := math.Log(4 * float64(n) / a.delta)

	for n1 := a.minSubSize; n-n1 >= a.minSubSize; n1 = max(n1+1, n1*5/4) {
		n0 := n - n1
		sum0 := a.total(a.head+n0) - a.total(a.head)
		mean0 := sum0 / float64(n0)
		mean1 := (sum - sum0) / float64(n1)

		eps := math.Sqrt(0.5 * (1/float64(n0) + 1/float64(n1)) * logTerm)
		if math.Abs(mean0-mean1) > eps {
			return n0
		}
	}
	return 0
}

// Stats returns the current window statistics.
func (a *ADWIN) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{Width: a.tail - a.head, Detections: a.detections}
	if s.Width > 0 {
		s.Mean = (a.total(a.tail) - a.total(a.head)) / float64(s.Width)
	}
	return s
}

// Reset clears the window and the detection count.
func (a *ADWIN) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totals = nil
	a.head, a.tail = 0, 0
	a.detections = 0
}
