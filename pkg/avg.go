package stats

import (
	"math"

	"github.com/pion/ion-stats/pkg/logger"
)

// Sink accepts named numeric analytics events. Values may be NaN, which
// signals "no samples in this window" rather than an error.
type Sink interface {
	SendEvent(name string, value float64)
}

// RunningAverage accumulates a count and sum for one named metric between
// resets. The zero count average is NaN.
type RunningAverage struct {
	name  string
	count int
	sum   float64
}

func NewRunningAverage(name string) *RunningAverage {
	return &RunningAverage{name: name}
}

func (a *RunningAverage) Name() string {
	return a.name
}

func (a *RunningAverage) Count() int {
	return a.count
}

// AddNext folds one value into the average. NaN and infinite values are
// dropped without touching the accumulated state.
func (a *RunningAverage) AddNext(value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		logger.Debugw("dropping non-finite value for average", "name", a.name, "value", value)
		return
	}
	a.sum += value
	a.count++
}

// Calculate returns the arithmetic mean of everything added since the last
// reset, or NaN when nothing was added.
func (a *RunningAverage) Calculate() float64 {
	if a.count == 0 {
		return math.NaN()
	}
	return a.sum / float64(a.count)
}

// Reset zeroes the accumulated state.
func (a *RunningAverage) Reset() {
	a.sum = 0
	a.count = 0
}

// Report emits the current average to the sink under prefix+name. It does
// not reset; an empty window is emitted as NaN.
func (a *RunningAverage) Report(sink Sink, prefix string) {
	sink.SendEvent(prefix+a.name, a.Calculate())
}
