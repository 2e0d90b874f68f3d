package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type sinkEvent struct {
	name  string
	value float64
}

// captureSink records every emitted event for assertions.
type captureSink struct {
	events []sinkEvent
}

func (c *captureSink) SendEvent(name string, value float64) {
	c.events = append(c.events, sinkEvent{name: name, value: value})
}

// last returns the most recent event with the given name.
func (c *captureSink) last(name string) (float64, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].name == name {
			return c.events[i].value, true
		}
	}
	return 0, false
}

func (c *captureSink) names() []string {
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.name)
	}
	return out
}

func (c *captureSink) reset() {
	c.events = nil
}

func TestRunningAverage(t *testing.T) {
	t.Run("mean of samples", func(t *testing.T) {
		avg := NewRunningAverage("test")
		for _, v := range []float64{100, 200, 300} {
			avg.AddNext(v)
		}
		require.Equal(t, 3, avg.Count())
		require.Equal(t, 200.0, avg.Calculate())
	})

	t.Run("empty average is NaN", func(t *testing.T) {
		avg := NewRunningAverage("test")
		require.True(t, math.IsNaN(avg.Calculate()))
	})

	t.Run("calculate is idempotent", func(t *testing.T) {
		avg := NewRunningAverage("test")
		avg.AddNext(42)
		require.Equal(t, 42.0, avg.Calculate())
		require.Equal(t, 42.0, avg.Calculate())
		require.Equal(t, 1, avg.Count())
	})

	t.Run("reset yields NaN regardless of prior state", func(t *testing.T) {
		avg := NewRunningAverage("test")
		avg.AddNext(10)
		avg.AddNext(20)
		avg.Reset()
		require.Equal(t, 0, avg.Count())
		require.True(t, math.IsNaN(avg.Calculate()))
	})

	t.Run("non-finite values never change state", func(t *testing.T) {
		avg := NewRunningAverage("test")
		avg.AddNext(50)
		avg.AddNext(math.NaN())
		avg.AddNext(math.Inf(1))
		avg.AddNext(math.Inf(-1))
		require.Equal(t, 1, avg.Count())
		require.Equal(t, 50.0, avg.Calculate())
	})

	t.Run("report emits without resetting", func(t *testing.T) {
		sink := &captureSink{}
		avg := NewRunningAverage("stat.avg.test")
		avg.AddNext(5)
		avg.AddNext(15)

		avg.Report(sink, "p2p.")
		v, ok := sink.last("p2p.stat.avg.test")
		require.True(t, ok)
		require.Equal(t, 10.0, v)
		require.Equal(t, 2, avg.Count())
	})

	t.Run("report of empty window emits NaN", func(t *testing.T) {
		sink := &captureSink{}
		NewRunningAverage("stat.avg.test").Report(sink, "")
		v, ok := sink.last("stat.avg.test")
		require.True(t, ok)
		require.True(t, math.IsNaN(v))
	})
}
