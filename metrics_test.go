package asyncio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyMetricsExactSmallSample(t *testing.T) {
	var l LatencyMetrics
	durations := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	}
	for _, d := range durations {
		l.Record(d)
	}
	n := l.Sample()
	require.Equal(t, 3, n)
	assert.Equal(t, 30*time.Millisecond, l.Max)
	assert.Equal(t, 20*time.Millisecond, l.Mean)
}

func TestLatencyMetricsLargeSamplePSquare(t *testing.T) {
	var l LatencyMetrics
	for i := 1; i <= 1000; i++ {
		l.Record(time.Duration(i) * time.Millisecond)
	}
	n := l.Sample()
	require.Equal(t, 1000, n)
	// p50 of a uniform 1..1000ms distribution should land near 500ms; the
	// P-Square estimator is approximate, so allow a generous tolerance.
	assert.InDelta(t, 500*time.Millisecond, l.P50, float64(100*time.Millisecond))
	assert.Equal(t, 1000*time.Millisecond, l.Max)
}

func TestLatencyMetricsEmptySample(t *testing.T) {
	var l LatencyMetrics
	if n := l.Sample(); n != 0 {
		t.Fatalf("Sample() on an empty LatencyMetrics = %d, want 0", n)
	}
}

func TestQueueMetricsUpdatePost(t *testing.T) {
	var q QueueMetrics
	q.UpdatePost(5)
	q.UpdatePost(2)
	q.UpdatePost(9)
	assert.Equal(t, 9, q.PostCurrent)
	assert.Equal(t, 9, q.PostMax)
	assert.True(t, q.PostAvg > 0)
}

func TestQueueMetricsUpdateInFlight(t *testing.T) {
	var q QueueMetrics
	q.UpdateInFlight(1)
	q.UpdateInFlight(4)
	q.UpdateInFlight(3)
	assert.Equal(t, 3, q.InFlightCurrent)
	assert.Equal(t, 4, q.InFlightMax)
}

func TestIOPSCounterPanicsOnBadArgs(t *testing.T) {
	assert.Panics(t, func() { NewIOPSCounter(0, time.Second) })
	assert.Panics(t, func() { NewIOPSCounter(time.Second, 0) })
	assert.Panics(t, func() { NewIOPSCounter(time.Second, 2*time.Second) })
}

func TestIOPSCounterCountsWithinWindow(t *testing.T) {
	c := NewIOPSCounter(time.Second, 100*time.Millisecond)
	for i := 0; i < 10; i++ {
		c.Increment()
	}
	iops := c.IOPS()
	assert.Greater(t, iops, 0.0)
}

func TestMetricsIOPSLazyInit(t *testing.T) {
	m := &Metrics{}
	// IOPS() must not panic before any completion has been recorded, and
	// must report zero.
	assert.Equal(t, 0.0, m.IOPS())
	m.recordCompletion()
	assert.Greater(t, m.IOPS(), 0.0)
}
