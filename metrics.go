package asyncio

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics for a Service: I/O completion latency
// distribution, post-queue and in-flight-request depth, and completed-
// request throughput. Metrics are low-overhead and thread-safe, and are
// only populated when a Service is constructed with WithMetrics(true).
//
// Example:
//
//	svc, _ := New(WithMetrics(true))
//	_, _ = svc.Run()
//	stats := svc.Metrics()
//	fmt.Printf("IOPS: %.2f, P99 completion latency: %v\n",
//		stats.IOPS(), stats.Latency.P99)
type Metrics struct {
	// Latency metrics (has pointer field - put first for alignment)
	Latency LatencyMetrics

	// Queue depth metrics
	Queue QueueMetrics

	iopsOnce sync.Once
	iops     *IOPSCounter
}

// IOPS returns the current completed-requests-per-second rate over a
// rolling 10-second window.
func (m *Metrics) IOPS() float64 {
	m.iopsOnce.Do(func() {
		m.iops = NewIOPSCounter(10*time.Second, 100*time.Millisecond)
	})
	return m.iops.IOPS()
}

// recordCompletion is called once per request completion to feed the IOPS
// counter.
func (m *Metrics) recordCompletion() {
	m.iopsOnce.Do(func() {
		m.iops = NewIOPSCounter(10*time.Second, 100*time.Millisecond)
	})
	m.iops.Increment()
}

// LatencyMetrics tracks the distribution of per-request completion latency
// (submit to onComplete) with percentiles, using the P-Square algorithm for
// O(1) streaming percentile estimation.
type LatencyMetrics struct {
	// Pointer fields first for optimal alignment (betteralign)
	quantiles *latencyQuantileTracker

	// Lock for thread-safe access
	mu sync.RWMutex

	// Legacy sample buffer, kept for exact percentile values when the
	// sample count is too small for the P-Square estimate to be trustworthy.
	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	// Computed percentiles (cached after Sample() call)
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration

	// Statistics
	Mean time.Duration
	Sum  time.Duration
}

// sampleSize is the maximum number of latency samples retained in the
// legacy ring buffer.
const sampleSize = 1000

// Record records the completion latency of one request. Called internally
// by the onComplete wrapper that Service.submitRequest installs when metrics
// are enabled.
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.quantiles == nil {
		l.quantiles = newLatencyQuantileTracker()
	}
	l.quantiles.update(duration)

	if l.sampleCount >= sampleSize {
		old := l.samples[l.sampleIdx]
		l.Sum -= old
	}

	l.samples[l.sampleIdx] = duration
	l.Sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample computes percentiles from collected samples and returns the number
// of samples they're based on. For sample counts below 5 it falls back to
// exact O(n log n) sorting; above that it uses the O(1) P-Square estimate.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	if count < 5 || l.quantiles == nil {
		sorted := make([]time.Duration, count)
		copy(sorted, l.samples[:count])
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		l.P50 = sorted[percentileIndex(count, 50)]
		l.P90 = sorted[percentileIndex(count, 90)]
		l.P95 = sorted[percentileIndex(count, 95)]
		l.P99 = sorted[percentileIndex(count, 99)]
		l.Max = sorted[count-1]
		l.Mean = l.Sum / time.Duration(count)
		return count
	}

	l.P50 = l.quantiles.quantile(quantileP50)
	l.P90 = l.quantiles.quantile(quantileP90)
	l.P95 = l.quantiles.quantile(quantileP95)
	l.P99 = l.quantiles.quantile(quantileP99)
	l.Max = l.quantiles.maxDuration()
	l.Mean = l.Sum / time.Duration(count)
	return count
}

// quantileP50..quantileP99 index latencyQuantileTracker.markers; the tracker
// is fixed to exactly these four, since they're the only ones LatencyMetrics
// ever reports.
const (
	quantileP50 = iota
	quantileP90
	quantileP95
	quantileP99
	quantileCount
)

// latencyQuantileTracker maintains the P50/P90/P95/P99 completion-latency
// quantiles with the P-Square algorithm (Jain & Chlamtac, 1985), giving O(1)
// per-completion updates and O(1) quantile retrieval in exchange for an
// approximate (rather than exact) result once past the first five
// observations — LatencyMetrics falls back to exact sorting below that
// threshold. Not thread-safe; LatencyMetrics.mu guards every call.
type latencyQuantileTracker struct {
	markers [quantileCount]*latencyQuantileMarker
	count   int
	max     float64
}

// newLatencyQuantileTracker builds a tracker for the four percentiles
// LatencyMetrics reports.
func newLatencyQuantileTracker() *latencyQuantileTracker {
	return &latencyQuantileTracker{
		markers: [quantileCount]*latencyQuantileMarker{
			quantileP50: newLatencyQuantileMarker(0.50),
			quantileP90: newLatencyQuantileMarker(0.90),
			quantileP95: newLatencyQuantileMarker(0.95),
			quantileP99: newLatencyQuantileMarker(0.99),
		},
		max: -math.MaxFloat64,
	}
}

// update feeds one completion latency observation to every marker.
func (t *latencyQuantileTracker) update(d time.Duration) {
	x := float64(d)
	t.count++
	if x > t.max {
		t.max = x
	}
	for _, m := range t.markers {
		m.update(x)
	}
}

// quantile returns the current estimate for markers[i], one of the
// quantileP* constants above.
func (t *latencyQuantileTracker) quantile(i int) time.Duration {
	return time.Duration(t.markers[i].estimate())
}

// maxDuration returns the largest observation seen so far.
func (t *latencyQuantileTracker) maxDuration() time.Duration {
	if t.count == 0 {
		return 0
	}
	return time.Duration(t.max)
}

// latencyQuantileMarker is a single P-Square marker set tracking one target
// quantile over a stream of completion-latency observations (given as
// float64 nanoseconds so the P-Square arithmetic stays in plain floats).
//
// Reference: Jain, R. and Chlamtac, I. (1985). "The P² Algorithm for Dynamic
// Calculation of Quantiles and Histograms Without Storing Observations".
// Communications of the ACM, 28(10), pp. 1076-1085.
//
// Not thread-safe; callers serialize access (latencyQuantileTracker here).
type latencyQuantileMarker struct {
	p float64 // target quantile, 0.0 to 1.0

	q  [5]float64 // marker heights
	n  [5]int     // marker positions
	np [5]float64 // desired marker positions
	dn [5]float64 // desired position increments

	count   int
	initBuf [5]float64 // buffers observations until there are 5 of them
}

// newLatencyQuantileMarker builds a marker set for target quantile p, which
// is clamped to [0, 1].
func newLatencyQuantileMarker(p float64) *latencyQuantileMarker {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &latencyQuantileMarker{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// update folds one observation into the marker set. O(1).
func (m *latencyQuantileMarker) update(x float64) {
	m.count++

	if m.count <= 5 {
		m.initBuf[m.count-1] = x
		if m.count == 5 {
			m.seed()
		}
		return
	}

	var k int
	switch {
	case x < m.q[0]:
		m.q[0] = x
		k = 0
	case x >= m.q[4]:
		m.q[4] = x
		k = 3
	default:
		for k = 0; k < 4; k++ {
			if m.q[k] <= x && x < m.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		m.n[i]++
	}
	for i := 0; i < 5; i++ {
		m.np[i] += m.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := m.np[i] - float64(m.n[i])
		if (d >= 1 && m.n[i+1]-m.n[i] > 1) || (d <= -1 && m.n[i-1]-m.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			if qPrime := m.parabolic(i, sign); m.q[i-1] < qPrime && qPrime < m.q[i+1] {
				m.q[i] = qPrime
			} else {
				m.q[i] = m.linear(i, sign)
			}
			m.n[i] += sign
		}
	}
}

// seed initializes the five markers from the first five observations.
func (m *latencyQuantileMarker) seed() {
	for i := 1; i < 5; i++ {
		key := m.initBuf[i]
		j := i - 1
		for j >= 0 && m.initBuf[j] > key {
			m.initBuf[j+1] = m.initBuf[j]
			j--
		}
		m.initBuf[j+1] = key
	}
	for i := 0; i < 5; i++ {
		m.q[i] = m.initBuf[i]
		m.n[i] = i
	}
	m.np = [5]float64{0, 2 * m.p, 4 * m.p, 2 + 2*m.p, 4}
}

func (m *latencyQuantileMarker) parabolic(i, d int) float64 {
	df := float64(d)
	ni, niPrev, niNext := float64(m.n[i]), float64(m.n[i-1]), float64(m.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (m.q[i+1] - m.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (m.q[i] - m.q[i-1]) / (ni - niPrev)
	return m.q[i] + term1*(term2+term3)
}

func (m *latencyQuantileMarker) linear(i, d int) float64 {
	if d == 1 {
		return m.q[i] + (m.q[i+1]-m.q[i])/float64(m.n[i+1]-m.n[i])
	}
	return m.q[i] - (m.q[i]-m.q[i-1])/float64(m.n[i]-m.n[i-1])
}

// estimate returns the current quantile estimate. Below five observations it
// falls back to an exact sorted lookup over the buffered values.
func (m *latencyQuantileMarker) estimate() float64 {
	if m.count == 0 {
		return 0
	}
	if m.count < 5 {
		sorted := make([]float64, m.count)
		copy(sorted, m.initBuf[:m.count])
		for i := 1; i < m.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(m.count-1) * m.p)
		if index >= m.count {
			index = m.count - 1
		}
		return sorted[index]
	}
	return m.q[2]
}

func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// QueueMetrics tracks queue depth statistics for the post queue and the set
// of in-flight backend requests.
type QueueMetrics struct {
	mu sync.RWMutex

	PostCurrent     int
	InFlightCurrent int

	PostMax     int
	InFlightMax int

	// Exponential moving averages, alpha=0.1, warmstarted to the first
	// observed value for accuracy.
	PostAvg     float64
	InFlightAvg float64

	postEMAInitialized     bool
	inFlightEMAInitialized bool
}

// UpdatePost updates the post-queue depth metrics. Called from Post.
func (q *QueueMetrics) UpdatePost(depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.PostCurrent = depth
	if depth > q.PostMax {
		q.PostMax = depth
	}
	if !q.postEMAInitialized {
		q.PostAvg = float64(depth)
		q.postEMAInitialized = true
	} else {
		q.PostAvg = 0.9*q.PostAvg + 0.1*float64(depth)
	}
}

// UpdateInFlight updates the in-flight-request depth metrics. Called from
// submitRequest and from the completion wrapper it installs.
func (q *QueueMetrics) UpdateInFlight(depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.InFlightCurrent = depth
	if depth > q.InFlightMax {
		q.InFlightMax = depth
	}
	if !q.inFlightEMAInitialized {
		q.InFlightAvg = float64(depth)
		q.inFlightEMAInitialized = true
	} else {
		q.InFlightAvg = 0.9*q.InFlightAvg + 0.1*float64(depth)
	}
}

// IOPSCounter tracks completed-request throughput with a rolling window,
// implemented as a ring buffer of time-bucketed counts.
type IOPSCounter struct {
	lastRotation atomic.Value // Stores time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewIOPSCounter creates an IOPS counter with the given rolling window and
// bucket granularity. windowSize and bucketSize must be positive, and
// bucketSize must not exceed windowSize.
func NewIOPSCounter(windowSize, bucketSize time.Duration) *IOPSCounter {
	if windowSize <= 0 {
		panic("asyncio: windowSize must be positive (use > 0 duration)")
	}
	if bucketSize <= 0 {
		panic("asyncio: bucketSize must be positive (use > 0 duration)")
	}
	if bucketSize > windowSize {
		panic("asyncio: bucketSize cannot exceed windowSize (use <= windowSize)")
	}

	bucketCount := int(windowSize / bucketSize)
	counter := &IOPSCounter{
		buckets:    make([]int64, bucketCount),
		bucketSize: bucketSize,
		windowSize: windowSize,
	}
	counter.lastRotation.Store(time.Now())
	return counter
}

// Increment records one completed request.
func (t *IOPSCounter) Increment() {
	t.rotate()
	t.mu.Lock()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

func (t *IOPSCounter) rotate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	lastRotation := t.lastRotation.Load().(time.Time)
	elapsed := now.Sub(lastRotation)

	bucketsToAdvanceInt64 := int64(elapsed) / int64(t.bucketSize)
	if bucketsToAdvanceInt64 < 0 {
		bucketsToAdvanceInt64 = int64(len(t.buckets))
	} else if bucketsToAdvanceInt64 > int64(len(t.buckets)) {
		bucketsToAdvanceInt64 = int64(len(t.buckets))
	}
	bucketsToAdvance := int(bucketsToAdvanceInt64)

	if bucketsToAdvance >= len(t.buckets) {
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.lastRotation.Store(now)
		return
	}
	if bucketsToAdvance <= 0 {
		return
	}

	copy(t.buckets, t.buckets[bucketsToAdvance:])
	for i := len(t.buckets) - bucketsToAdvance; i < len(t.buckets); i++ {
		t.buckets[i] = 0
	}
	t.lastRotation.Store(lastRotation.Add(time.Duration(bucketsToAdvance) * t.bucketSize))
}

// IOPS returns the current completed-requests-per-second rate.
func (t *IOPSCounter) IOPS() float64 {
	t.rotate()

	t.mu.Lock()
	defer t.mu.Unlock()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}

	monitoredDuration := float64(len(t.buckets)) * t.bucketSize.Seconds()
	return float64(sum) / monitoredDuration
}
