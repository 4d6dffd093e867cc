package indexer

import "time"

type sample struct {
	timestampMillis uint64
	value           uint64
}

// MovingAverage is a time-windowed sum of processed counts used to compute
// a trailing throughput estimate. Owned by the single-threaded reporting
// loop; not safe for concurrent use.
type MovingAverage struct {
	windowMillis uint64
	samples      []sample
	sum          uint64
}

// NewMovingAverage creates a moving average over the given window.
func NewMovingAverage(window time.Duration) *MovingAverage {
	return &MovingAverage{windowMillis: uint64(window.Milliseconds())}
}

// TickNow records a value at the current wall-clock time.
func (m *MovingAverage) TickNow(value uint64) {
	m.Tick(uint64(time.Now().UnixMilli()), value)
}

// Tick records a value at the given timestamp, evicts samples older than
// the window, and returns the updated average.
func (m *MovingAverage) Tick(timestampMillis, value uint64) float64 {
	m.samples = append(m.samples, sample{timestampMillis, value})
	m.sum += value

	for len(m.samples) > 0 && timestampMillis-m.samples[0].timestampMillis > m.windowMillis {
		m.sum -= m.samples[0].value
		m.samples = m.samples[1:]
	}
	return m.Avg()
}

// Avg returns the per-millisecond average over the retained samples, or 0
// until two samples exist.
func (m *MovingAverage) Avg() float64 {
	if len(m.samples) < 2 {
		return 0
	}
	elapsed := m.samples[len(m.samples)-1].timestampMillis - m.samples[0].timestampMillis
	if elapsed == 0 {
		return 0
	}
	return float64(m.sum) / float64(elapsed)
}
