package stats

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

const sampleSize = 1000

type Counter interface {
	Count() int64
	Inc(int64)
}

type Gauge interface {
	Update(int64)
	Value() int64
}

// HistogramView is the read side shared by histograms and latencies.
type HistogramView interface {
	Count() int64
	Mean() float64
	Min() int64
	Max() int64
	Sum() int64
	Percentiles([]float64) []float64
}

type Histogram interface {
	HistogramView
	Update(int64)
	Capture() Histogram
}

// Latency measures the time from Time() to Stop():
//
//	defer stat.Latency(SchedStepLatency_ms).Time().Stop()
type Latency interface {
	Time() Latency
	Stop()
	Capture() Latency
	GetPrecision() time.Duration
	Precision(time.Duration) Latency
}

// Wrappers embed the go-metrics types so the registry still accepts them.
type metricCounter struct{ metrics.Counter }
type metricGauge struct{ metrics.Gauge }
type metricHistogram struct{ metrics.Histogram }

func NewCounter() Counter     { return &metricCounter{metrics.NewCounter()} }
func NewGauge() Gauge         { return &metricGauge{metrics.NewGauge()} }
func NewHistogram() Histogram { return &metricHistogram{newSampled()} }

func (h *metricHistogram) Capture() Histogram { return &metricHistogram{h.Snapshot()} }

func newSampled() metrics.Histogram {
	return metrics.NewHistogram(metrics.NewUniformSample(sampleSize))
}

type metricLatency struct {
	metrics.Histogram
	start     time.Time
	precision time.Duration
}

func NewLatency() Latency {
	return &metricLatency{Histogram: newSampled(), precision: time.Nanosecond}
}

func (l *metricLatency) Time() Latency {
	l.start = Time.Now()
	return l
}

func (l *metricLatency) Stop() { l.Update(Time.Since(l.start).Nanoseconds()) }

func (l *metricLatency) Capture() Latency {
	return &metricLatency{Histogram: l.Snapshot(), start: l.start, precision: l.precision}
}

func (l *metricLatency) GetPrecision() time.Duration { return l.precision }

func (l *metricLatency) Precision(p time.Duration) Latency {
	l.precision = atLeastNano(p)
	return l
}

type nilLatency struct{}

func (n nilLatency) Time() Latency                   { return n }
func (nilLatency) Stop()                             {}
func (n nilLatency) Capture() Latency                { return n }
func (nilLatency) GetPrecision() time.Duration       { return 0 }
func (n nilLatency) Precision(time.Duration) Latency { return n }
