// Package stats hands out named counters, gauges, histograms and latencies
// backed by go-metrics, and renders them as a flat JSON map for the admin
// endpoint.
package stats

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

// Time is the clock used by Latency. Tests swap it for NewTestTime.
var Time StatsTime = DefaultStatsTime()

// StatsRegistry is the part of metrics.Registry the receiver needs.
type StatsRegistry interface {
	GetOrRegister(string, interface{}) interface{}
	Each(func(string, interface{}))
}

// StatsReceiver scopes instrument names. Name elements are joined with '/'
// and a '/' inside an element is rewritten to "_SLASH_", so
//
//	stat.Scope("hsched").Counter("jobDispatchedCounter")
//
// and
//
//	stat.Counter("hsched", "jobDispatchedCounter")
//
// name the same counter.
type StatsReceiver interface {
	Scope(scope ...string) StatsReceiver

	// Precision sets the unit Latency values are rendered in. Samples are
	// always recorded in nanoseconds.
	Precision(time.Duration) StatsReceiver

	Counter(name ...string) Counter
	Gauge(name ...string) Gauge
	Histogram(name ...string) Histogram
	Latency(name ...string) Latency

	// Render marshals every instrument and resets histograms so the next
	// render covers only new samples.
	Render(pretty bool) []byte
}

// DefaultStatsReceiver renders through a flat registry.
func DefaultStatsReceiver() StatsReceiver {
	return NewCustomStatsReceiver(NewFlatRegistry)
}

// NewCustomStatsReceiver uses makeRegistry to build the backing registry,
// falling back to a plain go-metrics registry when it is nil.
func NewCustomStatsReceiver(makeRegistry func() StatsRegistry) StatsReceiver {
	if makeRegistry == nil {
		makeRegistry = func() StatsRegistry { return metrics.NewRegistry() }
	}
	return &defaultStatsReceiver{registry: makeRegistry(), precision: time.Nanosecond}
}

type defaultStatsReceiver struct {
	registry  StatsRegistry
	precision time.Duration
	scope     []string
}

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{registry: s.registry, precision: s.precision, scope: s.scoped(scope...)}
}

func (s *defaultStatsReceiver) Precision(p time.Duration) StatsReceiver {
	return &defaultStatsReceiver{registry: s.registry, precision: atLeastNano(p), scope: s.scope}
}

func (s *defaultStatsReceiver) Counter(name ...string) Counter {
	return s.registry.GetOrRegister(s.scopedName(name...), NewCounter).(Counter)
}

func (s *defaultStatsReceiver) Gauge(name ...string) Gauge {
	return s.registry.GetOrRegister(s.scopedName(name...), NewGauge).(Gauge)
}

func (s *defaultStatsReceiver) Histogram(name ...string) Histogram {
	return s.registry.GetOrRegister(s.scopedName(name...), NewHistogram).(Histogram)
}

// Latency registers a ready instance: the precision has to be set before
// registration and go-metrics only calls argumentless factories.
func (s *defaultStatsReceiver) Latency(name ...string) Latency {
	return s.registry.GetOrRegister(s.scopedName(name...), NewLatency().Precision(s.precision)).(Latency)
}

func (s *defaultStatsReceiver) Render(pretty bool) []byte {
	var out []byte
	var err error
	if fr, ok := s.registry.(*flatRegistry); ok && pretty {
		out, err = fr.MarshalJSONPretty()
	} else {
		out, err = json.Marshal(s.registry)
	}
	if err != nil {
		log.Errorf("cannot render stats registry: %v", err)
		return []byte("{}")
	}
	s.registry.Each(func(_ string, i interface{}) {
		if h, ok := i.(metrics.Histogram); ok {
			h.Clear()
		}
	})
	return out
}

func (s *defaultStatsReceiver) scoped(elems ...string) []string {
	out := append(make([]string, 0, len(s.scope)+len(elems)), s.scope...)
	for _, e := range elems {
		out = append(out, strings.Replace(e, "/", "_SLASH_", -1))
	}
	return out
}

func (s *defaultStatsReceiver) scopedName(elems ...string) string {
	return strings.Join(s.scoped(elems...), "/")
}

func atLeastNano(p time.Duration) time.Duration {
	if p < time.Nanosecond {
		return time.Nanosecond
	}
	return p
}

// NilStatsReceiver discards everything.
func NilStatsReceiver() StatsReceiver { return nilStatsReceiver{} }

type nilStatsReceiver struct{}

func (n nilStatsReceiver) Scope(...string) StatsReceiver         { return n }
func (n nilStatsReceiver) Precision(time.Duration) StatsReceiver { return n }
func (nilStatsReceiver) Counter(...string) Counter               { return &metricCounter{metrics.NilCounter{}} }
func (nilStatsReceiver) Gauge(...string) Gauge                   { return &metricGauge{metrics.NilGauge{}} }
func (nilStatsReceiver) Histogram(...string) Histogram           { return &metricHistogram{metrics.NilHistogram{}} }
func (nilStatsReceiver) Latency(...string) Latency               { return nilLatency{} }
func (nilStatsReceiver) Render(bool) []byte                      { return []byte{} }
