package stats

import (
	"encoding/json"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

var percentiles = []float64{0.5, 0.9, 0.99}
var percentileLabels = []string{"p50", "p90", "p99"}

// flatRegistry renders one JSON key per value: counters and gauges under
// their own name, histograms and latencies as name.avg, name.count,
// name.max, name.min, name.sum and name.pNN.
type flatRegistry struct {
	metrics.Registry
}

func NewFlatRegistry() StatsRegistry {
	return &flatRegistry{metrics.NewRegistry()}
}

func (r *flatRegistry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flatten())
}

func (r *flatRegistry) MarshalJSONPretty() ([]byte, error) {
	return json.MarshalIndent(r.flatten(), "", "  ")
}

func (r *flatRegistry) flatten() map[string]interface{} {
	out := map[string]interface{}{}
	r.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case Counter:
			out[name] = m.Count()
		case Gauge:
			out[name] = m.Value()
		case Latency:
			snap := m.Capture()
			putHistogram(out, name, snap.(HistogramView), snap.GetPrecision())
		case Histogram:
			putHistogram(out, name, m.Capture(), time.Nanosecond)
		default:
			log.Infof("skipping unknown instrument %s (%T)", name, i)
		}
	})
	return out
}

func putHistogram(out map[string]interface{}, name string, h HistogramView, unit time.Duration) {
	fu, iu := float64(unit), int64(unit)
	out[name+".avg"] = h.Mean() / fu
	out[name+".count"] = h.Count()
	out[name+".max"] = h.Max() / iu
	out[name+".min"] = h.Min() / iu
	out[name+".sum"] = h.Sum() / iu
	for i, v := range h.Percentiles(percentiles) {
		out[name+"."+percentileLabels[i]] = v / fu
	}
}
