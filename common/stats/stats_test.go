package stats

import (
	"testing"
	"time"
)

func TestScopeChange(t *testing.T) {
	stat := DefaultStatsReceiver().(*defaultStatsReceiver)
	if len(stat.scope) != 0 {
		t.Fatal("Default scope should be empty.")
	}

	statp := stat.Scope("a/b", "c").(*defaultStatsReceiver)
	if len(stat.scope) != 0 {
		t.Fatal("Default scope should still be empty.")
	}
	if len(statp.scope) != 2 || statp.scope[0] != "a_SLASH_b" || statp.scope[1] != "c" {
		t.Fatal("Invalid scope value: ", statp.scope)
	}
	if statp.scopedName("d") != "a_SLASH_b/c/d" {
		t.Fatal("Invalid scope name: " + statp.scopedName("d"))
	}
}

func TestScopesDoNotAlias(t *testing.T) {
	base := DefaultStatsReceiver().Scope("hsched").(*defaultStatsReceiver)
	a := base.Scope("a").(*defaultStatsReceiver)
	b := base.Scope("b").(*defaultStatsReceiver)
	if a.scopedName("x") != "hsched/a/x" || b.scopedName("x") != "hsched/b/x" {
		t.Fatalf("scopes aliased: %s %s", a.scopedName("x"), b.scopedName("x"))
	}
}

func TestPrecisionChange(t *testing.T) {
	stat := DefaultStatsReceiver().(*defaultStatsReceiver)
	statp := stat.Precision(time.Millisecond).(*defaultStatsReceiver)
	if stat.precision != time.Nanosecond {
		t.Fatal("Default precision should still be nanos.")
	}
	if statp.precision != time.Millisecond {
		t.Fatal("New stat precision should be millis.")
	}
}

func TestMarshal(t *testing.T) {
	defer func() { Time = DefaultStatsTime() }()

	reg := NewFlatRegistry()
	reg.GetOrRegister("counter", NewCounter()).(Counter).Inc(1)
	reg.GetOrRegister("gauge", NewGauge()).(Gauge).Update(2)

	Time = NewTestTime(time.Unix(0, 0), time.Nanosecond*5)
	reg.GetOrRegister("latency", NewLatency()).(Latency).Time().Stop()
	Time = NewTestTime(time.Unix(0, 0), time.Nanosecond*10)
	reg.GetOrRegister("latency", NewLatency()).(Latency).Time().Stop()

	bytes, err := reg.(*flatRegistry).MarshalJSONPretty()
	expected :=
		`{
  "counter": 1,
  "gauge": 2,
  "latency.avg": 7.5,
  "latency.count": 2,
  "latency.max": 10,
  "latency.min": 5,
  "latency.p50": 7.5,
  "latency.p90": 10,
  "latency.p99": 10,
  "latency.sum": 15
}`
	if string(bytes) != expected {
		t.Fatal("Wrong json marshal output: ", string(bytes), err)
	}
}

func TestRenderClearsHistograms(t *testing.T) {
	var reg StatsRegistry
	stat := NewCustomStatsReceiver(func() StatsRegistry { reg = NewFlatRegistry(); return reg })
	stat.Counter("counter").Inc(3)
	stat.Histogram("hist").Update(4)

	VerifyStats("before render", reg, t, map[string]Rule{
		"counter":    {Checker: Int64EqTest, Value: 3},
		"hist.count": {Checker: Int64EqTest, Value: 1},
	})
	stat.Render(false)
	VerifyStats("after render", reg, t, map[string]Rule{
		"counter":    {Checker: Int64EqTest, Value: 3},
		"hist.count": {Checker: Int64EqTest, Value: 0},
		"missing":    {Checker: DoesNotExistTest},
	})
}

func TestNilStatsReceiver(t *testing.T) {
	stat := NilStatsReceiver()
	stat.Counter("c").Inc(1)
	stat.Gauge("g").Update(1)
	stat.Latency("l").Time().Stop()
	if len(stat.Render(true)) != 0 {
		t.Fatal("nil receiver should render nothing")
	}
}
