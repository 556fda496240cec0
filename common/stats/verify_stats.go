package stats

import (
	"bytes"
	"fmt"
	"sort"
	"testing"
)

// RuleChecker compares a rendered stat value (got) against an expected value.
type RuleChecker struct {
	name    string
	checker func(got, expected interface{}) bool
}

// Rendered counters and gauges are int64, expectations are written as int.
func int64Of(got, expected interface{}) (int64, int64, bool) {
	g, ok := got.(int64)
	if !ok {
		return 0, 0, false
	}
	e, ok := expected.(int)
	if !ok {
		return 0, 0, false
	}
	return g, int64(e), true
}

var Int64EqTest = RuleChecker{name: "int64Eq", checker: func(got, expected interface{}) bool {
	g, e, ok := int64Of(got, expected)
	return ok && g == e
}}

var Int64GTETest = RuleChecker{name: "int64GTE", checker: func(got, expected interface{}) bool {
	g, e, ok := int64Of(got, expected)
	return ok && g >= e
}}

var DoesNotExistTest = RuleChecker{name: "doesNotExist", checker: func(got, _ interface{}) bool {
	return got == nil
}}

// Rule pairs a checker with the expected value handed to it.
type Rule struct {
	Checker RuleChecker
	Value   interface{}
}

// VerifyStats checks every key of contains against the rendered flat
// registry and reports failures on t with a dump of the registry.
func VerifyStats(tag string, statsRegistry StatsRegistry, t *testing.T, contains map[string]Rule) {
	t.Helper()
	reg, ok := statsRegistry.(*flatRegistry)
	if !ok {
		t.Errorf("%s: VerifyStats needs a flat registry, got %T", tag, statsRegistry)
		return
	}

	rendered := reg.flatten()
	keys := make([]string, 0, len(contains))
	for k := range contains {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg bytes.Buffer
	for _, key := range keys {
		rule := contains[key]
		got := rendered[key]
		if rule.Checker.checker(got, rule.Value) {
			continue
		}
		if rule.Checker.name == DoesNotExistTest.name {
			fmt.Fprintf(&msg, "%s: found stat entry when there should not be one\n", key)
		} else {
			fmt.Fprintf(&msg, "%s: got %v, expected to pass %s with %v\n", key, got, rule.Checker.name, rule.Value)
		}
	}
	if msg.Len() > 0 {
		t.Errorf("%s: stats registry error:\n%s", tag, msg.String())
		PPrintStats(tag, reg)
	}
}

func PPrintStats(tag string, statsRegistry StatsRegistry) {
	reg, ok := statsRegistry.(*flatRegistry)
	if !ok {
		return
	}
	regBytes, _ := reg.MarshalJSONPretty()
	fmt.Printf("%s: stats registry:\n%s\n", tag, regBytes)
}
