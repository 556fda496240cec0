package messages

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExecTaskThroughEnvelope(t *testing.T) {
	sent := &ExecTask{
		Tid:       3,
		Step:      7,
		RankHint:  1,
		NprocHint: 2,
		Peers:     []int32{10, 11},
		Ranks:     []int32{0, 1},
		Vars: []VarDesc{
			{Name: "temp", Step: 7, BBox: BBox{NumDims: 2, Lb: []int32{0, 0}, Ub: []int32{63, 63}}, Size: 8},
			{Name: "pres", Step: 7, BBox: BBox{NumDims: 1, Lb: []int32{0}, Ub: []int32{9}}, Size: 4},
		},
	}
	env, err := NewEnvelope(KindExecTask, 1, sent)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	got, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if got.Kind != KindExecTask || got.Sender != 1 {
		t.Errorf("unexpected envelope %v", got)
	}

	var recv ExecTask
	if err := got.Decode(&recv); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if diff := cmp.Diff(sent, &recv); diff != "" {
		t.Errorf("exec task mismatch (-sent +recv):\n%s", diff)
	}
}

func TestHeaderlessEnvelope(t *testing.T) {
	env, err := NewEnvelope(KindStopExecutor, 4, nil)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(env.Payload) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(env.Payload))
	}
	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	got, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if got.Kind != KindStopExecutor || got.Sender != 4 {
		t.Errorf("unexpected envelope %v", got)
	}
}

func TestDecodeEnvelopeRejectsEmpty(t *testing.T) {
	if _, err := DecodeEnvelope(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestKindString(t *testing.T) {
	if KindBuildStaging.String() != "build-staging-request" {
		t.Errorf("unexpected name %q", KindBuildStaging.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("unexpected name %q", Kind(99).String())
	}
}

func TestOversizedListRejected(t *testing.T) {
	// field 2 (lb) is a list<i32> declaring 100,000,000 elements with no body.
	payload := []byte{0x0f, 0x00, 0x02, 0x08, 0x05, 0xf5, 0xe1, 0x00}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	env := &Envelope{Kind: KindUpdateVar, Payload: payload}
	err := env.Decode(&BBox{})
	runtime.ReadMemStats(&after)

	if err == nil {
		t.Fatal("expected error for a list longer than its message")
	}
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 1<<20 {
		t.Errorf("decode allocated %d bytes", grown)
	}
}

func TestLongListStillDecodes(t *testing.T) {
	lb := make([]int32, 5000)
	for i := range lb {
		lb[i] = int32(i)
	}
	env, err := NewEnvelope(KindUpdateVar, 2, &BBox{NumDims: 1, Lb: lb, Ub: lb})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got BBox
	if err := env.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(lb, got.Lb); diff != "" {
		t.Errorf("lb mismatch:\n%s", diff)
	}
}
