package discovery

import (
	"context"
	"testing"
)

const capabilityTestPrefix = "discovery:capability_test"

func TestCapabilityStrategy_CanHandle(t *testing.T) {
	s := NewCapabilityStrategy()
	if !s.CanHandle(NewRequest("", map[string]any{PropRequiredCapabilities: []any{"a"}})) {
		t.Errorf("%s - expected applicable with a list", capabilityTestPrefix)
	}
	if s.CanHandle(NewRequest("", map[string]any{"objective": "x"})) {
		t.Errorf("%s - expected not applicable without the property", capabilityTestPrefix)
	}
	if s.CanHandle(NewRequest("", map[string]any{PropRequiredCapabilities: 5})) {
		t.Errorf("%s - expected not applicable for a non-list value", capabilityTestPrefix)
	}
}

func TestCapabilityStrategy_HigherOverlapWins(t *testing.T) {
	c2 := newHandler("c2", "B", true, "go", "other")
	c1 := newHandler("c1", "A", true, "go", "sql", "grpc")

	req := NewRequest("", map[string]any{PropRequiredCapabilities: []string{"go", "sql", "grpc"}})
	for i := 0; i < 5; i++ {
		got, err := NewCapabilityStrategy().Discover(context.Background(), req, handlers(c2, c1))
		if err != nil {
			t.Fatalf("%s - unexpected error: %v", capabilityTestPrefix, err)
		}
		if got != Handler(c1) {
			t.Fatalf("%s - run %d: expected c1 (30) over c2 (10), got %v", capabilityTestPrefix, i, got)
		}
	}
}

func TestCapabilityStrategy_NoOverlap(t *testing.T) {
	h := newHandler("h", "A", true, "rust")
	req := NewRequest("", map[string]any{PropRequiredCapabilities: []string{"go"}})
	got, err := NewCapabilityStrategy().Discover(context.Background(), req, handlers(h))
	if err != nil || got != nil {
		t.Errorf("%s - expected no match, got %v (err %v)", capabilityTestPrefix, got, err)
	}
}

func TestCapabilityStrategy_TieKeepsEarlier(t *testing.T) {
	a := newHandler("a", "A", true, "go")
	b := newHandler("b", "B", true, "go")
	req := NewRequest("", map[string]any{PropRequiredCapabilities: "go"})
	got, _ := NewCapabilityStrategy().Discover(context.Background(), req, handlers(a, b))
	if got != Handler(a) {
		t.Errorf("%s - expected a on tie, got %v", capabilityTestPrefix, got)
	}
}

func TestOverlap_IgnoresDuplicates(t *testing.T) {
	if n := overlap([]string{"go"}, []string{"go", "go"}); n != 1 {
		t.Errorf("%s - overlap = %d, want 1", capabilityTestPrefix, n)
	}
}
