package repository

import (
	"errors"
	"testing"
	"time"
)

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("M5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != M5 {
		t.Fatalf("expected M5, got %s", g)
	}

	if _, err := ParseGranularity("m5"); !errors.Is(err, ErrUnknownGranularity) {
		t.Fatalf("expected unknown granularity for lower case, got %v", err)
	}
	if _, err := ParseGranularity(""); !errors.Is(err, ErrUnknownGranularity) {
		t.Fatalf("expected unknown granularity for empty code, got %v", err)
	}
}

func TestGranularityDuration(t *testing.T) {
	if W.Duration() != 7*24*time.Hour {
		t.Fatalf("unexpected W duration %s", W.Duration())
	}
	if Granularity("X").Duration() != 0 {
		t.Fatalf("expected zero duration for unknown code")
	}
}

func TestGranularitiesAscending(t *testing.T) {
	gs := Granularities()
	if len(gs) != 8 {
		t.Fatalf("expected 8 granularities, got %d", len(gs))
	}
	for i := 1; i < len(gs); i++ {
		if gs[i].Seconds() <= gs[i-1].Seconds() {
			t.Fatalf("%s not coarser than %s", gs[i], gs[i-1])
		}
	}
}
