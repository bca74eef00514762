package errlog

import (
	"fmt"
	"strings"
	"testing"
)

func TestAppendRing(t *testing.T) {
	t.Parallel()

	log := New()
	for i := 0; i < Capacity+5; i++ {
		log.Append("network", 0, fmt.Sprintf("failure %d", i))
	}

	entries := log.Entries()
	if len(entries) != Capacity {
		t.Fatalf("len = %d, want %d", len(entries), Capacity)
	}

	// Oldest dropped first, most recent last.
	if entries[0].Detail != "failure 5" {
		t.Fatalf("oldest entry = %q, want failure 5", entries[0].Detail)
	}
	if entries[len(entries)-1].Detail != fmt.Sprintf("failure %d", Capacity+4) {
		t.Fatalf("newest entry = %q", entries[len(entries)-1].Detail)
	}
}

func TestAppendTruncatesDetail(t *testing.T) {
	t.Parallel()

	log := New()
	entry := log.Append("api", 500, strings.Repeat("x", 2000))
	if len(entry.Detail) != 500 {
		t.Fatalf("detail length = %d, want 500", len(entry.Detail))
	}
}

func TestAppendPopulatesEntry(t *testing.T) {
	t.Parallel()

	log := New()
	entry := log.Append("api", 503, "overloaded")
	if entry.ID == "" {
		t.Fatal("entry has no id")
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("entry has no timestamp")
	}
	if entry.Kind != "api" || entry.Status != 503 {
		t.Fatalf("entry = %+v", entry)
	}

	second := log.Append("network", 0, "down")
	if second.ID == entry.ID {
		t.Fatal("ids must be unique")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	t.Parallel()

	log := New()
	log.Append("api", 1, "a")
	entries := log.Entries()
	entries[0].Detail = "mutated"

	if log.Entries()[0].Detail != "a" {
		t.Fatal("Entries exposed internal state")
	}
}
