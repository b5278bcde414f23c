package bursary

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseNeedLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]NeedLevel{
		"":         NeedMedium,
		"HIGH":     NeedHigh,
		" low ":    NeedLow,
		"medium":   NeedMedium,
		"critical": NeedMedium,
	}

	for input, want := range tests {
		if got := ParseNeedLevel(input); got != want {
			t.Fatalf("ParseNeedLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestListingsExcludePreservesOrder(t *testing.T) {
	listings := &Listings{Items: []*Listing{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}}

	removed := listings.Exclude([]string{"b", "missing"})

	if !reflect.DeepEqual(removed, []string{"b"}) {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	if !reflect.DeepEqual(listings.IDs(), []string{"a", "c", "d"}) {
		t.Fatalf("unexpected remaining ids: %v", listings.IDs())
	}
}

func TestListingsExcludeWhere(t *testing.T) {
	listings := &Listings{Items: []*Listing{{ID: "a", AwardAmount: 10}, {ID: "b", AwardAmount: 0}}}

	removed := listings.ExcludeWhere(func(l *Listing) bool { return l.AwardAmount == 0 })

	if !reflect.DeepEqual(removed, []string{"b"}) {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	if listings.Len() != 1 || listings.FindByID("a") == nil {
		t.Fatalf("expected listing a to remain")
	}
}

func TestExcludedListingsRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")

	missing, err := GetExcludedFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
	if len(missing.Items) != 0 {
		t.Fatalf("expected empty set for missing file")
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	listings := &Listings{Items: []*Listing{{ID: "b1", Title: "STEM Bursary"}}}
	missing.Append(listings.ToExcluded("not interested", now))
	missing.Append(listings.ToExcluded("duplicate", now))

	if err := missing.ToFile(path); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	loaded, err := GetExcludedFromFile(path)
	if err != nil {
		t.Fatalf("read exclude file: %v", err)
	}

	if !reflect.DeepEqual(loaded.IDs(), []string{"b1"}) {
		t.Fatalf("unexpected ids: %v", loaded.IDs())
	}
	if loaded.Items[0].Reason != "not interested" {
		t.Fatalf("expected first reason to be kept, got %q", loaded.Items[0].Reason)
	}
}
