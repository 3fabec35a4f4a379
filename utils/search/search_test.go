package search_test

import (
	"testing"

	"scoredeck/utils/search"
)

func TestNormalizeFoldsAccentsAndCase(t *testing.T) {
	cases := map[string]string{
		"Dégagé": "degage",
		"ＧＡＭＢＯＬ": "gambol",
		"  V  ":  "v",
		"冥":      "ming",
		"quasar": "quasar",
	}
	for in, want := range cases {
		if got := search.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchesTitle(t *testing.T) {
	if !search.MatchesTitle("Dégagé", "degage") {
		t.Fatalf("expected accent-insensitive match")
	}
	if !search.MatchesTitle("GAMBOL", "gam") {
		t.Fatalf("expected case-insensitive substring match")
	}
	if !search.MatchesTitle("anything", "") {
		t.Fatalf("expected empty query to match everything")
	}
	if search.MatchesTitle("GAMBOL", "quasar") {
		t.Fatalf("expected non-matching query to be rejected")
	}
}
