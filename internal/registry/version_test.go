package registry

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1", "2", -1},
		{"10", "2", 1},
		{"2", "2", 0},
		{"007", "7", 0},
		{"99999999999999999999999", "1", 1}, // beyond int64
		{"abc", "1", -1},
		{"1", "abc", 1},
		{"abc", "abd", -1},
		{"", "0", -1},
		{"-1", "0", -1}, // signed values are not ordinals
		{"1.5", "1", -1},
	}
	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Fatalf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSelectLatest_NumericNotLexicographic(t *testing.T) {
	vs := []ModelVersion{{Version: "1", RunID: "r1"}, {Version: "2", RunID: "r2"}, {Version: "10", RunID: "r10"}}
	got, ok := SelectLatest(vs)
	if !ok || got.Version != "10" || got.RunID != "r10" {
		t.Fatalf("expected version 10, got %+v ok=%v", got, ok)
	}
}

func TestSelectLatest_OrderIndependent(t *testing.T) {
	vs := []ModelVersion{{Version: "10", RunID: "a"}, {Version: "3", RunID: "b"}, {Version: "7", RunID: "c"}}
	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {1, 2, 0}}
	for _, p := range perms {
		in := []ModelVersion{vs[p[0]], vs[p[1]], vs[p[2]]}
		got, _ := SelectLatest(in)
		if got.Version != "10" {
			t.Fatalf("perm %v selected %+v", p, got)
		}
	}
}

func TestSelectLatest_DuplicateMaxTieBreak(t *testing.T) {
	vs := []ModelVersion{{Version: "4", RunID: "aaa"}, {Version: "4", RunID: "zzz"}, {Version: "3", RunID: "zzzz"}}
	got, _ := SelectLatest(vs)
	if got.RunID != "zzz" {
		t.Fatalf("expected tie broken by greatest run id, got %+v", got)
	}
	// Reversed input must pick the same element.
	got2, _ := SelectLatest([]ModelVersion{vs[2], vs[1], vs[0]})
	if got2.RunID != got.RunID {
		t.Fatalf("tie-break depends on order: %+v vs %+v", got, got2)
	}
}

func TestSelectLatest_FullDuplicateFirstWins(t *testing.T) {
	vs := []ModelVersion{{Version: "5", RunID: "r", Source: "first"}, {Version: "5", RunID: "r", Source: "second"}}
	got, _ := SelectLatest(vs)
	if got.Source != "first" {
		t.Fatalf("expected first occurrence, got %+v", got)
	}
}

func TestSelectLatest_NonNumericLosesToNumeric(t *testing.T) {
	vs := []ModelVersion{{Version: "latest"}, {Version: "1"}, {Version: "zeta"}}
	got, _ := SelectLatest(vs)
	if got.Version != "1" {
		t.Fatalf("expected numeric version to win, got %+v", got)
	}
	onlyText := []ModelVersion{{Version: "alpha"}, {Version: "beta"}}
	got, _ = SelectLatest(onlyText)
	if got.Version != "beta" {
		t.Fatalf("expected lexicographic max among non-numeric, got %+v", got)
	}
}

func TestSelectLatest_Empty(t *testing.T) {
	if _, ok := SelectLatest(nil); ok {
		t.Fatalf("expected ok=false for empty input")
	}
}
