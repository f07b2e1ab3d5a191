package registry

import (
	"math/big"
	"strings"
)

// CompareVersions orders two registry version strings.
//
// Versions that parse as base-10 integers compare numerically, so "10" sorts
// after "2". Non-numeric versions sort below every numeric one and compare
// lexicographically among themselves. Numeric strings that differ only in
// leading zeros compare equal. It returns -1, 0 or +1.
func CompareVersions(a, b string) int {
	na, aok := parseOrdinal(a)
	nb, bok := parseOrdinal(b)
	switch {
	case aok && bok:
		return na.Cmp(nb)
	case aok:
		return 1
	case bok:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// SelectLatest returns the version with the maximum ordinal. Among versions
// with equal ordinals the one with the lexicographically greatest RunID
// wins; if that ties too, the first occurrence wins. ok is false for an
// empty input.
func SelectLatest(versions []ModelVersion) (latest ModelVersion, ok bool) {
	for i, v := range versions {
		if i == 0 {
			latest, ok = v, true
			continue
		}
		c := CompareVersions(v.Version, latest.Version)
		if c > 0 || (c == 0 && v.RunID > latest.RunID) {
			latest = v
		}
	}
	return latest, ok
}

// parseOrdinal parses s as an arbitrary-size non-negative decimal integer.
func parseOrdinal(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, false
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	return n, ok
}
