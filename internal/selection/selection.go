// Package selection tracks the pair of countries picked for comparison.
package selection

import "slices"

// MaxSelected is the number of countries a comparison holds.
const MaxSelected = 2

// Select returns the selection that follows picking country.
//
// A country already selected leaves the selection unchanged. When the
// selection is full the oldest pick is dropped before appending. The input
// slice is never modified.
func Select(current []string, country string) []string {
	if slices.Contains(current, country) {
		return slices.Clone(current)
	}
	if len(current) >= MaxSelected {
		next := make([]string, 0, MaxSelected)
		next = append(next, current[len(current)-MaxSelected+1:]...)
		return append(next, country)
	}
	next := make([]string, 0, len(current)+1)
	next = append(next, current...)
	return append(next, country)
}

// Apply folds picks over current with Select.
func Apply(current []string, picks ...string) []string {
	next := slices.Clone(current)
	for _, p := range picks {
		next = Select(next, p)
	}
	return next
}

// Normalize rebuilds a valid selection from untrusted input such as query
// parameters. Empty names are dropped and the remaining names are replayed
// as picks in order.
func Normalize(names []string) []string {
	next := make([]string, 0, MaxSelected)
	for _, n := range names {
		if n == "" {
			continue
		}
		next = Select(next, n)
	}
	return next
}
