// Package quartile groups countries into four population buckets by ascending rank.
package quartile

import (
	"math"
	"sort"
)

// NumBuckets is the number of quartile buckets.
const NumBuckets = 4

// Bucket is a quartile index in [0, NumBuckets).
type Bucket int

// Valid reports whether b is a usable bucket index.
func (b Bucket) Valid() bool {
	return b >= 0 && b < NumBuckets
}

// Entry is one country and its population value.
type Entry struct {
	Country string
	Value   float64
}

// Range is the value extent of a single bucket. Empty buckets use (0,0).
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range, inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Result holds the bucket assignment and per-bucket ranges.
type Result struct {
	Assignment map[string]Bucket
	Ranges     [NumBuckets]Range
	Sizes      [NumBuckets]int

	// sorted keeps the ascending order used to form the buckets.
	sorted []Entry
}

// Bucketize sorts entries ascending by value and splits them into NumBuckets
// contiguous buckets. Sizes differ by at most one; when len(entries) is not a
// multiple of NumBuckets the earlier buckets take the extra entries. Equal
// values keep their input order.
func Bucketize(entries []Entry) Result {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})

	n := len(sorted)
	base := n / NumBuckets
	extra := n % NumBuckets

	res := Result{
		Assignment: make(map[string]Bucket, n),
		sorted:     sorted,
	}

	idx := 0
	for b := 0; b < NumBuckets; b++ {
		size := base
		if b < extra {
			size++
		}
		res.Sizes[b] = size

		if size == 0 {
			res.Ranges[b] = Range{}
			continue
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, e := range sorted[idx : idx+size] {
			res.Assignment[e.Country] = Bucket(b)
			lo = math.Min(lo, e.Value)
			hi = math.Max(hi, e.Value)
		}
		res.Ranges[b] = Range{Min: lo, Max: hi}
		idx += size
	}

	return res
}

// BucketOf returns the bucket of a country, if it was bucketed.
func (r Result) BucketOf(country string) (Bucket, bool) {
	b, ok := r.Assignment[country]
	return b, ok
}

// Members returns the countries of bucket b in ascending value order.
func (r Result) Members(b Bucket) []string {
	if !b.Valid() {
		return nil
	}
	start := 0
	for i := 0; i < int(b); i++ {
		start += r.Sizes[i]
	}
	out := make([]string, 0, r.Sizes[b])
	for _, e := range r.sorted[start : start+r.Sizes[b]] {
		out = append(out, e.Country)
	}
	return out
}

// Len returns the number of bucketed countries.
func (r Result) Len() int {
	return len(r.sorted)
}

// Span returns the smallest and largest bucketed value, or (0,0) when empty.
func (r Result) Span() (float64, float64) {
	if len(r.sorted) == 0 {
		return 0, 0
	}
	return r.sorted[0].Value, r.sorted[len(r.sorted)-1].Value
}
