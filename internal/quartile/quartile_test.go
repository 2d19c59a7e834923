package quartile

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketize_FiveCountries(t *testing.T) {
	res := Bucketize([]Entry{
		{"A", 10}, {"B", 20}, {"C", 30}, {"D", 40}, {"E", 50},
	})

	assert.Equal(t, [NumBuckets]int{2, 1, 1, 1}, res.Sizes)
	assert.Equal(t, []string{"A", "B"}, res.Members(0))
	assert.Equal(t, []string{"C"}, res.Members(1))
	assert.Equal(t, []string{"D"}, res.Members(2))
	assert.Equal(t, []string{"E"}, res.Members(3))

	assert.Equal(t, Range{10, 20}, res.Ranges[0])
	assert.Equal(t, Range{30, 30}, res.Ranges[1])
	assert.Equal(t, Range{40, 40}, res.Ranges[2])
	assert.Equal(t, Range{50, 50}, res.Ranges[3])
}

func TestBucketize_UnsortedInput(t *testing.T) {
	res := Bucketize([]Entry{
		{"E", 50}, {"C", 30}, {"A", 10}, {"D", 40}, {"B", 20},
	})

	b, ok := res.BucketOf("B")
	require.True(t, ok)
	assert.Equal(t, Bucket(0), b)

	b, ok = res.BucketOf("E")
	require.True(t, ok)
	assert.Equal(t, Bucket(3), b)
}

func TestBucketize_Empty(t *testing.T) {
	res := Bucketize(nil)

	assert.Empty(t, res.Assignment)
	assert.Equal(t, [NumBuckets]int{}, res.Sizes)
	for _, r := range res.Ranges {
		assert.Equal(t, Range{}, r)
	}
	lo, hi := res.Span()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
	assert.Equal(t, 0, res.Len())
}

func TestBucketize_FewerThanFour(t *testing.T) {
	res := Bucketize([]Entry{{"A", 5}, {"B", 7}})

	assert.Equal(t, [NumBuckets]int{1, 1, 0, 0}, res.Sizes)
	assert.Equal(t, Range{5, 5}, res.Ranges[0])
	assert.Equal(t, Range{7, 7}, res.Ranges[1])
	assert.Equal(t, Range{}, res.Ranges[2])
	assert.Equal(t, Range{}, res.Ranges[3])
	assert.Empty(t, res.Members(3))
}

func TestBucketize_TiesKeepInputOrder(t *testing.T) {
	res := Bucketize([]Entry{
		{"Z", 1}, {"Y", 1}, {"X", 1}, {"W", 1}, {"V", 1},
	})

	assert.Equal(t, []string{"Z", "Y"}, res.Members(0))
	assert.Equal(t, []string{"X"}, res.Members(1))
	assert.Equal(t, []string{"W"}, res.Members(2))
	assert.Equal(t, []string{"V"}, res.Members(3))
}

func TestBucketize_DoesNotMutateInput(t *testing.T) {
	in := []Entry{{"B", 2}, {"A", 1}}
	Bucketize(in)
	assert.Equal(t, []Entry{{"B", 2}, {"A", 1}}, in)
}

func TestBucketize_InvalidBucketMembers(t *testing.T) {
	res := Bucketize([]Entry{{"A", 1}})
	assert.Nil(t, res.Members(-1))
	assert.Nil(t, res.Members(NumBuckets))
}

func TestBucketize_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for n := 0; n <= 40; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			entries := make([]Entry, n)
			for i := range entries {
				entries[i] = Entry{
					Country: fmt.Sprintf("c%02d", i),
					Value:   float64(rng.IntN(50)),
				}
			}
			res := Bucketize(entries)

			// Sizes sum to n and differ by at most one, earlier buckets larger.
			total := 0
			for i, s := range res.Sizes {
				total += s
				if i > 0 {
					assert.LessOrEqual(t, s, res.Sizes[i-1])
					assert.LessOrEqual(t, res.Sizes[0]-s, 1)
				}
			}
			assert.Equal(t, n, total)

			// Every country in exactly one bucket.
			require.Len(t, res.Assignment, n)
			seen := make(map[string]int)
			for b := Bucket(0); b < NumBuckets; b++ {
				for _, c := range res.Members(b) {
					seen[c]++
					assert.Equal(t, b, res.Assignment[c])
				}
			}
			for _, e := range entries {
				assert.Equal(t, 1, seen[e.Country], "country %s", e.Country)
			}

			// Bucket index is monotonic in value; members within range.
			for _, a := range entries {
				for _, b := range entries {
					if a.Value < b.Value {
						assert.LessOrEqual(t, res.Assignment[a.Country], res.Assignment[b.Country])
					}
				}
				r := res.Ranges[res.Assignment[a.Country]]
				assert.LessOrEqual(t, r.Min, r.Max)
				assert.True(t, r.Contains(a.Value))
			}
		})
	}
}
