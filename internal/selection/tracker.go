package selection

import "slices"

// Tracker owns the selection of a single page. It is not safe for concurrent
// use; the owner drives it from one event loop.
type Tracker struct {
	current  []string
	onChange func([]string)
}

// NewTracker returns a Tracker seeded with initial, normalized.
func NewTracker(initial []string, onChange func([]string)) *Tracker {
	return &Tracker{
		current:  Normalize(initial),
		onChange: onChange,
	}
}

// Pick applies Select and notifies the change callback when the selection
// actually changed. It reports whether it did.
func (t *Tracker) Pick(country string) bool {
	next := Select(t.current, country)
	if slices.Equal(next, t.current) {
		return false
	}
	t.current = next
	if t.onChange != nil {
		t.onChange(t.Current())
	}
	return true
}

// Current returns a copy of the selection.
func (t *Tracker) Current() []string {
	return slices.Clone(t.current)
}

// Len returns the number of selected countries.
func (t *Tracker) Len() int {
	return len(t.current)
}
