// Package season holds the UTC windows that bound each Premier League season.
package season

import (
	"sort"
	"time"
)

// Window is the half-open interval [Start, End) in which a season's snapshots
// are considered.
type Window struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls in [Start, End).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

var (
	Season2023_24 = Window{
		Name:  "2023-24",
		Start: time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	Season2024_25 = Window{
		Name:  "2024-25",
		Start: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
)

// All returns the known seasons ordered by name.
func All() []Window {
	out := []Window{Season2023_24, Season2024_25}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a known season by name.
func Lookup(name string) (Window, bool) {
	for _, w := range All() {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}
