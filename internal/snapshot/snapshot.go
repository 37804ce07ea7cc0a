// Package snapshot describes references into the bootstrap-static archive and
// the store contract the index and time-series builders read through.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Suffix is the file extension every archived snapshot carries.
const Suffix = ".json.xz"

var (
	// ErrStoreUnavailable is returned when the archive location does not exist.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
	// ErrMalformed is returned for handles that do not decode to a timestamp
	// and for content that fails to decompress or parse.
	ErrMalformed = errors.New("malformed snapshot")
)

// Ref points at one archived snapshot. Time is derived from Handle.
type Ref struct {
	Time   time.Time
	Handle string
}

// Store lists and loads archived snapshots. Load returns decompressed JSON.
type Store interface {
	List(ctx context.Context) ([]Ref, error)
	Load(ctx context.Context, handle string) ([]byte, error)
}

// ParseTimestamp decodes .../{year}/{month}/{day}/{HHMM}.json.xz into a UTC
// instant. Month and day may be one or two digits; HHMM must be exactly four.
func ParseTimestamp(handle string) (time.Time, error) {
	parts := strings.FieldsFunc(handle, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) < 4 {
		return time.Time{}, fmt.Errorf("%w: path depth < 4: %s", ErrMalformed, handle)
	}
	name := parts[len(parts)-1]
	if !strings.HasSuffix(name, Suffix) {
		return time.Time{}, fmt.Errorf("%w: filename must end with %q: %s", ErrMalformed, Suffix, handle)
	}
	hhmm := strings.TrimSuffix(name, Suffix)
	if len(hhmm) != 4 || !allDigits(hhmm) {
		return time.Time{}, fmt.Errorf("%w: time must be exactly 4 digits HHMM: %s", ErrMalformed, handle)
	}

	year, err1 := strconv.Atoi(parts[len(parts)-4])
	month, err2 := strconv.Atoi(parts[len(parts)-3])
	day, err3 := strconv.Atoi(parts[len(parts)-2])
	if err := errors.Join(err1, err2, err3); err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date components in %s", ErrMalformed, handle)
	}
	hour, _ := strconv.Atoi(hhmm[:2])
	minute, _ := strconv.Atoi(hhmm[2:])

	if year < 1 || month < 1 || month > 12 || hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: invalid date/time in %s", ErrMalformed, handle)
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalises out-of-range days (Feb 30 -> Mar 1); reject those.
	if day < 1 || ts.Day() != day || ts.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("%w: invalid date in %s", ErrMalformed, handle)
	}
	return ts, nil
}

// NewRef decodes handle into a Ref.
func NewRef(handle string) (Ref, error) {
	ts, err := ParseTimestamp(handle)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Time: ts, Handle: handle}, nil
}

// SortRefs orders refs by time ascending, keeping input order for ties.
func SortRefs(refs []Ref) {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Time.Before(refs[j].Time)
	})
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
