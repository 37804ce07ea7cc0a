// Package bootstrap decodes FPL bootstrap-static snapshots into the typed
// subset the index and time-series builders use.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"fpl-cache-api/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is a gameweek. DeadlineTime is nil when the source has no deadline.
type Event struct {
	ID           int
	DeadlineTime *time.Time
}

// Element is a player record as of the snapshot.
type Element struct {
	ID          int
	Code        int
	WebName     string
	TotalPoints int
}

type Static struct {
	Events   []Event
	Elements []Element
}

// FindByCode returns the first element with the given player code.
func (s *Static) FindByCode(code int) (Element, bool) {
	for _, el := range s.Elements {
		if el.Code == code {
			return el, true
		}
	}
	return Element{}, false
}

type rawEvent struct {
	ID           *int    `json:"id"`
	DeadlineTime *string `json:"deadline_time"`
}

type rawElement struct {
	ID          *int    `json:"id"`
	Code        *int    `json:"code"`
	WebName     *string `json:"web_name"`
	TotalPoints *int    `json:"total_points"`
}

type rawStatic struct {
	Events   *[]rawEvent   `json:"events"`
	Elements *[]rawElement `json:"elements"`
}

// Parse decodes a bootstrap-static document. Unknown fields are ignored;
// missing required fields are reported as snapshot.ErrMalformed.
func Parse(raw []byte) (*Static, error) {
	var doc rawStatic
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", snapshot.ErrMalformed, err)
	}
	if doc.Events == nil {
		return nil, fmt.Errorf("%w: events missing", snapshot.ErrMalformed)
	}
	if doc.Elements == nil {
		return nil, fmt.Errorf("%w: elements missing", snapshot.ErrMalformed)
	}

	out := &Static{
		Events:   make([]Event, 0, len(*doc.Events)),
		Elements: make([]Element, 0, len(*doc.Elements)),
	}
	for i, e := range *doc.Events {
		if e.ID == nil {
			return nil, fmt.Errorf("%w: events[%d].id missing", snapshot.ErrMalformed, i)
		}
		ev := Event{ID: *e.ID}
		if e.DeadlineTime != nil {
			ts, err := ParseDeadline(*e.DeadlineTime)
			if err != nil {
				return nil, fmt.Errorf("%w: events[%d].deadline_time: %v", snapshot.ErrMalformed, i, err)
			}
			ev.DeadlineTime = &ts
		}
		out.Events = append(out.Events, ev)
	}
	for i, e := range *doc.Elements {
		switch {
		case e.ID == nil:
			return nil, fmt.Errorf("%w: elements[%d].id missing", snapshot.ErrMalformed, i)
		case e.Code == nil:
			return nil, fmt.Errorf("%w: elements[%d].code missing", snapshot.ErrMalformed, i)
		case e.WebName == nil:
			return nil, fmt.Errorf("%w: elements[%d].web_name missing", snapshot.ErrMalformed, i)
		case e.TotalPoints == nil:
			return nil, fmt.Errorf("%w: elements[%d].total_points missing", snapshot.ErrMalformed, i)
		}
		out.Elements = append(out.Elements, Element{
			ID:          *e.ID,
			Code:        *e.Code,
			WebName:     *e.WebName,
			TotalPoints: *e.TotalPoints,
		})
	}
	return out, nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseDeadline parses an RFC 3339 deadline, treating a zone-less value as UTC.
// The result is always in UTC.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// LoadFunc loads and parses the snapshot behind handle.
type LoadFunc func(ctx context.Context, handle string) (*Static, error)

// StoreLoader adapts a snapshot store into a LoadFunc.
func StoreLoader(st snapshot.Store) LoadFunc {
	return func(ctx context.Context, handle string) (*Static, error) {
		raw, err := st.Load(ctx, handle)
		if err != nil {
			return nil, err
		}
		s, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", handle, err)
		}
		return s, nil
	}
}
