package audit

import (
	"slices"
	"time"
)

// QueryFilter selects events. Zero fields match everything.
type QueryFilter struct {
	Types  []EventType
	Module string
	Action string
	Since  time.Time
	Failed bool
	Limit  int
}

// Matches reports whether e passes the filter.
func (f QueryFilter) Matches(e Event) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	if f.Module != "" && e.Module != f.Module {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if f.Failed && e.Success {
		return false
	}
	return true
}
