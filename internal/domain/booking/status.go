package booking

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked-in"
	StatusCheckedOut Status = "checked-out"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every known status, blocking ones first.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled}

// ParseStatus accepts the canonical spelling plus the upper/underscore variants some stores emit.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")
	for _, s := range Statuses {
		if string(s) == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// IsBlocking reports whether a reservation in this status occupies the room.
func (s Status) IsBlocking() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	case StatusCheckedOut, StatusCancelled:
		return false
	default:
		return false
	}
}

// BlockingStatuses is the filter pushed down to stores that can pre-filter.
func BlockingStatuses() []Status {
	out := make([]Status, 0, 3)
	for _, s := range Statuses {
		if s.IsBlocking() {
			out = append(out, s)
		}
	}
	return out
}
