package availability

import (
	"sort"
	"time"

	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/shared/daterange"
)

// Index answers point and range occupancy questions for a single room.
// It is built per query and must be rebuilt whenever the room's reservations change.
// A nil *Index is a valid empty index.
type Index struct {
	intervals []booking.Interval
	// reach[i] is the latest checkout among intervals[0..i].
	reach []time.Time
}

// BuildReport describes what Build did with its input.
type BuildReport struct {
	Retained    int
	Excluded    int
	NonBlocking int
	Skipped     []error
}

// Conflict is an existing reservation overlapping a requested range.
type Conflict struct {
	ReservationID booking.ReservationID
	Booked        daterange.DateRange
	Overlap       daterange.DateRange
}

// Build keeps the blocking reservations other than excludeID, sorted by check-in.
// Reservations with unusable dates are skipped and listed in the report.
func Build(reservations []booking.Reservation, excludeID booking.ReservationID) (*Index, BuildReport) {
	var report BuildReport
	intervals := make([]booking.Interval, 0, len(reservations))
	for _, r := range reservations {
		if excludeID != "" && r.ID == excludeID {
			report.Excluded++
			continue
		}
		if !r.Status.IsBlocking() {
			report.NonBlocking++
			continue
		}
		iv, err := booking.ToInterval(r)
		if err != nil {
			report.Skipped = append(report.Skipped, err)
			continue
		}
		intervals = append(intervals, iv)
	}
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Range.CheckIn.Before(intervals[j].Range.CheckIn)
	})
	reach := make([]time.Time, len(intervals))
	for i, iv := range intervals {
		reach[i] = iv.Range.CheckOut
		if i > 0 && reach[i-1].After(reach[i]) {
			reach[i] = reach[i-1]
		}
	}
	report.Retained = len(intervals)
	return &Index{intervals: intervals, reach: reach}, report
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.intervals)
}

// startingBefore counts the intervals whose check-in is before t.
func (x *Index) startingBefore(t time.Time) int {
	return sort.Search(len(x.intervals), func(i int) bool {
		return !x.intervals[i].Range.CheckIn.Before(t)
	})
}

func (x *Index) overlaps(from, to time.Time) bool {
	if x.Len() == 0 {
		return false
	}
	k := x.startingBefore(to)
	if k == 0 {
		return false
	}
	return x.reach[k-1].After(from)
}

// IsDateOccupied reports whether any retained reservation holds the room on that night.
func (x *Index) IsDateOccupied(d time.Time) bool {
	d = daterange.Day(d)
	return x.overlaps(d, d.AddDate(0, 0, 1))
}

// IsRangeAvailable reports whether [from, to) is free. It compares intervals
// directly, so the cost does not grow with the length of the range.
func (x *Index) IsRangeAvailable(from, to time.Time) (bool, error) {
	dr, err := daterange.New(from, to)
	if err != nil {
		return false, ErrInvalidRange
	}
	return !x.overlaps(dr.CheckIn, dr.CheckOut), nil
}

// Conflicts lists the retained reservations overlapping dr, ordered by check-in.
func (x *Index) Conflicts(dr daterange.DateRange) []Conflict {
	if x.Len() == 0 || dr.Validate() != nil {
		return nil
	}
	var out []Conflict
	k := x.startingBefore(dr.CheckOut)
	for i := 0; i < k; i++ {
		iv := x.intervals[i]
		overlap, ok := iv.Range.Intersect(dr)
		if !ok {
			continue
		}
		out = append(out, Conflict{ReservationID: iv.ReservationID, Booked: iv.Range, Overlap: overlap})
	}
	return out
}

// NextFree returns the first night on or after from that nobody holds.
func (x *Index) NextFree(from time.Time) time.Time {
	d := daterange.Day(from)
	for x.Len() > 0 {
		k := x.startingBefore(d.AddDate(0, 0, 1))
		if k == 0 || !x.reach[k-1].After(d) {
			break
		}
		d = x.reach[k-1]
	}
	return d
}

// Blocked returns the occupied spans merged into disjoint ranges.
func (x *Index) Blocked() []daterange.DateRange {
	if x.Len() == 0 {
		return nil
	}
	out := []daterange.DateRange{x.intervals[0].Range}
	for _, iv := range x.intervals[1:] {
		last := &out[len(out)-1]
		if iv.Range.CheckIn.After(last.CheckOut) {
			out = append(out, iv.Range)
			continue
		}
		if iv.Range.CheckOut.After(last.CheckOut) {
			last.CheckOut = iv.Range.CheckOut
		}
	}
	return out
}
