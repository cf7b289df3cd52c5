package attendance

import "github.com/example/attendance-engine/internal/calendar"

// Overlay answers whether an approved absence permission covers a calendar
// date for one student. The input set is already scoped to the student; the
// overlay only performs interval containment.
type Overlay struct {
	intervals []PermissionInterval
}

// NewOverlay builds an overlay from permission intervals, keeping only
// approved ones. Overlapping intervals are fine; coverage is an OR over the
// set, so overlap has no behavioral effect.
func NewOverlay(intervals []PermissionInterval) *Overlay {
	approved := make([]PermissionInterval, 0, len(intervals))
	for _, interval := range intervals {
		if interval.Status != PermissionApproved {
			continue
		}
		approved = append(approved, interval)
	}
	return &Overlay{intervals: approved}
}

// Covers reports whether any approved interval contains the date. Both
// bounds are inclusive and compared as calendar-date strings.
func (o *Overlay) Covers(date calendar.Date) bool {
	if o == nil {
		return false
	}
	for _, interval := range o.intervals {
		if string(interval.StartDate) <= string(date) && string(date) <= string(interval.EndDate) {
			return true
		}
	}
	return false
}
