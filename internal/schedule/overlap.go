package schedule

import (
	"time"

	"shifter/shift-service/internal/models"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// ConflictOf returns the first shift in existing that overlaps [start, end).
// The caller scopes existing to a single employee. A non-zero excludeID skips
// the shift with that id so an update never collides with itself.
func ConflictOf(existing []models.Shift, start, end time.Time, excludeID int64) (models.Shift, bool) {
	for _, shift := range existing {
		if excludeID != 0 && shift.ID == excludeID {
			continue
		}
		if Overlaps(shift.StartTime, shift.EndTime, start, end) {
			return shift, true
		}
	}
	return models.Shift{}, false
}
