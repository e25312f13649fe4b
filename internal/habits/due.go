package habits

import (
	"slices"
	"time"

	"github.com/justestif/habitual/internal/db"
)

// IsDueOn reports whether a habit should appear on the given day.
//
// Daily, weekly and custom habits show every day; weekly targets are tracked
// as a count rather than pinned to a weekday. Specific-day habits only show
// on their listed weekdays (0=Sunday … 6=Saturday). Archived habits are
// never due.
func IsDueOn(h db.Habit, day time.Time) bool {
	if h.ArchivedAt != nil {
		return false
	}
	if h.FrequencyType != db.FrequencySpecificDays {
		return true
	}
	return slices.Contains(h.FrequencyConfig.Days, int(day.Weekday()))
}
