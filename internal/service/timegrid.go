package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

// ParseClock converts an "HH:MM" wall-clock string into minutes since
// midnight. Hours above 23 or minutes above 59 are rejected.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("malformed time %q", raw))
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrMalformedTime.Code, appErrors.ErrMalformedTime.Status, fmt.Sprintf("malformed time %q", raw))
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrMalformedTime.Code, appErrors.ErrMalformedTime.Status, fmt.Sprintf("malformed time %q", raw))
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, appErrors.Clone(appErrors.ErrMalformedTime, fmt.Sprintf("time %q out of range", raw))
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight back into "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether two slots share any time on the same day.
// Half-open semantics: a slot ending exactly when another begins does not
// overlap. No tolerance window.
func Overlaps(a, b models.Slot) bool {
	if a.Day != b.Day {
		return false
	}
	return a.StartMinutes < b.EndMinutes && b.StartMinutes < a.EndMinutes
}

var dayAliases = map[string]string{
	"monday":    models.DayMonday,
	"lundi":     models.DayMonday,
	"tuesday":   models.DayTuesday,
	"mardi":     models.DayTuesday,
	"wednesday": models.DayWednesday,
	"mercredi":  models.DayWednesday,
	"thursday":  models.DayThursday,
	"jeudi":     models.DayThursday,
	"friday":    models.DayFriday,
	"vendredi":  models.DayFriday,
	"saturday":  models.DaySaturday,
	"samedi":    models.DaySaturday,
}

// NormalizeDay maps an English or French weekday name onto the canonical
// day constant. Sunday is not schedulable and stays unrecognized.
func NormalizeDay(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := dayAliases[key]; ok {
		return canonical, true
	}
	upper := strings.ToUpper(key)
	for _, day := range models.SchedulableDays {
		if day == upper {
			return day, true
		}
	}
	return "", false
}
