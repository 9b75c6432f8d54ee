package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw     string
		minutes int
	}{
		{"00:00", 0},
		{"08:30", 510},
		{"17:00", 1020},
		{"23:59", 1439},
		{" 09:05 ", 545},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.minutes, got, tc.raw)
	}
}

func TestParseClockRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{"", "8h30", "25:00", "12:60", "12", "ab:cd", "-1:30", "12:30:00"} {
		_, err := ParseClock(raw)
		require.Error(t, err, raw)

		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr), raw)
		assert.Equal(t, appErrors.ErrMalformedTime.Code, appErr.Code, raw)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "08:30", FormatClock(510))
	assert.Equal(t, "17:00", FormatClock(1020))
	assert.Equal(t, "23:59", FormatClock(1439))
}

func TestOverlapsHalfOpen(t *testing.T) {
	a := models.Slot{Day: models.DayMonday, StartMinutes: 480, EndMinutes: 540}

	// Touching boundaries do not overlap.
	after := models.Slot{Day: models.DayMonday, StartMinutes: 540, EndMinutes: 600}
	assert.False(t, Overlaps(a, after))
	assert.False(t, Overlaps(after, a))

	// A single shared minute does.
	crossing := models.Slot{Day: models.DayMonday, StartMinutes: 539, EndMinutes: 600}
	assert.True(t, Overlaps(a, crossing))
	assert.True(t, Overlaps(crossing, a))

	// Containment counts, in both directions.
	inner := models.Slot{Day: models.DayMonday, StartMinutes: 490, EndMinutes: 500}
	assert.True(t, Overlaps(a, inner))
	assert.True(t, Overlaps(inner, a))
}

func TestOverlapsDifferentDays(t *testing.T) {
	a := models.Slot{Day: models.DayMonday, StartMinutes: 480, EndMinutes: 540}
	b := models.Slot{Day: models.DayTuesday, StartMinutes: 480, EndMinutes: 540}
	assert.False(t, Overlaps(a, b))
}

func TestNormalizeDay(t *testing.T) {
	cases := map[string]string{
		"monday":    models.DayMonday,
		"Lundi":     models.DayMonday,
		"MERCREDI":  models.DayWednesday,
		"saturday":  models.DaySaturday,
		" samedi ":  models.DaySaturday,
		"WEDNESDAY": models.DayWednesday,
	}
	for raw, want := range cases {
		got, ok := NormalizeDay(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"sunday", "dimanche", "someday", ""} {
		_, ok := NormalizeDay(raw)
		assert.False(t, ok, raw)
	}
}
