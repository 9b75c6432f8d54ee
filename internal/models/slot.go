package models

import "time"

// SlotKind distinguishes the two scheduled course types.
type SlotKind string

const (
	SlotKindReinforcement SlotKind = "REINFORCEMENT"
	SlotKindEvening       SlotKind = "EVENING"
)

// EveningStartMinutes is the earliest start allowed for evening slots (17:00).
const EveningStartMinutes = 1020

// Weekday names accepted for slots. Sunday is not a schedulable day.
const (
	DayMonday    = "MONDAY"
	DayTuesday   = "TUESDAY"
	DayWednesday = "WEDNESDAY"
	DayThursday  = "THURSDAY"
	DayFriday    = "FRIDAY"
	DaySaturday  = "SATURDAY"
)

// SchedulableDays lists the weekdays a slot may occupy, in calendar order.
var SchedulableDays = []string{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}

// Slot represents one scheduled teaching block ("creneau") for a school.
type Slot struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	Day          string    `db:"day" json:"day"`
	StartMinutes int       `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int       `db:"end_minutes" json:"end_minutes"`
	ClassGroup   string    `db:"class_group" json:"class_group"`
	Subject      string    `db:"subject" json:"subject"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	Kind         SlotKind  `db:"kind" json:"kind"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SlotFilter describes query params for listing slots.
type SlotFilter struct {
	SchoolID   string
	Day        string
	TeacherID  string
	ClassGroup string
	Kind       string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Conflict dimensions reported by the detector.
const (
	ConflictDimensionTeacher = "TEACHER"
	ConflictDimensionClass   = "CLASS"
)

// SlotConflict describes an existing slot that collides with a candidate.
type SlotConflict struct {
	SlotID       string   `json:"slot_id"`
	SchoolID     string   `json:"school_id"`
	Day          string   `json:"day"`
	StartMinutes int      `json:"start_minutes"`
	EndMinutes   int      `json:"end_minutes"`
	ClassGroup   string   `json:"class_group"`
	Subject      string   `json:"subject"`
	TeacherID    string   `json:"teacher_id"`
	Kind         SlotKind `json:"kind"`
	Dimension    string   `json:"dimension"`
}

// SlotConflictError is returned when a slot collides with existing ones.
type SlotConflictError struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Conflict SlotConflict   `json:"conflict"`
	Errors   []SlotConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
