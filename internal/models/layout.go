package models

// DayLayoutPosition places one slot inside the rendered day column.
// Derived from a snapshot, never persisted.
type DayLayoutPosition struct {
	SlotID      string `json:"slot_id"`
	ColumnIndex int    `json:"column_index"`
	ColumnCount int    `json:"column_count"`
}
