package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaplan/timetable-api/internal/models"
)

// SlotRepository provides persistence for timetable slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = "id, school_id, day, start_minutes, end_minutes, class_group, subject, teacher_id, kind, created_at, updated_at"

// List returns slots with optional filtering and pagination.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
	base := "FROM slots WHERE school_id = $1"
	args := []interface{}{filter.SchoolID}
	var conditions []string

	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassGroup != "" {
		conditions = append(conditions, fmt.Sprintf("class_group = $%d", len(args)+1))
		args = append(args, filter.ClassGroup)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, filter.Kind)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day":           true,
		"start_minutes": true,
		"class_group":   true,
		"created_at":    true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_minutes"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", slotColumns, base, sortBy, order, size, offset)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count slots: %w", err)
	}

	return slots, total, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListForDay returns every slot for one school and day ordered by start time.
// This is the snapshot both conflict detection and layout work from.
func (r *SlotRepository) ListForDay(ctx context.Context, schoolID, day string) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE school_id = $1 AND day = $2 ORDER BY start_minutes ASC, id ASC", slotColumns)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, schoolID, day); err != nil {
		return nil, fmt.Errorf("list slots for day: %w", err)
	}
	return slots, nil
}

// Create stores a new slot record.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO slots (id, school_id, day, start_minutes, end_minutes, class_group, subject, teacher_id, kind, created_at, updated_at) VALUES (:id, :school_id, :day, :start_minutes, :end_minutes, :class_group, :subject, :teacher_id, :kind, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// Update modifies a slot record.
func (r *SlotRepository) Update(ctx context.Context, slot *models.Slot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE slots SET day = :day, start_minutes = :start_minutes, end_minutes = :end_minutes, class_group = :class_group, subject = :subject, teacher_id = :teacher_id, kind = :kind, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return nil
}

// Delete removes a slot by id.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}
