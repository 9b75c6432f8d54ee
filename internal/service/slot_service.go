package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

type slotRepository interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error)
	ListForDay(ctx context.Context, schoolID, day string) ([]models.Slot, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	Update(ctx context.Context, slot *models.Slot) error
	Delete(ctx context.Context, id string) error
}

type layoutInvalidator interface {
	Invalidate(ctx context.Context, schoolID string, days ...string)
}

// CreateSlotRequest describes payload for creating a slot. Times cross the
// boundary as "HH:MM" strings.
type CreateSlotRequest struct {
	Day        string `json:"day" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	ClassGroup string `json:"class_group" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	TeacherID  string `json:"teacher_id" validate:"required"`
	Kind       string `json:"kind"`
}

// UpdateSlotRequest updates an existing slot.
type UpdateSlotRequest struct {
	Day        string `json:"day" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	ClassGroup string `json:"class_group" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	TeacherID  string `json:"teacher_id" validate:"required"`
	Kind       string `json:"kind"`
}

// SlotService coordinates slot validation, conflict detection, and writes.
// Conflict-checked writes are serialized per school so no two concurrent
// mutations can both pass detection against a stale snapshot.
type SlotService struct {
	repo      slotRepository
	layouts   layoutInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	locks     *tenantLocks
}

// NewSlotService instantiates SlotService.
func NewSlotService(repo slotRepository, layouts layoutInvalidator, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		repo:      repo,
		layouts:   layouts,
		validator: validate,
		logger:    logger,
		locks:     newTenantLocks(),
	}
}

// List returns slots with pagination metadata.
func (s *SlotService) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	if filter.SchoolID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return slots, pagination, nil
}

// Get loads a single slot.
func (s *SlotService) Get(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	return slot, nil
}

// Create inserts a new slot after validation and conflict detection.
func (s *SlotService) Create(ctx context.Context, schoolID string, req CreateSlotRequest) (*models.Slot, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schoolId is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingField.Code, appErrors.ErrMissingField.Status, "missing required slot field")
	}
	slot, err := s.buildCandidate(schoolID, req.Day, req.StartTime, req.EndTime, req.ClassGroup, req.Subject, req.TeacherID, req.Kind)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Acquire(schoolID)
	defer unlock()

	if err := s.ensureNoConflict(ctx, slot, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	s.invalidateLayouts(ctx, schoolID, slot.Day)
	return &slot, nil
}

// Update replaces a slot's fields after revalidation.
func (s *SlotService) Update(ctx context.Context, id string, req UpdateSlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingField.Code, appErrors.ErrMissingField.Status, "missing required slot field")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildCandidate(existing.SchoolID, req.Day, req.StartTime, req.EndTime, req.ClassGroup, req.Subject, req.TeacherID, req.Kind)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	unlock := s.locks.Acquire(existing.SchoolID)
	defer unlock()

	if err := s.ensureNoConflict(ctx, updated, existing.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot")
	}
	s.invalidateLayouts(ctx, existing.SchoolID, existing.Day, updated.Day)
	return &updated, nil
}

// Relocate moves a slot to a new day and start while preserving its duration.
// With override false a conflicting target is rejected; with override true the
// advisory conflict is bypassed after explicit confirmation.
func (s *SlotService) Relocate(ctx context.Context, id, day string, startMinutes int, override bool) (*models.Slot, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	canonicalDay, ok := NormalizeDay(day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}

	duration := existing.EndMinutes - existing.StartMinutes
	moved := *existing
	moved.Day = canonicalDay
	moved.StartMinutes = startMinutes
	moved.EndMinutes = startMinutes + duration

	if err := validateSlot(moved); err != nil {
		return nil, err
	}

	unlock := s.locks.Acquire(existing.SchoolID)
	defer unlock()

	if !override {
		if err := s.ensureNoConflict(ctx, moved, existing.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &moved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to relocate slot")
	}
	s.invalidateLayouts(ctx, existing.SchoolID, existing.Day, moved.Day)
	return &moved, nil
}

// Delete removes a slot.
func (s *SlotService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Acquire(existing.SchoolID)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	s.invalidateLayouts(ctx, existing.SchoolID, existing.Day)
	return nil
}

// PreviewConflicts runs conflict detection for a candidate against the
// current snapshot without mutating anything. Used by the reschedule preview.
func (s *SlotService) PreviewConflicts(ctx context.Context, candidate models.Slot, excludeID string) ([]models.SlotConflict, error) {
	existing, err := s.repo.ListForDay(ctx, candidate.SchoolID, candidate.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot conflicts")
	}
	return detectConflicts(candidate, existing, excludeID), nil
}

func (s *SlotService) ensureNoConflict(ctx context.Context, candidate models.Slot, excludeID string) error {
	existing, err := s.repo.ListForDay(ctx, candidate.SchoolID, candidate.Day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot conflicts")
	}

	conflicts := detectConflicts(candidate, existing, excludeID)
	if len(conflicts) == 0 {
		return nil
	}

	exemplar := conflicts[0]
	var message string
	switch exemplar.Dimension {
	case models.ConflictDimensionClass:
		message = fmt.Sprintf("class %s already has a slot in this time range", candidate.ClassGroup)
	default:
		message = "teacher already has a slot in this time range"
	}
	domainErr := &models.SlotConflictError{
		Type:     exemplar.Dimension,
		Message:  message,
		Conflict: exemplar,
		Errors:   conflicts,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("slot conflict: %s", message))
}

// detectConflicts scans a day snapshot and collects every overlapping slot
// that shares the candidate's teacher or class group. The snapshot is never
// mutated and the scan order is the snapshot order, so results are
// deterministic for a given input.
func detectConflicts(candidate models.Slot, existing []models.Slot, excludeID string) []models.SlotConflict {
	var conflicts []models.SlotConflict
	for _, item := range existing {
		if excludeID != "" && item.ID == excludeID {
			continue
		}
		if item.SchoolID != candidate.SchoolID {
			continue
		}
		if !Overlaps(candidate, item) {
			continue
		}
		dimension := ""
		if item.ClassGroup == candidate.ClassGroup {
			dimension = models.ConflictDimensionClass
		} else if item.TeacherID == candidate.TeacherID {
			dimension = models.ConflictDimensionTeacher
		}
		if dimension == "" {
			continue
		}
		conflicts = append(conflicts, models.SlotConflict{
			SlotID:       item.ID,
			SchoolID:     item.SchoolID,
			Day:          item.Day,
			StartMinutes: item.StartMinutes,
			EndMinutes:   item.EndMinutes,
			ClassGroup:   item.ClassGroup,
			Subject:      item.Subject,
			TeacherID:    item.TeacherID,
			Kind:         item.Kind,
			Dimension:    dimension,
		})
	}
	return conflicts
}

func (s *SlotService) buildCandidate(schoolID, day, startTime, endTime, classGroup, subject, teacherID, kind string) (models.Slot, error) {
	if strings.TrimSpace(startTime) == "" {
		return models.Slot{}, appErrors.Clone(appErrors.ErrMissingField, "start time is required")
	}
	if strings.TrimSpace(endTime) == "" {
		return models.Slot{}, appErrors.Clone(appErrors.ErrMissingField, "end time is required")
	}
	if strings.TrimSpace(classGroup) == "" {
		return models.Slot{}, appErrors.Clone(appErrors.ErrMissingField, "class group is required")
	}
	if strings.TrimSpace(subject) == "" {
		return models.Slot{}, appErrors.Clone(appErrors.ErrMissingField, "subject is required")
	}
	if strings.TrimSpace(teacherID) == "" {
		return models.Slot{}, appErrors.Clone(appErrors.ErrMissingField, "teacher is required")
	}

	canonicalDay, ok := NormalizeDay(day)
	if !ok {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}

	start, err := ParseClock(startTime)
	if err != nil {
		return models.Slot{}, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return models.Slot{}, err
	}

	slotKind := models.SlotKind(strings.ToUpper(strings.TrimSpace(kind)))
	if slotKind == "" {
		slotKind = models.SlotKindReinforcement
	}
	if slotKind != models.SlotKindReinforcement && slotKind != models.SlotKindEvening {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown slot kind %q", kind))
	}

	slot := models.Slot{
		SchoolID:     schoolID,
		Day:          canonicalDay,
		StartMinutes: start,
		EndMinutes:   end,
		ClassGroup:   strings.TrimSpace(classGroup),
		Subject:      strings.TrimSpace(subject),
		TeacherID:    strings.TrimSpace(teacherID),
		Kind:         slotKind,
	}
	if err := validateSlot(slot); err != nil {
		return models.Slot{}, err
	}
	return slot, nil
}

// validateSlot enforces the slot-level invariants that do not depend on other
// slots. Pure function of the candidate.
func validateSlot(slot models.Slot) error {
	if slot.ClassGroup == "" || slot.Subject == "" || slot.TeacherID == "" {
		return appErrors.Clone(appErrors.ErrMissingField, "class group, subject, and teacher are required")
	}
	if slot.StartMinutes >= slot.EndMinutes {
		return appErrors.Clone(appErrors.ErrInvalidTimeRange, "")
	}
	if slot.Kind == models.SlotKindEvening && slot.StartMinutes < models.EveningStartMinutes {
		return appErrors.Clone(appErrors.ErrEveningTime, "")
	}
	return nil
}

func (s *SlotService) invalidateLayouts(ctx context.Context, schoolID string, days ...string) {
	if s.layouts == nil {
		return
	}
	seen := make(map[string]bool, len(days))
	unique := days[:0]
	for _, day := range days {
		if day == "" || seen[day] {
			continue
		}
		seen[day] = true
		unique = append(unique, day)
	}
	s.layouts.Invalidate(ctx, schoolID, unique...)
}

// tenantLocks hands out one mutex per school so conflict-checked writes hold
// a consistent snapshot from read through commit.
type tenantLocks struct {
	mu    sync.Mutex
	items map[string]*sync.Mutex
}

func newTenantLocks() *tenantLocks {
	return &tenantLocks{items: make(map[string]*sync.Mutex)}
}

// Acquire locks the school's mutex and returns its unlock function.
func (l *tenantLocks) Acquire(schoolID string) func() {
	l.mu.Lock()
	lock, ok := l.items[schoolID]
	if !ok {
		lock = &sync.Mutex{}
		l.items[schoolID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
