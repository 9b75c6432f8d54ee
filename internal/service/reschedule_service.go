package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

// DragState enumerates the phases of a drag-and-drop relocation.
type DragState string

const (
	DragStateDragging             DragState = "DRAGGING"
	DragStatePreviewing           DragState = "PREVIEWING"
	DragStateAwaitingConfirmation DragState = "AWAITING_CONFIRMATION"
)

// DragSession tracks one in-flight relocation. A session always passes
// through PREVIEWING before anything is applied, so a silent overwrite is
// impossible.
type DragSession struct {
	SessionID string                `json:"session_id"`
	SchoolID  string                `json:"school_id"`
	SlotID    string                `json:"slot_id"`
	State     DragState             `json:"state"`
	Candidate *models.Slot          `json:"candidate,omitempty"`
	Conflicts []models.SlotConflict `json:"conflicts,omitempty"`
	StartedAt time.Time             `json:"started_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// HasConflict reports whether the latest preview detected a collision.
func (s *DragSession) HasConflict() bool {
	return len(s.Conflicts) > 0
}

type rescheduleSlotGateway interface {
	Get(ctx context.Context, id string) (*models.Slot, error)
	PreviewConflicts(ctx context.Context, candidate models.Slot, excludeID string) ([]models.SlotConflict, error)
	Relocate(ctx context.Context, id, day string, startMinutes int, override bool) (*models.Slot, error)
}

// RescheduleServiceConfig governs drag session lifetime.
type RescheduleServiceConfig struct {
	SessionTTL time.Duration
}

// RescheduleService drives the two-phase relocation protocol: preview the
// target with live conflict feedback, then apply on drop, requiring explicit
// confirmation when the preview found a conflict.
type RescheduleService struct {
	slots  rescheduleSlotGateway
	logger *zap.Logger
	store  *dragSessionStore
}

// NewRescheduleService wires reschedule dependencies.
func NewRescheduleService(slots rescheduleSlotGateway, logger *zap.Logger, cfg RescheduleServiceConfig) *RescheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	return &RescheduleService{
		slots:  slots,
		logger: logger,
		store:  newDragSessionStore(cfg.SessionTTL),
	}
}

// Begin picks up a slot and opens a drag session.
func (s *RescheduleService) Begin(ctx context.Context, slotID string) (*DragSession, error) {
	slot, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := DragSession{
		SessionID: uuid.NewString(),
		SchoolID:  slot.SchoolID,
		SlotID:    slot.ID,
		State:     DragStateDragging,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.store.Save(session)
	return &session, nil
}

// Preview computes a candidate position at the hovered day and start time,
// preserving the slot's duration, and reports conflicts without mutating
// anything. May be called repeatedly while hovering.
func (s *RescheduleService) Preview(ctx context.Context, sessionID, day, startTime string) (*DragSession, error) {
	session, ok := s.store.Get(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "drag session not found or expired")
	}

	slot, err := s.slots.Get(ctx, session.SlotID)
	if err != nil {
		return nil, err
	}

	canonicalDay, ok := NormalizeDay(day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", day))
	}
	start, err := ParseClock(startTime)
	if err != nil {
		return nil, err
	}

	duration := slot.EndMinutes - slot.StartMinutes
	candidate := *slot
	candidate.Day = canonicalDay
	candidate.StartMinutes = start
	candidate.EndMinutes = start + duration

	conflicts, err := s.slots.PreviewConflicts(ctx, candidate, slot.ID)
	if err != nil {
		return nil, err
	}

	session.State = DragStatePreviewing
	session.Candidate = &candidate
	session.Conflicts = conflicts
	session.UpdatedAt = time.Now().UTC()
	s.store.Save(session)
	return &session, nil
}

// Drop releases the slot at the previewed position. Without a conflict the
// relocation is applied immediately through the same validation path as
// creation; with a conflict nothing is mutated and the session awaits an
// explicit confirmation.
func (s *RescheduleService) Drop(ctx context.Context, sessionID string) (*DragSession, *models.Slot, error) {
	session, ok := s.store.Get(sessionID)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "drag session not found or expired")
	}
	if session.State != DragStatePreviewing || session.Candidate == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrSessionState, "drop requires a previewed target")
	}

	if session.HasConflict() {
		session.State = DragStateAwaitingConfirmation
		session.UpdatedAt = time.Now().UTC()
		s.store.Save(session)
		return &session, nil, nil
	}

	moved, err := s.slots.Relocate(ctx, session.SlotID, session.Candidate.Day, session.Candidate.StartMinutes, false)
	if err != nil {
		return nil, nil, err
	}
	s.store.Delete(sessionID)
	return nil, moved, nil
}

// Confirm applies a conflicting relocation after the user's explicit
// override. The store may still reject on its own authority.
func (s *RescheduleService) Confirm(ctx context.Context, sessionID string) (*models.Slot, error) {
	session, ok := s.store.Get(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "drag session not found or expired")
	}
	if session.State != DragStateAwaitingConfirmation || session.Candidate == nil {
		return nil, appErrors.Clone(appErrors.ErrSessionState, "confirm requires a conflicting drop awaiting confirmation")
	}

	moved, err := s.slots.Relocate(ctx, session.SlotID, session.Candidate.Day, session.Candidate.StartMinutes, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("conflicting relocation overridden",
		zap.String("slot_id", session.SlotID),
		zap.String("school_id", session.SchoolID),
		zap.Int("conflicts", len(session.Conflicts)),
	)
	s.store.Delete(sessionID)
	return moved, nil
}

// Cancel discards a session in any state without mutating the slot.
func (s *RescheduleService) Cancel(ctx context.Context, sessionID string) error {
	if _, ok := s.store.Get(sessionID); !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "drag session not found or expired")
	}
	s.store.Delete(sessionID)
	return nil
}

// Get returns the session's current state for presentation.
func (s *RescheduleService) Get(ctx context.Context, sessionID string) (*DragSession, error) {
	session, ok := s.store.Get(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "drag session not found or expired")
	}
	return &session, nil
}

// --- Session cache ---

type dragSessionStore struct {
	ttl       time.Duration
	mu        sync.RWMutex
	items     map[string]DragSession
	lastSweep time.Time
}

func newDragSessionStore(ttl time.Duration) *dragSessionStore {
	return &dragSessionStore{
		ttl:       ttl,
		items:     make(map[string]DragSession),
		lastSweep: time.Now(),
	}
}

// expired measures idleness from the last transition, so a session that is
// actively previewed stays alive past the nominal TTL.
func (s *dragSessionStore) expired(session DragSession, now time.Time) bool {
	return now.Sub(session.UpdatedAt) > s.ttl
}

func (s *dragSessionStore) Save(session DragSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.SessionID] = session
	s.sweepLocked(time.Now())
}

// sweepLocked drops abandoned sessions so they do not accumulate between
// lookups. Caller holds the write lock.
func (s *dragSessionStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) <= s.ttl {
		return
	}
	for id, session := range s.items {
		if s.expired(session, now) {
			delete(s.items, id)
		}
	}
	s.lastSweep = now
}

func (s *dragSessionStore) Get(id string) (DragSession, bool) {
	s.mu.RLock()
	session, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return DragSession{}, false
	}
	if s.expired(session, time.Now()) {
		s.Delete(id)
		return DragSession{}, false
	}
	return session, true
}

func (s *dragSessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
