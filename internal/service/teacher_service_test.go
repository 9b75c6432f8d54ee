package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scolaplan/timetable-api/internal/models"
)

type mockTeacherRepo struct {
	items       map[string]*models.Teacher
	listResult  []models.Teacher
	listTotal   int
	listErr     error
	deactivated []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) ListActive(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	var active []models.Teacher
	for _, teacher := range m.items {
		if teacher.SchoolID == schoolID && teacher.Active {
			active = append(active, *teacher)
		}
	}
	return active, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if t, ok := m.items[id]; ok {
		t.Active = false
	}
	return nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	teacher, err := service.Create(context.Background(), "school-1", CreateTeacherRequest{
		FirstName: "Marie",
		LastName:  "Dupont",
	})
	require.NoError(t, err)
	assert.Equal(t, "school-1", teacher.SchoolID)
	assert.True(t, teacher.Active)
	assert.Len(t, repo.items, 1)
}

func TestTeacherServiceCreateRequiresName(t *testing.T) {
	repo := &mockTeacherRepo{}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), "school-1", CreateTeacherRequest{FirstName: "Marie"})
	require.Error(t, err)
}

func TestTeacherServiceUpdate(t *testing.T) {
	repo := &mockTeacherRepo{
		items: map[string]*models.Teacher{
			"t1": {ID: "t1", SchoolID: "school-1", FirstName: "Marie", LastName: "Dupont", Active: true},
		},
	}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	active := false
	updated, err := service.Update(context.Background(), "t1", UpdateTeacherRequest{
		FirstName: "Marie",
		LastName:  "Durand",
		Active:    &active,
	})
	require.NoError(t, err)
	assert.Equal(t, "Durand", updated.LastName)
	assert.False(t, updated.Active)
}

func TestTeacherServiceDeactivate(t *testing.T) {
	repo := &mockTeacherRepo{
		items: map[string]*models.Teacher{
			"t1": {ID: "t1", SchoolID: "school-1", FirstName: "Marie", LastName: "Dupont", Active: true},
		},
	}
	service := NewTeacherService(repo, validator.New(), zap.NewNop())

	err := service.Deactivate(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, repo.deactivated)
}

func TestTeacherServiceDeactivateNotFound(t *testing.T) {
	service := NewTeacherService(&mockTeacherRepo{}, validator.New(), zap.NewNop())

	err := service.Deactivate(context.Background(), "missing")
	require.Error(t, err)
}
