package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scolaplan/timetable-api/internal/models"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
)

type mockImportCreator struct {
	created []CreateSlotRequest
	failOn  map[int]error
}

func (m *mockImportCreator) Create(ctx context.Context, schoolID string, req CreateSlotRequest) (*models.Slot, error) {
	if err, ok := m.failOn[len(m.created)]; ok {
		m.created = append(m.created, req)
		return nil, err
	}
	m.created = append(m.created, req)
	return &models.Slot{ID: "created"}, nil
}

type mockRoster struct {
	teachers []models.Teacher
}

func (m *mockRoster) ListActive(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	return m.teachers, nil
}

func importTestRoster() *mockRoster {
	return &mockRoster{teachers: []models.Teacher{
		{ID: "t1", FirstName: "Marie", LastName: "Dupont"},
		{ID: "t2", FirstName: "Jean", LastName: "Martin"},
	}}
}

func TestImportReconcileFrenchHeaders(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	rows := []models.ImportRow{{
		"Jour":         "lundi",
		"Heure début":  "08:00",
		"Heure fin":    "09:00",
		"Classe":       "CM2-A",
		"Matière":      "Maths",
		"Professeur":   "Marie Dupont",
		"Type":         "soir",
	}}
	candidates, err := service.Reconcile(context.Background(), "school-1", rows)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	candidate := candidates[0]
	assert.Equal(t, models.DayMonday, candidate.Day)
	assert.Equal(t, "08:00", candidate.StartTime)
	assert.Equal(t, "09:00", candidate.EndTime)
	assert.Equal(t, "CM2-A", candidate.ClassGroup)
	assert.Equal(t, "Maths", candidate.Subject)
	assert.Equal(t, string(models.SlotKindEvening), candidate.Kind)
	assert.True(t, candidate.Resolved)
	assert.Equal(t, "t1", candidate.TeacherID)
	assert.Equal(t, 1, candidate.SourceRow)
}

func TestImportReconcileDuplicateHeadersAreDeterministic(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	// Two headers normalize into the start-time synonym set; "start" is
	// declared before "debut" so it must win on every run.
	rows := []models.ImportRow{{
		"Jour":       "lundi",
		"Start":      "09:00",
		"Début":      "10:00",
		"Heure fin":  "11:00",
		"Classe":     "CM2-A",
		"Matière":    "Maths",
		"Professeur": "Marie Dupont",
	}}
	for i := 0; i < 10; i++ {
		candidates, err := service.Reconcile(context.Background(), "school-1", rows)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "09:00", candidates[0].StartTime)
	}
}

func TestImportReconcileHeaderVariants(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	// Same logical columns through different spellings and separators.
	rows := []models.ImportRow{{
		"DAY":         "Tuesday",
		"start_time":  "10:00",
		"End Time":    "11:00",
		"class_group": "6B",
		"Subject":     "English",
		"Enseignant":  "Jean Martin",
	}}
	candidates, err := service.Reconcile(context.Background(), "school-1", rows)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.DayTuesday, candidates[0].Day)
	assert.Equal(t, "t2", candidates[0].TeacherID)
}

func TestImportReconcileDropsIncompleteRows(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	rows := []models.ImportRow{
		{"jour": "lundi", "debut": "08:00", "fin": "09:00", "classe": "CM2-A", "matiere": "Maths", "professeur": "Dupont"},
		{"jour": "", "debut": "08:00", "fin": "09:00", "classe": "CM2-A"},      // no day
		{"jour": "mardi", "debut": "", "fin": "09:00", "classe": "CM2-A"},     // no start
		{"jour": "mardi", "debut": "08:00", "fin": "09:00", "classe": ""},     // no class
		{"jour": "someday", "debut": "08:00", "fin": "09:00", "classe": "6B"}, // unknown day
	}
	candidates, err := service.Reconcile(context.Background(), "school-1", rows)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 1, candidates[0].SourceRow)
}

func TestImportReconcileUnresolvedTeacherKeepsRawText(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	rows := []models.ImportRow{{
		"jour": "lundi", "debut": "08:00", "fin": "09:00",
		"classe": "CM2-A", "matiere": "Maths", "professeur": "Inconnu Personne",
	}}
	candidates, err := service.Reconcile(context.Background(), "school-1", rows)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].Resolved)
	assert.Equal(t, "Inconnu Personne", candidates[0].RawTeacher)
}

func TestImportReconcileLastNameFallback(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	rows := []models.ImportRow{{
		"jour": "lundi", "debut": "08:00", "fin": "09:00",
		"classe": "CM2-A", "matiere": "Maths", "professeur": "M. Dupont",
	}}
	candidates, err := service.Reconcile(context.Background(), "school-1", rows)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].Resolved)
	assert.Equal(t, "t1", candidates[0].TeacherID)
}

func TestImportReconcileBatchLimit(t *testing.T) {
	service := NewImportService(&mockImportCreator{}, importTestRoster(), zap.NewNop(), ImportServiceConfig{MaxRows: 2})

	rows := make([]models.ImportRow, 3)
	_, err := service.Reconcile(context.Background(), "school-1", rows)
	require.Error(t, err)
}

func TestImportCommit(t *testing.T) {
	creator := &mockImportCreator{}
	service := NewImportService(creator, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	candidates := []models.ImportCandidate{
		{Day: models.DayMonday, StartTime: "08:00", EndTime: "09:00", ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1", Resolved: true, SourceRow: 1},
		{Day: models.DayMonday, StartTime: "10:00", EndTime: "11:00", ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1", Resolved: true, SourceRow: 2},
	}
	report, err := service.Commit(context.Background(), "school-1", candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, creator.created, 2)
}

func TestImportCommitRejectsUnresolvedTeacher(t *testing.T) {
	creator := &mockImportCreator{}
	service := NewImportService(creator, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	candidates := []models.ImportCandidate{
		{Day: models.DayMonday, StartTime: "08:00", EndTime: "09:00", ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "Inconnu", RawTeacher: "Inconnu", SourceRow: 1},
		{Day: models.DayMonday, StartTime: "10:00", EndTime: "11:00", ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1", Resolved: true, SourceRow: 2},
	}
	report, err := service.Commit(context.Background(), "school-1", candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].SourceRow)
	assert.Equal(t, appErrors.ErrUnresolvedTeacher.Code, report.Failures[0].Code)

	// The unresolved row never reaches the creation path.
	assert.Len(t, creator.created, 1)
}

func TestImportCommitCountsFailuresWithoutAborting(t *testing.T) {
	creator := &mockImportCreator{failOn: map[int]error{
		0: appErrors.Clone(appErrors.ErrMissingField, "teacher is required"),
	}}
	service := NewImportService(creator, importTestRoster(), zap.NewNop(), ImportServiceConfig{})

	candidates := []models.ImportCandidate{
		{Day: models.DayMonday, StartTime: "08:00", EndTime: "09:00", ClassGroup: "CM2-A", Subject: "Maths", SourceRow: 1},
		{Day: models.DayMonday, StartTime: "10:00", EndTime: "11:00", ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1", Resolved: true, SourceRow: 2},
	}
	report, err := service.Commit(context.Background(), "school-1", candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, appErrors.ErrMissingField.Code, report.Failures[0].Code)
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Heure début": "heuredebut",
		"heure_debut": "heuredebut",
		"MATIÈRE":     "matiere",
		"Class Group": "classgroup",
		"jour ":       "jour",
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalizeHeader(raw), raw)
	}
}
