package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaplan/timetable-api/internal/models"
	"github.com/scolaplan/timetable-api/internal/service"
	"github.com/scolaplan/timetable-api/pkg/response"
)

type handlerSlotRepo struct {
	items map[string]*models.Slot
}

func newHandlerSlotRepo(slots ...models.Slot) *handlerSlotRepo {
	repo := &handlerSlotRepo{items: make(map[string]*models.Slot)}
	for i := range slots {
		cp := slots[i]
		repo.items[cp.ID] = &cp
	}
	return repo
}

func (m *handlerSlotRepo) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
	var result []models.Slot
	for _, slot := range m.items {
		if slot.SchoolID == filter.SchoolID {
			result = append(result, *slot)
		}
	}
	return result, len(result), nil
}

func (m *handlerSlotRepo) ListForDay(ctx context.Context, schoolID, day string) ([]models.Slot, error) {
	var result []models.Slot
	for _, slot := range m.items {
		if slot.SchoolID == schoolID && slot.Day == day {
			result = append(result, *slot)
		}
	}
	return result, nil
}

func (m *handlerSlotRepo) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	if slot, ok := m.items[id]; ok {
		cp := *slot
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *handlerSlotRepo) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = "generated"
	}
	cp := *slot
	m.items[slot.ID] = &cp
	return nil
}

func (m *handlerSlotRepo) Update(ctx context.Context, slot *models.Slot) error {
	cp := *slot
	m.items[slot.ID] = &cp
	return nil
}

func (m *handlerSlotRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newSlotTestRouter(repo *handlerSlotRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewSlotService(repo, nil, nil, nil)
	h := NewSlotHandler(svc)

	router := gin.New()
	router.GET("/schools/:schoolId/slots", h.List)
	router.POST("/schools/:schoolId/slots", h.Create)
	router.GET("/slots/:id", h.Get)
	router.PUT("/slots/:id", h.Update)
	router.DELETE("/slots/:id", h.Delete)
	return router
}

func TestSlotHandlerCreate(t *testing.T) {
	repo := newHandlerSlotRepo()
	router := newSlotTestRouter(repo)

	payload := []byte(`{"day":"monday","start_time":"08:00","end_time":"09:00","class_group":"CM2-A","subject":"Maths","teacher_id":"t1"}`)
	req, _ := http.NewRequest(http.MethodPost, "/schools/school-1/slots", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	assert.Len(t, repo.items, 1)
}

func TestSlotHandlerCreateMalformedJSON(t *testing.T) {
	router := newSlotTestRouter(newHandlerSlotRepo())

	req, _ := http.NewRequest(http.MethodPost, "/schools/school-1/slots", bytes.NewReader([]byte(`{"day":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotHandlerCreateConflictStatus(t *testing.T) {
	existing := models.Slot{
		ID: "s1", SchoolID: "school-1", Day: models.DayMonday,
		StartMinutes: 480, EndMinutes: 540,
		ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1",
		Kind: models.SlotKindReinforcement,
	}
	router := newSlotTestRouter(newHandlerSlotRepo(existing))

	payload := []byte(`{"day":"monday","start_time":"08:30","end_time":"09:30","class_group":"CM2-A","subject":"Maths","teacher_id":"t1"}`)
	req, _ := http.NewRequest(http.MethodPost, "/schools/school-1/slots", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
}

func TestSlotHandlerGetNotFound(t *testing.T) {
	router := newSlotTestRouter(newHandlerSlotRepo())

	req, _ := http.NewRequest(http.MethodGet, "/slots/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlotHandlerList(t *testing.T) {
	existing := models.Slot{
		ID: "s1", SchoolID: "school-1", Day: models.DayMonday,
		StartMinutes: 480, EndMinutes: 540,
		ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1",
		Kind: models.SlotKindReinforcement,
	}
	router := newSlotTestRouter(newHandlerSlotRepo(existing))

	req, _ := http.NewRequest(http.MethodGet, "/schools/school-1/slots?day=monday", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestSlotHandlerDelete(t *testing.T) {
	existing := models.Slot{
		ID: "s1", SchoolID: "school-1", Day: models.DayMonday,
		StartMinutes: 480, EndMinutes: 540,
		ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1",
		Kind: models.SlotKindReinforcement,
	}
	repo := newHandlerSlotRepo(existing)
	router := newSlotTestRouter(repo)

	req, _ := http.NewRequest(http.MethodDelete, "/slots/s1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.items)
}
