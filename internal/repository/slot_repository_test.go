package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaplan/timetable-api/internal/models"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "school_id", "day", "start_minutes", "end_minutes", "class_group", "subject", "teacher_id", "kind", "created_at", "updated_at"})
}

func TestSlotRepositoryList(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	rows := slotRows().
		AddRow("s1", "school-1", "MONDAY", 480, 540, "CM2-A", "Maths", "t1", "REINFORCEMENT", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, day, start_minutes, end_minutes, class_group, subject, teacher_id, kind, created_at, updated_at FROM slots WHERE school_id = $1 ORDER BY start_minutes ASC LIMIT 20 OFFSET 0")).
		WithArgs("school-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM slots WHERE school_id = $1")).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SlotFilter{SchoolID: "school-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE school_id = $1 AND day = $2 AND teacher_id = $3 ORDER BY start_minutes ASC")).
		WithArgs("school-1", "MONDAY", "t1").
		WillReturnRows(slotRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM slots WHERE school_id = $1 AND day = $2 AND teacher_id = $3")).
		WithArgs("school-1", "MONDAY", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.SlotFilter{
		SchoolID:  "school-1",
		Day:       "MONDAY",
		TeacherID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListForDay(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	rows := slotRows().
		AddRow("s1", "school-1", "MONDAY", 480, 540, "CM2-A", "Maths", "t1", "REINFORCEMENT", time.Now(), time.Now()).
		AddRow("s2", "school-1", "MONDAY", 510, 570, "CM2-B", "English", "t2", "REINFORCEMENT", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE school_id = $1 AND day = $2 ORDER BY start_minutes ASC, id ASC")).
		WithArgs("school-1", "MONDAY").
		WillReturnRows(rows)

	slots, err := repo.ListForDay(context.Background(), "school-1", "MONDAY")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "s1", slots[0].ID)
	assert.Equal(t, 480, slots[0].StartMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO slots").
		WithArgs(sqlmock.AnyArg(), "school-1", "MONDAY", 480, 540, "CM2-A", "Maths", "t1", "REINFORCEMENT", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.Slot{
		SchoolID: "school-1", Day: "MONDAY",
		StartMinutes: 480, EndMinutes: 540,
		ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1",
		Kind: models.SlotKindReinforcement,
	}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("UPDATE slots SET").
		WithArgs("TUESDAY", 600, 660, "CM2-A", "Maths", "t1", "REINFORCEMENT", sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.Slot{
		ID: "s1", SchoolID: "school-1", Day: "TUESDAY",
		StartMinutes: 600, EndMinutes: 660,
		ClassGroup: "CM2-A", Subject: "Maths", TeacherID: "t1",
		Kind: models.SlotKindReinforcement,
	}
	require.NoError(t, repo.Update(context.Background(), slot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("DELETE FROM slots WHERE id").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
