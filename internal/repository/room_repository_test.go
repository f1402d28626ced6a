package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

func TestRoomRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, campus_id FROM rooms WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "campus_id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositorySearchEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, campus_id FROM rooms WHERE LOWER(name) LIKE $1`)).
		WithArgs(`%a\_1%`, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "campus_id"}).AddRow("room-1", "A_101", nil))

	rooms, err := repo.Search(context.Background(), " A_1 ", 0)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Nil(t, rooms[0].CampusID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListCombinesSelectors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, campus_id FROM rooms WHERE campus_id = $1 AND LOWER(name) LIKE ANY($2) ORDER BY name ASC")).
		WithArgs("campus-1", `{"%a-1%"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "campus_id"}).AddRow("room-1", "A-101", "campus-1"))

	rooms, err := repo.List(context.Background(), models.OccupancyQuery{CampusID: "campus-1", RoomNames: []string{"A-1"}})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "campus-1", *rooms[0].CampusID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallRepositoryListContaining(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCallRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, num, time_start, time_end FROM lesson_calls WHERE time_start <= $1 AND $1 < time_end ORDER BY num ASC")).
		WithArgs("10:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"id", "num", "time_start", "time_end"}).AddRow("call-1", 1, "09:00:00", "10:30:00"))

	calls, err := repo.ListContaining(context.Background(), academic.MustClock("10:00"))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Contains(academic.MustClock("10:29:59")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryRoundTrip(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_settings (id, max_week, updated_at)")).
		WithArgs(18, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	saved, err := repo.SetMaxWeek(context.Background(), 18)
	require.NoError(t, err)
	assert.Equal(t, 18, saved.MaxWeek)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_week, updated_at FROM schedule_settings WHERE id = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"max_week", "updated_at"}).AddRow(18, saved.UpdatedAt))

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, got.MaxWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}
