package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	roomLookupSQL = "SELECT id FROM rooms WHERE name = $1 LIMIT 1"
	roomInsertSQL = "INSERT INTO rooms (id, name, campus_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING RETURNING id"
)

func TestCatalogueResolveReturnsExistingWithoutInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogueRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(roomLookupSQL)).
		WithArgs("A-101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("room-1"))

	id, err := repo.Resolve(context.Background(), nil, KindRoom, NaturalKey{"A-101"}, Attributes{"campus-9"})
	require.NoError(t, err)
	assert.Equal(t, "room-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueResolveInsertsWhenAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogueRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(roomLookupSQL)).
		WithArgs("A-101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(roomInsertSQL)).
		WithArgs(sqlmock.AnyArg(), "A-101", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("room-new"))

	id, err := repo.Resolve(context.Background(), nil, KindRoom, NaturalKey{"A-101"}, Attributes{nil})
	require.NoError(t, err)
	assert.Equal(t, "room-new", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueResolveRereadsWhenConflictSwallowed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogueRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM teachers WHERE name = $1 LIMIT 1")).
		WithArgs("Ivanov I.I.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO teachers (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING RETURNING id")).
		WithArgs(sqlmock.AnyArg(), "Ivanov I.I.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM teachers WHERE name = $1 LIMIT 1")).
		WithArgs("Ivanov I.I.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("teacher-winner"))

	id, err := repo.Resolve(context.Background(), nil, KindTeacher, NaturalKey{"Ivanov I.I."}, nil)
	require.NoError(t, err)
	assert.Equal(t, "teacher-winner", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueResolveRecoversUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogueRepository(db)

	lookup := regexp.QuoteMeta("SELECT id FROM schedule_periods WHERE year_start = $1 AND year_end = $2 AND semester = $3 LIMIT 1")
	mock.ExpectQuery(lookup).
		WithArgs(2024, 2025, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedule_periods (id, year_start, year_end, semester)")).
		WithArgs(sqlmock.AnyArg(), 2024, 2025, 1).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(lookup).
		WithArgs(2024, 2025, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("period-1"))

	id, err := repo.Resolve(context.Background(), nil, KindPeriod, NaturalKey{2024, 2025, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "period-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueResolvePropagatesOtherErrors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogueRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(roomLookupSQL)).
		WithArgs("A-101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(roomInsertSQL)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Resolve(context.Background(), nil, KindRoom, NaturalKey{"A-101"}, Attributes{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert room A-101")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueResolveRejectsMisalignedKey(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCatalogueRepository(db)

	_, err := repo.Resolve(context.Background(), nil, KindGroup, NaturalKey{"IT-21"}, Attributes{"d", "i"})
	assert.Error(t, err)
}
