package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
	"github.com/noah-isme/timetable-sync/internal/repository"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// catalogueStub hands out stable ids per kind and natural key.
type catalogueStub struct {
	mu    sync.Mutex
	ids   map[string]string
	calls map[string]int
	err   error
}

func newCatalogueStub() *catalogueStub {
	return &catalogueStub{ids: map[string]string{}, calls: map[string]int{}}
}

func (s *catalogueStub) Resolve(ctx context.Context, exec sqlx.ExtContext, kind repository.Kind, key repository.NaturalKey, attrs repository.Attributes) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[kind.Name]++
	if s.err != nil {
		return "", s.err
	}
	k := kind.Name + ":" + key.String()
	if id, ok := s.ids[k]; ok {
		return id, nil
	}
	id := fmt.Sprintf("%s-%d", kind.Name, len(s.ids)+1)
	s.ids[k] = id
	return id, nil
}

// lessonStoreStub keeps lessons per group in memory.
type lessonStoreStub struct {
	groups    map[string][]*models.RecurringLesson
	inserted  int
	insertErr error
	deleteErr error
}

func newLessonStoreStub() *lessonStoreStub {
	return &lessonStoreStub{groups: map[string][]*models.RecurringLesson{}}
}

func (s *lessonStoreStub) DeleteByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	n := int64(len(s.groups[groupID]))
	delete(s.groups, groupID)
	return n, nil
}

func (s *lessonStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, lesson *models.RecurringLesson) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted++
	s.groups[lesson.GroupID] = append(s.groups[lesson.GroupID], lesson)
	return nil
}

func (s *lessonStoreStub) keys(groupID string) []string {
	keys := make([]string, 0, len(s.groups[groupID]))
	for _, l := range s.groups[groupID] {
		keys = append(keys, l.NaturalKey())
	}
	return keys
}

type fixedMaxWeek int

func (m fixedMaxWeek) MaxWeek(ctx context.Context) int { return int(m) }

var testPeriod = academic.Period{YearStart: 2024, YearEnd: 2025, Semester: 1}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func scheduledLesson(discipline string, weekday, call int, room string, weeks []int, teachers ...string) models.ParsedLesson {
	lesson := models.ParsedLesson{
		Kind:       models.LessonKindScheduled,
		Discipline: discipline,
		Teachers:   teachers,
		Call: models.ParsedCall{
			Num:   call,
			Start: academic.Clock(8*3600 + call*6000),
			End:   academic.Clock(8*3600 + call*6000 + 5400),
		},
		Weekday: weekday,
		Weeks:   weeks,
	}
	if room != "" {
		lesson.Room = &models.ParsedRoom{Name: room}
	}
	return lesson
}

func groupSchedule(name string, lessons ...models.ParsedLesson) models.GroupSchedule {
	return models.GroupSchedule{
		Group:     name,
		Period:    testPeriod,
		Institute: models.ParsedInstitute{Name: "ИИТ", ShortName: "ИИТ"},
		Degree:    models.ParsedDegree{Name: "bachelor", Rank: models.DegreeRankBachelor},
		Lessons:   lessons,
	}
}
