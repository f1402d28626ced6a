package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var sheetHeader = []interface{}{"Группа", "День", "Пара", "Начало", "Окончание", "Дисциплина", "Вид", "Преподаватели", "Аудитория", "Корпус", "Подгруппа", "Недели"}

func TestXLSXExtractorGroupsRowsByGroup(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		sheetHeader,
		{"ИВТ-101", "Понедельник", 1, "09:00", "10:30", "Математика", "лек", "Иванов И.И., Петров П.П.", "A101", "Главный", "", "1-3,5"},
		{"ИВТ-102", 2, 2, "10:40", "12:10", "Физика", "пр", "Сидоров С.С.", "", "", "1", "2,4"},
		{"ИВТ-101", "вт", 3, "12:40", "14:10", "-", "", "", "", "", "", ""},
		{"", "", "", "", "", "", "", "", "", "", "", ""},
	})
	doc := Document{
		ID:        "schedule.xlsx",
		Path:      path,
		Institute: models.ParsedInstitute{Name: "ИИТ", ShortName: "ИИТ"},
		Degree:    models.ParsedDegree{Name: "bachelor", Rank: models.DegreeRankBachelor},
		Period:    academic.Period{YearStart: 2024, YearEnd: 2025, Semester: 1},
	}

	groups, err := NewXLSXExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	first := groups[0]
	assert.Equal(t, "ИВТ-101", first.Group)
	assert.Equal(t, doc.Period, first.Period)
	assert.Equal(t, doc.Degree, first.Degree)
	require.Len(t, first.Lessons, 2)

	lesson := first.Lessons[0]
	assert.True(t, lesson.Scheduled())
	assert.Equal(t, 1, lesson.Weekday)
	assert.Equal(t, 1, lesson.Call.Num)
	assert.Equal(t, academic.MustClock("09:00"), lesson.Call.Start)
	assert.Equal(t, academic.MustClock("10:30"), lesson.Call.End)
	assert.Equal(t, []string{"Иванов И.И.", "Петров П.П."}, lesson.Teachers)
	assert.Equal(t, []int{1, 2, 3, 5}, lesson.Weeks)
	require.NotNil(t, lesson.Room)
	assert.Equal(t, "A101", lesson.Room.Name)
	require.NotNil(t, lesson.Room.Campus)
	assert.Equal(t, "Главный", lesson.Room.Campus.ShortName)

	cancelled := first.Lessons[1]
	assert.Equal(t, models.LessonKindCancelled, cancelled.Kind)
	assert.Equal(t, 2, cancelled.Weekday)
	assert.Equal(t, 3, cancelled.Call.Num)

	second := groups[1].Lessons[0]
	assert.Nil(t, second.Room)
	require.NotNil(t, second.Subgroup)
	assert.Equal(t, 1, *second.Subgroup)
}

func TestXLSXExtractorSkipsMalformedRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		sheetHeader,
		{"ИВТ-101", "someday", 1, "09:00", "10:30", "Математика", "", "", "", "", "", "1"},
		{"ИВТ-101", 1, "x", "09:00", "10:30", "Математика", "", "", "", "", "", "1"},
		{"ИВТ-101", 1, 1, "09:00", "10:30", "Математика", "", "", "", "", "", "1"},
	})

	groups, err := NewXLSXExtractor(nil).Extract(context.Background(), Document{Path: path})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Lessons, 1)
}

func TestXLSXExtractorRejectsMissingColumns(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Группа", "Дисциплина"},
		{"ИВТ-101", "Математика"},
	})

	_, err := NewXLSXExtractor(nil).Extract(context.Background(), Document{Path: path})
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestXLSXExtractorEmptySheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{sheetHeader})

	_, err := NewXLSXExtractor(nil).Extract(context.Background(), Document{Path: path})
	require.ErrorIs(t, err, ErrNoRows)
}

func TestParseWeeks(t *testing.T) {
	weeks, err := ParseWeeks("1,3,5-7")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5, 6, 7}, weeks)

	weeks, err = ParseWeeks("4; 2 ;4")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, weeks)

	weeks, err = ParseWeeks("")
	require.NoError(t, err)
	assert.Empty(t, weeks)
}

func TestParseWeeksRejectsPartialLists(t *testing.T) {
	for _, raw := range []string{"1,3,x", "2,5-q", "abc", "9-3", "0,1", "1-2000000000", "54"} {
		weeks, err := ParseWeeks(raw)
		assert.ErrorIs(t, err, ErrBadWeeks, raw)
		assert.Nil(t, weeks, raw)
	}

	weeks, err := ParseWeeks("1-53")
	require.NoError(t, err)
	assert.Len(t, weeks, academic.WeekLimit)
}

func TestXLSXExtractorSkipsRowsWithMalformedWeeks(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		sheetHeader,
		{"ИВТ-101", 1, 1, "09:00", "10:30", "Математика", "", "", "", "", "", "1,3,x"},
		{"ИВТ-101", 2, 1, "09:00", "10:30", "Физика", "", "", "", "", "", "1-2000000000"},
		{"ИВТ-101", 3, 1, "09:00", "10:30", "Химия", "", "", "", "", "", "1,3"},
	})

	groups, err := NewXLSXExtractor(nil).Extract(context.Background(), Document{Path: path})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Lessons, 1)
	assert.Equal(t, "Химия", groups[0].Lessons[0].Discipline)
	assert.Equal(t, []int{1, 3}, groups[0].Lessons[0].Weeks)
}

func TestByExtensionDispatch(t *testing.T) {
	registry := ByExtension{".xlsx": NewXLSXExtractor(nil)}

	_, err := registry.Extract(context.Background(), Document{Path: "timetable.pdf"})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSortByDegreeIsStable(t *testing.T) {
	docs := []Document{
		{ID: "b1", Degree: models.ParsedDegree{Rank: models.DegreeRankBachelor}},
		{ID: "m1", Degree: models.ParsedDegree{Rank: models.DegreeRankMaster}},
		{ID: "c1", Degree: models.ParsedDegree{Rank: models.DegreeRankCollege}},
		{ID: "b2", Degree: models.ParsedDegree{Rank: models.DegreeRankBachelor}},
		{ID: "p1", Degree: models.ParsedDegree{Rank: models.DegreeRankPhD}},
	}

	SortByDegree(docs)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"p1", "m1", "b1", "b2", "c1"}, ids)
}
