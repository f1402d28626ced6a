package extract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

var (
	// ErrBadHeader is returned when a sheet lacks a required column.
	ErrBadHeader = errors.New("timetable sheet header is missing required columns")
	// ErrNoRows is returned when a sheet has a header but no lessons.
	ErrNoRows = errors.New("timetable sheet has no lesson rows")
	// ErrBadWeeks is returned for a week list that cannot be read in full.
	ErrBadWeeks = errors.New("malformed week list")
)

const cancelledMarker = "-"

var weekdayNames = map[string]int{
	"понедельник": 1, "пн": 1, "monday": 1, "mon": 1,
	"вторник": 2, "вт": 2, "tuesday": 2, "tue": 2,
	"среда": 3, "ср": 3, "wednesday": 3, "wed": 3,
	"четверг": 4, "чт": 4, "thursday": 4, "thu": 4,
	"пятница": 5, "пт": 5, "friday": 5, "fri": 5,
	"суббота": 6, "сб": 6, "saturday": 6, "sat": 6,
	"воскресенье": 7, "вс": 7, "sunday": 7, "sun": 7,
}

// XLSXExtractor reads flat timetable workbooks: one lesson per row on the
// first sheet, columns located by header name.
type XLSXExtractor struct {
	logger *zap.Logger
}

// NewXLSXExtractor constructs the workbook extractor.
func NewXLSXExtractor(logger *zap.Logger) *XLSXExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XLSXExtractor{logger: logger}
}

// Extract implements Extractor.
func (e *XLSXExtractor) Extract(ctx context.Context, doc Document) ([]models.GroupSchedule, error) {
	f, err := excelize.OpenFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", doc.Path, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	cols := parseHeaderIndex(rows[0])
	for _, required := range []string{colGroup, colWeekday, colCall, colDiscipline} {
		if cols[required] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrBadHeader, required)
		}
	}

	order := make([]string, 0)
	byGroup := make(map[string]*models.GroupSchedule)
	for i := 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows[i]
		group := cell(row, cols[colGroup])
		if group == "" {
			continue
		}

		lesson, err := parseRow(row, cols)
		if err != nil {
			e.logger.Warn("skipping timetable row",
				zap.String("document", doc.ID),
				zap.Int("row", i+1),
				zap.Error(err),
			)
			continue
		}

		schedule, ok := byGroup[group]
		if !ok {
			schedule = &models.GroupSchedule{
				Group:     group,
				Period:    doc.Period,
				Institute: doc.Institute,
				Degree:    doc.Degree,
			}
			byGroup[group] = schedule
			order = append(order, group)
		}
		schedule.Lessons = append(schedule.Lessons, lesson)
	}

	if len(order) == 0 {
		return nil, ErrNoRows
	}

	out := make([]models.GroupSchedule, 0, len(order))
	for _, name := range order {
		out = append(out, *byGroup[name])
	}
	return out, nil
}

func parseRow(row []string, cols map[string]int) (models.ParsedLesson, error) {
	weekday, err := parseWeekday(cell(row, cols[colWeekday]))
	if err != nil {
		return models.ParsedLesson{}, err
	}
	num, err := strconv.Atoi(cell(row, cols[colCall]))
	if err != nil {
		return models.ParsedLesson{}, fmt.Errorf("invalid call number %q", cell(row, cols[colCall]))
	}

	call := models.ParsedCall{Num: num}
	if raw := cell(row, cols[colStart]); raw != "" {
		if call.Start, err = academic.ParseClock(raw); err != nil {
			return models.ParsedLesson{}, err
		}
	}
	if raw := cell(row, cols[colEnd]); raw != "" {
		if call.End, err = academic.ParseClock(raw); err != nil {
			return models.ParsedLesson{}, err
		}
	}

	discipline := cell(row, cols[colDiscipline])
	if discipline == "" || discipline == cancelledMarker {
		return models.ParsedLesson{
			Kind:    models.LessonKindCancelled,
			Call:    call,
			Weekday: weekday,
		}, nil
	}

	lesson := models.ParsedLesson{
		Kind:       models.LessonKindScheduled,
		Discipline: discipline,
		Type:       cell(row, cols[colType]),
		Teachers:   splitList(cell(row, cols[colTeachers])),
		Call:       call,
		Weekday:    weekday,
	}
	if lesson.Weeks, err = ParseWeeks(cell(row, cols[colWeeks])); err != nil {
		return models.ParsedLesson{}, err
	}
	if room := cell(row, cols[colRoom]); room != "" {
		lesson.Room = &models.ParsedRoom{Name: room}
		if campus := cell(row, cols[colCampus]); campus != "" {
			lesson.Room.Campus = &models.ParsedCampus{Name: campus, ShortName: campus}
		}
	}
	if raw := cell(row, cols[colSubgroup]); raw != "" {
		sub, err := strconv.Atoi(raw)
		if err != nil {
			return models.ParsedLesson{}, fmt.Errorf("invalid subgroup %q", raw)
		}
		lesson.Subgroup = &sub
	}
	return lesson, nil
}

// ParseWeeks reads week lists such as "1,3,5-9". Any malformed part, or a
// week outside 1..academic.WeekLimit, rejects the whole list.
func ParseWeeks(raw string) ([]int, error) {
	weeks := make([]int, 0)
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		from, to, err := parseWeekSpan(part)
		if err != nil {
			return nil, err
		}
		for w := from; w <= to; w++ {
			weeks = append(weeks, w)
		}
	}
	return models.NormalizeWeeks(weeks), nil
}

func parseWeekSpan(part string) (int, int, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	if !isRange {
		hi = lo
	}
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadWeeks, part)
	}
	to, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadWeeks, part)
	}
	if from < 1 || from > to || to > academic.WeekLimit {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrBadWeeks, part)
	}
	return from, to, nil
}

func parseWeekday(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > 7 {
			return 0, fmt.Errorf("weekday %d out of range", n)
		}
		return n, nil
	}
	if n, ok := weekdayNames[strings.ToLower(raw)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

const (
	colGroup      = "group"
	colWeekday    = "weekday"
	colCall       = "call"
	colStart      = "start"
	colEnd        = "end"
	colDiscipline = "discipline"
	colType       = "type"
	colTeachers   = "teachers"
	colRoom       = "room"
	colCampus     = "campus"
	colSubgroup   = "subgroup"
	colWeeks      = "weeks"
)

var headerAliases = map[string]string{
	"group": colGroup, "группа": colGroup,
	"weekday": colWeekday, "day": colWeekday, "день": colWeekday, "день недели": colWeekday,
	"call": colCall, "pair": colCall, "пара": colCall, "номер пары": colCall,
	"start": colStart, "начало": colStart,
	"end": colEnd, "окончание": colEnd, "конец": colEnd,
	"discipline": colDiscipline, "subject": colDiscipline, "дисциплина": colDiscipline,
	"type": colType, "вид": colType, "тип": colType,
	"teachers": colTeachers, "teacher": colTeachers, "преподаватель": colTeachers, "преподаватели": colTeachers,
	"room": colRoom, "аудитория": colRoom,
	"campus": colCampus, "корпус": colCampus,
	"subgroup": colSubgroup, "подгруппа": colSubgroup,
	"weeks": colWeeks, "недели": colWeeks,
}

// parseHeaderIndex maps canonical column names to their index, -1 when absent.
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		colGroup: -1, colWeekday: -1, colCall: -1, colStart: -1, colEnd: -1, colDiscipline: -1,
		colType: -1, colTeachers: -1, colRoom: -1, colCampus: -1, colSubgroup: -1, colWeeks: -1,
	}
	for i, h := range header {
		if name, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok && idx[name] < 0 {
			idx[name] = i
		}
	}
	return idx
}
