package service

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/models"
)

// ChangeDetectorConfig extends the lesson equivalence key.
type ChangeDetectorConfig struct {
	CompareSubgroup   bool
	CompareLessonType bool
}

// ChangeDetector decides whether a fresh parse materially differs from the
// stored schedule of a group. It must run before the group is reconciled.
type ChangeDetector struct {
	cfg    ChangeDetectorConfig
	logger *zap.Logger
}

// NewChangeDetector constructs the detector.
func NewChangeDetector(cfg ChangeDetectorConfig, logger *zap.Logger) *ChangeDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeDetector{cfg: cfg, logger: logger}
}

// HasMaterialChange reports whether some stored lesson has no equivalent in
// the parsed set. Lessons only added by the parse do not count, and a group
// without stored lessons never changes.
func (d *ChangeDetector) HasMaterialChange(group string, old []models.StoredLesson, parsed []models.ParsedLesson) bool {
	if len(old) == 0 {
		return false
	}

	fresh := make(map[string]struct{}, len(parsed))
	for _, lesson := range parsed {
		if !lesson.Scheduled() {
			continue
		}
		fresh[d.parsedFingerprint(lesson)] = struct{}{}
	}

	for _, lesson := range old {
		if _, ok := fresh[d.storedFingerprint(lesson)]; !ok {
			d.logger.Debug("stored lesson has no equivalent",
				zap.String("group", group),
				zap.Int("weekday", lesson.Weekday),
				zap.Int("call", lesson.CallNum),
				zap.String("discipline", lesson.DisciplineName),
			)
			return true
		}
	}
	return false
}

func (d *ChangeDetector) storedFingerprint(l models.StoredLesson) string {
	weeks := make([]int, 0, len(l.Weeks))
	for _, w := range l.Weeks {
		weeks = append(weeks, int(w))
	}
	var subgroup *int
	if d.cfg.CompareSubgroup {
		subgroup = l.Subgroup
	}
	lessonType := ""
	if d.cfg.CompareLessonType && l.LessonTypeName != nil {
		lessonType = *l.LessonTypeName
	}
	room := ""
	if l.RoomName != nil {
		room = *l.RoomName
	}
	return fingerprint(l.CallNum, l.Weekday, l.TeacherNames, weeks, l.DisciplineName, room, subgroup, lessonType)
}

func (d *ChangeDetector) parsedFingerprint(l models.ParsedLesson) string {
	var subgroup *int
	if d.cfg.CompareSubgroup {
		subgroup = l.Subgroup
	}
	lessonType := ""
	if d.cfg.CompareLessonType {
		lessonType = l.Type
	}
	return fingerprint(l.Call.Num, l.Weekday, l.Teachers, l.Weeks, l.Discipline, l.RoomName(), subgroup, lessonType)
}

func fingerprint(call, weekday int, teachers []string, weeks []int, discipline, room string, subgroup *int, lessonType string) string {
	names := make([]string, 0, len(teachers))
	seen := make(map[string]struct{}, len(teachers))
	for _, t := range teachers {
		t = normalizeName(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		names = append(names, t)
	}
	sort.Strings(names)

	normalized := models.NormalizeWeeks(weeks)
	weekParts := make([]string, len(normalized))
	for i, w := range normalized {
		weekParts[i] = strconv.Itoa(w)
	}

	sub := "-"
	if subgroup != nil {
		sub = strconv.Itoa(*subgroup)
	}

	return strings.Join([]string{
		strconv.Itoa(call),
		strconv.Itoa(weekday),
		strings.Join(names, ";"),
		strings.Join(weekParts, ","),
		normalizeName(discipline),
		normalizeName(room),
		sub,
		normalizeName(lessonType),
	}, "|")
}
