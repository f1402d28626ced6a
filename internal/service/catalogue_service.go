package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
	"github.com/noah-isme/timetable-sync/internal/repository"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
)

type catalogueResolver interface {
	Resolve(ctx context.Context, exec sqlx.ExtContext, kind repository.Kind, key repository.NaturalKey, attrs repository.Attributes) (string, error)
}

// CatalogueMemo caches resolved catalogue ids for the duration of one sync
// cycle. It is not safe for concurrent use; a nil memo disables caching.
type CatalogueMemo map[string]string

// NewCatalogueMemo returns an empty memo.
func NewCatalogueMemo() CatalogueMemo {
	return make(CatalogueMemo)
}

// CatalogueService resolves parsed names into catalogue ids, creating
// missing entries. Catalogue entries are never updated or deleted.
type CatalogueService struct {
	repo   catalogueResolver
	logger *zap.Logger
}

// NewCatalogueService constructs the service.
func NewCatalogueService(repo catalogueResolver, logger *zap.Logger) *CatalogueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogueService{repo: repo, logger: logger}
}

func (s *CatalogueService) resolve(ctx context.Context, memo CatalogueMemo, kind repository.Kind, key repository.NaturalKey, attrs repository.Attributes) (string, error) {
	memoKey := kind.Name + ":" + key.String()
	if id, ok := memo[memoKey]; ok {
		return id, nil
	}
	id, err := s.repo.Resolve(ctx, nil, kind, key, attrs)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve "+kind.Name)
	}
	if memo != nil {
		memo[memoKey] = id
	}
	return id, nil
}

// ResolvePeriod returns the id of the academic period.
func (s *CatalogueService) ResolvePeriod(ctx context.Context, memo CatalogueMemo, p academic.Period) (string, error) {
	if p.Semester != 1 && p.Semester != 2 {
		return "", appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
	}
	return s.resolve(ctx, memo, repository.KindPeriod, repository.NaturalKey{p.YearStart, p.YearEnd, p.Semester}, nil)
}

// ResolveInstitute returns the id of the institute.
func (s *CatalogueService) ResolveInstitute(ctx context.Context, memo CatalogueMemo, inst models.ParsedInstitute) (string, error) {
	name := normalizeName(inst.Name)
	if name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "institute name is required")
	}
	return s.resolve(ctx, memo, repository.KindInstitute, repository.NaturalKey{name}, repository.Attributes{normalizeName(inst.ShortName)})
}

// ResolveDegree returns the id of the degree.
func (s *CatalogueService) ResolveDegree(ctx context.Context, memo CatalogueMemo, degree models.ParsedDegree) (string, error) {
	name := normalizeName(degree.Name)
	if name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "degree name is required")
	}
	return s.resolve(ctx, memo, repository.KindDegree, repository.NaturalKey{name}, repository.Attributes{degree.Rank})
}

// ResolveGroup returns the id of the group within the period.
func (s *CatalogueService) ResolveGroup(ctx context.Context, memo CatalogueMemo, name, periodID, degreeID, instituteID string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "group name is required")
	}
	return s.resolve(ctx, memo, repository.KindGroup, repository.NaturalKey{name, periodID}, repository.Attributes{degreeID, instituteID})
}

// ResolveDiscipline returns the id of the discipline.
func (s *CatalogueService) ResolveDiscipline(ctx context.Context, memo CatalogueMemo, name string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "discipline name is required")
	}
	return s.resolve(ctx, memo, repository.KindDiscipline, repository.NaturalKey{name}, nil)
}

// ResolveLessonType returns the id of the lesson type, or nil for an empty name.
func (s *CatalogueService) ResolveLessonType(ctx context.Context, memo CatalogueMemo, name string) (*string, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, nil
	}
	id, err := s.resolve(ctx, memo, repository.KindLessonType, repository.NaturalKey{name}, nil)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ResolveCampus returns the id of the campus, or nil when absent.
func (s *CatalogueService) ResolveCampus(ctx context.Context, memo CatalogueMemo, campus *models.ParsedCampus) (*string, error) {
	if campus == nil || normalizeName(campus.ShortName) == "" {
		return nil, nil
	}
	id, err := s.resolve(ctx, memo, repository.KindCampus, repository.NaturalKey{normalizeName(campus.ShortName)}, repository.Attributes{normalizeName(campus.Name)})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ResolveRoom returns the id of the room, or nil when the lesson has none.
// The campus only seeds a new room; an existing room keeps its campus.
func (s *CatalogueService) ResolveRoom(ctx context.Context, memo CatalogueMemo, room *models.ParsedRoom) (*string, error) {
	if room == nil || normalizeName(room.Name) == "" {
		return nil, nil
	}
	campusID, err := s.ResolveCampus(ctx, memo, room.Campus)
	if err != nil {
		return nil, err
	}
	var campus interface{}
	if campusID != nil {
		campus = *campusID
	}
	id, err := s.resolve(ctx, memo, repository.KindRoom, repository.NaturalKey{normalizeName(room.Name)}, repository.Attributes{campus})
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ResolveTeachers returns ids for the distinct non-empty teacher names, in input order.
func (s *CatalogueService) ResolveTeachers(ctx context.Context, memo CatalogueMemo, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := normalizeName(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		id, err := s.resolve(ctx, memo, repository.KindTeacher, repository.NaturalKey{name}, nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ResolveCall returns the id of the lesson call.
func (s *CatalogueService) ResolveCall(ctx context.Context, memo CatalogueMemo, call models.ParsedCall) (string, error) {
	if call.Num < 1 || call.End <= call.Start {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid lesson call")
	}
	return s.resolve(ctx, memo, repository.KindCall, repository.NaturalKey{call.Num, call.Start, call.End}, nil)
}

func normalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
