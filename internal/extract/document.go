// Package extract discovers timetable documents and turns them into
// per-group lesson batches. Extractors never touch the store.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

// Document sources.
const (
	SourceManifest = "manifest"
	SourceDownload = "download"
)

// ErrUnsupportedFormat is returned for files no extractor understands.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is one timetable file with the metadata needed to extract it.
type Document struct {
	ID        string
	Path      string
	Source    string
	Type      int
	Institute models.ParsedInstitute
	Degree    models.ParsedDegree
	Period    academic.Period
}

func (d Document) String() string {
	return fmt.Sprintf("%s:%s", d.Source, d.ID)
}

// Failure is a document dropped during discovery.
type Failure struct {
	Source string
	Err    error
}

// Discoverer lists documents available for a cycle. Per-document problems are
// returned as failures; err is set only when the source failed outright.
type Discoverer interface {
	Discover(ctx context.Context) ([]Document, []Failure, error)
}

// Extractor parses one document into group schedules.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]models.GroupSchedule, error)
}

// ByExtension dispatches to an extractor by lower-case file extension.
type ByExtension map[string]Extractor

// Extract implements Extractor.
func (m ByExtension) Extract(ctx context.Context, doc Document) ([]models.GroupSchedule, error) {
	ext := strings.ToLower(filepath.Ext(doc.Path))
	extractor, ok := m[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return extractor.Extract(ctx, doc)
}

// SortByDegree orders documents by degree rank descending, keeping the
// discovery order among equal ranks.
func SortByDegree(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Degree.Rank > docs[j].Degree.Rank
	})
}

// Degree codes used by document indexes and manifests.
const (
	DegreeCodeBachelor = 1
	DegreeCodeMaster   = 2
	DegreeCodePhD      = 3
	DegreeCodeCollege  = 4
)

var degreesByCode = map[int]models.ParsedDegree{
	DegreeCodeBachelor: {Name: "bachelor", Rank: models.DegreeRankBachelor},
	DegreeCodeMaster:   {Name: "master", Rank: models.DegreeRankMaster},
	DegreeCodePhD:      {Name: "phd", Rank: models.DegreeRankPhD},
	DegreeCodeCollege:  {Name: "college", Rank: models.DegreeRankCollege},
}

// DegreeFromCode maps a degree code to its catalogue form.
func DegreeFromCode(code int) (models.ParsedDegree, bool) {
	degree, ok := degreesByCode[code]
	return degree, ok
}
