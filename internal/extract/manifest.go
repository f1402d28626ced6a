package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

// ManifestEntry maps a local file to its institute and degree.
type ManifestEntry struct {
	File      string `json:"file" yaml:"file" validate:"required"`
	Institute string `json:"institute" yaml:"institute" validate:"required"`
	Type      int    `json:"type" yaml:"type" validate:"omitempty,min=1"`
	Degree    int    `json:"degree" yaml:"degree" validate:"required,oneof=1 2 3 4"`
}

// Manifest discovers documents listed in a local files.json or files.yaml.
// Paths are relative to the manifest's directory.
type Manifest struct {
	path      string
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewManifest constructs a manifest source.
func NewManifest(path string, validate *validator.Validate, logger *zap.Logger) *Manifest {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manifest{path: path, validator: validate, logger: logger, now: time.Now}
}

// Discover implements Discoverer.
func (m *Manifest) Discover(ctx context.Context) ([]Document, []Failure, error) {
	entries, err := m.load()
	if err != nil {
		return nil, nil, err
	}

	baseDir := filepath.Dir(m.path)
	period := academic.PeriodOf(m.now())
	docs := make([]Document, 0, len(entries))
	failures := make([]Failure, 0)

	for i, entry := range entries {
		if err := m.validator.Struct(entry); err != nil {
			m.logger.Warn("invalid manifest entry", zap.Int("index", i), zap.String("file", entry.File), zap.Error(err))
			failures = append(failures, Failure{Source: entry.File, Err: fmt.Errorf("invalid manifest entry %d: %w", i, err)})
			continue
		}
		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Error("manifest file not found, skipping", zap.String("file", entry.File), zap.Error(err))
			failures = append(failures, Failure{Source: entry.File, Err: fmt.Errorf("manifest file missing: %w", err)})
			continue
		}
		degree, _ := DegreeFromCode(entry.Degree)
		short := strings.TrimSpace(entry.Institute)
		docs = append(docs, Document{
			ID:        entry.File,
			Path:      path,
			Source:    SourceManifest,
			Type:      entry.Type,
			Institute: models.ParsedInstitute{Name: short, ShortName: short},
			Degree:    degree,
			Period:    period,
		})
	}
	return docs, failures, nil
}

func (m *Manifest) load() ([]ManifestEntry, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("manifest not found", zap.String("path", m.path))
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []ManifestEntry
	switch strings.ToLower(filepath.Ext(m.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &entries)
	default:
		err = json.Unmarshal(raw, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", m.path, err)
	}
	return entries, nil
}
