package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/models"
)

// IndexEntry is one document advertised by the remote index.
type IndexEntry struct {
	URL       string `json:"url" validate:"required,url"`
	Institute string `json:"institute" validate:"required"`
	Type      int    `json:"type"`
	Degree    int    `json:"degree" validate:"required,oneof=1 2 3 4"`
}

// documentStore persists downloaded documents.
type documentStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// DownloaderConfig tunes the remote document source.
type DownloaderConfig struct {
	IndexURL    string
	Concurrency int
	Timeout     time.Duration
}

// Downloader fetches the document index and every document it lists.
type Downloader struct {
	client    *http.Client
	store     documentStore
	cfg       DownloaderConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDownloader constructs the remote document source. A nil client gets one
// with the configured timeout.
func NewDownloader(client *http.Client, store documentStore, cfg DownloaderConfig, validate *validator.Validate, logger *zap.Logger) *Downloader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{client: client, store: store, cfg: cfg, validator: validate, logger: logger, now: time.Now}
}

// Discover implements Discoverer. A failing index fails the source; a failing
// document is reported and dropped.
func (d *Downloader) Discover(ctx context.Context) ([]Document, []Failure, error) {
	if d.cfg.IndexURL == "" {
		return nil, nil, nil
	}
	entries, err := d.fetchIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	period := academic.PeriodOf(d.now())
	var (
		mu       sync.Mutex
		docs     = make([]Document, 0, len(entries))
		failures = make([]Failure, 0)
		slots    = make([]*Document, len(entries))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			doc, err := d.download(gctx, entry, period)
			if err != nil {
				d.logger.Warn("document download failed", zap.String("url", entry.URL), zap.Error(err))
				mu.Lock()
				failures = append(failures, Failure{Source: entry.URL, Err: err})
				mu.Unlock()
				return nil
			}
			slots[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	for _, doc := range slots {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, failures, nil
}

func (d *Downloader) fetchIndex(ctx context.Context) ([]IndexEntry, error) {
	body, err := d.get(ctx, d.cfg.IndexURL)
	if err != nil {
		return nil, fmt.Errorf("fetch document index: %w", err)
	}
	defer body.Close()

	var entries []IndexEntry
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode document index: %w", err)
	}

	valid := entries[:0]
	for _, entry := range entries {
		if err := d.validator.Struct(entry); err != nil {
			d.logger.Warn("invalid index entry", zap.String("url", entry.URL), zap.Error(err))
			continue
		}
		valid = append(valid, entry)
	}
	return valid, nil
}

func (d *Downloader) download(ctx context.Context, entry IndexEntry, period academic.Period) (*Document, error) {
	body, err := d.get(ctx, entry.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	name := documentFilename(entry)
	stored, err := d.store.SaveStream(name, body)
	if err != nil {
		return nil, err
	}

	degree, _ := DegreeFromCode(entry.Degree)
	short := strings.TrimSpace(entry.Institute)
	return &Document{
		ID:        name,
		Path:      stored,
		Source:    SourceDownload,
		Type:      entry.Type,
		Institute: models.ParsedInstitute{Name: short, ShortName: short},
		Degree:    degree,
		Period:    period,
	}, nil
}

func (d *Downloader) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func documentFilename(entry IndexEntry) string {
	base := "document.xlsx"
	if u, err := url.Parse(entry.URL); err == nil {
		if b := path.Base(u.Path); b != "." && b != "/" {
			base = b
		}
	}
	institute := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, strings.TrimSpace(entry.Institute))
	return fmt.Sprintf("%s_%d_%d_%s", institute, entry.Degree, entry.Type, base)
}
