package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
	"github.com/noah-isme/timetable-sync/internal/dto"
	"github.com/noah-isme/timetable-sync/internal/extract"
	"github.com/noah-isme/timetable-sync/internal/models"
	appErrors "github.com/noah-isme/timetable-sync/pkg/errors"
	"github.com/noah-isme/timetable-sync/pkg/jobs"
)

type storedLessonReader interface {
	ListStoredForGroup(ctx context.Context, groupName string, period academic.Period) ([]models.StoredLesson, error)
}

type changeDetector interface {
	HasMaterialChange(group string, old []models.StoredLesson, parsed []models.ParsedLesson) bool
}

type groupReconciler interface {
	ReconcileGroup(ctx context.Context, schedule models.GroupSchedule, opts ...ReconcileOption) (*ReconcileResult, error)
}

type changeNotifier interface {
	GroupChanged(ctx context.Context, change GroupChange)
}

type scheduleInvalidator interface {
	InvalidateSchedule(ctx context.Context) error
}

// Failure stages reported in cycle reports.
const (
	StageDiscovery  = "discovery"
	StageExtraction = "extraction"
)

const extractJobType = "extract"

// SyncServiceConfig tunes the synchronisation cycle.
type SyncServiceConfig struct {
	Workers int
}

// SyncServiceParams groups constructor dependencies.
type SyncServiceParams struct {
	Sources     []extract.Discoverer
	Extractor   extract.Extractor
	Stored      storedLessonReader
	Detector    changeDetector
	Reconciler  groupReconciler
	Notifier    changeNotifier
	Invalidator scheduleInvalidator
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      SyncServiceConfig
}

// SyncService runs synchronisation cycles: discover documents, extract them in
// parallel and reconcile every group from a single consumer.
type SyncService struct {
	sources     []extract.Discoverer
	extractor   extract.Extractor
	stored      storedLessonReader
	detector    changeDetector
	reconciler  groupReconciler
	notifier    changeNotifier
	invalidator scheduleInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         SyncServiceConfig
	now         func() time.Time

	mu      sync.Mutex
	running bool
	last    *dto.CycleReport
}

// NewSyncService constructs a SyncService.
func NewSyncService(params SyncServiceParams) *SyncService {
	cfg := params.Config
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		sources:     params.Sources,
		extractor:   params.Extractor,
		stored:      params.Stored,
		detector:    params.Detector,
		reconciler:  params.Reconciler,
		notifier:    params.Notifier,
		invalidator: params.Invalidator,
		metrics:     params.Metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Running reports whether a cycle is in progress.
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the report of the most recent finished cycle.
func (s *SyncService) LastReport() (*dto.CycleReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	report := *s.last
	return &report, true
}

// RunCycle executes one synchronisation cycle. Only a failed discovery aborts
// the cycle; document and group failures are recorded in the report. Once
// documents are submitted the cycle runs to completion even if ctx is cancelled.
func (s *SyncService) RunCycle(ctx context.Context) (*dto.CycleReport, error) {
	if !s.begin() {
		return nil, appErrors.Clone(appErrors.ErrCycleRunning, "")
	}
	defer s.end()

	report := &dto.CycleReport{
		CycleID:         uuid.NewString(),
		StartedAt:       s.now(),
		FailedDocuments: []dto.FailedDocument{},
		GroupsFailed:    []dto.FailedGroup{},
		GroupsChanged:   []string{},
	}
	log := s.logger.With(zap.String("cycle_id", report.CycleID))
	log.Info("sync cycle started")

	docs, err := s.discover(ctx, log, report)
	if err != nil {
		log.Error("sync cycle aborted", zap.Error(err))
		return nil, err
	}
	extract.SortByDegree(docs)
	report.Documents = len(docs)

	batch := make([]jobs.Job, 0, len(docs))
	for _, doc := range docs {
		batch = append(batch, jobs.Job{ID: doc.ID, Type: extractJobType, Payload: doc, Enqueued: s.now()})
	}

	runCtx := context.WithoutCancel(ctx)
	memo := NewCatalogueMemo()
	pool := jobs.NewPool(extractJobType, s.extractJob, jobs.PoolConfig{Workers: s.cfg.Workers, Logger: log})

	for res := range pool.Run(runCtx, batch) {
		doc, _ := res.Job.Payload.(extract.Document)
		if res.Err != nil {
			log.Warn("document extraction failed",
				zap.String("document", doc.String()),
				zap.Int("worker", res.Worker),
				zap.Error(res.Err),
			)
			report.FailedDocuments = append(report.FailedDocuments, dto.FailedDocument{
				Source: doc.String(),
				Stage:  StageExtraction,
				Error:  res.Err.Error(),
			})
			s.metrics.RecordSyncDocument(SyncStatusFailed)
			continue
		}
		s.metrics.RecordSyncDocument(SyncStatusSucceeded)

		groups, _ := res.Value.([]models.GroupSchedule)
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].Degree.Rank > groups[j].Degree.Rank
		})
		for _, group := range groups {
			s.processGroup(runCtx, log, report, memo, doc, group)
		}
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateSchedule(runCtx); err != nil {
			log.Warn("schedule cache invalidation failed", zap.Error(err))
		}
	}

	report.FinishedAt = s.now()
	s.metrics.RecordSyncLessons(report.LessonsStored, report.LessonsSkipped)
	s.metrics.ObserveSyncCycle(report.Duration(), report.FinishedAt)

	log.Info("sync cycle finished",
		zap.Duration("duration", report.Duration()),
		zap.Int("documents", report.Documents),
		zap.Int("failed_documents", len(report.FailedDocuments)),
		zap.Int("groups_reconciled", report.GroupsReconciled),
		zap.Int("groups_failed", len(report.GroupsFailed)),
		zap.Int("groups_changed", len(report.GroupsChanged)),
		zap.Int("lessons_stored", report.LessonsStored),
		zap.Int("lessons_skipped", report.LessonsSkipped),
	)

	s.mu.Lock()
	last := *report
	s.last = &last
	s.mu.Unlock()
	return report, nil
}

func (s *SyncService) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *SyncService) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *SyncService) discover(ctx context.Context, log *zap.Logger, report *dto.CycleReport) ([]extract.Document, error) {
	docs := make([]extract.Document, 0)
	var sourceErrs []error
	for _, source := range s.sources {
		found, failures, err := source.Discover(ctx)
		if err != nil {
			log.Warn("document source failed", zap.Error(err))
			sourceErrs = append(sourceErrs, err)
			continue
		}
		for _, failure := range failures {
			report.FailedDocuments = append(report.FailedDocuments, dto.FailedDocument{
				Source: failure.Source,
				Stage:  StageDiscovery,
				Error:  failure.Err.Error(),
			})
			s.metrics.RecordSyncDocument(SyncStatusFailed)
		}
		docs = append(docs, found...)
	}

	if len(docs) == 0 {
		cause := errors.Join(sourceErrs...)
		if cause == nil {
			cause = fmt.Errorf("no documents found in %d sources", len(s.sources))
		}
		return nil, appErrors.WrapAs(appErrors.ErrDiscoveryFailed, cause, "")
	}
	return docs, nil
}

func (s *SyncService) extractJob(ctx context.Context, job jobs.Job) (interface{}, error) {
	doc, ok := job.Payload.(extract.Document)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", job.Payload)
	}
	groups, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrExtractionFailed, err, "")
	}
	return groups, nil
}

func (s *SyncService) processGroup(ctx context.Context, log *zap.Logger, report *dto.CycleReport, memo CatalogueMemo, doc extract.Document, group models.GroupSchedule) {
	glog := log.With(zap.String("group", group.Group), zap.String("document", doc.String()))

	changed := false
	if s.stored != nil && s.detector != nil {
		old, err := s.stored.ListStoredForGroup(ctx, normalizeName(group.Group), group.Period)
		if err != nil {
			glog.Warn("load stored lessons failed, skipping change detection", zap.Error(err))
		} else {
			changed = s.detector.HasMaterialChange(group.Group, old, group.Lessons)
		}
	}

	result, err := s.reconciler.ReconcileGroup(ctx, group, WithCatalogueMemo(memo))
	if err != nil {
		glog.Error("group reconciliation failed", zap.Error(err))
		report.GroupsFailed = append(report.GroupsFailed, dto.FailedGroup{
			Group:  group.Group,
			Source: doc.String(),
			Error:  err.Error(),
		})
		s.metrics.RecordSyncGroup(SyncStatusFailed)
		return
	}

	report.GroupsReconciled++
	report.LessonsStored += result.Stored
	report.LessonsSkipped += result.Skipped
	s.metrics.RecordSyncGroup(SyncStatusSucceeded)

	if !changed {
		return
	}
	report.GroupsChanged = append(report.GroupsChanged, group.Group)
	s.metrics.RecordSyncGroup(SyncStatusChanged)
	if s.notifier != nil {
		s.notifier.GroupChanged(ctx, GroupChange{
			Group:      group.Group,
			Period:     group.Period,
			CycleID:    report.CycleID,
			DetectedAt: s.now(),
		})
	}
}
