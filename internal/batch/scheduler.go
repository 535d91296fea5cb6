package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tanadol/reelforge/internal/models"
)

// VideoService produces one finished video per call. The scheduler does not
// know how; generation lives behind this boundary so batches can be tested
// without rendering anything.
type VideoService interface {
	GenerateMotivation(ctx context.Context, params models.ItemParams) (*models.ItemResult, error)
	GenerateLofi(ctx context.Context, params models.ItemParams) (*models.ItemResult, error)
}

// Notifier receives a snapshot after every observable job transition.
// Implementations must tolerate being called from worker goroutines; a
// panicking notifier is contained and never takes a worker down.
type Notifier interface {
	BatchUpdated(job *models.BatchJob)
}

// Scheduler runs batch jobs on a fixed pool of workers. One worker owns one
// job at a time and processes its items sequentially; item failures are
// contained so a bad item never poisons its siblings or the pool.
type Scheduler struct {
	service  VideoService
	notifier Notifier
	workers  int
	log      zerolog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	queue     jobQueue
	jobs      map[uuid.UUID]*models.BatchJob
	cancelled map[uuid.UUID]bool
	seq       uint64
	stopped   bool

	wg sync.WaitGroup
}

const DefaultWorkers = 2

func NewScheduler(service VideoService, notifier Notifier, workers int, log zerolog.Logger) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	s := &Scheduler{
		service:   service,
		notifier:  notifier,
		workers:   workers,
		log:       log,
		jobs:      make(map[uuid.UUID]*models.BatchJob),
		cancelled: make(map[uuid.UUID]bool),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the worker pool.
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.runWorker(i)
	}
	s.log.Info().Int("workers", s.workers).Msg("batch scheduler started")
}

// Stop drains the pool. Workers finish their current item, running jobs are
// not abandoned mid-item. Blocks until all workers exit or ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info().Msg("batch scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates and enqueues a batch. The job is accepted atomically:
// either every item passes validation and the whole batch is queued, or
// nothing is.
func (s *Scheduler) Submit(name string, specs []models.BatchItemSpec) (*models.BatchJob, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("batch must contain at least one item")
	}

	now := time.Now().UTC()
	items := make([]*models.BatchItem, 0, len(specs))
	for i, spec := range specs {
		item, err := buildItem(spec, now)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, item)
	}

	job := &models.BatchJob{
		ID:         uuid.New(),
		Name:       name,
		Items:      items,
		Status:     models.BatchStatusPending,
		TotalItems: len(items),
		CreatedAt:  now,
	}
	if job.Name == "" {
		job.Name = "batch-" + now.Format("20060102-150405")
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("scheduler is shutting down")
	}
	s.jobs[job.ID] = job
	s.seq++
	s.queue.push(job, job.MaxPendingPriority(), s.seq)
	snapshot := job.Clone()
	s.mu.Unlock()

	s.cond.Signal()
	s.log.Info().Str("batch_id", job.ID.String()).Str("name", job.Name).
		Int("items", len(items)).Msg("batch submitted")
	return snapshot, nil
}

func buildItem(spec models.BatchItemSpec, now time.Time) (*models.BatchItem, error) {
	switch spec.Type {
	case models.VideoTypeMotivation, models.VideoTypeLofi:
	default:
		return nil, fmt.Errorf("unknown video type %q", spec.Type)
	}
	kind := models.CompositionKindFor(spec.Type)
	params := spec.Parameters
	if params.Duration == 0 {
		params.Duration = kind.DefaultDuration()
	}
	if min, max := kind.DurationBounds(); params.Duration < min || params.Duration > max {
		return nil, fmt.Errorf("duration %ds outside [%d, %d]s for %s videos",
			params.Duration, min, max, spec.Type)
	}
	if spec.Priority < 0 {
		return nil, fmt.Errorf("priority must be non-negative")
	}
	return &models.BatchItem{
		ID:         uuid.New(),
		Type:       spec.Type,
		Parameters: params,
		Priority:   spec.Priority,
		Status:     models.ItemStatusPending,
		CreatedAt:  now,
	}, nil
}

// Get returns a deep-copied snapshot of a job.
func (s *Scheduler) Get(id uuid.UUID) (*models.BatchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// List returns snapshots of all known jobs, newest first.
func (s *Scheduler) List() []*models.BatchJob {
	s.mu.Lock()
	out := make([]*models.BatchJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel requests cooperative cancellation of a running job. The in-flight
// item finishes; unstarted items stay pending. Only running jobs can be
// cancelled: pending and terminal jobs return false.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != models.BatchStatusRunning {
		return false
	}
	s.cancelled[id] = true
	s.log.Info().Str("batch_id", id.String()).Msg("batch cancellation requested")
	return true
}

// Stats summarizes the scheduler's view of the world.
type Stats struct {
	Workers   int `json:"workers"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Workers: s.workers, Queued: s.queue.Len()}
	for _, job := range s.jobs {
		switch job.Status {
		case models.BatchStatusRunning:
			st.Running++
		case models.BatchStatusCompleted:
			st.Completed++
		case models.BatchStatusFailed:
			st.Failed++
		case models.BatchStatusCancelled:
			st.Cancelled++
		}
	}
	return st
}

// runWorker is the worker loop: claim a job, run it to a terminal status,
// repeat until shutdown.
func (s *Scheduler) runWorker(id int) {
	defer s.wg.Done()
	log := s.log.With().Int("worker", id).Logger()

	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}
		job := s.queue.pop()
		now := time.Now().UTC()
		job.Status = models.BatchStatusRunning
		job.StartedAt = &now
		s.mu.Unlock()

		s.notify(job.ID)
		log.Info().Str("batch_id", job.ID.String()).Int("items", job.TotalItems).Msg("batch started")
		s.runJob(log, job)
	}
}

// runJob processes a job's items strictly in submission order. Item priority
// never reorders work inside a job; it only raises the job in the dispatch
// queue.
func (s *Scheduler) runJob(log zerolog.Logger, job *models.BatchJob) {
	for _, item := range job.Items {
		s.mu.Lock()
		if s.cancelled[job.ID] {
			s.mu.Unlock()
			break
		}
		now := time.Now().UTC()
		item.Status = models.ItemStatusRunning
		item.StartedAt = &now
		s.mu.Unlock()
		s.notify(job.ID)

		result, err := s.runItem(item)

		s.mu.Lock()
		done := time.Now().UTC()
		item.CompletedAt = &done
		if err != nil {
			msg := err.Error()
			item.Status = models.ItemStatusFailed
			item.ErrorMessage = &msg
			job.FailedItems++
		} else {
			item.Status = models.ItemStatusCompleted
			item.Result = result
			job.CompletedItems++
			job.Results = append(job.Results, *result)
		}
		processed := job.CompletedItems + job.FailedItems
		job.Progress = 100 * processed / job.TotalItems
		s.mu.Unlock()
		s.notify(job.ID)

		if err != nil {
			log.Error().Err(err).Str("batch_id", job.ID.String()).
				Str("item_id", item.ID.String()).Msg("batch item failed")
		}
	}

	s.mu.Lock()
	now := time.Now().UTC()
	job.CompletedAt = &now
	// A job that ran all its items is completed even when every item
	// failed; the failed status is reserved for the batch machinery
	// itself breaking, not for item outcomes.
	if s.cancelled[job.ID] {
		job.Status = models.BatchStatusCancelled
		delete(s.cancelled, job.ID)
	} else {
		job.Status = models.BatchStatusCompleted
	}
	status := job.Status
	s.mu.Unlock()
	s.notify(job.ID)

	log.Info().Str("batch_id", job.ID.String()).Str("status", string(status)).
		Int("completed", job.CompletedItems).Int("failed", job.FailedItems).
		Msg("batch finished")
}

// runItem invokes generation for a single item with panic containment. A
// panicking generator marks its item failed and nothing else.
func (s *Scheduler) runItem(item *models.BatchItem) (result *models.ItemResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()

	ctx := context.Background()
	switch item.Type {
	case models.VideoTypeLofi:
		return s.service.GenerateLofi(ctx, item.Parameters)
	default:
		return s.service.GenerateMotivation(ctx, item.Parameters)
	}
}

// notify delivers a snapshot to the notifier, containing any panic.
func (s *Scheduler) notify(id uuid.UUID) {
	if s.notifier == nil {
		return
	}
	snapshot, ok := s.Get(id)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("batch notifier panicked")
		}
	}()
	s.notifier.BatchUpdated(snapshot)
}
