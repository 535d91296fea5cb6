package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanadol/reelforge/internal/models"
)

// fakeService is a VideoService with scriptable per-item behavior, keyed by
// the item's theme (motivation) or category (lofi).
type fakeService struct {
	mu      sync.Mutex
	calls   []string
	started chan string   // receives the item key when generation starts
	gate    chan struct{} // generation blocks here until released
	fail    map[string]bool
	panics  map[string]bool
}

func (f *fakeService) generate(params models.ItemParams, key string) (*models.ItemResult, error) {
	if f.started != nil {
		f.started <- key
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if f.panics[key] {
		panic("generator blew up on " + key)
	}
	if f.fail[key] {
		return nil, fmt.Errorf("no assets found for %s", key)
	}
	return &models.ItemResult{
		ProjectID: uuid.New(),
		VideoURL:  "https://cdn.example.com/" + key + ".mp4",
		Duration:  float64(params.Duration),
	}, nil
}

func (f *fakeService) GenerateMotivation(ctx context.Context, params models.ItemParams) (*models.ItemResult, error) {
	return f.generate(params, params.Theme)
}

func (f *fakeService) GenerateLofi(ctx context.Context, params models.ItemParams) (*models.ItemResult, error) {
	return f.generate(params, params.Category)
}

func (f *fakeService) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func startScheduler(t *testing.T, svc VideoService, workers int) *Scheduler {
	t.Helper()
	s := NewScheduler(svc, nil, workers, zerolog.Nop())
	s.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func motivationItem(theme string, priority int) models.BatchItemSpec {
	return models.BatchItemSpec{
		Type:       models.VideoTypeMotivation,
		Parameters: models.ItemParams{Theme: theme},
		Priority:   priority,
	}
}

func waitTerminal(t *testing.T, s *Scheduler, id uuid.UUID) *models.BatchJob {
	t.Helper()
	var job *models.BatchJob
	require.Eventually(t, func() bool {
		j, ok := s.Get(id)
		if !ok {
			return false
		}
		switch j.Status {
		case models.BatchStatusCompleted, models.BatchStatusFailed, models.BatchStatusCancelled:
			job = j
			return true
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestBatchRunsSequentiallyToCompletion(t *testing.T) {
	svc := &fakeService{}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("morning run", []models.BatchItemSpec{
		motivationItem("inner_strength", 0),
		motivationItem("acceptance", 0),
		motivationItem("resilience", 0),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusPending, job.Status)
	assert.Equal(t, 3, job.TotalItems)

	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, models.BatchStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 3, done.CompletedItems)
	assert.Equal(t, 0, done.FailedItems)
	assert.Len(t, done.Results, 3)
	assert.Equal(t, []string{"inner_strength", "acceptance", "resilience"}, svc.callOrder())
	for _, item := range done.Items {
		assert.Equal(t, models.ItemStatusCompleted, item.Status)
		assert.NotNil(t, item.Result)
	}
	require.NotNil(t, done.CompletedAt)
}

func TestItemFailureDoesNotPoisonSiblings(t *testing.T) {
	svc := &fakeService{fail: map[string]bool{"acceptance": true}}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("", []models.BatchItemSpec{
		motivationItem("inner_strength", 0),
		motivationItem("acceptance", 0),
		motivationItem("purpose", 0),
		motivationItem("resilience", 0),
		motivationItem("inner_strength", 0),
	})
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, models.BatchStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 4, done.CompletedItems)
	assert.Equal(t, 1, done.FailedItems)
	assert.Len(t, done.Results, 4)

	var failed *models.BatchItem
	for _, item := range done.Items {
		if item.Status == models.ItemStatusFailed {
			failed = item
		}
	}
	require.NotNil(t, failed)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "no assets found")
	assert.Nil(t, failed.Result)
}

func TestPanicInGeneratorIsContained(t *testing.T) {
	svc := &fakeService{panics: map[string]bool{"acceptance": true}}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("", []models.BatchItemSpec{
		motivationItem("acceptance", 0),
		motivationItem("purpose", 0),
	})
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, models.BatchStatusCompleted, done.Status)
	assert.Equal(t, 1, done.CompletedItems)
	assert.Equal(t, 1, done.FailedItems)

	var msgs []string
	for _, item := range done.Items {
		if item.ErrorMessage != nil {
			msgs = append(msgs, *item.ErrorMessage)
		}
	}
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "panicked")
}

func TestAllItemsFailedStillCompletesJob(t *testing.T) {
	svc := &fakeService{fail: map[string]bool{"acceptance": true, "purpose": true}}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("", []models.BatchItemSpec{
		motivationItem("acceptance", 0),
		motivationItem("purpose", 0),
	})
	require.NoError(t, err)

	// every item failing is still a completed run of the batch; the
	// failed status is not an item-outcome aggregate
	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, models.BatchStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 0, done.CompletedItems)
	assert.Equal(t, 2, done.FailedItems)
	assert.Empty(t, done.Results)
}

func TestProgressIsFloorOfProcessedFraction(t *testing.T) {
	svc := &fakeService{gate: make(chan struct{})}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("", []models.BatchItemSpec{
		motivationItem("inner_strength", 0),
		motivationItem("acceptance", 0),
		motivationItem("purpose", 0),
	})
	require.NoError(t, err)

	svc.gate <- struct{}{} // let the first item finish
	require.Eventually(t, func() bool {
		j, _ := s.Get(job.ID)
		return j.CompletedItems == 1
	}, 5*time.Second, 5*time.Millisecond)

	j, _ := s.Get(job.ID)
	assert.Equal(t, 33, j.Progress) // floor(100*1/3)
	assert.Equal(t, models.BatchStatusRunning, j.Status)

	svc.gate <- struct{}{}
	svc.gate <- struct{}{}
	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, 100, done.Progress)
}

func TestItemsRunInSubmissionOrder(t *testing.T) {
	svc := &fakeService{}
	s := startScheduler(t, svc, 1)

	// mixed priorities must not reorder items inside the job
	job, err := s.Submit("", []models.BatchItemSpec{
		motivationItem("first", 1),
		motivationItem("second", 9),
		motivationItem("third", 5),
		motivationItem("fourth", 9),
	})
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, svc.callOrder())

	// results arrive in the same order
	require.Len(t, done.Results, 4)
	for i, want := range []string{"first", "second", "third", "fourth"} {
		assert.Equal(t, "https://cdn.example.com/"+want+".mp4", done.Results[i].VideoURL)
	}
}

func TestJobsDispatchByPriorityThenFIFO(t *testing.T) {
	svc := &fakeService{started: make(chan string, 16), gate: make(chan struct{})}
	s := startScheduler(t, svc, 1)

	// occupy the single worker so later submissions queue up
	blocker, err := s.Submit("blocker", []models.BatchItemSpec{motivationItem("blocker", 0)})
	require.NoError(t, err)
	require.Equal(t, "blocker", <-svc.started)

	lowA, err := s.Submit("", []models.BatchItemSpec{motivationItem("low_a", 1)})
	require.NoError(t, err)
	high, err := s.Submit("", []models.BatchItemSpec{motivationItem("high", 8)})
	require.NoError(t, err)
	lowB, err := s.Submit("", []models.BatchItemSpec{motivationItem("low_b", 1)})
	require.NoError(t, err)

	go func() {
		for range 4 {
			svc.gate <- struct{}{}
		}
	}()

	waitTerminal(t, s, blocker.ID)
	waitTerminal(t, s, lowB.ID)
	waitTerminal(t, s, lowA.ID)
	waitTerminal(t, s, high.ID)

	assert.Equal(t, []string{"blocker", "high", "low_a", "low_b"}, svc.callOrder())
}

func TestCancelRunningJob(t *testing.T) {
	svc := &fakeService{started: make(chan string, 16), gate: make(chan struct{})}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("", []models.BatchItemSpec{
		motivationItem("first", 0),
		motivationItem("second", 0),
		motivationItem("third", 0),
	})
	require.NoError(t, err)
	require.Equal(t, "first", <-svc.started)

	// cancel while the first item is in flight, then let it finish
	assert.True(t, s.Cancel(job.ID))
	svc.gate <- struct{}{}

	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, models.BatchStatusCancelled, done.Status)
	assert.Equal(t, 1, done.CompletedItems)
	assert.Equal(t, 33, done.Progress)

	// the in-flight item completed; the rest were never started
	var statuses []models.ItemStatus
	for _, item := range done.Items {
		statuses = append(statuses, item.Status)
	}
	assert.ElementsMatch(t,
		[]models.ItemStatus{models.ItemStatusCompleted, models.ItemStatusPending, models.ItemStatusPending},
		statuses)
	assert.Equal(t, []string{"first"}, svc.callOrder())
}

func TestCancelRequiresRunningJob(t *testing.T) {
	svc := &fakeService{}
	s := startScheduler(t, svc, 1)

	assert.False(t, s.Cancel(uuid.New()))

	job, err := s.Submit("", []models.BatchItemSpec{motivationItem("only", 0)})
	require.NoError(t, err)
	waitTerminal(t, s, job.ID)
	assert.False(t, s.Cancel(job.ID)) // terminal jobs are not cancellable
}

func TestSubmitValidation(t *testing.T) {
	svc := &fakeService{}
	s := startScheduler(t, svc, 1)

	_, err := s.Submit("", nil)
	assert.ErrorContains(t, err, "at least one item")

	_, err = s.Submit("", []models.BatchItemSpec{{Type: "podcast"}})
	assert.ErrorContains(t, err, "unknown video type")

	_, err = s.Submit("", []models.BatchItemSpec{{
		Type:       models.VideoTypeMotivation,
		Parameters: models.ItemParams{Duration: 10},
	}})
	assert.ErrorContains(t, err, "outside")

	// one bad item rejects the whole batch
	_, err = s.Submit("", []models.BatchItemSpec{
		motivationItem("ok", 0),
		{Type: models.VideoTypeLofi, Parameters: models.ItemParams{Duration: 30}},
	})
	assert.ErrorContains(t, err, "item 1")
	assert.Empty(t, s.List())
}

func TestSubmitAppliesDefaultDurations(t *testing.T) {
	svc := &fakeService{gate: make(chan struct{})}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("", []models.BatchItemSpec{
		{Type: models.VideoTypeMotivation},
		{Type: models.VideoTypeLofi},
	})
	require.NoError(t, err)
	assert.Equal(t, 60, job.Items[0].Parameters.Duration)
	assert.Equal(t, 120, job.Items[1].Parameters.Duration)
	close(svc.gate)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	svc := &fakeService{gate: make(chan struct{})}
	s := startScheduler(t, svc, 1)

	job, err := s.Submit("iso", []models.BatchItemSpec{motivationItem("only", 0)})
	require.NoError(t, err)

	job.Name = "mutated"
	job.Items[0].Status = models.ItemStatusFailed

	fresh, ok := s.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, "iso", fresh.Name)
	assert.NotEqual(t, models.ItemStatusFailed, fresh.Items[0].Status)
	close(svc.gate)
}

func TestWorkersProcessJobsConcurrently(t *testing.T) {
	svc := &fakeService{started: make(chan string, 16), gate: make(chan struct{})}
	s := startScheduler(t, svc, 2)

	a, err := s.Submit("a", []models.BatchItemSpec{motivationItem("a", 0)})
	require.NoError(t, err)
	b, err := s.Submit("b", []models.BatchItemSpec{motivationItem("b", 0)})
	require.NoError(t, err)

	// both items start without either finishing: two workers, two jobs
	keys := map[string]bool{<-svc.started: true, <-svc.started: true}
	assert.True(t, keys["a"] && keys["b"])

	close(svc.gate)
	waitTerminal(t, s, a.ID)
	waitTerminal(t, s, b.ID)
}

func TestNotifierPanicIsContained(t *testing.T) {
	svc := &fakeService{}
	s := NewScheduler(svc, panickyNotifier{}, 1, zerolog.Nop())
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	job, err := s.Submit("", []models.BatchItemSpec{motivationItem("only", 0)})
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	assert.Equal(t, models.BatchStatusCompleted, done.Status)
}

type panickyNotifier struct{}

func (panickyNotifier) BatchUpdated(*models.BatchJob) { panic("listener bug") }
