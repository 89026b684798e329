package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/jobs"
)

// waitForStatus polls the store until the job reaches a terminal status.
func waitForStatus(t *testing.T, store *Store, jobID string) *jobs.AnalyzeStatementJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && (job.Status == jobs.JobStatusCompleted || job.Status == jobs.JobStatusFailed) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(4, 1, store)

	handler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		if string(job.PDF) != "%PDF-1.4" {
			t.Errorf("handler got PDF %q", job.PDF)
		}
		job.HistoryID = "1717243200000"
		job.Result = &domain.AnalysisResult{StatementType: job.StatementType}
		return nil
	}
	if err := queue.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer queue.Stop(context.Background())

	job := &jobs.AnalyzeStatementJob{StatementType: domain.StatementTypeBank, PDF: []byte("%PDF-1.4")}
	if err := queue.PublishAnalyzeStatement(ctx, job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if job.JobID == "" || job.CreatedAt.IsZero() {
		t.Fatalf("publish should assign id and creation time, got %+v", job)
	}

	done := waitForStatus(t, store, job.JobID)
	if done.Status != jobs.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}
	if done.HistoryID != "1717243200000" || done.Result == nil {
		t.Errorf("handler results not stored: %+v", done)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not set")
	}
}

func TestQueue_FailedJobIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(4, 1, store)

	var calls int32
	handler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("model unavailable")
	}
	_ = queue.Start(ctx, handler)
	defer queue.Stop(context.Background())

	job := &jobs.AnalyzeStatementJob{StatementType: domain.StatementTypeCreditCard}
	_ = queue.PublishAnalyzeStatement(ctx, job)

	done := waitForStatus(t, store, job.JobID)
	if done.Status != jobs.JobStatusFailed || done.Error != "model unavailable" {
		t.Errorf("job = %+v", done)
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestQueue_SingleWorkerDoesNotOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	queue := NewQueue(8, 0, store)

	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	handler := func(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
		mu.Lock()
		running++
		if running > maxSeen {
			maxSeen = running
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}
	_ = queue.Start(ctx, handler)

	var ids []string
	for i := 0; i < 4; i++ {
		job := &jobs.AnalyzeStatementJob{StatementType: domain.StatementTypeBank}
		if err := queue.PublishAnalyzeStatement(ctx, job); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		ids = append(ids, job.JobID)
	}
	for _, id := range ids {
		waitForStatus(t, store, id)
	}
	_ = queue.Stop(context.Background())

	if maxSeen != 1 {
		t.Errorf("max concurrent jobs = %d, want 1", maxSeen)
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	queue := NewQueue(1, 1, NewStore())
	if err := queue.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	err := queue.PublishAnalyzeStatement(context.Background(), &jobs.AnalyzeStatementJob{})
	if !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("Publish after stop error = %v, want ErrQueueClosed", err)
	}
	if err := queue.Start(context.Background(), nil); !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("Start after stop error = %v, want ErrQueueClosed", err)
	}
}
