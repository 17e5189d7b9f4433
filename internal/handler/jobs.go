package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/go-rag-qa/internal/port"
	"github.com/arturoeanton/go-rag-qa/internal/service"
)

// Job states.
const (
	JobRunning  = "running"
	JobComplete = "complete"
	JobError    = "error"
)

// JobStatus represents the current state of a batch scrape job.
type JobStatus struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"` // running, complete, error
	Progress    int                 `json:"progress"`
	Total       int                 `json:"total"`
	Current     string              `json:"current_url"`
	Results     []service.URLResult `json:"results"`
	Failed      int                 `json:"failed"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at,omitempty"`
}

func (j JobStatus) done() bool {
	return j.Status == JobComplete || j.Status == JobError
}

// JobTracker manages batch jobs in memory.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
	subs map[string][]chan JobStatus // subscribers per job
}

// NewJobTracker creates a new job tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{
		jobs: make(map[string]*JobStatus),
		subs: make(map[string][]chan JobStatus),
	}
}

// CreateJob creates a new job entry.
func (t *JobTracker) CreateJob(id string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &JobStatus{
		ID:        id,
		Status:    JobRunning,
		Total:     total,
		Results:   []service.URLResult{},
		StartedAt: time.Now(),
	}
}

// RecordResult stores one finished URL and notifies subscribers.
func (t *JobTracker) RecordResult(id string, done int, res service.URLResult) {
	t.update(id, func(job *JobStatus) {
		job.Progress = done
		job.Current = res.URL
		job.Results = append(job.Results, res)
		if res.Err != nil {
			job.Failed++
		}
	})
}

// Finish marks a job complete, or failed when every URL failed.
func (t *JobTracker) Finish(id string) {
	t.update(id, func(job *JobStatus) {
		job.Status = JobComplete
		if job.Total > 0 && job.Failed == job.Total {
			job.Status = JobError
			job.Error = "every URL failed"
		}
		job.CompletedAt = time.Now()
	})
}

func (t *JobTracker) update(id string, fn func(*JobStatus)) {
	t.mu.Lock()
	job, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	fn(job)
	snapshot := job.snapshot()
	subs := t.subs[id]
	t.mu.Unlock()

	// Notify subscribers
	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (j *JobStatus) snapshot() JobStatus {
	s := *j
	s.Results = append([]service.URLResult(nil), j.Results...)
	return s
}

// GetJob returns a job status.
func (t *JobTracker) GetJob(id string) (*JobStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, port.ErrJobNotFound)
	}
	snapshot := job.snapshot()
	return &snapshot, nil
}

// Subscribe returns a channel that receives job updates.
func (t *JobTracker) Subscribe(id string) chan JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan JobStatus, 10)
	subs := t.subs[id]
	t.subs[id] = append(subs[:len(subs):len(subs)], ch)
	return ch
}

// Unsubscribe removes a channel from subscribers. The channel is not closed:
// update may still hold it in a copied subscriber list.
func (t *JobTracker) Unsubscribe(id string, ch chan JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Copy on write; update ranges over the old slice without the lock.
	kept := make([]chan JobStatus, 0, len(t.subs[id]))
	for _, s := range t.subs[id] {
		if s != ch {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(t.subs, id)
		return
	}
	t.subs[id] = kept
}

// JobsHandler starts batch scrape jobs and reports on them.
type JobsHandler struct {
	ctx     context.Context
	tracker *JobTracker
	batch   *service.BatchService
}

// NewJobsHandler creates a new jobs handler. Jobs run under ctx, so cancelling
// it stops in-flight scrapes on shutdown.
func NewJobsHandler(ctx context.Context, tracker *JobTracker, batch *service.BatchService) *JobsHandler {
	return &JobsHandler{ctx: ctx, tracker: tracker, batch: batch}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	router.Post("/scrape", h.Scrape)
	jobs := router.Group("/jobs")
	jobs.Get("/:id", h.GetStatus)
	jobs.Get("/:id/stream", h.StreamSSE)
}

// Scrape queues a batch ingest of URLs and returns its job ID.
func (h *JobsHandler) Scrape(c fiber.Ctx) error {
	var body struct {
		URLs []string `json:"urls"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return writeError(c, fmt.Errorf("%w: invalid request body", port.ErrInvalidInput))
	}
	if len(body.URLs) == 0 {
		return writeError(c, fmt.Errorf("%w: urls is required", port.ErrInvalidInput))
	}

	jobID := uuid.New().String()
	h.tracker.CreateJob(jobID, len(body.URLs))
	slog.Info("scrape job started", "job_id", jobID, "urls", len(body.URLs))

	urls := append([]string(nil), body.URLs...)
	go func() {
		h.batch.IngestURLs(h.ctx, urls, func(done, _ int, res service.URLResult) {
			h.tracker.RecordResult(jobID, done, res)
		})
		h.tracker.Finish(jobID)
		slog.Info("scrape job finished", "job_id", jobID)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": jobID, "total": len(urls)})
}

// GetStatus returns the current job status.
func (h *JobsHandler) GetStatus(c fiber.Ctx) error {
	job, err := h.tracker.GetJob(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(job)
}

// StreamSSE streams job updates via Server-Sent Events.
func (h *JobsHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")

	job, err := h.tracker.GetJob(id)
	if err != nil {
		return writeError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// If already complete, just return the final status
	if job.done() {
		data, _ := json.Marshal(job)
		return c.SendString(fmt.Sprintf("event: %s\ndata: %s\n\n", job.Status, string(data)))
	}

	ch := h.tracker.Subscribe(id)
	// Re-read after subscribing so a job finishing in between is not missed.
	job, _ = h.tracker.GetJob(id)

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.tracker.Unsubscribe(id, ch)

		eventType := "progress"
		if job.done() {
			eventType = job.Status
		}
		data, _ := json.Marshal(job)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, string(data))
		w.Flush()
		if job.done() {
			return
		}

		timeout := time.After(5 * time.Minute)
		for {
			select {
			case update := <-ch:
				data, _ := json.Marshal(update)
				eventType := "progress"
				if update.done() {
					eventType = update.Status
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, string(data))
				if err := w.Flush(); err != nil {
					return
				}

				if update.done() {
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "job_id", id)
				return
			}
		}
	})
}
