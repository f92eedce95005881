package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/metrics"
)

// Batch statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// cleanupDelay is how long finished snapshots stay queryable.
const cleanupDelay = 300 * time.Second

// DocumentResult is the per-document outcome reported in batch results.
type DocumentResult struct {
	ExtractionID    int64  `json:"extraction_id"`
	DocID           string `json:"doc_id"`
	Success         bool   `json:"success"`
	Pages           int    `json:"pages"`
	TextURI         string `json:"text_uri,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Error           string `json:"error,omitempty"`
}

// Snapshot is the live state of one batch.
type Snapshot struct {
	BatchID            string           `json:"batch_id"`
	Status             string           `json:"status"`
	QueueIDs           []int64          `json:"queue_ids"`
	TotalDocuments     int              `json:"total_documents"`
	ProcessedDocuments int              `json:"processed_documents"`
	TotalPages         int              `json:"total_pages"`
	ProcessedPages     int              `json:"processed_pages"`
	CurrentDocument    string           `json:"current_document"`
	CurrentStage       string           `json:"current_stage"`
	CurrentOperation   string           `json:"current_operation"`
	ProgressPercentage int              `json:"progress_percentage"`
	StartedAt          time.Time        `json:"started_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	Results            []DocumentResult `json:"results"`
	Errors             []string         `json:"errors"`
}

// Tracker is the process-wide batch progress registry. One mutex guards the
// whole map; no I/O happens under the lock.
type Tracker struct {
	mu      sync.Mutex
	batches map[string]*Snapshot
	seq     int
	delay   time.Duration
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{batches: make(map[string]*Snapshot), delay: cleanupDelay}
}

// Start registers a new batch and returns its id.
func (t *Tracker) Start(queueIDs []int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	batchID := fmt.Sprintf("batch_%d_%d", time.Now().Unix(), t.seq)
	t.batches[batchID] = &Snapshot{
		BatchID:        batchID,
		Status:         StatusStarting,
		QueueIDs:       append([]int64(nil), queueIDs...),
		TotalDocuments: len(queueIDs),
		CurrentStage:   "initializing",
		StartedAt:      time.Now(),
		Results:        []DocumentResult{},
		Errors:         []string{},
	}
	metrics.BatchStarted()
	log.Info().Str("batch_id", batchID).Int("documents", len(queueIDs)).Msg("batch started")
	return batchID
}

// Register adopts a caller-supplied batch id, used when the HTTP client
// provides its own.
func (t *Tracker) Register(batchID string, queueIDs []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.batches[batchID]; ok {
		return
	}
	t.batches[batchID] = &Snapshot{
		BatchID:        batchID,
		Status:         StatusStarting,
		QueueIDs:       append([]int64(nil), queueIDs...),
		TotalDocuments: len(queueIDs),
		CurrentStage:   "initializing",
		StartedAt:      time.Now(),
		Results:        []DocumentResult{},
		Errors:         []string{},
	}
	metrics.BatchStarted()
}

// SetTotalPages records the up-front page total used for page-weighted
// progress.
func (t *Tracker) SetTotalPages(batchID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.batches[batchID]; ok {
		s.TotalPages = n
	}
}

// Update applies a partial mutation to a snapshot under the tracker lock.
// Percentage is recomputed afterwards in case processed counts changed.
func (t *Tracker) Update(batchID string, mutate func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.batches[batchID]
	if !ok {
		return
	}
	mutate(s)
	recomputePercentage(s)
}

// IncrementProcessed bumps the processed document count by one and the
// processed page count by pages.
func (t *Tracker) IncrementProcessed(batchID string, pages int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.batches[batchID]
	if !ok {
		return
	}
	s.ProcessedDocuments++
	s.ProcessedPages += pages
	recomputePercentage(s)
}

// Complete finalizes a batch and schedules snapshot removal.
func (t *Tracker) Complete(batchID string, results []DocumentResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.batches[batchID]
	if !ok {
		return
	}
	now := time.Now()
	s.Status = StatusCompleted
	s.CurrentStage = StatusCompleted
	s.ProgressPercentage = 100
	s.CompletedAt = &now
	s.Results = append([]DocumentResult(nil), results...)
	t.scheduleCleanup(batchID)
	metrics.BatchFinished()
	log.Info().Str("batch_id", batchID).Int("results", len(results)).Msg("batch completed")
}

// Fail marks a batch failed. The snapshot is retained for the same cleanup
// window so pollers can observe the error.
func (t *Tracker) Fail(batchID string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.batches[batchID]
	if !ok {
		return
	}
	now := time.Now()
	s.Status = StatusFailed
	s.CurrentStage = StatusFailed
	s.CompletedAt = &now
	s.Errors = append(s.Errors, errMsg)
	t.scheduleCleanup(batchID)
	metrics.BatchFinished()
	log.Error().Str("batch_id", batchID).Str("error", errMsg).Msg("batch failed")
}

// Get returns a deep copy of the snapshot.
func (t *Tracker) Get(batchID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.batches[batchID]
	if !ok {
		return Snapshot{}, false
	}
	return copySnapshot(s), true
}

// scheduleCleanup removes the snapshot after the retention window.
// Callers hold the lock.
func (t *Tracker) scheduleCleanup(batchID string) {
	time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.batches, batchID)
	})
}

// recomputePercentage favors page-weighted progress when a page total is
// known, else falls back to document-weighted.
func recomputePercentage(s *Snapshot) {
	switch {
	case s.TotalPages > 0:
		s.ProgressPercentage = 100 * s.ProcessedPages / s.TotalPages
	case s.TotalDocuments > 0:
		s.ProgressPercentage = 100 * s.ProcessedDocuments / s.TotalDocuments
	}
	if s.ProgressPercentage > 100 {
		s.ProgressPercentage = 100
	}
}

func copySnapshot(s *Snapshot) Snapshot {
	out := *s
	out.QueueIDs = append([]int64(nil), s.QueueIDs...)
	out.Results = append([]DocumentResult(nil), s.Results...)
	out.Errors = append([]string(nil), s.Errors...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
