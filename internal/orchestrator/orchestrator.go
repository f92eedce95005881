package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/extract"
	"github.com/local/textextract/internal/filetype"
	"github.com/local/textextract/internal/limiter"
	"github.com/local/textextract/internal/metrics"
	"github.com/local/textextract/internal/progress"
	"github.com/local/textextract/internal/queue"
	"github.com/local/textextract/internal/storage"
)

const errLockContended = "Document is currently being processed"

// Queue is the subset of queue store operations the orchestrator uses.
type Queue interface {
	FetchPending(ctx context.Context, ids []int64) ([]queue.Row, error)
	TryAcquireLock(ctx context.Context, docID string) (bool, error)
	ReleaseLock(ctx context.Context, docID string) error
	SetStatus(ctx context.Context, docID, field string, value int) error
	SetURI(ctx context.Context, docID, field, value string) error
	SetError(ctx context.Context, docID, message string) error
	SetDuration(ctx context.Context, docID string, seconds int) error
	TouchLastProcessed(ctx context.Context, docID string) error
}

// Tracker reports batch progress.
type Tracker interface {
	SetTotalPages(batchID string, n int)
	Update(batchID string, mutate func(*progress.Snapshot))
	IncrementProcessed(batchID string, pages int)
	Complete(batchID string, results []progress.DocumentResult)
	Fail(batchID string, errMsg string)
}

// Engine extracts one document.
type Engine interface {
	Extract(ctx context.Context, pdfPath string, candidates []*string) extract.Result
}

// PasswordSource produces ordered password candidates for a file.
type PasswordSource interface {
	Candidates(pdfPath, provided string) []*string
}

// Notifier hands a finished document downstream.
type Notifier interface {
	Notify(ctx context.Context, extractionID int64, docID string)
}

// Dependencies wires the orchestrator's collaborators.
type Dependencies struct {
	Queue        Queue
	Store        storage.ObjectStore
	Tracker      Tracker
	Engine       Engine
	Passwords    PasswordSource
	Notifier     Notifier
	Detector     *filetype.Detector
	DatalakeRoot string
	Workers      int
}

// Orchestrator runs batches of document extractions with a bounded worker
// fan-out.
type Orchestrator struct {
	deps Dependencies
	sem  *limiter.Semaphore
}

// New creates an orchestrator. Workers defaults to 4.
func New(deps Dependencies) *Orchestrator {
	if deps.Workers <= 0 {
		deps.Workers = 4
	}
	return &Orchestrator{deps: deps, sem: limiter.New(deps.Workers)}
}

// Run processes one batch to completion. It is meant to be launched in its
// own goroutine; the HTTP handler returns before any work happens here.
func (o *Orchestrator) Run(ctx context.Context, queueIDs []int64, batchID string) {
	t := o.deps.Tracker
	t.Update(batchID, func(s *progress.Snapshot) {
		s.Status = progress.StatusProcessing
		s.CurrentOperation = "Preparing text extraction service..."
	})

	rows, err := o.deps.Queue.FetchPending(ctx, queueIDs)
	if err != nil {
		log.Error().Err(err).Str("batch_id", batchID).Msg("queue fetch failed")
		t.Fail(batchID, err.Error())
		return
	}
	if len(rows) == 0 {
		t.Fail(batchID, "No documents found in queue")
		return
	}

	totalPages := 0
	for _, r := range rows {
		totalPages += r.NumberOfPages
	}
	t.SetTotalPages(batchID, totalPages)
	t.Update(batchID, func(s *progress.Snapshot) {
		s.TotalDocuments = len(rows)
		s.CurrentOperation = fmt.Sprintf("Found %d documents (%d pages) to process...", len(rows), totalPages)
	})

	t.Update(batchID, func(s *progress.Snapshot) {
		s.CurrentOperation = "Starting parallel document processing..."
	})

	results := make([]progress.DocumentResult, len(rows))
	var wg sync.WaitGroup
	for i, row := range rows {
		wg.Add(1)
		go func(i int, row queue.Row) {
			defer wg.Done()
			release := o.sem.Acquire()
			defer release()
			results[i] = o.processDocument(ctx, batchID, row)
		}(i, row)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	if succeeded > 0 {
		t.Complete(batchID, results)
	} else {
		t.Fail(batchID, "All documents failed to process")
	}
}

// processDocument runs the per-document pipeline. The deferred epilogue
// releases the row lock on every exit path, panics included.
func (o *Orchestrator) processDocument(ctx context.Context, batchID string, row queue.Row) (result progress.DocumentResult) {
	result = progress.DocumentResult{ExtractionID: row.ExtractionID, DocID: row.DocID}
	q := o.deps.Queue
	t := o.deps.Tracker

	locked, err := q.TryAcquireLock(ctx, row.DocID)
	if err != nil {
		log.Error().Err(err).Str("doc_id", row.DocID).Msg("lock acquisition errored")
	}
	if err != nil || !locked {
		result.Error = errLockContended
		metrics.IncDocument("skipped")
		return result
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			log.Error().Str("doc_id", row.DocID).Str("panic", fmt.Sprint(r)).Msg("document worker panicked")
			o.markFailure(ctx, row.DocID, msg)
			result.Success = false
			result.Error = msg
			t.IncrementProcessed(batchID, 0)
			metrics.IncDocument("failed")
		}
		if err := q.ReleaseLock(ctx, row.DocID); err != nil {
			log.Error().Err(err).Str("doc_id", row.DocID).Msg("lock release failed")
		}
	}()

	t.Update(batchID, func(s *progress.Snapshot) {
		s.CurrentDocument = row.DocID
		s.CurrentStage = "downloading_pdf"
	})

	localPath, err := o.materializePDF(ctx, row)
	if err != nil {
		o.markFailure(ctx, row.DocID, errSourceUnavailable.Error())
		result.Error = errSourceUnavailable.Error()
		metrics.IncDocument("failed")
		return result
	}
	if err := q.SetURI(ctx, row.DocID, "datalake_raw_uri", localPath); err != nil {
		log.Error().Err(err).Str("doc_id", row.DocID).Msg("raw uri write failed")
	}

	// Rows enqueued without a page count still contribute to the
	// page-weighted batch total.
	if row.NumberOfPages == 0 {
		if n, err := api.PageCountFile(localPath); err == nil {
			t.Update(batchID, func(s *progress.Snapshot) { s.TotalPages += n })
		}
	}

	t.Update(batchID, func(s *progress.Snapshot) { s.CurrentStage = "extracting_text" })

	candidates := o.deps.Passwords.Candidates(localPath, row.Password)
	res := o.deps.Engine.Extract(ctx, localPath, candidates)
	if !res.Success {
		o.markFailure(ctx, row.DocID, res.ErrorMessage)
		result.Error = res.ErrorMessage
		metrics.IncDocument("failed")
		return result
	}

	if _, err := extract.WritePages(ctx, o.deps.Store, row.DocID, res.Pages); err != nil {
		o.markFailure(ctx, row.DocID, err.Error())
		result.Error = err.Error()
		metrics.IncDocument("failed")
		return result
	}

	textURI := o.deps.Store.TextURI(row.DocID)
	if err := q.SetURI(ctx, row.DocID, "datalake_text_uri", textURI); err != nil {
		log.Error().Err(err).Str("doc_id", row.DocID).Msg("text uri write failed")
	}
	if err := q.SetStatus(ctx, row.DocID, "text_extraction_status", 100); err != nil {
		log.Error().Err(err).Str("doc_id", row.DocID).Msg("status write failed")
	}

	duration := int(time.Since(start).Seconds())
	if err := q.SetDuration(ctx, row.DocID, duration); err != nil {
		log.Error().Err(err).Str("doc_id", row.DocID).Msg("duration write failed")
	}
	if err := q.TouchLastProcessed(ctx, row.DocID); err != nil {
		log.Error().Err(err).Str("doc_id", row.DocID).Msg("timestamp write failed")
	}

	t.IncrementProcessed(batchID, res.TotalPages)
	metrics.IncDocument("success")
	metrics.ObserveExtraction(time.Since(start))

	o.deps.Notifier.Notify(ctx, row.ExtractionID, row.DocID)

	result.Success = true
	result.Pages = res.TotalPages
	result.TextURI = textURI
	result.DurationSeconds = duration
	log.Info().Str("doc_id", row.DocID).Int("pages", res.TotalPages).Int("seconds", duration).Msg("document extracted")
	return result
}

// markFailure records a terminal failure for this attempt. Write errors are
// logged and swallowed; the lock release in the caller's epilogue is the
// only hard requirement.
func (o *Orchestrator) markFailure(ctx context.Context, docID, msg string) {
	if err := o.deps.Queue.SetStatus(ctx, docID, "text_extraction_status", -1); err != nil {
		log.Error().Err(err).Str("doc_id", docID).Msg("failure status write failed")
	}
	if err := o.deps.Queue.SetError(ctx, docID, msg); err != nil {
		log.Error().Err(err).Str("doc_id", docID).Msg("error message write failed")
	}
}
