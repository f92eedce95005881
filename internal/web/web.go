package web

import (
    "context"
    "encoding/json"
    "net/http"
    "strings"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/textextract/internal/metrics"
    "github.com/local/textextract/internal/progress"
    "github.com/local/textextract/internal/statuscheck"
)

const apiPrefix = "/api/document-text-extraction"

// Tracker is the progress registry surface used by the handlers.
type Tracker interface {
    Start(queueIDs []int64) string
    Register(batchID string, queueIDs []int64)
    Get(batchID string) (progress.Snapshot, bool)
}

// Runner executes one batch asynchronously.
type Runner interface {
    Run(ctx context.Context, queueIDs []int64, batchID string)
}

// StatusChecker produces the deep dependency status summary.
type StatusChecker interface {
    Summary(ctx context.Context) statuscheck.Summary
}

// Web holds the HTTP handlers for the extraction API.
type Web struct {
    tracker Tracker
    runner  Runner
    checker StatusChecker
}

// New creates the handler set.
func New(tracker Tracker, runner Runner, checker StatusChecker) *Web {
    return &Web{tracker: tracker, runner: runner, checker: checker}
}

// RegisterRoutes attaches all endpoints to the mux.
func (w *Web) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc(apiPrefix+"/extract", w.handleExtract)
    mux.HandleFunc(apiPrefix+"/progress/", w.handleProgress)
    mux.HandleFunc(apiPrefix+"/health", w.handleHealth)
    mux.HandleFunc(apiPrefix+"/status", w.handleStatus)
    mux.HandleFunc(apiPrefix+"/", w.handleServiceInfo)
    mux.Handle("/metrics", metrics.Handler())
}

type extractRequest struct {
    QueueIDs []int64 `json:"queue_ids"`
    BatchID  string  `json:"batch_id,omitempty"`
}

type extractResponse struct {
    Success        bool                      `json:"success"`
    Message        string                    `json:"message"`
    ProcessedCount int                       `json:"processed_count"`
    FailedCount    int                       `json:"failed_count"`
    BatchID        string                    `json:"batch_id"`
    Results        []progress.DocumentResult `json:"results"`
}

// handleExtract validates the payload, registers the batch and spawns the
// orchestrator. The response returns before any document is touched.
func (w *Web) handleExtract(wr http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        wr.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req extractRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeJSON(wr, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid JSON payload"})
        return
    }
    if len(req.QueueIDs) == 0 {
        writeJSON(wr, http.StatusBadRequest, map[string]any{"success": false, "message": "queue_ids must not be empty"})
        return
    }

    batchID := req.BatchID
    if batchID == "" {
        batchID = w.tracker.Start(req.QueueIDs)
    } else {
        w.tracker.Register(batchID, req.QueueIDs)
    }

    requestID := uuid.NewString()
    log.Info().Str("request_id", requestID).Str("batch_id", batchID).Ints64("queue_ids", req.QueueIDs).Msg("extraction batch accepted")

    // The batch owns its own lifetime; a disconnecting client must not
    // cancel in-flight documents.
    go w.runner.Run(context.Background(), req.QueueIDs, batchID)

    writeJSON(wr, http.StatusOK, extractResponse{
        Success: true,
        Message: "Text extraction started",
        BatchID: batchID,
        Results: []progress.DocumentResult{},
    })
}

// handleProgress returns the live snapshot. Unknown batch ids yield a
// synthetic completed snapshot so clients can poll across restarts.
func (w *Web) handleProgress(wr http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        wr.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    batchID := strings.TrimPrefix(r.URL.Path, apiPrefix+"/progress/")
    if batchID == "" || strings.Contains(batchID, "/") {
        writeJSON(wr, http.StatusBadRequest, map[string]any{"success": false, "message": "missing batch id"})
        return
    }

    snap, ok := w.tracker.Get(batchID)
    if !ok {
        snap = progress.Snapshot{
            BatchID:            batchID,
            Status:             progress.StatusCompleted,
            ProgressPercentage: 100,
            Results:            []progress.DocumentResult{},
            Errors:             []string{},
        }
    }
    writeJSON(wr, http.StatusOK, snap)
}

func (w *Web) handleHealth(wr http.ResponseWriter, r *http.Request) {
    writeJSON(wr, http.StatusOK, map[string]any{
        "service":      "document_text_extraction",
        "status":       "healthy",
        "capabilities": []string{"pdf_download", "ocr_and_text_extraction", "text_file_storage"},
    })
}

// handleStatus runs deep dependency checks (database, storage, OCR binary).
func (w *Web) handleStatus(wr http.ResponseWriter, r *http.Request) {
    if w.checker == nil {
        wr.WriteHeader(http.StatusServiceUnavailable)
        return
    }
    writeJSON(wr, http.StatusOK, w.checker.Summary(r.Context()))
}

func (w *Web) handleServiceInfo(wr http.ResponseWriter, r *http.Request) {
    if r.URL.Path != apiPrefix+"/" {
        http.NotFound(wr, r)
        return
    }
    writeJSON(wr, http.StatusOK, map[string]any{
        "service":     "document_text_extraction",
        "description": "Extracts per-page text from queued PDF documents with OCR fallback",
        "endpoints": map[string]string{
            "extract":  apiPrefix + "/extract",
            "progress": apiPrefix + "/progress/{batch_id}",
            "health":   apiPrefix + "/health",
            "status":   apiPrefix + "/status",
        },
    })
}

func writeJSON(wr http.ResponseWriter, code int, payload any) {
    wr.Header().Set("Content-Type", "application/json")
    wr.WriteHeader(code)
    if err := json.NewEncoder(wr).Encode(payload); err != nil {
        log.Error().Err(err).Msg("failed to encode response")
    }
}
