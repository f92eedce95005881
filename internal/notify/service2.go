package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/metrics"
)

// Notifier hands successfully extracted documents off to the downstream
// classification service. Failures are logged only and never surface to the
// extraction pipeline.
type Notifier struct {
	enabled  bool
	baseURL  string
	endpoint string
	client   *http.Client
}

// New builds a notifier. When enabled is false every Notify call is a no-op.
func New(enabled bool, baseURL, endpoint string, timeout time.Duration) *Notifier {
	return &Notifier{
		enabled:  enabled,
		baseURL:  baseURL,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether downstream handoff is configured.
func (n *Notifier) Enabled() bool { return n.enabled }

// Notify posts one extraction id downstream. 200, 201 and 202 count as
// delivered; everything else is logged and swallowed.
func (n *Notifier) Notify(ctx context.Context, extractionID int64, docID string) {
	if !n.enabled {
		return
	}

	payload, err := json.Marshal(map[string][]int64{"extraction_ids": {extractionID}})
	if err != nil {
		log.Error().Err(err).Str("doc_id", docID).Msg("failed to encode downstream payload")
		metrics.IncNotify("error")
		return
	}

	url := n.baseURL + n.endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to build downstream request")
		metrics.IncNotify("error")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Str("doc_id", docID).Msg("downstream notify failed")
		metrics.IncNotify("error")
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		log.Info().Str("doc_id", docID).Int64("extraction_id", extractionID).Msg("notified downstream service")
		metrics.IncNotify("success")
	default:
		log.Warn().Str("doc_id", docID).Int("status", resp.StatusCode).Msg("downstream notify rejected")
		metrics.IncNotify("rejected")
	}
}
