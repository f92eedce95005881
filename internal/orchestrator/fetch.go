package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/queue"
)

const sourceFileName = "source.pdf"

var errSourceUnavailable = errors.New("Could not access PDF file")

// materializePDF resolves a local copy of the document at
// <datalakeRoot>/<doc_id>/source.pdf. An existing copy wins; otherwise the
// cached raw URI, the source URI as a filesystem path, and an http(s)
// download are tried in that order.
func (o *Orchestrator) materializePDF(ctx context.Context, row queue.Row) (string, error) {
	docDir := filepath.Join(o.deps.DatalakeRoot, row.DocID)
	dest := filepath.Join(docDir, sourceFileName)

	if _, err := os.Stat(dest); err == nil {
		log.Debug().Str("doc_id", row.DocID).Str("path", dest).Msg("using cached source PDF")
		return dest, nil
	}
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create datalake folder: %w", err)
	}

	if p := existingLocalPath(row.DatalakeRawURI); p != "" {
		if err := copyFile(p, dest); err == nil {
			o.validatePDF(dest, row.DocID)
			return dest, nil
		} else {
			log.Warn().Err(err).Str("doc_id", row.DocID).Str("from", p).Msg("datalake raw copy failed")
		}
	}
	if p := existingLocalPath(row.SourceURI); p != "" {
		if err := copyFile(p, dest); err == nil {
			o.validatePDF(dest, row.DocID)
			return dest, nil
		} else {
			log.Warn().Err(err).Str("doc_id", row.DocID).Str("from", p).Msg("source copy failed")
		}
	}
	if strings.HasPrefix(row.SourceURI, "http://") || strings.HasPrefix(row.SourceURI, "https://") {
		url := rewriteGitHubURL(row.SourceURI)
		if err := downloadTo(ctx, url, dest); err == nil {
			o.validatePDF(dest, row.DocID)
			return dest, nil
		} else {
			log.Warn().Err(err).Str("doc_id", row.DocID).Str("url", url).Msg("source download failed")
		}
	}
	return "", errSourceUnavailable
}

// validatePDF warns when the materialized file does not look like a PDF.
// Extraction still proceeds; the engine reports its own failure.
func (o *Orchestrator) validatePDF(path, docID string) {
	if o.deps.Detector == nil {
		return
	}
	if !o.deps.Detector.IsPDF(path) {
		log.Warn().Str("doc_id", docID).Str("path", path).Msg("materialized file is not a PDF")
	}
}

// existingLocalPath turns a URI into a filesystem path if it points at an
// existing file, else returns "".
func existingLocalPath(uri string) string {
	if uri == "" {
		return ""
	}
	p := strings.TrimPrefix(uri, "file://")
	if strings.Contains(p, "://") {
		return ""
	}
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p
	}
	return ""
}

// rewriteGitHubURL converts github blob page URLs into raw download URLs.
func rewriteGitHubURL(url string) string {
	if strings.Contains(url, "github.com") && strings.Contains(url, "/blob/") {
		return strings.Replace(url, "/blob/", "/raw/", 1)
	}
	return url
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	return out.Sync()
}

func downloadTo(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	return out.Sync()
}
