package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/imagerender"
	"github.com/local/textextract/internal/limiter"
	"github.com/local/textextract/internal/metrics"
	"github.com/local/textextract/internal/quality"
)

// Extraction methods recorded per page.
const (
	MethodFitz      = "fitz"
	MethodTesseract = "tesseract"
	MethodFailed    = "failed"
)

const (
	maxPasswordAttempts = 3
	ocrRetryMinChars    = 10
)

// PageRecord is the outcome for one page.
type PageRecord struct {
	Text   string `json:"text"`
	Method string `json:"method"`
	Layout Layout `json:"layout"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of one document extraction.
type Result struct {
	Success            bool
	TotalPages         int
	Pages              map[int]PageRecord
	ErrorMessage       string
	PasswordRequired   bool
	PasswordUsed       *string
	AttemptsMade       int
	SuggestedPasswords []string
}

// Document is an authenticated open PDF. Page numbers are 1-based.
type Document interface {
	NumPages() int
	PageText(pageNum int) (string, error)
	PageLayout(pageNum int) (Layout, error)
	RenderPNG(pageNum, dpi int) ([]byte, int, int, error)
	Close() error
}

// Opener opens a PDF with one password candidate. It must return
// ErrWrongPassword when the candidate does not authenticate.
type Opener func(path, password string) (Document, error)

// OCR recognizes text on a rendered page image.
type OCR interface {
	Available() bool
	Recognize(ctx context.Context, image []byte, width, height, psm int) (string, Layout, error)
}

// Engine drives per-document extraction: authenticate with the candidate
// passwords, then per page try embedded text first and fall back to OCR.
type Engine struct {
	open          Opener
	ocr           OCR
	ocrGate       *limiter.Semaphore
	maxPages      int
	minTextLength int
	onPassword    func(pdfPath, password string)
}

// NewEngine creates an extraction engine. maxPages of 0 means unlimited.
// OCR calls are serialized since tesseract is not safe to hammer in parallel.
func NewEngine(ocr OCR, maxPages, minTextLength int) *Engine {
	return &Engine{
		open:          OpenDocument,
		ocr:           ocr,
		ocrGate:       limiter.New(1),
		maxPages:      maxPages,
		minTextLength: minTextLength,
	}
}

// OnPasswordSuccess registers a callback invoked when a non-nil password
// candidate authenticates a document.
func (e *Engine) OnPasswordSuccess(fn func(pdfPath, password string)) {
	e.onPassword = fn
}

// Extract runs the full per-document pipeline. candidates is an ordered
// list where a nil entry means "try without a password"; at most the first
// three are attempted.
func (e *Engine) Extract(ctx context.Context, pdfPath string, candidates []*string) Result {
	res := Result{Pages: map[int]PageRecord{}}
	if len(candidates) > maxPasswordAttempts {
		candidates = candidates[:maxPasswordAttempts]
	}
	for _, cand := range candidates {
		if cand != nil {
			res.SuggestedPasswords = append(res.SuggestedPasswords, *cand)
		}
	}

	for attempt, cand := range candidates {
		res.AttemptsMade = attempt + 1
		password := ""
		if cand != nil {
			password = *cand
		}

		doc, err := e.open(pdfPath, password)
		if err != nil {
			metrics.IncPasswordAttempt("failed")
			log.Warn().Err(err).Str("pdf", pdfPath).Int("attempt", attempt+1).Msg("PDF open attempt failed")
			continue
		}
		metrics.IncPasswordAttempt("success")
		res.PasswordUsed = cand
		if cand != nil && e.onPassword != nil {
			e.onPassword(pdfPath, *cand)
		}

		e.extractPages(ctx, doc, &res)
		doc.Close()
		res.Success = true
		return res
	}

	res.PasswordRequired = true
	res.ErrorMessage = fmt.Sprintf("PDF requires password. Tried %d attempts with passwords: %v",
		res.AttemptsMade, res.SuggestedPasswords)
	log.Error().Str("pdf", pdfPath).Int("attempts", res.AttemptsMade).Msg("all password candidates failed")
	return res
}

func (e *Engine) extractPages(ctx context.Context, doc Document, res *Result) {
	total := doc.NumPages()
	if e.maxPages > 0 && total > e.maxPages {
		log.Warn().Int("pages", total).Int("limit", e.maxPages).Msg("page count exceeds limit, truncating")
		total = e.maxPages
	}
	res.TotalPages = total

	for pageNum := 1; pageNum <= total; pageNum++ {
		rec := e.extractPage(ctx, doc, pageNum)
		res.Pages[pageNum] = rec
		metrics.IncPage(rec.Method)
	}
}

func (e *Engine) extractPage(ctx context.Context, doc Document, pageNum int) PageRecord {
	text, err := doc.PageText(pageNum)
	if err != nil {
		log.Warn().Err(err).Int("page", pageNum).Msg("embedded text extraction failed")
	} else {
		trimmed := strings.TrimSpace(text)
		if utf8.RuneCountInString(trimmed) >= e.minTextLength && !quality.IsGarbage(text) {
			layout, lerr := doc.PageLayout(pageNum)
			if lerr != nil {
				log.Warn().Err(lerr).Int("page", pageNum).Msg("page layout extraction failed")
				layout = Layout{Blocks: []Block{}}
			}
			return PageRecord{Text: trimmed, Method: MethodFitz, Layout: layout}
		}
		log.Info().Int("page", pageNum).Int("chars", utf8.RuneCountInString(trimmed)).Msg("embedded text too short or garbled, trying OCR")
	}

	if e.ocr == nil || !e.ocr.Available() {
		return failedPage("Tesseract not available and fitz extraction failed")
	}

	release := e.ocrGate.Acquire()
	defer release()

	image, w, h, err := doc.RenderPNG(pageNum, imagerender.OCRDPI)
	if err != nil {
		return failedPage(fmt.Sprintf("Both fitz and tesseract failed: %v", err))
	}
	ocrText, layout, err := e.ocr.Recognize(ctx, image, w, h, 6)
	if err != nil {
		return failedPage(fmt.Sprintf("Both fitz and tesseract failed: %v", err))
	}

	ocrText = strings.TrimSpace(ocrText)
	if utf8.RuneCountInString(ocrText) < ocrRetryMinChars || quality.IsGarbage(ocrText) {
		retryText, retryLayout, retryErr := e.ocr.Recognize(ctx, image, w, h, 3)
		if retryErr != nil {
			log.Warn().Err(retryErr).Int("page", pageNum).Msg("OCR retry failed, keeping first pass")
		} else {
			ocrText = strings.TrimSpace(retryText)
			layout = retryLayout
		}
	}
	return PageRecord{Text: ocrText, Method: MethodTesseract, Layout: layout}
}

func failedPage(msg string) PageRecord {
	return PageRecord{Method: MethodFailed, Layout: Layout{Blocks: []Block{}}, Error: msg}
}
