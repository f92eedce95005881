package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	pdfread "github.com/Geek0x0/pdf"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/textextract/internal/imagerender"
)

// ErrWrongPassword reports a password candidate that failed to authenticate.
var ErrWrongPassword = errors.New("invalid pdf password")

// pdfDocument combines two views of one open PDF: go-fitz for page text and
// rasterization, and the pdf reader for positioned text. go-fitz cannot
// authenticate, so encrypted files are decrypted to a temp copy first.
type pdfDocument struct {
	doc     *fitz.Document
	reader  *pdfread.Reader
	file    *os.File
	tmpPath string
}

// OpenDocument opens path with one password candidate. Unencrypted files
// accept any candidate. Returns ErrWrongPassword when the document is
// encrypted and the candidate does not authenticate.
func OpenDocument(path, password string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}

	// The reader asks for a password only when the empty one fails. A
	// consumed candidate therefore means the file is truly encrypted.
	asked := false
	reader, err := pdfread.NewReaderEncrypted(f, st.Size(), func() string {
		if asked || password == "" {
			return ""
		}
		asked = true
		return password
	})
	if err != nil {
		f.Close()
		if errors.Is(err, pdfread.ErrInvalidPassword) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	fitzPath := path
	tmpPath := ""
	if asked {
		tmpPath, err = decryptToTemp(path, password)
		if err != nil {
			f.Close()
			return nil, err
		}
		fitzPath = tmpPath
	}

	doc, err := fitz.New(fitzPath)
	if err != nil {
		f.Close()
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
		return nil, fmt.Errorf("failed to open PDF with fitz: %w", err)
	}
	return &pdfDocument{doc: doc, reader: reader, file: f, tmpPath: tmpPath}, nil
}

// decryptToTemp writes a decrypted copy for go-fitz to consume.
func decryptToTemp(path, password string) (string, error) {
	tmp, err := os.CreateTemp("", "decrypted-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp PDF: %w", err)
	}
	tmp.Close()

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := api.DecryptFile(path, tmp.Name(), conf); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	log.Debug().Str("pdf", path).Msg("decrypted PDF to temp copy")
	return tmp.Name(), nil
}

func (d *pdfDocument) NumPages() int { return d.doc.NumPage() }

// PageText extracts embedded text from one page. pageNum is 1-based.
func (d *pdfDocument) PageText(pageNum int) (string, error) {
	text, err := d.doc.Text(pageNum - 1)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
	}
	return text, nil
}

// RenderPNG rasterizes one page for OCR input.
func (d *pdfDocument) RenderPNG(pageNum, dpi int) ([]byte, int, int, error) {
	return imagerender.RenderPageToPNG(d.doc, pageNum, dpi, true)
}

// PageLayout builds positioned text for one page. Malformed content streams
// can make the reader panic, so failures degrade to an empty layout.
func (d *pdfDocument) PageLayout(pageNum int) (layout Layout, err error) {
	p := d.reader.Page(pageNum)
	width, height := pageSize(p)
	rotation := int(p.V.Key("Rotate").Int64())
	layout = Layout{Width: width, Height: height, Rotation: rotation, Blocks: []Block{}}
	if p.V.IsNull() {
		return layout, fmt.Errorf("page %d not found", pageNum)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Int("page", pageNum).Interface("panic", r).Msg("page layout extraction panicked")
			layout = Layout{Width: width, Height: height, Rotation: rotation, Blocks: []Block{}}
			err = nil
		}
	}()

	content := p.Content()
	words := make([]word, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		flags := 0
		if t.Italic {
			flags |= 1 << 1
		}
		if t.Bold {
			flags |= 1 << 4
		}
		// PDF text positions are bottom-up; layout bboxes are top-down.
		top := height - t.Y - t.FontSize
		words = append(words, word{
			text:  t.S,
			bbox:  [4]float64{t.X, top, t.X + t.W, height - t.Y},
			font:  t.Font,
			size:  t.FontSize,
			flags: flags,
		})
	}
	return groupWords(width, height, rotation, words), nil
}

// pageSize reads the (inherited) MediaBox, defaulting to US Letter.
func pageSize(p pdfread.Page) (width, height float64) {
	width, height = 612, 792
	// The reader's MediaBox accessor is commented out upstream; replicate its
	// inherited lookup with the public Value API.
	var box pdfread.Value
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if r := v.Key("MediaBox"); !r.IsNull() {
			box = r
			break
		}
	}
	if box.Len() != 4 {
		return width, height
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	if x1 > x0 && y1 > y0 {
		width, height = x1-x0, y1-y0
	}
	return width, height
}

func (d *pdfDocument) Close() error {
	err := d.doc.Close()
	d.file.Close()
	if d.tmpPath != "" {
		os.Remove(d.tmpPath)
	}
	return err
}
