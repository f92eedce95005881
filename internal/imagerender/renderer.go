package imagerender

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// OCRDPI is the render resolution for OCR input. 144 DPI corresponds to a
// 2x zoom over the 72 DPI PDF point grid.
const OCRDPI = 144

// RenderPageToPNG renders a PDF page as a PNG image in memory.
// pageNum is 1-based. Returns PNG bytes, width, height, error.
func RenderPageToPNG(doc *fitz.Document, pageNum, dpi int, grayscale bool) ([]byte, int, int, error) {
	// go-fitz uses 0-based indexing
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var finalImg image.Image = img
	if grayscale {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, image.Point{}, draw.Src)
		finalImg = grayImg
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, finalImg); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode PNG: %w", err)
	}

	log.Debug().
		Int("page", pageNum).
		Int("width", width).
		Int("height", height).
		Int("dpi", dpi).
		Bool("gray", grayscale).
		Msg("rendered page for OCR")

	return buf.Bytes(), width, height, nil
}
