package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Tesseract runs the tesseract CLI for OCR fallback.
type Tesseract struct {
	binary string
	lang   string
}

// NewTesseract creates an OCR engine backed by the tesseract binary.
func NewTesseract() *Tesseract {
	return &Tesseract{binary: "tesseract", lang: "eng"}
}

// Available checks if the tesseract binary is on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// minWordConf is the word confidence cutoff for OCR layout spans.
const minWordConf = 30.0

// Recognize OCRs a rendered page image. Returns the recognized text and a
// word-level layout built from tesseract's TSV output. psm selects the page
// segmentation mode.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, width, height, psm int) (string, Layout, error) {
	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", Layout{}, fmt.Errorf("failed to create OCR temp image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", Layout{}, fmt.Errorf("failed to write OCR temp image: %w", err)
	}
	tmp.Close()

	text, err := t.run(ctx, tmp.Name(), psm, "")
	if err != nil {
		return "", Layout{}, err
	}

	layout := Layout{Width: float64(width), Height: float64(height), Blocks: []Block{}}
	tsv, err := t.run(ctx, tmp.Name(), psm, "tsv")
	if err != nil {
		// Text came through; a missing layout is tolerable.
		log.Warn().Err(err).Msg("tesseract tsv pass failed, keeping empty layout")
		return text, layout, nil
	}
	return text, parseTSV(tsv, width, height), nil
}

func (t *Tesseract) run(ctx context.Context, imagePath string, psm int, format string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.lang, "--oem", "3", "--psm", strconv.Itoa(psm)}
	if format != "" {
		args = append(args, format)
	}

	cmd := exec.CommandContext(ctx, t.binary, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("tesseract failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	return string(output), nil
}

// parseTSV builds a layout from tesseract's TSV output. Columns:
// level page_num block_num par_num line_num word_num left top width height conf text
func parseTSV(tsv string, width, height int) Layout {
	var words []word
	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < minWordConf {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		left, _ := strconv.ParseFloat(cols[6], 64)
		top, _ := strconv.ParseFloat(cols[7], 64)
		w, _ := strconv.ParseFloat(cols[8], 64)
		h, _ := strconv.ParseFloat(cols[9], 64)
		words = append(words, word{
			text:  text,
			bbox:  [4]float64{left, top, left + w, top + h},
			font:  "tesseract",
			size:  h,
			flags: 0,
		})
	}
	return groupWords(float64(width), float64(height), 0, words)
}
