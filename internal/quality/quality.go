package quality

import (
	"regexp"
	"strings"
	"unicode"
)

// Runs of control characters, excluding common whitespace (\t \n \r, space).
// These sequences are the typical signature of broken embedded-font text.
var controlRunPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x9F]+`)

const allowedPunct = ".,!?;:()[]{}\"'"

// IsGarbage reports whether extracted text looks like extraction garbage
// rather than readable content. Thresholds are fixed; they gate the fallback
// from the primary extractor to OCR and must not drift.
func IsGarbage(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}

	runes := []rune(text)
	total := len(runes)

	// More than 30% control characters
	controlCount := 0
	for _, r := range runes {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			controlCount++
		}
	}
	if float64(controlCount) > float64(total)*0.3 {
		return true
	}

	// Multiple control character sequences
	if len(controlRunPattern.FindAllStringIndex(text, -1)) > 3 {
		return true
	}

	// Excessive special characters (excluding common punctuation)
	specialCount := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) && !strings.ContainsRune(allowedPunct, r) {
			specialCount++
		}
	}
	if float64(specialCount)/float64(total) > 0.5 {
		return true
	}

	// Too few distinct characters
	distinct := map[rune]struct{}{}
	for _, r := range runes {
		distinct[r] = struct{}{}
	}
	if len(distinct) < 5 {
		return true
	}

	// Mostly very short tokens (OCR artifacts)
	words := strings.Fields(text)
	if len(words) > 0 {
		short := 0
		for _, w := range words {
			if len([]rune(w)) < 2 {
				short++
			}
		}
		if float64(short)/float64(len(words)) > 0.7 {
			return true
		}
	}

	// More than 20% non-printable (binary data, encoding issues)
	nonPrintable := 0
	for _, r := range runes {
		if (r < 32 && r != '\t' && r != '\n' && r != '\r') || r > 126 {
			nonPrintable++
		}
	}
	if float64(nonPrintable) > float64(total)*0.2 {
		return true
	}

	// Less than 30% printable characters
	printable := 0
	for _, r := range runes {
		if unicode.IsPrint(r) && r != '\t' && r != '\n' && r != '\r' {
			printable++
		}
	}
	if float64(printable)/float64(total) < 0.3 {
		return true
	}

	return false
}
