package passwords

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// CSVName is the per-directory password cache file.
const CSVName = "file_passwords.csv"

var csvHeader = []string{"pdf_filename", "password"}

// Resolver produces ordered password candidates for encrypted PDFs and
// remembers the ones that worked, in memory and in a CSV next to the PDFs.
type Resolver struct {
	defaultPassword string

	mu    sync.Mutex
	cache map[string]string // pdf basename -> password
}

// NewResolver creates a resolver. defaultPassword may be empty, in which case
// only provided/cached candidates and the no-password attempt remain.
func NewResolver(defaultPassword string) *Resolver {
	return &Resolver{
		defaultPassword: defaultPassword,
		cache:           map[string]string{},
	}
}

// CSVPath returns the password cache file for the directory containing pdfPath.
func CSVPath(pdfPath string) string {
	return filepath.Join(filepath.Dir(pdfPath), CSVName)
}

// Candidates returns up to 5 password candidates in priority order:
// provided, CSV-cached, memory-cached, default, then a nil sentinel meaning
// "try without a password". Duplicates keep their first occurrence.
func (r *Resolver) Candidates(pdfPath, provided string) []*string {
	filename := filepath.Base(pdfPath)

	var out []*string
	seen := map[string]bool{}
	add := func(pw string) {
		if pw == "" || seen[pw] {
			return
		}
		seen[pw] = true
		p := pw
		out = append(out, &p)
	}

	add(provided)

	saved := r.LoadSaved(pdfPath)
	if pw, ok := saved[filename]; ok {
		add(pw)
	}

	r.mu.Lock()
	if pw, ok := r.cache[filename]; ok {
		add(pw)
	}
	r.mu.Unlock()

	add(r.defaultPassword)

	out = append(out, nil)
	return out
}

// LoadSaved reads the CSV cache for the PDF's directory. The header row is
// skipped only when it matches the canonical header exactly; anything else in
// the first row is treated as data.
func (r *Resolver) LoadSaved(pdfPath string) map[string]string {
	passwords := map[string]string{}

	f, err := os.Open(CSVPath(pdfPath))
	if err != nil {
		return passwords
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		log.Warn().Err(err).Str("file", CSVPath(pdfPath)).Msg("failed to read password csv")
		return passwords
	}

	for i, row := range rows {
		if i == 0 && len(row) == 2 && row[0] == csvHeader[0] && row[1] == csvHeader[1] {
			continue
		}
		if len(row) >= 2 {
			passwords[row[0]] = row[1]
		}
	}
	return passwords
}

// SaveSuccessful records a winning password in the in-memory cache and
// rewrites the CSV (header row, sorted by filename).
func (r *Resolver) SaveSuccessful(pdfPath, password string) error {
	filename := filepath.Base(pdfPath)

	r.mu.Lock()
	r.cache[filename] = password
	r.mu.Unlock()

	passwords := r.LoadSaved(pdfPath)
	passwords[filename] = password

	path := CSVPath(pdfPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create password csv dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create password csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	names := make([]string, 0, len(passwords))
	for name := range passwords {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.Write([]string{name, passwords[name]}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	log.Info().Str("file", filename).Str("csv", path).Msg("saved password to cache")
	return nil
}
