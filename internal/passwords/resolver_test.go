package passwords

import (
	"os"
	"path/filepath"
	"testing"
)

func deref(t *testing.T, p *string) string {
	t.Helper()
	if p == nil {
		t.Fatal("unexpected nil candidate")
	}
	return *p
}

func TestCandidates_Order(t *testing.T) {
	r := NewResolver("default-pw")
	pdf := filepath.Join(t.TempDir(), "doc.pdf")

	got := r.Candidates(pdf, "row-pw")
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if deref(t, got[0]) != "row-pw" {
		t.Errorf("first candidate = %q, want row-pw", deref(t, got[0]))
	}
	if deref(t, got[1]) != "default-pw" {
		t.Errorf("second candidate = %q, want default-pw", deref(t, got[1]))
	}
	if got[2] != nil {
		t.Error("last candidate must be the nil sentinel")
	}
}

func TestCandidates_DeduplicatesFirstOccurrence(t *testing.T) {
	r := NewResolver("same")
	pdf := filepath.Join(t.TempDir(), "doc.pdf")

	got := r.Candidates(pdf, "same")
	if len(got) != 2 {
		t.Fatalf("expected provided+nil after dedup, got %d candidates", len(got))
	}
	if deref(t, got[0]) != "same" || got[1] != nil {
		t.Errorf("unexpected candidates %v", got)
	}
}

func TestCandidates_NoDefault(t *testing.T) {
	r := NewResolver("")
	pdf := filepath.Join(t.TempDir(), "doc.pdf")

	got := r.Candidates(pdf, "")
	if len(got) != 1 || got[0] != nil {
		t.Fatalf("expected only the nil sentinel, got %v", got)
	}
}

func TestSaveSuccessful_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver("")
	pdf := filepath.Join(dir, "report.pdf")

	if err := r.SaveSuccessful(pdf, "s3cret"); err != nil {
		t.Fatalf("SaveSuccessful: %v", err)
	}

	// A fresh resolver must find it via the CSV.
	r2 := NewResolver("")
	saved := r2.LoadSaved(filepath.Join(dir, "other.pdf"))
	if saved["report.pdf"] != "s3cret" {
		t.Errorf("CSV round trip failed, got %v", saved)
	}

	got := r2.Candidates(pdf, "")
	if len(got) < 2 || deref(t, got[0]) != "s3cret" {
		t.Errorf("expected CSV password first, got %v", got)
	}
}

func TestSaveSuccessful_RewritesSorted(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver("")

	if err := r.SaveSuccessful(filepath.Join(dir, "zebra.pdf"), "z"); err != nil {
		t.Fatal(err)
	}
	if err := r.SaveSuccessful(filepath.Join(dir, "alpha.pdf"), "a"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, CSVName))
	if err != nil {
		t.Fatal(err)
	}
	want := "pdf_filename,password\nalpha.pdf,a\nzebra.pdf,z\n"
	if string(data) != want {
		t.Errorf("csv content:\n%s\nwant:\n%s", data, want)
	}
}

func TestLoadSaved_HeaderOnlyOnExactMatch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, CSVName)
	content := "some.pdf,pw1\npdf_filename,password\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver("")
	saved := r.LoadSaved(filepath.Join(dir, "any.pdf"))
	if saved["some.pdf"] != "pw1" {
		t.Errorf("first data row dropped: %v", saved)
	}
	// A non-leading header row is treated as data.
	if saved["pdf_filename"] != "password" {
		t.Errorf("expected literal row kept as data, got %v", saved)
	}
}

func TestLoadSaved_MissingFile(t *testing.T) {
	r := NewResolver("")
	saved := r.LoadSaved(filepath.Join(t.TempDir(), "ghost.pdf"))
	if len(saved) != 0 {
		t.Errorf("expected empty map, got %v", saved)
	}
}
