package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports_metadata.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFilter(t *testing.T, csvContent string) *Filter {
	t.Helper()
	f, err := Load(Options{
		CSVPath:   writeCSV(t, csvContent),
		IDPattern: `key_(\d+)`,
		SkipTerms: []string{"termination", "drop coverage"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

const sampleCSV = `document_id,headline
key_100,Initiating coverage of Widgets Inc
key_200,Termination of coverage due to analyst departure
key_300,"We drop coverage, effective today"
`

func TestShouldSkip(t *testing.T) {
	f := newFilter(t, sampleCSV)
	tests := []struct {
		filename string
		want     bool
	}{
		{"report_key_100.pdf", false},
		{"report_key_200.pdf", true},
		{"key_300_final.pdf", true},
		{"key_999.pdf", false},        // unknown id: fail open
		{"no_id_here.pdf", false},     // unmatched pattern: fail open
	}
	for _, tt := range tests {
		got, _ := f.ShouldSkip(tt.filename)
		if got != tt.want {
			t.Fatalf("ShouldSkip(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestShouldSkipReportsTerm(t *testing.T) {
	f := newFilter(t, sampleCSV)
	skip, term := f.ShouldSkip("key_200.pdf")
	if !skip || term != "termination" {
		t.Fatalf("got (%v, %q), want (true, termination)", skip, term)
	}
}

func TestDocumentID(t *testing.T) {
	f := newFilter(t, sampleCSV)
	if id := f.DocumentID("/data/reports/report_key_1234.pdf"); id != "key_1234" {
		t.Fatalf("DocumentID = %q, want key_1234", id)
	}
	if id := f.DocumentID("plain.pdf"); id != "" {
		t.Fatalf("DocumentID = %q, want empty", id)
	}
}

func TestLoadMissingCSVFailsOpen(t *testing.T) {
	f, err := Load(Options{CSVPath: "/nonexistent/metadata.csv", IDPattern: `key_(\d+)`, SkipTerms: []string{"termination"}})
	if err != nil {
		t.Fatal(err)
	}
	if skip, _ := f.ShouldSkip("key_200.pdf"); skip {
		t.Fatal("missing metadata must never skip")
	}
}

func TestLoadBadPattern(t *testing.T) {
	if _, err := Load(Options{IDPattern: `key_(\d+`}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
