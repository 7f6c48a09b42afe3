package results

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/local/authorscan/internal/authors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "author_extraction_results.csv"))
}

func readTable(t *testing.T, s *Store) [][]string {
	t.Helper()
	f, err := os.Open(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestKey(t *testing.T) {
	if got := Key("/data/reports/report_key_12.pdf"); got != "report_key_12" {
		t.Fatalf("Key = %q", got)
	}
}

func TestMergeCreatesTable(t *testing.T) {
	s := newStore(t)
	err := s.Merge("doc1", []authors.Record{{Name: "Jane Doe", Title: "Analyst", Email: "j@x.com"}})
	if err != nil {
		t.Fatal(err)
	}
	rows := readTable(t, s)
	if len(rows) != 2 {
		t.Fatalf("expected header+1 row, got %d rows", len(rows))
	}
	wantWidth := 1 + 3*5 // filename + 5 author slots
	if len(rows[0]) != wantWidth || len(rows[1]) != wantWidth {
		t.Fatalf("expected width %d, got header=%d row=%d", wantWidth, len(rows[0]), len(rows[1]))
	}
	if rows[0][0] != "filename" || rows[0][1] != "author_1_name" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "doc1" || rows[1][1] != "Jane Doe" || rows[1][3] != "j@x.com" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestMergeReplacesNotDuplicates(t *testing.T) {
	s := newStore(t)
	if err := s.Merge("doc1", []authors.Record{{Name: "Jane Doe"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Merge("doc2", []authors.Record{{Name: "Bob Lee"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Merge("doc1", []authors.Record{{Name: "Mary Jones"}}); err != nil {
		t.Fatal(err)
	}
	rows := readTable(t, s)
	if len(rows) != 3 {
		t.Fatalf("expected header+2 rows, got %d", len(rows))
	}
	// doc1 keeps its original position and reflects the second merge.
	if rows[1][0] != "doc1" || rows[1][1] != "Mary Jones" {
		t.Fatalf("row not replaced in place: %v", rows[1])
	}
	if rows[2][0] != "doc2" || rows[2][1] != "Bob Lee" {
		t.Fatalf("sibling row disturbed: %v", rows[2])
	}
}

func TestWidthMonotonicAndCellsPreserved(t *testing.T) {
	s := newStore(t)
	if err := s.Merge("doc1", []authors.Record{{Name: "Jane Doe", Title: "Analyst", Email: "j@x.com"}}); err != nil {
		t.Fatal(err)
	}
	widthBefore := len(readTable(t, s)[0])

	seven := make([]authors.Record, 7)
	for i := range seven {
		seven[i] = authors.Record{Name: "Author Name"}
	}
	if err := s.Merge("doc2", seven); err != nil {
		t.Fatal(err)
	}
	rows := readTable(t, s)
	widthAfter := len(rows[0])
	if widthAfter <= widthBefore {
		t.Fatalf("width did not grow: before=%d after=%d", widthBefore, widthAfter)
	}
	if widthAfter != 1+3*7 {
		t.Fatalf("expected width %d, got %d", 1+3*7, widthAfter)
	}
	for _, row := range rows {
		if len(row) != widthAfter {
			t.Fatalf("row not padded to new width: %v", row)
		}
	}
	// Previously written cells survive the widening.
	if rows[1][0] != "doc1" || rows[1][1] != "Jane Doe" || rows[1][2] != "Analyst" || rows[1][3] != "j@x.com" {
		t.Fatalf("doc1 cells lost after widening: %v", rows[1])
	}

	// Narrow merges after widening keep the wide header.
	if err := s.Merge("doc3", []authors.Record{{Name: "Solo Author"}}); err != nil {
		t.Fatal(err)
	}
	rows = readTable(t, s)
	if len(rows[0]) != widthAfter {
		t.Fatalf("width shrank from %d to %d", widthAfter, len(rows[0]))
	}
}

func TestMergeEmptyAuthorList(t *testing.T) {
	s := newStore(t)
	if err := s.Merge("doc1", nil); err != nil {
		t.Fatal(err)
	}
	rows := readTable(t, s)
	if len(rows) != 2 || rows[1][0] != "doc1" {
		t.Fatalf("unexpected table: %v", rows)
	}
	for _, cell := range rows[1][1:] {
		if cell != "" {
			t.Fatalf("expected empty author cells, got %v", rows[1])
		}
	}
}

func TestProcessedKeys(t *testing.T) {
	s := newStore(t)
	if keys := s.ProcessedKeys(); len(keys) != 0 {
		t.Fatalf("expected no keys for missing table, got %v", keys)
	}
	_ = s.Merge("doc1", nil)
	_ = s.Merge("doc2", []authors.Record{{Name: "Jane Doe"}})
	keys := s.ProcessedKeys()
	if !keys["doc1"] || !keys["doc2"] || len(keys) != 2 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
