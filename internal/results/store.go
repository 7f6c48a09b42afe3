// Package results persists extracted authors into a growing CSV
// table. The column set is not fixed: it widens to fit the largest
// author list ever written and never shrinks. Merges are whole-file
// rewrites, so callers must serialize writes (the dispatcher funnels
// every merge through a single writer goroutine).
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/authorscan/internal/authors"
)

// minAuthorSlots is the floor for the number of (name, title, email)
// column triplets in a fresh table.
const minAuthorSlots = 5

// Store writes one CSV table.
type Store struct {
	path string
}

// New returns a store backed by the CSV file at path. The file is
// created on the first merge.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the table location.
func (s *Store) Path() string { return s.path }

// Key derives the document key for a PDF path: base filename without
// the extension.
func Key(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Merge writes or replaces the row for a document key. The header
// widens when this author list needs more slots than the persisted
// table has; existing rows are re-padded, never truncated.
func (s *Store) Merge(documentKey string, list []authors.Record) error {
	slots := s.requiredSlots(len(list))
	header := buildHeader(slots)
	row := buildRow(documentKey, list, slots)

	rows, err := s.mergeRows(header, row, documentKey)
	if err != nil {
		return err
	}
	return s.writeAll(rows)
}

// requiredSlots computes the author-slot count: at least
// minAuthorSlots, at least the current list, and at least as wide as
// the persisted header.
func (s *Store) requiredSlots(listLen int) int {
	slots := minAuthorSlots
	if listLen > slots {
		slots = listLen
	}
	existing, err := s.readAll()
	if err != nil || len(existing) == 0 {
		return slots
	}
	if n := countAuthorSlots(existing[0]); n > slots {
		slots = n
	}
	return slots
}

func countAuthorSlots(header []string) int {
	n := 0
	for _, col := range header {
		if strings.HasPrefix(col, "author_") && strings.HasSuffix(col, "_name") {
			n++
		}
	}
	return n
}

func buildHeader(slots int) []string {
	header := make([]string, 0, 1+3*slots)
	header = append(header, "filename")
	for i := 1; i <= slots; i++ {
		header = append(header,
			fmt.Sprintf("author_%d_name", i),
			fmt.Sprintf("author_%d_title", i),
			fmt.Sprintf("author_%d_email", i))
	}
	return header
}

func buildRow(documentKey string, list []authors.Record, slots int) []string {
	row := make([]string, 0, 1+3*slots)
	row = append(row, documentKey)
	for i := 0; i < slots; i++ {
		if i < len(list) {
			row = append(row, list[i].Name, list[i].Title, list[i].Email)
		} else {
			row = append(row, "", "", "")
		}
	}
	return row
}

// mergeRows builds the full table content: the widest header, every
// existing row padded to it, and the new row replacing any existing
// row with the same key (same position) or appended.
func (s *Store) mergeRows(header, newRow []string, documentKey string) ([][]string, error) {
	existing, err := s.readAll()
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return [][]string{header, newRow}, nil
	}

	width := len(header)
	out := make([][]string, 0, len(existing)+1)
	out = append(out, header)

	replaced := false
	for _, row := range existing[1:] {
		if len(row) == 0 {
			continue
		}
		if row[0] == documentKey {
			out = append(out, padRow(newRow, width))
			replaced = true
			continue
		}
		out = append(out, padRow(row, width))
	}
	if !replaced {
		out = append(out, padRow(newRow, width))
	}
	return out, nil
}

func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

// readAll loads the persisted table including the header. A missing
// file yields an empty table.
func (s *Store) readAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open result table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read result table: %w", err)
	}
	return rows, nil
}

func (s *Store) writeAll(rows [][]string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create result dir: %w", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create result table: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write result table: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush result table: %w", err)
	}
	return f.Close()
}

// ProcessedKeys returns the document keys already present in the
// table, for skip-processed filtering.
func (s *Store) ProcessedKeys() map[string]bool {
	keys := make(map[string]bool)
	rows, err := s.readAll()
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("could not read processed keys")
		return keys
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		keys[row[0]] = true
	}
	return keys
}
