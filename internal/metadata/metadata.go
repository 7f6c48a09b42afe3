// Package metadata loads the reports-metadata CSV and decides, from a
// document's headline, whether it should be skipped before any page is
// rendered. Every lookup failure is fail-open: when in doubt, process
// the document.
package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Filter holds the document_id -> headline lookup table, loaded once
// and cached for the process lifetime.
type Filter struct {
	idPattern *regexp.Regexp
	skipTerms []string
	headlines map[string]string
}

// Options configures the filter.
type Options struct {
	CSVPath   string
	IDPattern string // regex applied to the base filename
	SkipTerms []string
}

// Load reads the metadata CSV (must carry document_id and headline
// columns) and compiles the ID pattern. A missing or unreadable CSV
// yields a filter that never skips.
func Load(opts Options) (*Filter, error) {
	f := &Filter{
		skipTerms: opts.SkipTerms,
		headlines: make(map[string]string),
	}

	if opts.IDPattern != "" {
		re, err := regexp.Compile(opts.IDPattern)
		if err != nil {
			return nil, fmt.Errorf("compile id pattern %q: %w", opts.IDPattern, err)
		}
		f.idPattern = re
	}

	if opts.CSVPath == "" {
		return f, nil
	}
	file, err := os.Open(opts.CSVPath)
	if err != nil {
		log.Warn().Err(err).Str("path", opts.CSVPath).Msg("metadata csv unavailable; filtering disabled")
		return f, nil
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		log.Warn().Err(err).Str("path", opts.CSVPath).Msg("metadata csv empty; filtering disabled")
		return f, nil
	}
	idCol, headlineCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "document_id":
			idCol = i
		case "headline":
			headlineCol = i
		}
	}
	if idCol < 0 || headlineCol < 0 {
		log.Warn().Str("path", opts.CSVPath).Msg("metadata csv missing document_id/headline columns")
		return f, nil
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed metadata row")
			continue
		}
		if idCol >= len(row) || headlineCol >= len(row) {
			continue
		}
		f.headlines[row[idCol]] = strings.ToLower(row[headlineCol])
	}
	log.Info().Int("documents", len(f.headlines)).Str("path", opts.CSVPath).Msg("loaded metadata csv")
	return f, nil
}

// DocumentID extracts the metadata key from a filename using the
// configured pattern. Empty when the pattern is unset or does not
// match.
func (f *Filter) DocumentID(filename string) string {
	if f == nil || f.idPattern == nil {
		return ""
	}
	return f.idPattern.FindString(filepath.Base(filename))
}

// ShouldSkip reports whether the document's headline contains a skip
// phrase. Unknown IDs and headlines never skip.
func (f *Filter) ShouldSkip(filename string) (bool, string) {
	if f == nil || len(f.headlines) == 0 {
		return false, ""
	}
	id := f.DocumentID(filename)
	if id == "" {
		return false, ""
	}
	headline, ok := f.headlines[id]
	if !ok {
		return false, ""
	}
	for _, term := range f.skipTerms {
		if term == "" {
			continue
		}
		if strings.Contains(headline, strings.ToLower(term)) {
			return true, term
		}
	}
	return false, ""
}
