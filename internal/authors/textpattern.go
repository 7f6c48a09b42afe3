package authors

import (
	"regexp"
	"strings"

	"github.com/local/authorscan/internal/classify"
)

// Text-pattern extraction is the second stage of the fallback state
// machine: it runs against the raw extracted text only when image
// extraction produced nothing, and its output is never merged with
// image results.

// Credit Suisse byline format: Name / Title / Phone / Email.
var creditSuisseBylineRe = regexp.MustCompile(
	`([A-Z][a-z]+\s+[A-Z][a-zA-Z\-']+)\s*/\s*([^/]+)\s*/\s*([\d\s\+\-\.]+)\s*/\s*([a-zA-Z0-9.\-_]+@[a-zA-Z0-9\-_.]+\.[a-zA-Z]{2,})`)

// Termination notices sometimes attribute the dropped coverage to a
// named former analyst.
var formerAnalystRe = regexp.MustCompile(
	`(?i)(?:former|previous)\s+(?:analyst|author|coverage)\s+(?:was|by)?\s+([A-Z][a-z]+\s+[A-Z][a-zA-Z\-']+)`)

// FromTextPatterns extracts authors from raw document text using
// institution-specific patterns. Used only as the image-extraction
// fallback.
func FromTextPatterns(text string, c classify.Classification) []Record {
	if text == "" {
		return nil
	}
	var out []Record

	if strings.Contains(strings.ToLower(c.Institution), "credit suisse") {
		for _, m := range creditSuisseBylineRe.FindAllStringSubmatch(text, -1) {
			rec := Record{
				Name:  CleanName(m[1]),
				Title: strings.TrimSpace(m[2]),
				Email: strings.TrimSpace(m[4]),
			}
			if rec.Name != "" && !IsInstitutional(rec) {
				out = append(out, rec)
			}
		}
	}

	if c.DocType == classify.TypeTermination {
		for _, m := range formerAnalystRe.FindAllStringSubmatch(text, -1) {
			rec := Record{Name: CleanName(m[1]), Title: "Former Analyst"}
			if rec.Name != "" && !IsInstitutional(Record{Name: rec.Name}) {
				out = append(out, rec)
			}
		}
	}

	return out
}
