// Package authors turns the multiset of noisy per-page author records
// reported by the vision model into a canonical, deduplicated author
// list for one document.
package authors

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Record is one extracted author. Fields are plain strings; the zero
// value means "unknown".
type Record struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Email string `json:"email"`
}

// FromUntrusted coerces a decoded JSON payload into records. The model
// output is an external schema: entries that are not objects, or whose
// fields are not strings, are logged and skipped rather than
// propagated inward.
func FromUntrusted(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			log.Debug().Interface("entry", item).Msg("skipping non-object author entry")
			continue
		}
		rec := Record{
			Name:  stringField(m, "name"),
			Title: stringField(m, "title"),
			Email: stringField(m, "email"),
		}
		out = append(out, rec)
	}
	return out
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
