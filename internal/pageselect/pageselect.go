// Package pageselect decides which pages of a document are rendered
// for the vision model.
package pageselect

import "sort"

// Mode names a page-selection strategy.
type Mode string

const (
	ModeAll    Mode = "all"
	ModeRange  Mode = "range"
	ModeFirstN Mode = "first_n"
)

// Options configures page selection. Range bounds are 1-based and
// inclusive, matching the config file format.
type Options struct {
	Mode               Mode
	FirstN             int
	RangeStart         int
	RangeEnd           int
	AlwaysIncludeFirst bool
}

// Pages returns the strictly increasing 0-based page indices to
// render for a document with totalPages pages. An empty document
// yields an empty selection in every mode.
func Pages(totalPages int, opts Options) []int {
	if totalPages <= 0 {
		return nil
	}

	var pages []int
	switch opts.Mode {
	case ModeFirstN:
		n := opts.FirstN
		if n <= 0 || n > totalPages {
			n = totalPages
		}
		pages = sequence(0, n-1)
	case ModeRange:
		start := opts.RangeStart - 1
		end := opts.RangeEnd - 1
		if start < 0 {
			start = 0
		}
		if end > totalPages-1 {
			end = totalPages - 1
		}
		if start > end || start >= totalPages {
			// Invalid range falls back to the first page alone.
			pages = []int{0}
		} else {
			pages = sequence(start, end)
		}
	default: // ModeAll
		pages = sequence(0, totalPages-1)
	}

	if opts.AlwaysIncludeFirst && len(pages) > 0 && pages[0] != 0 {
		pages = append([]int{0}, pages...)
		sort.Ints(pages)
	}
	return pages
}

func sequence(start, end int) []int {
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}
