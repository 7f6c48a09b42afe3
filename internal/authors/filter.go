package authors

import (
	"regexp"
	"strings"
)

// nonAuthorKeywords trips the acceptance filter when a short "name" is
// really an organizational label ("Research Department" looks like a
// two-token person name otherwise).
var nonAuthorKeywords = []string{
	"Securities", "Equity", "Research", "Capital", "Markets", "Group", "LLC", "Inc.",
	"Limited", "Advisors", "Asset", "Management", "Financial", "Bank", "Investment",
	"Corporation", "Department", "Contents", "Disclaimer", "Publication", "Report",
}

var nonAuthorKeywordSet = buildKeywordSet()

func buildKeywordSet() map[string]bool {
	set := make(map[string]bool, len(nonAuthorKeywords))
	for _, kw := range nonAuthorKeywords {
		set[strings.ToLower(kw)] = true
	}
	return set
}

// roleTokens are rejected outright when they are the whole name.
var roleTokens = map[string]bool{
	"CFA": true, "PHD": true, "MD": true, "ANALYST": true,
	"AUTHOR": true, "CONTACT": true, "TEAM": true,
}

// acceptName reports whether a cleaned name plausibly identifies a
// person rather than a label or a stray fragment.
func acceptName(name string) bool {
	if name == "" {
		return false
	}
	tokens := strings.Fields(name)
	if len(tokens) < 2 && len(name) < 3 {
		return false
	}
	if roleTokens[strings.ToUpper(name)] {
		return false
	}
	if len(tokens) <= 3 {
		hasKeyword := false
		endsComma := false
		for _, tok := range tokens {
			if nonAuthorKeywordSet[strings.ToLower(tok)] {
				hasKeyword = true
			}
			if strings.HasSuffix(tok, ",") {
				endsComma = true
			}
		}
		if hasKeyword && !endsComma {
			return false
		}
	}
	return true
}

// Institutional-author detection: departments, teams and desks slip
// through the model as "authors" and must never reach the result
// table.
var institutionalNameRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Research\s+(?:Analysts|Department)`),
	regexp.MustCompile(`(?i)[A-Z]{2,}\s+(?:US\s+)?Eq\.\s+Res`),
	regexp.MustCompile(`(?i)Equity\s+Research`),
	regexp.MustCompile(`(?i)Securities\s+Research`),
	regexp.MustCompile(`(?i)Investment\s+Research`),
	regexp.MustCompile(`(?i)Global\s+Research`),
	regexp.MustCompile(`(?i)Research\s+Team`),
	regexp.MustCompile(`(?i)Research\s+Desk`),
}

var institutionalKeywords = []string{
	"US Eq. Res", "Eq. Res", "Research Team", "Research Dept",
	"Equity Research", "Global Research", "Research Division",
	"Research Analysts", "Credit Suisse Research",
}

var genericEmailRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)equity\.research@`),
	regexp.MustCompile(`(?i)research@`),
	regexp.MustCompile(`(?i)info@`),
	regexp.MustCompile(`(?i)contact@`),
	regexp.MustCompile(`(?i)^[a-z]+@`), // plain single-word local part
}

var institutionalTitleRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Department$`),
	regexp.MustCompile(`(?i)^Team$`),
	regexp.MustCompile(`(?i)^Group$`),
}

// IsInstitutional reports whether a record names a department, team or
// role rather than an individual person.
func IsInstitutional(rec Record) bool {
	if rec.Name == "" {
		return false
	}
	for _, re := range institutionalNameRes {
		if re.MatchString(rec.Name) {
			return true
		}
	}
	lowerName := strings.ToLower(rec.Name)
	for _, kw := range institutionalKeywords {
		if strings.Contains(lowerName, strings.ToLower(kw)) {
			return true
		}
	}
	if rec.Email != "" {
		for _, re := range genericEmailRes {
			if re.MatchString(rec.Email) {
				return true
			}
		}
	}
	if rec.Title != "" {
		for _, re := range institutionalTitleRes {
			if re.MatchString(rec.Title) {
				return true
			}
		}
	}
	return len(strings.Fields(rec.Name)) < 2
}

// FilterInstitutional removes institutional records entirely; they are
// never merged into person records.
func FilterInstitutional(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		if IsInstitutional(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
