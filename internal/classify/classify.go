// Package classify derives a document classification from the leading
// pages of extracted text. The classification steers prompt selection
// and the text-pattern fallback extractor.
package classify

import (
	"regexp"
	"strings"
)

// DocType labels the overall shape of a report.
type DocType string

const (
	TypeStandard    DocType = "standard"
	TypeCompilation DocType = "compilation"
	TypeTermination DocType = "termination"
)

// Classification is derived once per document and read-only afterward.
type Classification struct {
	DocType           DocType
	Institution       string
	InstitutionDomain string
}

// markupEscaper replaces literal markup command substrings before any
// pattern matching, so a markup-heavy document cannot poison the
// heuristics. This is a literal substring replace, not a sanitizer.
var markupEscaper = strings.NewReplacer(
	`\hline`, "_HLINE_",
	`\begin`, "_BEGIN_",
	`\end`, "_END_",
	`\section`, "_SECTION_",
	`\\`, "_NEWLINE_",
	`\tabular`, "_TABULAR_",
	`\multicolumn`, "_MULTICOL_",
	`\cite`, "_CITE_",
	`\ref`, "_REF_",
)

// EscapeMarkup applies the literal replacement table.
func EscapeMarkup(text string) string {
	if text == "" {
		return ""
	}
	return markupEscaper.Replace(text)
}

// Compilation signals are checked before termination signals; a table
// of contents with per-section analysts wins even when the same report
// also announces dropped coverage.
var compilationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Page\s+Headline\s+Analyst`),
	regexp.MustCompile(`(?i)Table of Contents.*Analyst`),
	regexp.MustCompile(`(?i)SECTION.*AUTHOR`),
	regexp.MustCompile(`(?i)Contents.*Author`),
	regexp.MustCompile(`(?i)Analyst:\s*[A-Z][a-z]+`),
	regexp.MustCompile(`(?i)\|\s*Analyst\s*\|`),
}

var terminationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Termination of Coverage`),
	regexp.MustCompile(`(?i)owing to the (?:primary )?analyst's departure`),
	regexp.MustCompile(`(?i)we are [tT]erminating [cC]overage`),
	regexp.MustCompile(`(?i)terminating coverage for the following names`),
	regexp.MustCompile(`(?i)terminating our coverage of`),
	regexp.MustCompile(`(?i)terminating research coverage`),
}

// institutions maps known publisher names to their canonical email
// domains. Iteration order matters: the first substring hit wins.
var institutions = []struct {
	Name   string
	Domain string
}{
	{"stephens", "stephens.com"},
	{"wells fargo", "wellsfargo.com"},
	{"morgan stanley", "morganstanley.com"},
	{"goldman sachs", "gs.com"},
	{"jp morgan", "jpmorgan.com"},
	{"credit suisse", "credit-suisse.com"},
	{"ubs", "ubs.com"},
	{"barclays", "barclays.com"},
	{"citigroup", "citi.com"},
	{"deutsche bank", "db.com"},
	{"bank of america", "bofa.com"},
	{"jefferies", "jefferies.com"},
	{"cowen", "cowen.com"},
}

// DetectDocType classifies the document from a bounded text prefix.
func DetectDocType(text string) DocType {
	if text == "" {
		return TypeStandard
	}
	text = EscapeMarkup(text)
	for _, p := range compilationPatterns {
		if p.MatchString(text) {
			return TypeCompilation
		}
	}
	for _, p := range terminationPatterns {
		if p.MatchString(text) {
			return TypeTermination
		}
	}
	return TypeStandard
}

// IdentifyInstitution returns the publishing institution and its
// canonical email domain, or empty strings when no entry matches.
func IdentifyInstitution(text string) (name, domain string) {
	if text == "" {
		return "", ""
	}
	lower := strings.ToLower(text)
	for _, inst := range institutions {
		if strings.Contains(lower, inst.Name) {
			return inst.Name, inst.Domain
		}
	}
	return "", ""
}

// Classify runs both detections, honoring the feature toggles.
func Classify(text string, detectType, detectInstitution bool) Classification {
	c := Classification{DocType: TypeStandard}
	if detectType {
		c.DocType = DetectDocType(text)
	}
	if detectInstitution {
		c.Institution, c.InstitutionDomain = IdentifyInstitution(text)
	}
	return c
}
