package authors

import (
	"regexp"
	"strings"
)

// maxNameLength is the point past which a "name" is assumed to have
// swallowed surrounding page furniture and gets truncated.
const maxNameLength = 70

// credentialRule rewrites one credential spelling to its canonical
// form. Rules run in order over the whole name.
type credentialRule struct {
	pattern *regexp.Regexp
	canon   string
}

var credentialRules = []credentialRule{
	{regexp.MustCompile(`(?i)\bcfa\b\.?`), "CFA"},
	{regexp.MustCompile(`(?i)\bph\.?\s*d\b\.?`), "PhD"},
	{regexp.MustCompile(`(?i)\bm\.?\s*d\b\.?`), "MD"},
}

// credentials in canonical form, used for set extraction and
// base-name stripping.
var credentials = []string{"CFA", "PhD", "MD"}

var (
	commaSpacingRe = regexp.MustCompile(`\s*,\s*`)
	credentialSetRe = regexp.MustCompile(`(?i)(CFA|PhD|MD)`)
	nameSuffixRe    = regexp.MustCompile(`(?i)\b(Jr\.?|Sr\.?|I{2,3}|IV|V)\b`)
	digitsRe        = regexp.MustCompile(`\d+`)
)

// truncation delimiters tried, in order, when a name exceeds
// maxNameLength. Credential delimiters keep the credential; the
// newline and parenthesis cut before the delimiter.
var nameDelimiters = []struct {
	text string
	keep bool
}{
	{", Ph.D.", true},
	{", PhD", true},
	{", CFA", true},
	{", M.D.", true},
	{", MD", true},
	{"\n", false},
	{" (", false},
}

// nameKeywords is the organizational/section vocabulary stripped out
// of names: the keyword and everything after it goes, and a leading
// occurrence goes too.
var nameKeywords = []string{
	"SECURITIES", "LLC", "EQUITY", "RESEARCH", "DEPARTMENT",
	"Newsletter", "WELLS FARGO", "Corporation", "CORP",
	"INC", "LTD", "COMPANY", "SECTION", "CONTENTS", "DISCLAIMER",
	"DISCLOSURES", "PUBLICATION", "PAGE", "REPORT", "TMT",
	"Edition", "Conference", "Market", "GLOBAL", "STRATEGY",
	"INVESTMENT", "BANKING", "GROUP", "ASSOCIATES", "ANALYSIS",
	"CONTACT", "INFORMATION", "APPENDIX", "INDEX",
}

// keywordRule holds the compiled strip patterns for one keyword.
type keywordRule struct {
	tail    *regexp.Regexp // keyword and everything after it
	leading *regexp.Regexp // keyword at the start of the name
}

var keywordRules = buildKeywordRules()

func buildKeywordRules() []keywordRule {
	rules := make([]keywordRule, 0, len(nameKeywords))
	for _, kw := range nameKeywords {
		q := regexp.QuoteMeta(kw)
		rules = append(rules, keywordRule{
			tail:    regexp.MustCompile(`(?i)\b` + q + `\b.*$`),
			leading: regexp.MustCompile(`(?i)^` + q + `\s+`),
		})
	}
	return rules
}

// NormalizeCredentials canonicalizes comma spacing and credential
// spellings (cfa -> CFA, Ph.D. -> PhD, m.d. -> MD).
func NormalizeCredentials(name string) string {
	if name == "" {
		return ""
	}
	name = commaSpacingRe.ReplaceAllString(name, ", ")
	for _, rule := range credentialRules {
		name = rule.pattern.ReplaceAllString(name, rule.canon)
	}
	return strings.TrimSpace(name)
}

// CleanName strips page furniture out of a raw author name: collapses
// whitespace, truncates overlong captures at a credential delimiter,
// removes the organizational keyword vocabulary, canonicalizes
// credentials, and drops stray digits unless the name carries a
// generational suffix.
func CleanName(name string) string {
	if name == "" {
		return ""
	}
	name = collapseSpace(name)

	if len(name) > maxNameLength {
		lower := strings.ToLower(name)
		for _, d := range nameDelimiters {
			idx := strings.Index(lower, strings.ToLower(d.text))
			if idx < 0 {
				continue
			}
			if d.keep {
				name = name[:idx+len(d.text)]
			} else {
				name = name[:idx]
			}
			break
		}
	}

	for _, rule := range keywordRules {
		name = strings.TrimSpace(rule.tail.ReplaceAllString(name, ""))
		name = strings.TrimSpace(rule.leading.ReplaceAllString(name, ""))
	}

	name = strings.Trim(name, "., \t\n")
	name = NormalizeCredentials(name)

	if len(name) > maxNameLength {
		fields := strings.Fields(name)
		if len(fields) > 5 {
			fields = fields[:5]
		}
		name = strings.Join(fields, " ")
		name = strings.Trim(name, "., \t\n")
		name = NormalizeCredentials(name)
	}

	// Digits in a name are usually a leaked page number, unless the
	// name legitimately ends in a generational suffix.
	if !nameSuffixRe.MatchString(name) {
		name = strings.TrimSpace(digitsRe.ReplaceAllString(name, ""))
	}

	return collapseSpace(name)
}

var credentialStripRes = buildCredentialStripRes()

func buildCredentialStripRes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, 2*len(credentials))
	for _, cred := range credentials {
		q := regexp.QuoteMeta(cred)
		res = append(res,
			regexp.MustCompile(`(?i),\s*`+q+`\b`),
			regexp.MustCompile(`(?i)\s+`+q+`\b`))
	}
	return res
}

// BaseName returns the dedup key for a name: credentials stripped,
// anything after the first comma dropped, lowercased.
func BaseName(name string) string {
	s := name
	for _, re := range credentialStripRes {
		s = re.ReplaceAllString(s, "")
	}
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// CredentialSet returns the canonical credentials present in a name,
// uppercased for set comparison.
func CredentialSet(name string) map[string]bool {
	set := make(map[string]bool)
	for _, m := range credentialSetRe.FindAllString(name, -1) {
		set[strings.ToUpper(m)] = true
	}
	return set
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
