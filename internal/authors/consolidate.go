package authors

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)`)
	phoneRe         = regexp.MustCompile(`(\+\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	emailRe         = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	localPartRe     = regexp.MustCompile(`^([a-zA-Z0-9.\-_]+)(?:@.+)?$`)
)

// CleanRecords applies the per-record normalization stages to one
// page's raw output: name cleaning, the acceptance filter, title
// cleaning with credential migration, and email extraction. Malformed
// records are skipped, never fatal.
func CleanRecords(raw []Record) []Record {
	out := make([]Record, 0, len(raw))
	for _, rec := range raw {
		name := CleanName(rec.Name)
		if !acceptName(name) {
			log.Debug().Str("raw", rec.Name).Str("cleaned", name).Msg("dropping non-author name")
			continue
		}

		title := rec.Title
		if title != "" {
			title = parentheticalRe.ReplaceAllString(title, "")
			title = phoneRe.ReplaceAllString(title, "")
			title = emailRe.ReplaceAllString(title, "")
			title = collapseSpace(title)
			name, title = migrateCredentials(name, title)
		}

		email := ""
		if rec.Email != "" {
			// A garbled field may concatenate several addresses; the
			// first valid one wins.
			email = emailRe.FindString(rec.Email)
		}

		out = append(out, Record{Name: name, Title: title, Email: email})
	}
	return out
}

type credMigration struct {
	cred  string
	word  *regexp.Regexp
	strip *regexp.Regexp
}

var credMigrations = buildCredMigrations()

func buildCredMigrations() []credMigration {
	out := make([]credMigration, 0, len(credentials))
	for _, cred := range credentials {
		q := regexp.QuoteMeta(cred)
		out = append(out, credMigration{
			cred:  cred,
			word:  regexp.MustCompile(`(?i)\b` + q + `\b`),
			strip: regexp.MustCompile(`(?i)\s*,?\s*\b` + q + `\b`),
		})
	}
	return out
}

// migrateCredentials moves credentials that the model put in the title
// into the name, where the dedup stage expects them.
func migrateCredentials(name, title string) (string, string) {
	for _, m := range credMigrations {
		if !m.word.MatchString(title) || m.word.MatchString(name) {
			continue
		}
		name = name + ", " + strings.ToUpper(m.cred)
		title = collapseSpace(m.strip.ReplaceAllString(title, ""))
	}
	return NormalizeCredentials(name), title
}

// PrioritizeFirstPage moves authors whose base name was seen on page
// zero ahead of the rest, preserving relative order in each partition.
func PrioritizeFirstPage(all, firstPage []Record) []Record {
	if len(all) == 0 || len(firstPage) == 0 {
		return all
	}
	seen := make(map[string]bool, len(firstPage))
	for _, rec := range firstPage {
		if rec.Name == "" {
			continue
		}
		seen[BaseName(rec.Name)] = true
	}
	if len(seen) == 0 {
		return all
	}
	prioritized := make([]Record, 0, len(all))
	var remaining []Record
	for _, rec := range all {
		if seen[BaseName(rec.Name)] {
			prioritized = append(prioritized, rec)
		} else {
			remaining = append(remaining, rec)
		}
	}
	return append(prioritized, remaining...)
}

// CorrectEmailDomain rewrites an email onto the institution's
// canonical domain when the current domain does not match. The local
// part is kept verbatim when the address parses; otherwise the whole
// field is reused as the local part.
func CorrectEmailDomain(email, institutionDomain string) string {
	if email == "" || institutionDomain == "" {
		return email
	}
	if at := strings.Index(email, "@"); at >= 0 && strings.Contains(email[at+1:], ".") {
		if strings.EqualFold(email[at+1:], institutionDomain) {
			return email
		}
	}
	if m := localPartRe.FindStringSubmatch(email); m != nil {
		return m[1] + "@" + institutionDomain
	}
	return email
}

// Standardize groups records by base name and collapses each group to
// a single winner. The winner is the record with the larger credential
// set; ties go to the longer full name (a heuristic: longer can mean
// more boilerplate, not more information). Losing records donate their
// title and email when the winner lacks them, and the winner's name is
// rewritten with the sorted, uppercased union of the group's
// credentials whenever the union adds to it. Output order is
// first-occurrence-by-group.
func Standardize(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}
	byBase := make(map[string]Record)
	order := make([]string, 0, len(records))

	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		rec.Name = NormalizeCredentials(rec.Name)
		base := BaseName(rec.Name)
		if base == "" {
			continue
		}

		existing, ok := byBase[base]
		if !ok {
			byBase[base] = rec
			order = append(order, base)
			continue
		}

		cur := CredentialSet(rec.Name)
		prev := CredentialSet(existing.Name)

		var winner, loser Record
		if len(cur) > len(prev) || (len(cur) == len(prev) && len(rec.Name) > len(existing.Name)) {
			winner, loser = rec, existing
		} else {
			winner, loser = existing, rec
		}
		if winner.Title == "" {
			winner.Title = loser.Title
		}
		if winner.Email == "" {
			winner.Email = loser.Email
		}

		union := CredentialSet(winner.Name)
		added := false
		for c := range CredentialSet(loser.Name) {
			if !union[c] {
				union[c] = true
				added = true
			}
		}
		if added {
			winner.Name = rebuildName(BaseName(winner.Name), winner.Name, union)
		}
		byBase[base] = winner
	}

	out := make([]Record, 0, len(order))
	for _, base := range order {
		out = append(out, byBase[base])
	}
	return out
}

// rebuildName reattaches the credential union to the winner's base
// name, preserving the original casing of the base.
func rebuildName(baseLower, fullName string, creds map[string]bool) string {
	base := fullName
	for _, re := range credentialStripRes {
		base = re.ReplaceAllString(base, "")
	}
	if i := strings.Index(base, ","); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	if base == "" {
		base = baseLower
	}
	if len(creds) == 0 {
		return base
	}
	list := make([]string, 0, len(creds))
	for c := range creds {
		list = append(list, strings.ToUpper(c))
	}
	sort.Strings(list)
	return base + ", " + strings.Join(list, ", ")
}

// ConsolidateOptions gates the config-dependent consolidation stages.
type ConsolidateOptions struct {
	PrioritizeFirstPage bool
	CorrectEmailDomains bool
	InstitutionDomain   string
}

// Consolidate runs the document-level stages over the full multiset of
// cleaned records: institutional exclusion, first-page prioritization,
// email-domain correction, and credential standardization with
// deduplication. firstPage holds the cleaned records from page zero.
func Consolidate(records, firstPage []Record, opts ConsolidateOptions) []Record {
	records = FilterInstitutional(records)
	if opts.PrioritizeFirstPage {
		records = PrioritizeFirstPage(records, firstPage)
	}
	if opts.CorrectEmailDomains && opts.InstitutionDomain != "" {
		for i := range records {
			if records[i].Email != "" {
				records[i].Email = CorrectEmailDomain(records[i].Email, opts.InstitutionDomain)
			}
		}
	}
	return Standardize(records)
}
