package authors

import (
	"reflect"
	"testing"

	"github.com/local/authorscan/internal/classify"
)

func fakeClassification(institution, docType string) classify.Classification {
	return classify.Classification{
		DocType:     classify.DocType(docType),
		Institution: institution,
	}
}

func TestCleanRecords(t *testing.T) {
	raw := []Record{
		{Name: "Jane Doe", Title: "Senior Analyst (Consumer) +1 212 555 1234 jane@x.com"},
		{Name: "John A. Smith, Ph.D. SECURITIES RESEARCH DEPARTMENT", Title: ""},
		{Name: "CFA"},        // bare credential
		{Name: "X"},          // too short
		{Name: ""},           // empty
		{Name: "Bob Lee", Title: "Director, CFA", Email: "garbage bob.lee@bank.com more"},
	}
	got := CleanRecords(raw)
	want := []Record{
		{Name: "Jane Doe", Title: "Senior Analyst"},
		{Name: "John A. Smith, PhD"},
		{Name: "Bob Lee, CFA", Title: "Director", Email: "bob.lee@bank.com"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanRecords = %+v, want %+v", got, want)
	}
}

func TestCleanRecordsTitleCredentialNotDuplicated(t *testing.T) {
	got := CleanRecords([]Record{{Name: "Jane Doe, CFA", Title: "Analyst, CFA"}})
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	if got[0].Name != "Jane Doe, CFA" || got[0].Title != "Analyst" {
		t.Fatalf("unexpected record: %+v", got[0])
	}
}

func TestIsInstitutional(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"person", Record{Name: "Jane Doe", Email: "jane.doe2@bank.com"}, false},
		{"department name", Record{Name: "Equity Research Department"}, true},
		{"research team keyword", Record{Name: "Credit Suisse Research Team"}, true},
		{"generic research email", Record{Name: "Jane Doe", Email: "research@bank.com"}, true},
		{"plain lowercase local part", Record{Name: "Jane Doe", Email: "jane@x.com"}, true},
		{"title department", Record{Name: "Jane Doe", Title: "Department"}, true},
		{"single token name", Record{Name: "Doe"}, true},
		{"empty name", Record{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInstitutional(tt.rec); got != tt.want {
				t.Fatalf("IsInstitutional(%+v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}

func TestStandardizeMergesCredentialVariants(t *testing.T) {
	in := []Record{
		{Name: "Jane Doe", Title: "Analyst", Email: "jane.d@x.com"},
		{Name: "Jane Doe, CFA"},
	}
	got := Standardize(in)
	want := []Record{{Name: "Jane Doe, CFA", Title: "Analyst", Email: "jane.d@x.com"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Standardize = %+v, want %+v", got, want)
	}
}

func TestStandardizeUnionsCredentials(t *testing.T) {
	in := []Record{
		{Name: "Jane Doe, CFA"},
		{Name: "Jane Doe, PhD"},
	}
	got := Standardize(in)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %+v", got)
	}
	if got[0].Name != "Jane Doe, CFA, PHD" {
		t.Fatalf("expected credential union, got %q", got[0].Name)
	}
}

func TestStandardizeTieBreakPrefersLongerName(t *testing.T) {
	// Equal credential counts fall back to the longer name string,
	// even when the extra length is boilerplate.
	in := []Record{
		{Name: "Jane Doe", Email: "j.doe@x.com"},
		{Name: "Jane Doe, Senior Analyst"},
	}
	got := Standardize(in)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %+v", got)
	}
	if got[0].Name != "Jane Doe, Senior Analyst" || got[0].Email != "j.doe@x.com" {
		t.Fatalf("unexpected winner: %+v", got[0])
	}
}

func TestStandardizeDedupInvariant(t *testing.T) {
	in := []Record{
		{Name: "Jane Doe"},
		{Name: "Jane Doe, CFA"},
		{Name: "JANE DOE, MD"},
		{Name: "Bob Lee"},
		{Name: "Bob Lee, PhD", Title: "Analyst"},
	}
	got := Standardize(in)
	seen := map[string]bool{}
	for _, rec := range got {
		base := BaseName(rec.Name)
		if seen[base] {
			t.Fatalf("duplicate base name %q in %+v", base, got)
		}
		seen[base] = true
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 canonical authors, got %+v", got)
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	in := []Record{
		{Name: "Jane Doe", Title: "Analyst", Email: "j.doe"},
		{Name: "Jane Doe, CFA"},
		{Name: "Bob Lee, PhD", Email: "bob.lee@other.org"},
		{Name: "Equity Research Department"},
	}
	opts := ConsolidateOptions{CorrectEmailDomains: true, InstitutionDomain: "wellsfargo.com"}
	once := Consolidate(in, nil, opts)
	twice := Consolidate(once, nil, opts)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("consolidation not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestCorrectEmailDomain(t *testing.T) {
	tests := []struct{ email, domain, want string }{
		{"jdoe", "wellsfargo.com", "jdoe@wellsfargo.com"},
		{"jdoe@wellsfargo.com", "wellsfargo.com", "jdoe@wellsfargo.com"},
		{"jdoe@other.org", "wellsfargo.com", "jdoe@wellsfargo.com"},
		{"not a local part", "wellsfargo.com", "not a local part"},
		{"jdoe", "", "jdoe"},
		{"", "wellsfargo.com", ""},
	}
	for _, tt := range tests {
		if got := CorrectEmailDomain(tt.email, tt.domain); got != tt.want {
			t.Fatalf("CorrectEmailDomain(%q, %q) = %q, want %q", tt.email, tt.domain, got, tt.want)
		}
	}
}

func TestPrioritizeFirstPage(t *testing.T) {
	all := []Record{
		{Name: "Carl Page"},
		{Name: "Jane Doe, CFA"},
		{Name: "Bob Lee"},
	}
	firstPage := []Record{{Name: "Jane Doe"}, {Name: "Bob Lee, PhD"}}
	got := PrioritizeFirstPage(all, firstPage)
	wantOrder := []string{"Jane Doe, CFA", "Bob Lee", "Carl Page"}
	for i, name := range wantOrder {
		if got[i].Name != name {
			t.Fatalf("position %d: got %q, want %q (full: %+v)", i, got[i].Name, name, got)
		}
	}
	if out := PrioritizeFirstPage(all, nil); !reflect.DeepEqual(out, all) {
		t.Fatal("empty first page must not reorder")
	}
}

func TestFromUntrusted(t *testing.T) {
	items := []any{
		map[string]any{"name": "Jane Doe", "title": "Analyst", "email": "j@x.com"},
		map[string]any{"name": 42, "title": nil},
		"not an object",
		map[string]any{"name": "  Bob Lee  "},
	}
	got := FromUntrusted(items)
	want := []Record{
		{Name: "Jane Doe", Title: "Analyst", Email: "j@x.com"},
		{},
		{Name: "Bob Lee"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromUntrusted = %+v, want %+v", got, want)
	}
}

func TestFromTextPatterns(t *testing.T) {
	text := "Research Analysts\nJohn Smith / Senior Analyst / +1 212 555 1234 / john.smith@credit-suisse.com\n"
	recs := FromTextPatterns(text, fakeClassification("credit suisse", "compilation"))
	if len(recs) != 1 || recs[0].Name != "John Smith" || recs[0].Email != "john.smith@credit-suisse.com" {
		t.Fatalf("unexpected records: %+v", recs)
	}

	term := "Coverage was dropped. The former analyst was Mary Jones of the group."
	recs = FromTextPatterns(term, fakeClassification("", "termination"))
	if len(recs) != 1 || recs[0].Name != "Mary Jones" || recs[0].Title != "Former Analyst" {
		t.Fatalf("unexpected termination records: %+v", recs)
	}

	if recs := FromTextPatterns("", fakeClassification("credit suisse", "standard")); recs != nil {
		t.Fatalf("empty text should yield nil, got %+v", recs)
	}
}
