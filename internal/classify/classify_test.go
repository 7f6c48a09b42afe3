package classify

import (
	"strings"
	"testing"
)

func TestDetectDocType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want DocType
	}{
		{"empty", "", TypeStandard},
		{"plain report", "Quarterly update on semiconductor demand.", TypeStandard},
		{"toc header", "Page  Headline  Analyst\n3 Widgets Inc J. Smith", TypeCompilation},
		{"contents with author", "Contents ......... Author", TypeCompilation},
		{"piped analyst column", "| Analyst | Sector |", TypeCompilation},
		{"termination notice", "We are terminating coverage of Widgets Inc.", TypeTermination},
		{"analyst departure", "owing to the primary analyst's departure", TypeTermination},
		{"compilation wins over termination", "Table of Contents: Analyst list\nTermination of Coverage", TypeCompilation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDocType(tt.text); got != tt.want {
				t.Fatalf("DetectDocType(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEscapeMarkup(t *testing.T) {
	in := `\begin{tabular} Analyst \\ \end{tabular}`
	got := EscapeMarkup(in)
	for _, forbidden := range []string{`\begin`, `\end`, `\\`} {
		if strings.Contains(got, forbidden) {
			t.Fatalf("EscapeMarkup left %q in %q", forbidden, got)
		}
	}
}

func TestIdentifyInstitution(t *testing.T) {
	tests := []struct {
		text       string
		wantName   string
		wantDomain string
	}{
		{"WELLS FARGO SECURITIES, LLC Equity Research", "wells fargo", "wellsfargo.com"},
		{"A Credit Suisse First Boston report", "credit suisse", "credit-suisse.com"},
		{"No bank mentioned here", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, domain := IdentifyInstitution(tt.text)
		if name != tt.wantName || domain != tt.wantDomain {
			t.Fatalf("IdentifyInstitution(%q) = (%q, %q), want (%q, %q)",
				tt.text, name, domain, tt.wantName, tt.wantDomain)
		}
	}
}

func TestClassifyToggles(t *testing.T) {
	text := "Termination of Coverage. Morgan Stanley Research."
	c := Classify(text, false, false)
	if c.DocType != TypeStandard || c.Institution != "" {
		t.Fatalf("disabled toggles should yield standard/no institution, got %+v", c)
	}
	c = Classify(text, true, true)
	if c.DocType != TypeTermination || c.Institution != "morgan stanley" || c.InstitutionDomain != "morganstanley.com" {
		t.Fatalf("unexpected classification: %+v", c)
	}
}
