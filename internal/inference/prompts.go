package inference

import (
	"strconv"
	"strings"

	"github.com/local/authorscan/internal/classify"
)

// supportTextLimit caps the page-context snippet embedded in a
// prompt; the image carries the real signal.
const supportTextLimit = 300

// Prompts is the template set used to build page-extraction prompts.
// Any empty field falls back to the built-in default.
type Prompts struct {
	StandardReport      string
	CompilationReport   string
	CreditSuisse        string
	FirstPageEmphasis   string
	TerminationSpecific string
}

const (
	defaultStandardReport = `Analyze this document image (page {page} of {total}) to identify only the true authors of the document.
{institution}{first_page_emphasis}{termination}Authors are individual people credited with writing the report, usually near the top of the first page with titles like Analyst or Research Analyst and often an email or phone number. Do NOT include company names, departments, distribution lists, disclosure contacts, or people merely quoted in the text.
Supporting text from the document start:
{support_text}
Respond with JSON only, in the form {"authors": [{"name": "...", "title": "...", "email": "..."}]}. Use an empty string for unknown fields and an empty list when no authors are visible.`

	defaultCompilationReport = `Analyze this document image (page {page} of {total}) to identify only the TRUE AUTHORS of the research report sections.
{institution}{first_page_emphasis}{termination}This is a compilation document containing multiple report sections; credit the analysts who authored the sections, not editors or compilers of the package.
Supporting text from the document start:
{support_text}
Respond with JSON only, in the form {"authors": [{"name": "...", "title": "...", "email": "..."}]}. Use an empty string for unknown fields and an empty list when no authors are visible.`

	defaultCreditSuisse = `This is a Credit Suisse research report. Credit Suisse often formats author information as slash-separated lines like "Jane Doe / Research Analyst / 212 325 0000 / jane.doe@credit-suisse.com"; read those lines carefully. `

	defaultFirstPageEmphasis = `THIS IS THE FIRST PAGE where authors typically appear at the very top. Focus on the top section only. `

	defaultTerminationSpecific = `This appears to be a termination of coverage notice which may not have individual analysts assigned. Only report analysts explicitly named as authors; an empty list is the correct answer when none are. `
)

// withDefaults fills empty template slots.
func (p Prompts) withDefaults() Prompts {
	if p.StandardReport == "" {
		p.StandardReport = defaultStandardReport
	}
	if p.CompilationReport == "" {
		p.CompilationReport = defaultCompilationReport
	}
	if p.CreditSuisse == "" {
		p.CreditSuisse = defaultCreditSuisse
	}
	if p.FirstPageEmphasis == "" {
		p.FirstPageEmphasis = defaultFirstPageEmphasis
	}
	if p.TerminationSpecific == "" {
		p.TerminationSpecific = defaultTerminationSpecific
	}
	return p
}

// PromptInput carries the per-page facts a prompt is built from.
// Page is 1-based for display.
type PromptInput struct {
	Page           int
	TotalPages     int
	Classification classify.Classification
	SupportText    string
}

// Build renders the prompt for one page. The compilation template is
// chosen for compilation documents, the standard one otherwise;
// institution, first-page and termination fragments are spliced in as
// the classification dictates.
func (p Prompts) Build(in PromptInput) string {
	p = p.withDefaults()

	var institution string
	switch {
	case strings.Contains(strings.ToLower(in.Classification.Institution), "credit suisse"):
		institution = p.CreditSuisse
	case in.Classification.Institution != "":
		institution = "This is a research report from " + in.Classification.Institution + ". "
	}

	var firstPage string
	if in.Page == 1 {
		firstPage = p.FirstPageEmphasis
	}

	var termination string
	if in.Classification.DocType == classify.TypeTermination {
		termination = p.TerminationSpecific
	}

	support := clipRunes(classify.EscapeMarkup(in.SupportText), supportTextLimit)

	tpl := p.StandardReport
	if in.Classification.DocType == classify.TypeCompilation {
		tpl = p.CompilationReport
	}

	return strings.NewReplacer(
		"{page}", strconv.Itoa(in.Page),
		"{total}", strconv.Itoa(in.TotalPages),
		"{institution}", institution,
		"{first_page_emphasis}", firstPage,
		"{termination}", termination,
		"{support_text}", support,
	).Replace(tpl)
}

// clipRunes truncates to at most limit characters without splitting
// a multi-byte rune.
func clipRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
