package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/local/authorscan/internal/classify"
)

func generateServer(t *testing.T, modelResponse string, gotReq *generateReq) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResp{Response: modelResponse})
	}))
}

func TestExtractAuthorsParsesResponse(t *testing.T) {
	var got generateReq
	srv := generateServer(t, `{"authors":[{"name":"Jane Doe","title":"Analyst","email":"jane@x.com"}]}`, &got)
	defer srv.Close()

	c := NewClient(5 * time.Second)
	recs, err := c.ExtractAuthors(context.Background(), Request{
		EndpointURL: srv.URL,
		Model:       "llama3.2-vision",
		Prompt:      "who wrote this",
		Image:       []byte{0xff, 0xd8, 0xff},
	})
	if err != nil {
		t.Fatalf("ExtractAuthors: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "Jane Doe" || recs[0].Email != "jane@x.com" {
		t.Fatalf("unexpected records: %+v", recs)
	}

	if got.Model != "llama3.2-vision" || got.Stream || got.Format != "json" {
		t.Errorf("unexpected wire payload: %+v", got)
	}
	if len(got.Images) != 1 || got.Images[0] == "" {
		t.Errorf("image not base64-encoded in payload: %+v", got.Images)
	}
}

func TestExtractAuthorsMalformedModelOutput(t *testing.T) {
	for _, response := range []string{
		"I could not find any authors.",
		`{"authors": "none"}`,
		`{"people": []}`,
		`{"authors": [42, "Jane"]}`,
		"",
	} {
		var got generateReq
		srv := generateServer(t, response, &got)
		c := NewClient(5 * time.Second)
		recs, err := c.ExtractAuthors(context.Background(), Request{EndpointURL: srv.URL, Image: []byte{1}})
		srv.Close()
		if err != nil {
			t.Errorf("response %q: unexpected error %v", response, err)
		}
		if len(recs) != 0 {
			t.Errorf("response %q: want no records, got %+v", response, recs)
		}
	}
}

func TestExtractAuthorsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	if _, err := c.ExtractAuthors(context.Background(), Request{EndpointURL: srv.URL, Image: []byte{1}}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestPromptBuildStandard(t *testing.T) {
	p := Prompts{}.Build(PromptInput{
		Page:        2,
		TotalPages:  9,
		SupportText: "Weekly Equity Notes",
		Classification: classify.Classification{
			DocType:     classify.TypeStandard,
			Institution: "Wells Fargo",
		},
	})

	for _, want := range []string{"page 2 of 9", "Wells Fargo", "Weekly Equity Notes"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "FIRST PAGE") {
		t.Error("non-first page must not get first-page emphasis")
	}
	if strings.Contains(p, "{") && strings.Contains(p, "}") {
		// The JSON shape example keeps braces; unexpanded template
		// variables must not survive.
		if strings.Contains(p, "{page}") || strings.Contains(p, "{institution}") || strings.Contains(p, "{support_text}") {
			t.Errorf("unexpanded template variable in prompt:\n%s", p)
		}
	}
}

func TestPromptBuildVariants(t *testing.T) {
	base := PromptInput{Page: 1, TotalPages: 3}

	in := base
	in.Classification = classify.Classification{DocType: classify.TypeCompilation, Institution: "Credit Suisse"}
	p := Prompts{}.Build(in)
	if !strings.Contains(p, "compilation document") {
		t.Error("compilation doc type must select the compilation template")
	}
	if !strings.Contains(p, "slash-separated") {
		t.Error("Credit Suisse institution must splice the Credit Suisse fragment")
	}
	if !strings.Contains(p, "FIRST PAGE") {
		t.Error("page 1 must get first-page emphasis")
	}

	in = base
	in.Classification = classify.Classification{DocType: classify.TypeTermination}
	if p := (Prompts{}).Build(in); !strings.Contains(p, "termination of coverage") {
		t.Error("termination doc type must splice the termination fragment")
	}
}

func TestPromptBuildClipsSupportText(t *testing.T) {
	in := PromptInput{
		Page:        1,
		TotalPages:  1,
		SupportText: strings.Repeat("a", 1000),
	}
	p := Prompts{}.Build(in)
	if strings.Contains(p, strings.Repeat("a", 400)) {
		t.Error("support text was not clipped")
	}
	if !strings.Contains(p, strings.Repeat("a", supportTextLimit)) {
		t.Error("clipped support text missing from prompt")
	}
}

func TestPromptBuildClipKeepsRunesIntact(t *testing.T) {
	in := PromptInput{
		Page:        1,
		TotalPages:  1,
		SupportText: strings.Repeat("é", supportTextLimit+50),
	}
	p := Prompts{}.Build(in)
	if !utf8.ValidString(p) {
		t.Error("clipping split a multi-byte rune")
	}
	if !strings.Contains(p, strings.Repeat("é", supportTextLimit)) {
		t.Error("clipped support text missing from prompt")
	}
	if strings.Contains(p, strings.Repeat("é", supportTextLimit+1)) {
		t.Error("support text was not clipped")
	}
}

func TestPromptOverrides(t *testing.T) {
	p := Prompts{StandardReport: "custom {page}/{total}"}
	out := p.Build(PromptInput{Page: 3, TotalPages: 7})
	if out != "custom 3/7" {
		t.Errorf("override not used: %q", out)
	}
}
