// Package pipeline runs the per-document extraction unit: render the
// selected pages, ask a vision endpoint for authors on each, fall
// back to text patterns when the images yield nothing, and
// consolidate the survivors into one author list.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/authorscan/internal/authors"
	"github.com/local/authorscan/internal/classify"
	"github.com/local/authorscan/internal/config"
	"github.com/local/authorscan/internal/endpoint"
	"github.com/local/authorscan/internal/inference"
	"github.com/local/authorscan/internal/metrics"
	"github.com/local/authorscan/internal/pageselect"
	"github.com/local/authorscan/internal/results"
)

// Extraction sources, in fallback order.
const (
	SourceImage       = "image"
	SourceTextPattern = "text_pattern"
	SourceNone        = "none"
)

// Renderer materializes and rasterizes documents.
type Renderer interface {
	PageCount(ctx context.Context, pdfPath string) (int, error)
	RenderPage(ctx context.Context, pdfPath string, pageIndex int, scale float64) ([]byte, error)
	ExtractLeadingText(ctx context.Context, pdfPath string, maxPages int) (string, error)
}

// Fetcher resolves a document reference to a local PDF path.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (path string, cleanup func(), err error)
}

// InferenceClient extracts author records from one page image.
type InferenceClient interface {
	ExtractAuthors(ctx context.Context, req inference.Request) ([]authors.Record, error)
}

// Result is the outcome for one document.
type Result struct {
	Key           string
	Authors       []authors.Record
	Source        string
	DocType       classify.DocType
	Institution   string
	PagesAnalyzed int
}

// Pipeline processes single documents. Safe for concurrent use; all
// per-document state lives on the stack.
type Pipeline struct {
	renderer Renderer
	fetcher  Fetcher
	client   InferenceClient
	prompts  inference.Prompts
	cfg      config.Config
}

// New assembles a pipeline from its collaborators.
func New(renderer Renderer, fetcher Fetcher, client InferenceClient, prompts inference.Prompts, cfg config.Config) *Pipeline {
	return &Pipeline{
		renderer: renderer,
		fetcher:  fetcher,
		client:   client,
		prompts:  prompts,
		cfg:      cfg,
	}
}

// Process runs the full unit for one document reference against the
// given endpoint. Per-page failures degrade to fewer candidates; only
// failures that prevent reading the document at all are errors.
func (p *Pipeline) Process(ctx context.Context, ref string, ep endpoint.Descriptor) (Result, error) {
	res := Result{Key: results.Key(ref), Source: SourceNone}

	path, cleanup, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer cleanup()

	total, err := p.renderer.PageCount(ctx, path)
	if err != nil {
		return res, err
	}

	supportText, err := p.renderer.ExtractLeadingText(ctx, path, p.cfg.Pages.SupportPages)
	if err != nil {
		// Classification and fallback lose their input but the image
		// path still works.
		log.Warn().Err(err).Str("doc", res.Key).Msg("support text extraction failed")
		supportText = ""
	}

	cls := classify.Classify(supportText, p.cfg.Features.DetectDocType, p.cfg.Features.DetectInstitution)
	res.DocType = cls.DocType
	res.Institution = cls.Institution

	pages := pageselect.Pages(total, pageselect.Options{
		Mode:               pageselect.Mode(p.cfg.Pages.Mode),
		FirstN:             p.cfg.Pages.FirstN,
		RangeStart:         p.cfg.Pages.RangeStart,
		RangeEnd:           p.cfg.Pages.RangeEnd,
		AlwaysIncludeFirst: p.cfg.Pages.AlwaysIncludeFirst,
	})
	res.PagesAnalyzed = len(pages)

	var all, firstPage []authors.Record
	for _, pageIdx := range pages {
		recs, err := p.processPage(ctx, path, pageIdx, total, cls, supportText, ep)
		if err != nil {
			log.Warn().Err(err).Str("doc", res.Key).Int("page", pageIdx+1).Msg("page extraction failed")
			metrics.IncPage("failed")
			continue
		}
		metrics.IncPage("success")
		all = append(all, recs...)
		if pageIdx == 0 {
			firstPage = append(firstPage, recs...)
		}
	}

	if len(all) > 0 {
		res.Source = SourceImage
	} else if p.cfg.Features.TextFallback && supportText != "" {
		if recs := authors.CleanRecords(authors.FromTextPatterns(supportText, cls)); len(recs) > 0 {
			all = recs
			res.Source = SourceTextPattern
			log.Info().Str("doc", res.Key).Int("candidates", len(recs)).Msg("image extraction empty, text patterns matched")
		}
	}

	res.Authors = authors.Consolidate(all, firstPage, authors.ConsolidateOptions{
		PrioritizeFirstPage: p.cfg.Features.PrioritizeFirst,
		CorrectEmailDomains: p.cfg.Features.CorrectEmailDomain,
		InstitutionDomain:   cls.InstitutionDomain,
	})
	if len(res.Authors) == 0 {
		res.Source = SourceNone
	}

	metrics.IncExtractionSource(res.Source)
	metrics.ObserveAuthors(len(res.Authors))
	log.Info().
		Str("doc", res.Key).
		Str("source", res.Source).
		Str("doc_type", string(res.DocType)).
		Int("pages", res.PagesAnalyzed).
		Int("authors", len(res.Authors)).
		Msg("document processed")

	return res, nil
}

func (p *Pipeline) processPage(ctx context.Context, path string, pageIdx, total int, cls classify.Classification, supportText string, ep endpoint.Descriptor) ([]authors.Record, error) {
	img, err := p.renderer.RenderPage(ctx, path, pageIdx, p.cfg.Pages.Scale)
	if err != nil {
		return nil, err
	}

	prompt := p.prompts.Build(inference.PromptInput{
		Page:           pageIdx + 1,
		TotalPages:     total,
		Classification: cls,
		SupportText:    supportText,
	})

	start := time.Now()
	recs, err := p.client.ExtractAuthors(ctx, inference.Request{
		EndpointURL: ep.URL,
		Model:       ep.Model,
		Prompt:      prompt,
		Image:       img,
	})
	metrics.ObserveInference(ep.URL, time.Since(start))
	if err != nil {
		return nil, err
	}
	return authors.CleanRecords(recs), nil
}
