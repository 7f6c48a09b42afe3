// Package render wraps go-fitz page rasterization and text
// extraction behind the interface the pipeline consumes.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// baseDPI is the PDF point resolution; the configured scale factor
// multiplies it.
const baseDPI = 72.0

// Renderer rasterizes PDF pages. One Renderer is shared by all
// workers; go-fitz documents are opened per call, so there is no
// shared mutable state.
type Renderer struct {
	jpegQuality int
}

// New returns a renderer encoding pages at the given JPEG quality.
func New(jpegQuality int) *Renderer {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &Renderer{jpegQuality: jpegQuality}
}

// PageCount returns the number of pages in a local PDF.
func (r *Renderer) PageCount(_ context.Context, pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// RenderPage rasterizes one 0-based page to JPEG bytes at
// scale x 72 DPI. A pageIndex out of range is a caller error and is
// not retried.
func (r *Renderer) RenderPage(_ context.Context, pdfPath string, pageIndex int, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 2.0
	}
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, doc.NumPage())
	}

	img, err := doc.ImageDPI(pageIndex, scale*baseDPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageIndex, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	log.Debug().
		Int("page", pageIndex+1).
		Int("jpeg_size", buf.Len()).
		Float64("scale", scale).
		Msg("rendered page")

	return buf.Bytes(), nil
}

// ExtractLeadingText extracts text from the first maxPages pages,
// joined with blank lines. It feeds classification and the
// text-pattern fallback; per-page extraction failures are skipped.
func (r *Renderer) ExtractLeadingText(_ context.Context, pdfPath string, maxPages int) (string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Str("pdf", pdfPath).Msg("text extraction failed for page")
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
