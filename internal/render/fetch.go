package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/authorscan/internal/filetype"
)

// Fetcher materializes document references as local PDF files.
// Supported schemes: plain paths, file://, http(s):// and s3://.
type Fetcher struct {
	httpClient *http.Client
	tempDir    string
}

// NewFetcher returns a fetcher writing remote documents under tempDir
// (os.TempDir when empty).
func NewFetcher(tempDir string) *Fetcher {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		tempDir:    tempDir,
	}
}

// Fetch resolves ref to a local PDF path. cleanup removes any
// temporary file created for a remote ref; for local refs it is a
// no-op. The materialized file is verified to actually be a PDF.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (path string, cleanup func(), err error) {
	cleanup = func() {}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		path, err = f.downloadS3(ctx, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		path, err = f.downloadHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		path = strings.TrimPrefix(ref, "file://")
	default:
		path = ref
	}
	if err != nil {
		return "", cleanup, err
	}

	local := !strings.Contains(ref, "://") || strings.HasPrefix(ref, "file://")
	if !local {
		tmp := path
		cleanup = func() { os.Remove(tmp) }
	}

	if err := verifyPDF(path); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}

// verifyPDF content-sniffs the file; extension alone is not trusted.
func verifyPDF(path string) error {
	info, err := filetype.Detect(path)
	if err != nil {
		return err
	}
	if !info.IsPDF {
		return fmt.Errorf("not a PDF: %s detected as %s", filepath.Base(path), info.MIMEType)
	}
	return nil
}

func (f *Fetcher) downloadHTTP(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %d", ref, resp.StatusCode)
	}
	return f.writeTemp(ref, resp.Body)
}

func (f *Fetcher) downloadS3(ctx context.Context, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse s3 ref: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", fmt.Errorf("invalid s3 ref %q: want s3://bucket/key", ref)
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)

	out, err := cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	path, err := f.writeTemp(ref, out.Body)
	if err != nil {
		return "", err
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Str("path", path).Msg("downloaded document from S3")
	return path, nil
}

func (f *Fetcher) writeTemp(ref string, body io.Reader) (string, error) {
	base := filepath.Base(ref)
	if base == "." || base == "/" || base == "" {
		base = "document.pdf"
	}
	tmp, err := os.CreateTemp(f.tempDir, "authorscan-*-"+base)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return tmp.Name(), nil
}
