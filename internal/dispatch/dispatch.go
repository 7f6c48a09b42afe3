// Package dispatch runs a batch of documents across the discovered
// model endpoints with a bounded worker pool.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/authorscan/internal/config"
	"github.com/local/authorscan/internal/endpoint"
	"github.com/local/authorscan/internal/filetype"
	"github.com/local/authorscan/internal/metadata"
	"github.com/local/authorscan/internal/metrics"
	"github.com/local/authorscan/internal/pipeline"
	"github.com/local/authorscan/internal/results"
	"github.com/local/authorscan/internal/store"
)

// maxWorkers bounds the pool regardless of configuration; local
// vision endpoints saturate well before this.
const maxWorkers = 8

// Processor is the per-document unit. *pipeline.Pipeline satisfies
// it; tests substitute fakes.
type Processor interface {
	Process(ctx context.Context, ref string, ep endpoint.Descriptor) (pipeline.Result, error)
}

// StatusSink records document lifecycle events. Nil-able; the batch
// runs fine without one.
type StatusSink interface {
	Set(ctx context.Context, batchID, docKey string, st store.Status) error
}

// Summary aggregates one batch run.
type Summary struct {
	BatchID   string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// Runner owns batch orchestration state.
type Runner struct {
	proc    Processor
	store   *results.Store
	filter  *metadata.Filter // nil when metadata filtering is off
	status  StatusSink       // nil when status tracking is off
	cfg     config.Config
	batchID string
}

// NewRunner assembles a batch runner. filter and status may be nil.
func NewRunner(proc Processor, resultStore *results.Store, filter *metadata.Filter, status StatusSink, cfg config.Config) *Runner {
	return &Runner{
		proc:    proc,
		store:   resultStore,
		filter:  filter,
		status:  status,
		cfg:     cfg,
		batchID: uuid.NewString(),
	}
}

// Run processes every eligible document under inputPath (a directory
// or a single PDF) and returns the batch summary. Result rows are
// merged into the store as documents finish; a document failure never
// stops the batch.
func (r *Runner) Run(ctx context.Context, inputPath string) (Summary, error) {
	start := time.Now()

	docs, skipped, err := r.collect(inputPath)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{BatchID: r.batchID, Total: len(docs) + skipped, Skipped: skipped}
	if len(docs) == 0 {
		log.Info().Str("batch", r.batchID).Int("skipped", skipped).Msg("no documents to process")
		sum.Elapsed = time.Since(start)
		return sum, nil
	}

	eps := endpoint.Discover(endpoint.Options{
		Host:         r.cfg.Inference.Host,
		BasePort:     r.cfg.Inference.BasePort,
		MaxPort:      r.cfg.Inference.MaxPort,
		ProbeTimeout: r.cfg.Inference.ProbeTimeout,
		Model:        r.cfg.Inference.Model,
		FallbackURL:  r.cfg.Inference.FallbackURL,
	})
	metrics.SetEndpointsAvailable(len(eps))

	// One worker per live endpoint: each endpoint serves exactly one
	// document at a time.
	workers := len(eps)
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers > r.cfg.Execution.MaxWorkers {
		workers = r.cfg.Execution.MaxWorkers
	}
	if workers > len(docs) {
		workers = len(docs)
	}
	if workers < 1 {
		workers = 1
	}
	log.Info().
		Str("batch", r.batchID).
		Int("documents", len(docs)).
		Int("endpoints", len(eps)).
		Int("workers", workers).
		Msg("starting batch")

	type job struct {
		idx int
		ref string
	}
	type outcome struct {
		ref string
		res pipeline.Result
		err error
	}

	jobs := make(chan job, len(docs))
	outcomes := make(chan outcome)
	for i, ref := range docs {
		jobs <- job{idx: i, ref: ref}
	}
	close(jobs)

	for w := 0; w < workers; w++ {
		go func() {
			for j := range jobs {
				ep := eps[j.idx%len(eps)]
				res, err := r.processSafely(ctx, j.ref, ep)
				outcomes <- outcome{ref: j.ref, res: res, err: err}
			}
		}()
	}

	// This goroutine is the only writer of the result table.
	for range docs {
		o := <-outcomes
		key := results.Key(o.ref)
		if o.err != nil {
			sum.Failed++
			metrics.IncDocument("failed")
			log.Error().Err(o.err).Str("doc", key).Msg("document failed")
			r.setStatus(ctx, key, store.Status{State: store.StateFailed, Message: o.err.Error()})
			continue
		}
		if err := r.store.Merge(o.res.Key, o.res.Authors); err != nil {
			sum.Failed++
			metrics.IncDocument("failed")
			log.Error().Err(err).Str("doc", o.res.Key).Msg("result write failed")
			r.setStatus(ctx, key, store.Status{State: store.StateFailed, Message: err.Error()})
			continue
		}
		sum.Succeeded++
		metrics.IncDocument("success")
		r.setStatus(ctx, key, store.Status{
			State:        store.StateDone,
			Message:      o.res.Source,
			AuthorsFound: len(o.res.Authors),
		})
	}

	sum.Elapsed = time.Since(start)
	log.Info().
		Str("batch", r.batchID).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Dur("elapsed", sum.Elapsed).
		Msg("batch finished")
	return sum, nil
}

// processSafely confines a panicking document to its own failure.
func (r *Runner) processSafely(ctx context.Context, ref string, ep endpoint.Descriptor) (res pipeline.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic processing %s: %v", ref, rec)
		}
	}()
	r.setStatus(ctx, results.Key(ref), store.Status{State: store.StateProcessing})
	return r.proc.Process(ctx, ref, ep)
}

// collect builds the ordered work list, applying the metadata filter,
// the processed-keys filter and the max-files cap. The skipped count
// covers filter skips only; non-PDF files are ignored silently.
func (r *Runner) collect(inputPath string) (docs []string, skipped int, err error) {
	refs, err := r.scan(inputPath)
	if err != nil {
		return nil, 0, err
	}

	var processed map[string]bool
	if r.cfg.Execution.SkipProcessed {
		processed = r.store.ProcessedKeys()
	}

	for _, ref := range refs {
		name := filepath.Base(ref)
		if r.filter != nil {
			if skip, term := r.filter.ShouldSkip(name); skip {
				skipped++
				metrics.IncDocument("skipped")
				log.Info().Str("doc", name).Str("term", term).Msg("skipped by metadata filter")
				r.setStatus(context.Background(), results.Key(ref), store.Status{State: store.StateSkipped, Message: term})
				continue
			}
		}
		if processed[results.Key(ref)] {
			skipped++
			metrics.IncDocument("skipped")
			log.Debug().Str("doc", name).Msg("already processed")
			continue
		}
		docs = append(docs, ref)
		if r.cfg.Execution.MaxFiles > 0 && len(docs) >= r.cfg.Execution.MaxFiles {
			break
		}
	}
	return docs, skipped, nil
}

// scan lists candidate PDFs. Remote refs and single files pass
// through; directories are listed non-recursively in name order.
func (r *Runner) scan(inputPath string) ([]string, error) {
	if strings.Contains(inputPath, "://") {
		return []string{inputPath}, nil
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("stat input path: %w", err)
	}
	if !info.IsDir() {
		return []string{inputPath}, nil
	}

	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, fmt.Errorf("list input dir: %w", err)
	}
	var refs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(inputPath, e.Name())
		if !filetype.IsPDF(path) {
			continue
		}
		refs = append(refs, path)
	}
	sort.Strings(refs)
	return refs, nil
}

func (r *Runner) setStatus(ctx context.Context, docKey string, st store.Status) {
	if r.status == nil {
		return
	}
	now := time.Now()
	switch st.State {
	case store.StateProcessing:
		st.Start = &now
	case store.StateDone, store.StateFailed, store.StateSkipped:
		st.End = &now
	}
	if err := r.status.Set(ctx, r.batchID, docKey, st); err != nil {
		log.Warn().Err(err).Str("doc", docKey).Msg("status update failed")
	}
}
