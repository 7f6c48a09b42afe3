package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/authorscan/internal/config"
	"github.com/local/authorscan/internal/dispatch"
	"github.com/local/authorscan/internal/inference"
	"github.com/local/authorscan/internal/logger"
	"github.com/local/authorscan/internal/metadata"
	"github.com/local/authorscan/internal/metrics"
	"github.com/local/authorscan/internal/pipeline"
	"github.com/local/authorscan/internal/render"
	"github.com/local/authorscan/internal/results"
	"github.com/local/authorscan/internal/store"
)

var (
	cfgFile string

	flagInput         string
	flagOutput        string
	flagModel         string
	flagPageMode      string
	flagPageRange     string
	flagFirstN        int
	flagAlwaysFirst   bool
	flagMetadata      bool
	flagMetadataCSV   string
	flagMaxFiles      int
	flagSkipProcessed bool
	flagDebug         bool
)

var rootCmd = &cobra.Command{
	Use:   "authorscan [input]",
	Short: "Extract report authors from PDF documents with local vision models",
	Long: `Authorscan renders the pages of research PDFs to images, asks
local Ollama-compatible vision endpoints who authored each document,
cleans and consolidates the answers, and maintains a CSV table of
authors per document.

Input may be a directory of PDFs, a single PDF, or an http(s):// or
s3:// reference.`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func init() {
	f := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.json)")
	f.StringVarP(&flagInput, "input", "i", "", "input directory or PDF (overrides config)")
	f.StringVarP(&flagOutput, "output", "o", "", "result CSV path (overrides config)")
	f.StringVarP(&flagModel, "model", "m", "", "vision model name (overrides config)")
	f.StringVar(&flagPageMode, "page-mode", "", "pages to analyze: all, range or first_n")
	f.StringVar(&flagPageRange, "page-range", "", "1-based page range for --page-mode=range, e.g. 2-5")
	f.IntVar(&flagFirstN, "first-n", 0, "page count for --page-mode=first_n")
	f.BoolVar(&flagAlwaysFirst, "always-first", true, "always analyze page 1 regardless of page mode")
	f.BoolVar(&flagMetadata, "metadata-filtering", false, "skip documents whose metadata headline matches a skip term")
	f.StringVar(&flagMetadataCSV, "metadata-csv", "", "metadata CSV path (overrides config)")
	f.IntVar(&flagMaxFiles, "max-files", 0, "process at most N documents (0 = no limit)")
	f.BoolVar(&flagSkipProcessed, "skip-processed", true, "skip documents already present in the result CSV")
	f.BoolVar(&flagDebug, "debug", false, "debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg, args); err != nil {
		return err
	}

	if err := logger.Init(logger.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint listening")
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	var filter *metadata.Filter
	if cfg.Metadata.Enabled {
		filter, err = metadata.Load(metadata.Options{
			CSVPath:   cfg.Metadata.CSVPath,
			IDPattern: cfg.Metadata.IDPattern,
			SkipTerms: cfg.Metadata.SkipTerms,
		})
		if err != nil {
			return fmt.Errorf("load metadata filter: %w", err)
		}
	}

	var status dispatch.StatusSink
	if cfg.Status.Enabled {
		rs, err := store.NewRedisStatus(cfg.Status.RedisURL, time.Duration(cfg.Status.TTLHours)*time.Hour)
		if err != nil {
			log.Warn().Err(err).Msg("status store unavailable, continuing without it")
		} else {
			defer rs.Close()
			status = rs
		}
	}

	p := pipeline.New(
		render.New(cfg.Pages.JPEGQuality),
		render.NewFetcher(cfg.Execution.TempDir),
		inference.NewClient(cfg.Inference.Timeout),
		inference.Prompts{
			StandardReport:      cfg.Prompts.StandardReport,
			CompilationReport:   cfg.Prompts.CompilationReport,
			CreditSuisse:        cfg.Prompts.CreditSuisse,
			FirstPageEmphasis:   cfg.Prompts.FirstPageEmphasis,
			TerminationSpecific: cfg.Prompts.TerminationSpecific,
		},
		cfg,
	)

	runner := dispatch.NewRunner(p, results.New(cfg.Output.CSVPath), filter, status, cfg)
	sum, err := runner.Run(cmd.Context(), cfg.Execution.InputPath)
	if err != nil {
		return err
	}

	fmt.Printf("batch %s: %d succeeded, %d failed, %d skipped in %s\n",
		sum.BatchID, sum.Succeeded, sum.Failed, sum.Skipped, sum.Elapsed.Round(time.Millisecond))
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", sum.Failed, sum.Total)
	}
	return nil
}

// applyFlags layers explicit CLI flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if len(args) == 1 {
		cfg.Execution.InputPath = args[0]
	}
	if flagInput != "" {
		cfg.Execution.InputPath = flagInput
	}
	if flagOutput != "" {
		cfg.Output.CSVPath = flagOutput
	}
	if flagModel != "" {
		cfg.Inference.Model = flagModel
	}
	if flagPageMode != "" {
		cfg.Pages.Mode = flagPageMode
	}
	if flagPageRange != "" {
		lo, hi, err := parseRange(flagPageRange)
		if err != nil {
			return err
		}
		cfg.Pages.Mode = "range"
		cfg.Pages.RangeStart, cfg.Pages.RangeEnd = lo, hi
	}
	if flagFirstN > 0 {
		cfg.Pages.Mode = "first_n"
		cfg.Pages.FirstN = flagFirstN
	}
	if cmd.Flags().Changed("always-first") {
		cfg.Pages.AlwaysIncludeFirst = flagAlwaysFirst
	}
	if cmd.Flags().Changed("metadata-filtering") {
		cfg.Metadata.Enabled = flagMetadata
	}
	if flagMetadataCSV != "" {
		cfg.Metadata.CSVPath = flagMetadataCSV
	}
	if flagMaxFiles > 0 {
		cfg.Execution.MaxFiles = flagMaxFiles
	}
	if cmd.Flags().Changed("skip-processed") {
		cfg.Execution.SkipProcessed = flagSkipProcessed
	}
	if flagDebug {
		cfg.Debug = true
		cfg.Logging.Level = "debug"
	}
	return nil
}

// parseRange parses a 1-based "lo-hi" page range.
func parseRange(s string) (lo, hi int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid page range %q: want lo-hi", s)
	}
	if lo, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid page range %q: %w", s, err)
	}
	if hi, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid page range %q: %w", s, err)
	}
	if lo < 1 || hi < lo {
		return 0, 0, fmt.Errorf("invalid page range %q", s)
	}
	return lo, hi, nil
}
