// Package cli implements the itemforge commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/embedding"
	"itemforge/internal/generator"
	"itemforge/internal/ingest"
	"itemforge/internal/logging"
	"itemforge/internal/pricing"
	"itemforge/internal/retrieval"
	"itemforge/internal/service"
	"itemforge/internal/snapshot"
	"itemforge/internal/summarizer"
	"itemforge/internal/validation"
	"itemforge/internal/vectorstore"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "itemforge",
		Short:         "Pathfinder magic item generator",
		Long:          "Builds a searchable knowledge base from scraped Pathfinder data, then drafts, prices and validates magic items against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config (default: ./config.yaml or ~/.config/itemforge/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newBuildCmd(opts),
		newSearchCmd(opts),
		newGenerateCmd(opts),
		newPriceCmd(opts),
		newValidateCmd(opts),
		newStatsCmd(opts),
		newServeCmd(opts),
		newTUICmd(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (o *rootOptions) loadConfig() (*config.AppConfig, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// app is the wired pipeline shared by the commands.
type app struct {
	cfg       *config.AppConfig
	logger    *zap.Logger
	store     *snapshot.Store
	kb        *retrieval.KnowledgeBase
	retrieval *retrieval.Service
	items     *service.ItemService
}

type appOptions struct {
	logPath string
	// offline skips the generator backend.
	offline bool
}

func (o *rootOptions) open(ctx context.Context, ao appOptions) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Verbose: o.verbose, Path: ao.logPath})
	if err != nil {
		return nil, err
	}

	newEmbedder, err := embedding.NewFactory(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	newIndex, _, err := vectorstore.NewFactory(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	store, err := snapshot.Open(cfg.KnowledgeBase.DataDir)
	if err != nil {
		return nil, err
	}

	builder := ingest.NewBuilder(newEmbedder, newIndex,
		ingest.WithBatchSize(cfg.Embedder.BatchSize),
		ingest.WithConcurrency(cfg.KnowledgeBase.BuildConcurrency),
		ingest.WithLogger(logger))
	kb := retrieval.NewKnowledgeBase(logger)
	rs := retrieval.NewService(kb, builder,
		retrieval.WithStore(store),
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithTimeout(cfg.RetrievalTimeout()),
		retrieval.WithLogger(logger))
	if err := rs.Load(ctx); err != nil {
		if retrieval.IsNotReady(err) {
			logger.Info("knowledge base not built yet")
		} else {
			logger.Warn("could not restore knowledge base", zap.Error(err))
		}
	}

	sum, err := summarizer.New(cfg.Summarizer)
	if err != nil {
		store.Close()
		return nil, err
	}
	var gen domain.Generator = generator.Unavailable{}
	if !ao.offline {
		gen, err = generator.New(ctx, cfg.Generator, sum, logger)
		if err != nil {
			logger.Warn("generator disabled", zap.Error(err))
			gen = generator.Unavailable{}
		}
	}

	locale, err := pricing.ParseLocale(cfg.Pricing.Locale)
	if err != nil {
		store.Close()
		return nil, err
	}
	engine := pricing.NewEngine(
		pricing.NewRetrievalLookup(rs, cfg.Retrieval.TopK, logger),
		pricing.WithLocale(locale),
		pricing.WithLogger(logger))

	items := service.New(rs, gen, engine, validation.Default(),
		service.WithContextSize(cfg.Retrieval.TopK),
		service.WithLogger(logger))

	return &app{cfg: cfg, logger: logger, store: store, kb: kb, retrieval: rs, items: items}, nil
}

func (a *app) Close() error {
	err := errors.Join(a.kb.Close(), a.store.Close())
	_ = a.logger.Sync()
	return err
}

// rebuild loads the given sources (or the configured ones) and swaps in a
// fresh knowledge base.
func (a *app) rebuild(ctx context.Context, paths []string) (*ingest.Result, []ingest.Skip, error) {
	if len(paths) == 0 {
		paths = a.cfg.KnowledgeBase.Sources
	}
	docs, skipped, err := ingest.LoadFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range skipped {
		a.logger.Warn("source skipped", zap.String("source", s.Source), zap.String("reason", s.Reason))
	}
	res, err := a.retrieval.Rebuild(ctx, docs)
	if err != nil {
		return nil, skipped, err
	}
	return res, append(skipped, res.Skipped...), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readInput reads a file argument, or stdin when it is absent or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
