package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-curator/internal/ai"
	"github.com/kozaktomas/photo-curator/internal/cache"
	"github.com/kozaktomas/photo-curator/internal/config"
	"github.com/kozaktomas/photo-curator/internal/database"
	"github.com/kozaktomas/photo-curator/internal/database/mariadb"
	"github.com/kozaktomas/photo-curator/internal/database/postgres"
	"github.com/kozaktomas/photo-curator/internal/database/sqlite"
	"github.com/kozaktomas/photo-curator/internal/dedup"
	"github.com/kozaktomas/photo-curator/internal/fingerprint"
	"github.com/kozaktomas/photo-curator/internal/geocode"
	"github.com/kozaktomas/photo-curator/internal/labels"
	"github.com/kozaktomas/photo-curator/internal/photoprism"
	"github.com/kozaktomas/photo-curator/internal/recommend"
	"github.com/kozaktomas/photo-curator/internal/scoring"
)

// Prices per 1M tokens of the models the hosted providers default to
var (
	openAIPricing = ai.RequestPricing{Input: 0.40, Output: 1.60}
	geminiPricing = ai.RequestPricing{Input: 0.30, Output: 2.50}
)

// signalContext returns a context cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// openStore opens PostgreSQL when DATABASE_URL is set, MariaDB when
// MARIADB_DSN is set and the SQLite file otherwise
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	switch {
	case cfg.Database.URL != "":
		logger.Debug("using PostgreSQL storage")
		store, err := postgres.Open(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
		}
		return store, nil
	case cfg.Database.MariaDBDSN != "":
		logger.Debug("using MariaDB storage")
		store, err := mariadb.Open(ctx, cfg.Database.MariaDBDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open MariaDB: %w", err)
		}
		return store, nil
	default:
		logger.Debug("using SQLite storage", "path", cfg.Database.SQLitePath)
		store, err := sqlite.Open(ctx, cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		return store, nil
	}
}

// connectLibrary logs into PhotoPrism, or reuses PHOTOPRISM_TOKEN when set.
// The returned client is nil when there is no session to log out of.
func connectLibrary(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*photoprism.PhotoPrism, *photoprism.Library, error) {
	if cfg.PhotoPrism.URL == "" {
		return nil, nil, errors.New("PHOTOPRISM_URL environment variable is required")
	}
	if cfg.PhotoPrism.Token != "" {
		pp, err := photoprism.NewPhotoPrismFromToken(cfg.PhotoPrism.URL, cfg.PhotoPrism.Token, cfg.PhotoPrism.DownloadToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PhotoPrism: %w", err)
		}
		return nil, photoprism.NewLibrary(pp, logger), nil
	}
	pp, err := photoprism.NewPhotoPrism(ctx, cfg.PhotoPrism.URL, cfg.PhotoPrism.Username, cfg.PhotoPrism.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PhotoPrism: %w", err)
	}
	return pp, photoprism.NewLibrary(pp, logger), nil
}

// newProvider creates the vision language model backend named by the flag
func newProvider(ctx context.Context, cfg *config.Config, name string) (ai.Provider, error) {
	var (
		provider ai.Provider
		err      error
	)
	switch name {
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		provider = ai.NewOpenAIProvider(cfg.OpenAI.Token, openAIPricing)
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		provider, err = ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, "", geminiPricing)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
		}
	case "ollama":
		provider, err = ai.NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model, http.DefaultClient)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, gemini, ollama)", name)
	}
	vocabulary := append(append([]string(nil), cfg.Labels.Required...), cfg.Labels.Excluded...)
	provider.SetVocabulary(vocabulary)
	return provider, nil
}

// newExtractor creates the feature print extractor named by the flag
func newExtractor(cfg *config.Config, name string) (fingerprint.Extractor, error) {
	switch name {
	case "embedding":
		return fingerprint.NewEmbeddingClient(cfg.Embedding.URL, cfg.Embedding.Model), nil
	case "hash":
		return fingerprint.NewHashExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown extractor: %s (supported: embedding, hash)", name)
	}
}

// newScorer creates the quality scorer for a strategy
func newScorer(cfg *config.Config, strategy scoring.Strategy, provider ai.Provider) scoring.Scorer {
	if strategy == scoring.StrategyVision {
		return &scoring.Vision{Model: provider}
	}
	return &scoring.Regression{
		Aesthetic: scoring.NewTFServingModel(cfg.TFServing.URL, cfg.TFServing.AestheticModel),
		Technical: scoring.NewTFServingModel(cfg.TFServing.URL, cfg.TFServing.TechnicalModel),
	}
}

// pipeline holds everything a curation command needs. Close releases it.
type pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	pp         *photoprism.PhotoPrism
	lib        *photoprism.Library
	store      database.Store
	settings   *labels.Settings
	provider   ai.Provider
	extractor  fingerprint.Extractor
	prints     *database.IndexedWriter
	index      *database.FingerprintIndex
	labeler    *labels.Labeler
	printCache *dedup.PrintCache
	places     *geocode.Cached

	labelMemo *cache.Memo[string, string]
	printMemo *cache.Memo[string, fingerprint.Print]
	placeMemo *cache.Memo[string, string]
}

// newPipeline opens storage, migrates label settings, logs into PhotoPrism
// and creates the models selected by the --provider and --extractor flags
func newPipeline(ctx context.Context, cmd *cobra.Command) (*pipeline, error) {
	cfg := config.Load()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cfg:       cfg,
		logger:    logger,
		index:     database.NewFingerprintIndex(),
		labelMemo: cache.New[string, string](),
		printMemo: cache.New[string, fingerprint.Print](),
		placeMemo: cache.New[string, string](),
	}
	if err := p.open(ctx, cmd); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *pipeline) open(ctx context.Context, cmd *cobra.Command) error {
	var err error
	if p.store, err = openStore(ctx, p.cfg, p.logger); err != nil {
		return err
	}
	p.settings = labels.NewSettings(p.store, p.cfg.Labels)
	if applied, err := p.settings.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate label settings: %w", err)
	} else if applied {
		p.logger.Info("default label settings applied")
	}

	if p.provider, err = newProvider(ctx, p.cfg, mustGetString(cmd, "provider")); err != nil {
		return err
	}
	if p.extractor, err = newExtractor(p.cfg, mustGetString(cmd, "extractor")); err != nil {
		return err
	}

	p.prints = database.NewIndexedWriter(p.store.Fingerprints(), p.index, p.extractor.Name())
	if n, err := p.prints.Load(ctx); err != nil {
		p.logger.Warn("failed to load stored prints", "error", err)
	} else {
		p.logger.Debug("stored prints loaded", "model", p.extractor.Name(), "count", n)
	}

	if p.pp, p.lib, err = connectLibrary(ctx, p.cfg, p.logger); err != nil {
		return err
	}

	p.labeler = labels.NewLabeler(p.lib, p.provider, p.labelMemo,
		labels.WithThreshold(p.cfg.Pipeline.LabelConfidence),
		labels.WithLogger(p.logger),
	)
	p.printCache = dedup.NewPrintCache(p.printMemo, p.prints, p.extractor.Name(), p.logger)
	geocoder := geocode.NewNominatim(p.cfg.Geocoder.URL, p.cfg.Geocoder.UserAgent, p.cfg.Geocoder.Language)
	p.places = geocode.NewCached(geocoder, p.placeMemo, p.logger)
	return nil
}

// fixedLimit overrides the persisted max photo count
type fixedLimit int

func (l fixedLimit) MaxPhotoCount(ctx context.Context) (int, error) {
	return int(l), nil
}

// curator wires the batch deduplicator into a manager and curator. A
// positive limit overrides the persisted max photo count. The caller closes
// the returned manager.
func (p *pipeline) curator(ctx context.Context, thresholdKM float64, limit int) (*recommend.Curator, *recommend.Manager) {
	deduper := dedup.NewDeduplicator(p.lib, p.extractor, p.labeler, p.printCache,
		dedup.Options{
			Threshold:   p.cfg.Pipeline.DedupThreshold,
			Concurrency: p.cfg.Pipeline.AssetConcurrency,
			Logger:      p.logger,
		})
	manager := recommend.NewManager(ctx, &recommend.DedupProcessor{Dedup: deduper, Policies: p.settings},
		recommend.ManagerOptions{MaxConcurrency: p.cfg.Pipeline.MaxConcurrency, Logger: p.logger})
	if thresholdKM <= 0 {
		thresholdKM = p.cfg.Pipeline.GroupThresholdKM
	}
	var limits recommend.MaxCountSource = p.settings
	if limit > 0 {
		limits = fixedLimit(limit)
	}
	curator := recommend.NewCurator(p.lib, manager, limits,
		recommend.CuratorOptions{ThresholdKM: thresholdKM, Logger: p.logger})
	return curator, manager
}

// ranker wires the streaming quality path
func (p *pipeline) ranker(strategy scoring.Strategy) *recommend.Ranker {
	return recommend.NewRanker(p.lib, p.extractor, p.labeler, p.settings,
		newScorer(p.cfg, strategy, p.provider), p.places,
		recommend.RankerOptions{
			Concurrency: p.cfg.Pipeline.AssetConcurrency,
			Stream: dedup.StreamOptions{
				Threshold: p.cfg.Pipeline.DedupThreshold,
				Logger:    p.logger,
			},
			Logger: p.logger,
		})
}

// printUsage reports provider token usage, if any
func (p *pipeline) printUsage() {
	usage := p.provider.GetUsage()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		fmt.Printf("\nAPI Usage (%s):\n", p.provider.Name())
		fmt.Printf("  Requests: %d\n", usage.Requests)
		fmt.Printf("  Input tokens: %d\n", usage.InputTokens)
		fmt.Printf("  Output tokens: %d\n", usage.OutputTokens)
		fmt.Printf("  Total cost: $%.4f\n", usage.TotalCost)
	}
}

// Close logs out and releases storage and caches
func (p *pipeline) Close() {
	if p.pp != nil {
		if err := p.pp.Logout(context.Background()); err != nil {
			p.logger.Debug("logout failed", "error", err)
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.logger.Warn("failed to close storage", "error", err)
		}
	}
	p.labelMemo.Close()
	p.printMemo.Close()
	p.placeMemo.Close()
}

// addPipelineFlags registers the model selection flags
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "openai", "Vision model provider: openai, gemini, ollama")
	cmd.Flags().String("extractor", "embedding", "Feature print extractor: embedding, hash")
}
