package main

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/snow-ghost/rewriter/embeddings"
	"github.com/snow-ghost/rewriter/engine"
	"github.com/snow-ghost/rewriter/grammar"
	"github.com/snow-ghost/rewriter/pkg/cache"
	"github.com/snow-ghost/rewriter/pkg/httpserver"
	"github.com/snow-ghost/rewriter/pkg/logging"
	"github.com/snow-ghost/rewriter/pkg/metrics"
	"github.com/snow-ghost/rewriter/pkg/tracing"
	"github.com/snow-ghost/rewriter/rules"
	"github.com/snow-ghost/rewriter/store"
)

func main() {
	cfg := LoadConfig()
	ctx := context.Background()

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		log.Fatal("failed to create logger:", err)
	}
	defer logger.Sync()
	slogger := logger.Slog()
	logger.Debug("configuration loaded",
		"embedder", cfg.Embedder,
		"device", cfg.Device,
		"rules_dir", cfg.RulesDir,
		"journal_path", cfg.JournalPath,
		"cache_size", cfg.EmbedCacheSize)

	if cfg.JaegerEndpoint != "" {
		tracer, err := tracing.NewTracer(tracing.Config{
			ServiceName:    "rewriterd",
			ServiceVersion: "dev",
			JaegerEndpoint: cfg.JaegerEndpoint,
			Environment:    cfg.Environment,
		})
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer tracer.Shutdown(ctx)
		}
	}

	device := selectDevice(cfg.Device, logger)

	var embedder embeddings.Embedder
	switch cfg.Embedder {
	case "openai":
		embedder, err = embeddings.NewOpenAIEmbedder(embeddings.DefaultOpenAIConfig())
		if err != nil {
			log.Fatal("failed to create embedder:", err)
		}
	default:
		embedder = embeddings.NewLocalEmbedder(embeddings.DefaultConfig(), device)
	}

	cached, err := cache.NewEmbeddingCache(embedder, cfg.EmbedCacheSize)
	if err != nil {
		log.Fatal("failed to create embedding cache:", err)
	}

	opts := []engine.Option{engine.WithLogger(slogger)}

	var journal *store.Journal
	if cfg.JournalPath != "" {
		journal, err = store.NewJournal(cfg.JournalPath)
		if err != nil {
			log.Fatal("failed to open journal:", err)
		}
		defer journal.Close()
		opts = append(opts, engine.WithJournal(journal))
	}

	eng := engine.New(cached, grammar.NewRegistry(), opts...)

	if journal != nil {
		if err := eng.ReplayJournal(ctx); err != nil {
			log.Fatal("failed to replay journal:", err)
		}
	}

	if cfg.RulesDir != "" {
		loader := rules.NewLoader(cfg.RulesDir, slogger)
		snippets, collections, err := loader.Load()
		if err != nil {
			log.Fatal("failed to load rule definitions:", err)
		}
		for _, s := range snippets {
			if _, err := eng.SeedSnippet(ctx, s); err != nil {
				logger.Warn("skipping snippet", "description", s.Description, "error", err)
			}
		}
		for _, c := range collections {
			if _, err := eng.SeedCollection(ctx, c); err != nil {
				logger.Warn("skipping collection", "description", c.Description, "error", err)
			}
		}
		logger.Info("rule definitions loaded",
			"dir", cfg.RulesDir,
			"snippets", eng.SnippetCount(),
			"collections", eng.CollectionCount())
	}

	m := metrics.New()
	m.SnippetsIndexed.Set(float64(eng.SnippetCount()))
	m.CollectionsIndexed.Set(float64(eng.CollectionCount()))
	m.RegisterEmbedCache(func() (int64, int64) {
		stats := cached.Stats()
		return stats.Hits, stats.Misses
	})

	server := httpserver.NewServer(cfg.Port, eng, m, logger)

	logger.Info("starting rewriter service",
		"port", cfg.Port,
		"embedder", cfg.Embedder,
		"device", device.Name(),
		"log_level", cfg.LogLevel)

	if err := server.Start(); err != nil {
		log.Fatal("failed to start server:", err)
	}
}

// selectDevice parses "cpu" or "gpu:N"; an unavailable GPU falls back to CPU.
func selectDevice(spec string, logger *logging.Logger) embeddings.Device {
	if !strings.HasPrefix(spec, "gpu") {
		return embeddings.CPU()
	}
	index := 0
	if _, rest, ok := strings.Cut(spec, ":"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			index = n
		}
	}
	device, err := embeddings.GPU(index)
	if err != nil {
		logger.Warn("gpu unavailable, falling back to cpu", "device", spec, "error", err)
		return embeddings.CPU()
	}
	return device
}
