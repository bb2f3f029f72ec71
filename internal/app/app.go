// Package app wires configuration into the question answering pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boardrag/internal/config"
	dbRedis "github.com/kailas-cloud/boardrag/internal/db/redis"
	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/prompt"
	"github.com/kailas-cloud/boardrag/internal/domain/relevance"
	"github.com/kailas-cloud/boardrag/internal/repository/localindex"
	searchrepo "github.com/kailas-cloud/boardrag/internal/repository/search"
	anthropicTransport "github.com/kailas-cloud/boardrag/internal/transport/anthropic"
	geminiTransport "github.com/kailas-cloud/boardrag/internal/transport/gemini"
	ollamaTransport "github.com/kailas-cloud/boardrag/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/boardrag/internal/transport/openai"
	completionuc "github.com/kailas-cloud/boardrag/internal/usecase/completion"
	embeddinguc "github.com/kailas-cloud/boardrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/boardrag/internal/usecase/health"
	queryuc "github.com/kailas-cloud/boardrag/internal/usecase/query"
	statsuc "github.com/kailas-cloud/boardrag/internal/usecase/stats"
)

// Index is a searchable rulebook index that can report readiness.
type Index interface {
	queryuc.Index
	healthuc.IndexChecker
}

// App holds the long-lived services built once at startup and shared by all requests.
type App struct {
	Query  *queryuc.Service
	Health *healthuc.Service
	Stats  *statsuc.Service
	Games  []domain.Game

	closers []func()
}

// Build assembles the pipeline from cfg. The caller must Close the result.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Stats: statsuc.New(), Games: cfg.DomainGames()}

	filter, err := relevance.New(a.Games)
	if err != nil {
		return nil, fmt.Errorf("build relevance filter: %w", err)
	}

	tmpl := prompt.Default()
	if cfg.Retrieval.PromptTemplate != "" {
		if tmpl, err = prompt.New(cfg.Retrieval.PromptTemplate); err != nil {
			return nil, fmt.Errorf("parse prompt template: %w", err)
		}
	}

	embedder, err := buildEmbedder(&cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	index, err := a.buildIndex(ctx, &cfg.Index, embedder, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	completer, err := buildCompleter(ctx, &cfg.Completion, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Query = queryuc.New(index, filter, completer, queryuc.Options{
		FanOut:       cfg.Retrieval.FanOut,
		ContextCap:   cfg.Retrieval.ContextCap,
		SnippetChars: cfg.Retrieval.SnippetChars,
		Template:     &tmpl,
	})

	// Pass nil interfaces, not typed nil pointers, for absent probes.
	var embeddingCheck, completionCheck healthuc.ProviderChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embeddingCheck = hc
	}
	if completer.CanProbe() {
		completionCheck = completer
	}
	a.Health = healthuc.New(index, embeddingCheck, completionCheck)

	logger.Info("Pipeline ready",
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("completion_model", cfg.Completion.Model),
		zap.Int("games", len(a.Games)),
	)
	return a, nil
}

// Close releases index connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) buildIndex(
	ctx context.Context, cfg *config.IndexConfig, embedder domain.Embedder, logger *zap.Logger,
) (Index, error) {
	switch cfg.Driver {
	case config.IndexDriverChromem:
		db, err := openChromem(cfg.Chromem, logger)
		if err != nil {
			return nil, err
		}
		return localindex.New(db, cfg.Chromem.Collection, embedder), nil

	case config.IndexDriverRedis:
		readiness := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:       cfg.Redis.Addrs,
			Password:    cfg.Redis.Password,
			DialTimeout: readiness,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.WaitForReady(ctx, readiness); err != nil {
			// The server still starts; health and queries report the index as unavailable.
			logger.Warn("Redis not ready", zap.Strings("addrs", cfg.Redis.Addrs), zap.Error(err))
		}
		return searchrepo.New(store, embedder, cfg.Redis.IndexName, cfg.Redis.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
}

// openChromem opens the persisted store without creating it when the path is absent.
func openChromem(cfg config.ChromemConfig, logger *zap.Logger) (*chromem.DB, error) {
	if _, err := os.Stat(cfg.Path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Index path not found, serving an empty index", zap.String("path", cfg.Path))
		return chromem.NewDB(), nil
	}
	db, err := localindex.Open(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return db, nil
}

// buildEmbedder assembles the decorator chain: provider -> Instrumented -> Instruction.
func buildEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	case config.ProviderOllama:
		emb, err := ollamaTransport.NewEmbedder(&ollamaTransport.Config{
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}
		base = emb
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(base, cfg.Provider, cfg.Model, logger)
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder, nil
}

func buildCompleter(
	ctx context.Context, cfg *config.CompletionConfig, logger *zap.Logger,
) (*completionuc.InstrumentedCompleter, error) {
	var base domain.Completer
	switch cfg.Provider {
	case config.ProviderOllama:
		c, err := ollamaTransport.NewCompleter(&ollamaTransport.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama completer: %w", err)
		}
		base = c
	case config.ProviderOpenAI:
		base = openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Provider:    cfg.Provider,
			Logger:      logger,
		})
	case config.ProviderAnthropic:
		base = anthropicTransport.NewCompleter(&anthropicTransport.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Logger:      logger,
		})
	case config.ProviderGemini:
		c, err := geminiTransport.NewCompleter(ctx, &geminiTransport.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini completer: %w", err)
		}
		base = c
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	return completionuc.NewInstrumentedCompleter(base, cfg.Provider, cfg.Model, timeout, logger), nil
}
