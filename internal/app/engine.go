// Package app assembles the originality engine from configuration. The HTTP
// server and the corpusctl CLI share it.
package app

import (
	"fmt"

	"github.com/RishiKendai/provenance/internal/config"
	"github.com/RishiKendai/provenance/internal/corpus"
	"github.com/RishiKendai/provenance/internal/embedding"
	"github.com/RishiKendai/provenance/internal/models"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/RishiKendai/provenance/internal/vectorstore"
	"github.com/rs/zerolog/log"
)

// Index is a vector index that owns resources.
type Index interface {
	corpus.Index
	Close() error
}

type Components struct {
	Engine   *plagiarism.Engine
	Ingestor *corpus.Ingestor
	Exact    *plagiarism.ExactIndex
	Index    Index
	Embedder embedding.Client
	Weights  plagiarism.Weights
}

// Close releases the vector index.
func (c *Components) Close() error {
	return c.Index.Close()
}

// Build wires the engine. records backs the exact-match index; pass nil for an
// in-process store.
func Build(cfg *config.Config, records plagiarism.RecordStore) (*Components, error) {
	weights, err := config.LoadWeights(cfg.WeightsFile)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.New(embedding.Config{
		Provider: cfg.EmbeddingProvider,
		BaseURL:  cfg.EmbeddingBaseURL,
		APIKey:   cfg.EmbeddingAPIKey,
		Model:    cfg.EmbeddingModel,
		Timeout:  cfg.EmbeddingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	index, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = plagiarism.NewMemoryRecordStore()
	}
	exact := plagiarism.NewExactIndex(records)

	semantic := plagiarism.NewSemanticMatcher(embedder, index, plagiarism.SemanticOptions{
		Thresholds:  weights.Semantic,
		CallTimeout: cfg.EmbeddingTimeout,
	})

	var ai *plagiarism.SemanticMatcher
	if cfg.AIReferenceEnabled {
		ai = plagiarism.NewSemanticMatcher(embedder, index, plagiarism.SemanticOptions{
			EntryType:   plagiarism.EntryTypeAIGenerated,
			Signal:      models.SignalAIGenerated,
			Thresholds:  weights.Semantic,
			CallTimeout: cfg.EmbeddingTimeout,
		})
	}

	var citations *plagiarism.CitationSuggester
	if cfg.CitationsEnabled {
		citations = plagiarism.NewCitationSuggester(embedder, index, plagiarism.CitationOptions{
			CallTimeout: cfg.EmbeddingTimeout,
		})
	}

	engine, err := plagiarism.NewEngine(plagiarism.EngineOptions{
		Exact:     exact,
		Semantic:  semantic,
		AI:        ai,
		Citations: citations,
		Weights:   weights,
	})
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	log.Info().
		Str("embedding_provider", cfg.EmbeddingProvider).
		Str("embedding_model", embedder.ModelName()).
		Str("vector_backend", cfg.VectorBackend).
		Bool("ai_reference", cfg.AIReferenceEnabled).
		Bool("citations", cfg.CitationsEnabled).
		Msg("Originality engine ready")

	return &Components{
		Engine:   engine,
		Ingestor: corpus.NewIngestor(embedder, index, exact, corpus.Options{CallTimeout: cfg.EmbeddingTimeout}),
		Exact:    exact,
		Index:    index,
		Embedder: embedder,
		Weights:  weights,
	}, nil
}

func openIndex(cfg *config.Config) (Index, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendMemory:
		return vectorstore.NewMemoryIndex(), nil
	case config.VectorBackendSQLite, "":
		idx, err := vectorstore.NewSQLiteIndex(cfg.VectorDBPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
