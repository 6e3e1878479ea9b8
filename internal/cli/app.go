package cli

import (
	"fmt"
	"os"

	"docagent/config"
	"docagent/internal/adapter/cache"
	"docagent/internal/adapter/chunker"
	"docagent/internal/adapter/classify"
	"docagent/internal/adapter/embedding"
	"docagent/internal/adapter/extract"
	"docagent/internal/adapter/llm"
	"docagent/internal/adapter/store"
	"docagent/internal/adapter/tool"
	"docagent/internal/logger"
	"docagent/internal/port"
	"docagent/internal/usecase"
)

// app bundles the assembled adapters and use cases for one command run.
type app struct {
	store   *store.BoltStore
	vectors port.VectorStore
	ingest  *usecase.IngestUseCase
	chat    *usecase.ChatUseCase
}

func (a *app) Close() error {
	return a.store.Close()
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "ollama", "":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, e.Dimension, e.BatchSize), nil
	case "openai", "custom":
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model, e.BaseURL, e.Dimension, e.BatchSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", e.Provider)
	}
}

// openStore opens the bolt database and the model-scoped vector store.
// rebuild wipes the index first; a model mismatch without rebuild is
// surfaced to the user with the rebuild hint intact.
func openStore(embedder port.Embedder, rebuild bool) (*store.BoltStore, port.VectorStore, error) {
	if err := config.EnsureDataDir(dataDir); err != nil {
		return nil, nil, err
	}
	st, err := store.NewBoltStore(config.IndexDBPath(dataDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	if rebuild {
		if err := st.Rebuild(embedder.ModelName(), embedder.Dimension()); err != nil {
			st.Close()
			return nil, nil, err
		}
		fmt.Println("Index cleared for rebuild.")
	}

	vectors, err := store.NewBoltVectorStore(st, embedder.ModelName(), embedder.Dimension())
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, vectors, nil
}

func newApp(rebuild bool) (*app, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	st, vectors, err := openStore(embedder, rebuild)
	if err != nil {
		return nil, err
	}

	ck, err := chunker.NewTextChunker(cfg.Chunking.MaxSize, cfg.Chunking.Overlap)
	if err != nil {
		st.Close()
		return nil, err
	}

	ingestUC := usecase.NewIngestUseCase(
		st, vectors, ck, embedder,
		extract.NewExtractor(),
		store.NewBoltIngestCache(st),
	)

	specs := make([]llm.BackendSpec, len(cfg.Generation.Models))
	for i, m := range cfg.Generation.Models {
		specs[i] = llm.BackendSpec{
			ID:        m.ID,
			Provider:  m.Provider,
			Model:     m.Model,
			BaseURL:   m.BaseURL,
			APIKeyEnv: m.APIKeyEnv,
		}
	}
	registry, err := llm.NewRegistry(specs, cfg.Generation.MaxTokens, cfg.Generation.Temperature)
	if err != nil {
		st.Close()
		return nil, err
	}

	retriever := cache.NewCachedRetriever(
		usecase.NewRetrieveUseCase(st, vectors, embedder),
		vectors,
		cache.NewQueryCache(cfg.Retrieve.QueryCacheSize, cfg.Retrieve.QueryCacheTTL.Std()),
	)

	chatUC := usecase.NewChatUseCase(
		retriever,
		registry,
		classify.NewRuleClassifier(),
		store.NewBoltHistory(st),
		usecase.NewPromptBuilder(cfg.Retrieve.PromptBudget),
		usecase.ChatConfig{
			DefaultModel:    cfg.Generation.DefaultModel,
			TopK:            cfg.Retrieve.TopK,
			MinScore:        cfg.Retrieve.MinScore,
			RetrieveTimeout: cfg.Retrieve.Timeout.Std(),
			GenTimeout:      cfg.Generation.Timeout.Std(),
			MaxHistoryTurns: cfg.History.MaxTurns,
		},
	)

	if cfg.Tools.Weather.Enabled {
		provider, err := tool.NewAmapProvider(cfg.Tools.Weather.BaseURL, cfg.Tools.Weather.APIKeyEnv)
		if err != nil {
			// Weather stays off without credentials; document QA is
			// unaffected.
			logger.Warnf("weather tool disabled: %v", err)
			fmt.Fprintf(os.Stderr, "note: weather tool disabled: %v\n", err)
		} else {
			chatUC.RegisterTool(tool.NewWeatherTool(provider, cfg.Tools.Timeout.Std()))
		}
	}

	return &app{
		store:   st,
		vectors: vectors,
		ingest:  ingestUC,
		chat:    chatUC,
	}, nil
}
