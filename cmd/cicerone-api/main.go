package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cicerone/internal/agents"
	"cicerone/internal/config"
	"cicerone/internal/dialogue"
	"cicerone/internal/llm"
	"cicerone/internal/memory"
	"cicerone/internal/orchestrator"
	"cicerone/internal/schema"
	"cicerone/internal/search"
	"cicerone/internal/server"
	"cicerone/internal/storage"
	"cicerone/internal/storage/postgres"
	"cicerone/internal/storage/sqlite"
)

func main() {
	schemaPath := flag.String("schema", "", "Path to a YAML slot schema (default: built-in tourism schema)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *schemaPath != "" {
		cfg.Dialogue.SchemaPath = *schemaPath
	}

	orch, store, err := buildOrchestrator(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := server.Start(ctx, cfg, orch, nil)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Cicerone API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// buildOrchestrator wires the dialogue engine from configuration: slot
// schema, storage backend, LLM clients, search backend and collaborators.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, storage.EntryStore, error) {
	slotSchema := schema.Default()
	if cfg.Dialogue.SchemaPath != "" {
		var err error
		slotSchema, err = schema.Load(cfg.Dialogue.SchemaPath)
		if err != nil {
			return nil, nil, err
		}
	}

	var store storage.EntryStore
	var err error
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err = postgres.NewEntryStore(cfg.Storage.PostgresDSN)
	default:
		if mkErr := os.MkdirAll(cfg.Storage.DataPath, 0o755); mkErr != nil {
			return nil, nil, mkErr
		}
		store, err = sqlite.NewEntryStore(cfg.Storage.DataPath + "/cicerone.db")
	}
	if err != nil {
		return nil, nil, err
	}

	llmCfg := llm.FactoryConfig{
		Provider:      cfg.LLM.LLMProvider,
		OllamaURL:     cfg.LLM.OllamaURL,
		OllamaModel:   cfg.LLM.OllamaModel,
		MistralAPIKey: cfg.LLM.MistralAPIKey,
		MistralModel:  cfg.LLM.MistralModel,
	}
	generator, err := llm.NewTextGenerator(llmCfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	embedder, err := llm.NewEmbeddingGenerator(llmCfg, cfg.LLM.OllamaEmbeddingModel)
	if err != nil {
		log.Printf("Embeddings unavailable, recall degrades to recency: %v", err)
		embedder = nil
	}

	searcher, err := search.NewSearcher(search.FactoryConfig{
		Backend: cfg.Search.SearchBackend,
		Tavily: search.TavilyConfig{
			APIKey: cfg.Search.TavilyAPIKey,
			Filter: search.FilterConfig{ScoreFloor: cfg.Search.ScoreFloor, MaxResults: cfg.Search.MaxResults},
		},
		Places: search.PlacesConfig{
			APIKey: cfg.Search.PlacesAPIKey,
			Filter: search.FilterConfig{ScoreFloor: cfg.Search.ScoreFloor, MaxResults: cfg.Search.MaxResults},
		},
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Schema:     slotSchema,
		Extractor:  agents.NewLLMExtractor(generator, slotSchema.Intents(), nil),
		Questioner: agents.NewLLMQuestioner(generator),
		Answerer:   agents.NewLLMAnswerer(generator),
		Searcher:   searcher,
		Store:      store,
		Embedder:   embedder,
		Generator:  generator,
	}, orchestrator.Config{
		Tracker: dialogue.TrackerConfig{OverwriteOnRepeat: cfg.Dialogue.OverwriteOnRepeat},
		Memory:  memory.Config{RecallCandidates: cfg.Dialogue.RecallCandidates},
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return orch, store, nil
}
