// Command cicerone-chat is a terminal chat loop against a local dialogue
// engine: read a line, process the turn, print the response. An empty line
// or EOF ends the session.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cicerone/internal/agents"
	"cicerone/internal/config"
	"cicerone/internal/dialogue"
	"cicerone/internal/llm"
	"cicerone/internal/memory"
	"cicerone/internal/orchestrator"
	"cicerone/internal/schema"
	"cicerone/internal/search"
	"cicerone/internal/storage"
	"cicerone/internal/storage/postgres"
	"cicerone/internal/storage/sqlite"
)

func main() {
	schemaPath := flag.String("schema", "", "Path to a YAML slot schema (default: built-in tourism schema)")
	session := flag.String("session", "terminal", "Session identifier")
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

	fmt.Println("Cicerone travel assistant. Ask about restaurants, hotels or activities.")
	fmt.Println("Commands: /clear wipes the conversation, an empty line quits.")

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		if line == "/clear" {
			if err := orch.Clear(ctx, *session); err != nil {
				fmt.Printf("(memory cleanup incomplete: %v)\n", err)
			} else {
				fmt.Println("(conversation cleared)")
			}
			continue
		}

		result := orch.ProcessMessage(ctx, *session, line)
		fmt.Println(result.Response)
		if !result.Success {
			fmt.Println("(this turn could not be saved; it won't be remembered)")
		}
	}

	fmt.Println("Goodbye.")
}

// buildOrchestrator wires the dialogue engine from configuration, same shape
// as the API binary but without the HTTP front end.
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
