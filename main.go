package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openaiembed "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Dia-Souci/IsDBI/docstore"
	"github.com/Dia-Souci/IsDBI/llm"
	"github.com/Dia-Souci/IsDBI/pipeline"
	"github.com/Dia-Souci/IsDBI/readers"
)

func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, error) {
	if cfg.OpenAI != nil {
		key := cfg.OpenAI.ApiKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}

		ef, err := openaiembed.NewOpenAIEmbeddingFunction(key,
			openaiembed.WithModel(openaiembed.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, nil
	}

	if cfg.Gemini != nil {
		key := cfg.Gemini.ApiKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}

		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(key),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Gemini.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, nil
	}

	return nil, errors.New("invalid embeddings provider configuration")
}

func createIndexBuilder(cfg *Config, ef embeddings.EmbeddingFunction) (docstore.BuilderFunc, error) {
	switch cfg.Index.Type {
	case "memory":
		return docstore.NewMemoryBuilder(ef), nil
	case "chroma":
		if cfg.Index.Chroma == nil {
			return nil, errors.New("chroma index selected but not configured")
		}

		return docstore.NewChromaBuilder(docstore.ChromaConfig{
			BaseURL:       cfg.Index.Chroma.Addr,
			Collection:    cfg.Index.Chroma.Collection,
			EmbeddingFunc: ef,
			RequestSize:   cfg.Index.Chroma.RequestSize,
		})
	default:
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Index.Type)
	}
}

func createGenerator(cfg *Config) (pipeline.Generator, error) {
	switch cfg.Generator.Type {
	case "ollama":
		gc := llm.OllamaConfig{}
		if o := cfg.Generator.Ollama; o != nil {
			gc.BaseURL = o.BaseURL
			gc.Model = o.Model
			gc.Timeout = time.Duration(o.TimeoutSecs) * time.Second
		}

		return llm.NewOllamaClient(gc), nil
	case "openai":
		gc := llm.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}
		if o := cfg.Generator.OpenAI; o != nil {
			gc.BaseURL = o.BaseURL
			gc.Model = o.Model
			gc.Timeout = time.Duration(o.TimeoutSecs) * time.Second
			if o.ApiKey != "" {
				gc.APIKey = o.ApiKey
			}
		}

		return llm.NewOpenAIClient(gc), nil
	default:
		return nil, fmt.Errorf("unsupported generator type: %s", cfg.Generator.Type)
	}
}

func main() {
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the server")
	dataPath := flag.String("data", "", "Overrides the corpus data file from the config")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	ef, err := createEmbeddingFunction(cfg)
	if err != nil {
		log.Fatal(err)
	}

	builder, err := createIndexBuilder(cfg, ef)
	if err != nil {
		log.Fatal(err)
	}

	generator, err := createGenerator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	store := docstore.NewStore(builder)
	reg := &CorpusRegistry{
		log:      logger,
		store:    store,
		dataPath: cfg.DataPath,
		docRoot:  cfg.DocRoot,
		chunker: &chunker{
			size:    cfg.ChunkSize,
			overlap: cfg.ChunkOverlap,
		},
		reader:   &readers.UniversalReader{},
		debounce: time.Duration(cfg.WatchDebounceMs) * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the index must be fully built before the listener starts
	if err := reg.Load(ctx); err != nil {
		log.Fatal(err)
	}
	if err := reg.Watch(ctx); err != nil {
		log.Fatal(err)
	}

	retriever := pipeline.NewRetriever(logger, store, cfg.Results)
	h := &handler{
		log:     logger,
		chain:   pipeline.NewChain(logger, generator, retriever),
		scorer:  pipeline.NewScorer(logger, store),
		uploads: &readers.UniversalReader{},
		results: cfg.Results,
	}

	if cfg.MCPAddr != "" {
		sse := server.NewSSEServer(newMCPServer(store, cfg.Results),
			server.WithBaseURL(fmt.Sprintf("http://%s", cfg.MCPAddr)))
		go func() {
			if err := sse.Start(cfg.MCPAddr); err != nil {
				logger.Error("mcp server stopped", "error", err)
			}
		}()
	}

	log.Printf("server listening on %s", cfg.ServerAddr)
	log.Println(http.ListenAndServe(cfg.ServerAddr, newRouter(logger, h)))
}
