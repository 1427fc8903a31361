package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

const (
	metaSource = "source"
	metaPage   = "page"
)

// ChromaConfig connects the store to a Chroma server.
type ChromaConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	RequestSize   int
}

// chromaIndex queries a single Chroma collection. Each build creates a
// fresh collection and drops the previous one only after the new one is
// fully populated, so a failed build never leaves a partial index.
type chromaIndex struct {
	col chroma.Collection
}

// NewChromaBuilder returns a BuilderFunc backed by a Chroma server. Chroma
// reports distances (lower is better); they are inverted to similarities
// here so callers always see higher-is-better scores.
func NewChromaBuilder(cfg ChromaConfig) (BuilderFunc, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	requestSize := cfg.RequestSize
	if requestSize <= 0 {
		requestSize = 50
	}

	// builds run one at a time: a concurrent build must not delete the
	// collection backing the index another build just installed
	var mu sync.Mutex
	var current string
	return func(ctx context.Context, chunks []Chunk) (Index, error) {
		mu.Lock()
		defer mu.Unlock()

		name := fmt.Sprintf("%s-%d", cfg.Collection, time.Now().UnixNano())
		col, err := client.GetOrCreateCollection(ctx, name,
			chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}

		for start := 0; start < len(chunks); start += requestSize {
			end := min(start+requestSize, len(chunks))
			if err := addChunks(ctx, col, chunks[start:end]); err != nil {
				_ = client.DeleteCollection(ctx, name)
				return nil, err
			}
		}

		if current != "" {
			_ = client.DeleteCollection(ctx, current)
		}
		current = name

		return &chromaIndex{col: col}, nil
	}, nil
}

func addChunks(ctx context.Context, col chroma.Collection, chunks []Chunk) error {
	texts := make([]string, 0, len(chunks))
	metas := make([]chroma.DocumentMetadata, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
		metas = append(metas, chroma.NewDocumentMetadata(
			chroma.NewStringAttribute(metaSource, c.Source),
			chroma.NewIntAttribute(metaPage, int64(c.Page)),
		))
	}

	err := col.Add(ctx,
		chroma.WithTexts(texts...),
		chroma.WithIDGenerator(chroma.NewULIDGenerator()),
		chroma.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to add chunks to collection: %w", err)
	}

	return nil
}

func (ci *chromaIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	r, err := ci.col.Query(ctx,
		chroma.WithQueryTexts(text),
		chroma.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	docs := r.GetDocumentsGroups()[0]
	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	hits := make([]Hit, 0, len(docs))
	for i := range docs {
		source, _ := metadatas[i].GetString(metaSource)
		page, _ := metadatas[i].GetInt(metaPage)
		hits = append(hits, Hit{
			Chunk: Chunk{
				Text:   docs[i].ContentString(),
				Source: source,
				Page:   int(page),
			},
			Score: 1 / (1 + float64(distances[i])),
		})
	}

	return hits, nil
}
