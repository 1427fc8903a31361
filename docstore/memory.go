package docstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// Embedder is the subset of chroma's embedding function the in-process
// index needs. The OpenAI and Gemini embedding functions both satisfy it.
type Embedder interface {
	EmbedDocuments(ctx context.Context, documents []string) ([]embeddings.Embedding, error)
	EmbedQuery(ctx context.Context, document string) (embeddings.Embedding, error)
}

// memoryIndex is a brute-force cosine similarity index held in process.
// Vectors are computed once at build time; queries only read.
type memoryIndex struct {
	embed   Embedder
	chunks  []Chunk
	vectors [][]float32
}

// NewMemoryBuilder returns a BuilderFunc producing in-process indexes that
// embed chunks through the given embedding function.
func NewMemoryBuilder(embed Embedder) BuilderFunc {
	return func(ctx context.Context, chunks []Chunk) (Index, error) {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		embedded, err := embed.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed corpus: %w", err)
		}
		if len(embedded) != len(chunks) {
			return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embedded))
		}

		vectors := make([][]float32, len(embedded))
		for i, e := range embedded {
			vectors[i] = e.ContentAsFloat32()
		}

		return &memoryIndex{
			embed:   embed,
			chunks:  chunks,
			vectors: vectors,
		}, nil
	}
}

func (m *memoryIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	embedded, err := m.embed.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	query := embedded.ContentAsFloat32()
	scores := make([]float64, len(m.vectors))
	for i, v := range m.vectors {
		scores[i] = cosine(v, query)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// stable sort keeps insertion order for equal scores
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	hits := make([]Hit, 0, k)
	for _, i := range order[:k] {
		hits = append(hits, Hit{Chunk: m.chunks[i], Score: scores[i]})
	}

	return hits, nil
}

// cosine returns the cosine similarity of a and b clamped to [0, 1].
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}

	return sim
}
