package docstore

import (
	"context"
	"testing"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors; unknown texts embed to
// the zero vector.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([]embeddings.Embedding, error) {
	out := make([]embeddings.Embedding, 0, len(documents))
	for _, d := range documents {
		e, err := f.EmbedQuery(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, document string) (embeddings.Embedding, error) {
	v, ok := f.vectors[document]
	if !ok {
		v = []float32{0, 0, 0}
	}

	return embeddings.NewEmbeddingFromFloat32(v), nil
}

func buildMemoryIndex(t *testing.T, embed Embedder, chunks []Chunk) Index {
	t.Helper()

	index, err := NewMemoryBuilder(embed)(context.Background(), chunks)
	require.NoError(t, err)

	return index
}

func Test_MemoryIndex_OrdersByDescendingSimilarity(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"riba is prohibited":  {1, 0, 0},
		"salam capital rules": {0, 1, 0},
		"murabaha markup":     {0.7, 0.7, 0},
		"interest on loans":   {1, 0.1, 0},
	}}

	index := buildMemoryIndex(t, embed, []Chunk{
		{Text: "salam capital rules", Source: "FAS-7.pdf", Page: 1},
		{Text: "riba is prohibited", Source: "SS-1.pdf", Page: 2},
		{Text: "murabaha markup", Source: "FAS-4.pdf", Page: 3},
	})

	hits, err := index.Query(context.Background(), "interest on loans", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "riba is prohibited", hits[0].Chunk.Text)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func Test_MemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"first equal":  {1, 0, 0},
		"second equal": {1, 0, 0},
		"query":        {1, 0, 0},
	}}

	index := buildMemoryIndex(t, embed, []Chunk{
		{Text: "first equal", Source: "A", Page: 1},
		{Text: "second equal", Source: "B", Page: 1},
	})

	hits, err := index.Query(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first equal", hits[0].Chunk.Text)
	assert.Equal(t, "second equal", hits[1].Chunk.Text)
}

func Test_MemoryIndex_SingleChunkCorpus(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{
		"riba is prohibited": {1, 0.2, 0},
		"interest":           {0.9, 0.1, 0},
	}}

	index := buildMemoryIndex(t, embed, []Chunk{
		{Text: "riba is prohibited", Source: "A", Page: 1},
	})

	hits, err := index.Query(context.Background(), "interest", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "A", hits[0].Chunk.Source)
	assert.Equal(t, 1, hits[0].Chunk.Page)
}

func Test_MemoryIndex_ZeroVectorsScoreZero(t *testing.T) {
	embed := &fakeEmbedder{vectors: map[string][]float32{}}

	index := buildMemoryIndex(t, embed, []Chunk{
		{Text: "unembeddable", Source: "A", Page: 1},
	})

	hits, err := index.Query(context.Background(), "also unknown", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Score)
}

func Test_Cosine_ClampsNegative(t *testing.T) {
	assert.Zero(t, cosine([]float32{1, 0}, []float32{-1, 0}))
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
}
