package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Dia-Souci/IsDBI/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TopKWithPercentages_NormalizesAgainstBestHit(t *testing.T) {
	store := &fakeSearcher{hits: []docstore.Hit{
		{Chunk: docstore.Chunk{Text: "best match", Source: "FAS-4.pdf", Page: 1}, Score: 0.8},
		{Chunk: docstore.Chunk{Text: "good match", Source: "FAS-7.pdf", Page: 2}, Score: 0.6},
		{Chunk: docstore.Chunk{Text: "weak match", Source: "FAS-28.pdf", Page: 3}, Score: 0.2},
	}}
	s := NewScorer(discardLogger(), store)

	report := s.TopKWithPercentages(context.Background(), "murabaha", 3)

	require.Len(t, report.Rules, 3)
	assert.Equal(t, "Found 3 relevant FAS rules.", report.Message)
	assert.Equal(t, 100.0, report.Rules[0].RelevancePercentage)
	assert.Equal(t, 75.0, report.Rules[1].RelevancePercentage)
	assert.Equal(t, 25.0, report.Rules[2].RelevancePercentage)

	// presentation transform only: retrieval order is preserved
	assert.Equal(t, "FAS-4.pdf", report.Rules[0].Source)
	assert.Equal(t, "FAS-7.pdf", report.Rules[1].Source)
	assert.Equal(t, "FAS-28.pdf", report.Rules[2].Source)

	for _, rule := range report.Rules {
		assert.GreaterOrEqual(t, rule.RelevancePercentage, 0.0)
		assert.LessOrEqual(t, rule.RelevancePercentage, 100.0)
	}
}

func Test_TopKWithPercentages_AllZeroScores(t *testing.T) {
	store := &fakeSearcher{hits: []docstore.Hit{
		{Chunk: docstore.Chunk{Text: "a", Source: "A", Page: 1}, Score: 0},
		{Chunk: docstore.Chunk{Text: "b", Source: "B", Page: 2}, Score: 0},
	}}
	s := NewScorer(discardLogger(), store)

	report := s.TopKWithPercentages(context.Background(), "anything", 3)

	require.Len(t, report.Rules, 2)
	for _, rule := range report.Rules {
		assert.Zero(t, rule.RelevancePercentage)
	}
}

func Test_TopKWithPercentages_ZeroHits(t *testing.T) {
	s := NewScorer(discardLogger(), &fakeSearcher{})

	report := s.TopKWithPercentages(context.Background(), "anything", 3)

	assert.Empty(t, report.Rules)
	assert.Equal(t, "No relevant FAS rules found or retriever not available.", report.Message)
}

func Test_TopKWithPercentages_RetrievalErrorIsNotFatal(t *testing.T) {
	s := NewScorer(discardLogger(), &fakeSearcher{err: errors.New("index down")})

	report := s.TopKWithPercentages(context.Background(), "anything", 3)

	assert.Empty(t, report.Rules)
	assert.NotEmpty(t, report.Message)
}

func Test_Snippet_Truncation(t *testing.T) {
	long := strings.Repeat("x", 250)
	store := &fakeSearcher{hits: []docstore.Hit{
		{Chunk: docstore.Chunk{Text: long, Source: "A", Page: 1}, Score: 1},
		{Chunk: docstore.Chunk{Text: "short text", Source: "B", Page: 2}, Score: 0.5},
	}}
	s := NewScorer(discardLogger(), store)

	report := s.TopKWithPercentages(context.Background(), "anything", 2)

	require.Len(t, report.Rules, 2)
	assert.Len(t, report.Rules[0].ContentSnippet, 203)
	assert.Equal(t, long[:200]+"...", report.Rules[0].ContentSnippet)
	assert.True(t, strings.HasPrefix(long, report.Rules[0].ContentSnippet[:200]))
	assert.Equal(t, "short text", report.Rules[1].ContentSnippet)
}

func Test_TopKWithPercentages_DefaultK(t *testing.T) {
	store := &fakeSearcher{hits: []docstore.Hit{
		{Chunk: docstore.Chunk{Text: "a", Source: "A", Page: 1}, Score: 1},
	}}
	s := NewScorer(discardLogger(), store)

	s.TopKWithPercentages(context.Background(), "anything", 0)
	assert.Equal(t, []int{3}, store.ks)
}
