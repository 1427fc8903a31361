package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRetriever captures every retrieval query and returns a fixed
// context block.
type recordingRetriever struct {
	queries []string
}

func (r *recordingRetriever) FormatContext(ctx context.Context, query string) string {
	r.queries = append(r.queries, query)
	return "retrieved context"
}

// scriptedGenerator returns canned outputs in order and can fail at a
// chosen call.
type scriptedGenerator struct {
	outputs []string
	failAt  int
	calls   int
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.failAt > 0 && g.calls == g.failAt {
		return "", errors.New("model unavailable")
	}

	return g.outputs[g.calls-1], nil
}

func Test_ProcessStandard_ChainsStageOutputsIntoQueries(t *testing.T) {
	retriever := &recordingRetriever{}
	generator := &scriptedGenerator{outputs: []string{"the summary", "the suggestion", "the validation"}}
	chain := NewChain(discardLogger(), generator, retriever)

	out, err := chain.ProcessStandard(context.Background(), "standard text under review")
	require.NoError(t, err)

	assert.Equal(t, "the summary", out.Summary)
	assert.Equal(t, "the suggestion", out.Suggestion)
	assert.Equal(t, "the validation", out.Validation)

	// each stage retrieves on the previous stage's output, not the input
	require.Len(t, retriever.queries, 3)
	assert.Equal(t, "standard text under review", retriever.queries[0])
	assert.Equal(t, "the summary", retriever.queries[1])
	assert.Equal(t, "the suggestion", retriever.queries[2])
}

func Test_ProcessStandard_TruncatesReviewQuery(t *testing.T) {
	retriever := &recordingRetriever{}
	generator := &scriptedGenerator{outputs: []string{"s", "g", "v"}}
	chain := NewChain(discardLogger(), generator, retriever)

	long := strings.Repeat("a", 2500)
	_, err := chain.ProcessStandard(context.Background(), long)
	require.NoError(t, err)

	assert.Len(t, retriever.queries[0], 1000)
	// the prompt still carries the full text
	assert.Contains(t, generator.prompts[0], long)
}

func Test_ProcessStandard_TruncatesQueryByRunes(t *testing.T) {
	retriever := &recordingRetriever{}
	generator := &scriptedGenerator{outputs: []string{"s", "g", "v", "s", "g", "v"}}
	chain := NewChain(discardLogger(), generator, retriever)

	// 600 Arabic characters are 1200 bytes; all of them fit the query
	short := strings.Repeat("ر", 600)
	_, err := chain.ProcessStandard(context.Background(), short)
	require.NoError(t, err)
	assert.Equal(t, 600, utf8.RuneCountInString(retriever.queries[0]))

	retriever.queries = nil
	long := strings.Repeat("ر", 1200)
	_, err = chain.ProcessStandard(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, 1000, utf8.RuneCountInString(retriever.queries[0]))
	assert.True(t, utf8.ValidString(retriever.queries[0]))
}

func Test_ProcessStandard_FailureAtEnhancement(t *testing.T) {
	retriever := &recordingRetriever{}
	generator := &scriptedGenerator{outputs: []string{"the summary", "", ""}, failAt: 2}
	chain := NewChain(discardLogger(), generator, retriever)

	out, err := chain.ProcessStandard(context.Background(), "standard text")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "enhancement", genErr.Stage)

	// no partial output
	assert.Empty(t, out.Summary)
	assert.Empty(t, out.Suggestion)
	assert.Empty(t, out.Validation)

	// validation never started
	assert.Equal(t, 2, generator.calls)
	assert.Len(t, retriever.queries, 2)
}

func Test_ProcessStandard_FailureAtReview(t *testing.T) {
	generator := &scriptedGenerator{outputs: []string{""}, failAt: 1}
	chain := NewChain(discardLogger(), generator, &recordingRetriever{})

	_, err := chain.ProcessStandard(context.Background(), "standard text")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "review", genErr.Stage)
}

func Test_AnswerQuestion_CombinesContextAndQuestion(t *testing.T) {
	retriever := &recordingRetriever{}
	generator := &scriptedGenerator{outputs: []string{"the answer"}}
	chain := NewChain(discardLogger(), generator, retriever)

	answer, err := chain.AnswerQuestion(context.Background(), "murabaha contract terms", "is the markup fixed?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	require.Len(t, retriever.queries, 1)
	assert.Equal(t, "murabaha contract terms is the markup fixed?", retriever.queries[0])
}

func Test_AnswerQuestion_TruncatesQuery(t *testing.T) {
	retriever := &recordingRetriever{}
	generator := &scriptedGenerator{outputs: []string{"the answer"}}
	chain := NewChain(discardLogger(), generator, retriever)

	_, err := chain.AnswerQuestion(context.Background(), strings.Repeat("c", 900), strings.Repeat("q", 900))
	require.NoError(t, err)
	assert.Len(t, retriever.queries[0], 1000)
}

func Test_AnswerQuestion_GeneratorFailure(t *testing.T) {
	generator := &scriptedGenerator{outputs: []string{""}, failAt: 1}
	chain := NewChain(discardLogger(), generator, &recordingRetriever{})

	_, err := chain.AnswerQuestion(context.Background(), "ctx", "q")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "qa", genErr.Stage)
}
