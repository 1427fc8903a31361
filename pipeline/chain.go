package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// retrieval queries are capped so huge documents don't blow up the
// similarity search
const queryLimit = 1000

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContextProvider supplies a prompt-ready context block for a query.
type ContextProvider interface {
	FormatContext(ctx context.Context, query string) string
}

// StandardOutput aggregates the three chained stage results.
type StandardOutput struct {
	Summary    string
	Suggestion string
	Validation string
}

// GenerationError is a fatal per-request failure carrying the stage that
// produced it. No partial output accompanies it.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s stage: %s", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Chain sequences retrieval-augmented generation stages over a single
// model. Each stage's retrieval query derives from the previous stage's
// output, so every stage re-grounds itself in evidence relevant to what
// the prior stage concluded.
type Chain struct {
	log       *slog.Logger
	generator Generator
	retriever ContextProvider
}

func NewChain(log *slog.Logger, generator Generator, retriever ContextProvider) *Chain {
	return &Chain{
		log:       log,
		generator: generator,
		retriever: retriever,
	}
}

// ProcessStandard runs the review, enhancement and validation stages over
// a standard text. Stages run strictly in order: enhancement retrieves on
// the review summary, validation on the enhancement suggestion.
func (c *Chain) ProcessStandard(ctx context.Context, inputText string) (StandardOutput, error) {
	c.log.Info("processing standard through agent chain")

	reviewContext := c.retriever.FormatContext(ctx, truncateQuery(inputText))
	summary, err := c.generator.Generate(ctx, reviewPrompt(reviewContext, inputText))
	if err != nil {
		return StandardOutput{}, &GenerationError{Stage: "review", Err: err}
	}

	enhancementContext := c.retriever.FormatContext(ctx, summary)
	suggestion, err := c.generator.Generate(ctx, enhancementPrompt(enhancementContext, summary))
	if err != nil {
		return StandardOutput{}, &GenerationError{Stage: "enhancement", Err: err}
	}

	validationContext := c.retriever.FormatContext(ctx, suggestion)
	validation, err := c.generator.Generate(ctx, validationPrompt(validationContext, inputText, suggestion))
	if err != nil {
		return StandardOutput{}, &GenerationError{Stage: "validation", Err: err}
	}

	return StandardOutput{
		Summary:    summary,
		Suggestion: suggestion,
		Validation: validation,
	}, nil
}

// AnswerQuestion answers a user question grounded in both the supplied
// context and retrieved passages.
func (c *Chain) AnswerQuestion(ctx context.Context, userContext, question string) (string, error) {
	c.log.Info("processing question through qa chain")

	retrieved := c.retriever.FormatContext(ctx, truncateQuery(userContext+" "+question))
	answer, err := c.generator.Generate(ctx, qaPrompt(userContext, retrieved, question))
	if err != nil {
		return "", &GenerationError{Stage: "qa", Err: err}
	}

	return answer, nil
}

// truncateQuery caps a query at queryLimit characters, not bytes, so
// multi-byte text is never cut mid-rune.
func truncateQuery(text string) string {
	runes := []rune(text)
	if len(runes) > queryLimit {
		return string(runes[:queryLimit])
	}

	return text
}
