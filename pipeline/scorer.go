package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

const snippetLimit = 200

// Rule is one entry of a relevance report.
type Rule struct {
	Source              string  `json:"source"`
	Page                int     `json:"page"`
	ContentSnippet      string  `json:"content_snippet"`
	RelevancePercentage float64 `json:"relevance_percentage"`
}

// Report lists the most relevant standard passages for a query, in
// retrieval order, with scores normalized to percentages.
type Report struct {
	Message string `json:"message"`
	Rules   []Rule `json:"rules"`
}

// Scorer converts raw similarity scores into human-facing percentages.
type Scorer struct {
	log   *slog.Logger
	store Searcher
}

func NewScorer(log *slog.Logger, store Searcher) *Scorer {
	return &Scorer{log: log, store: store}
}

// TopKWithPercentages reports up to k hits for query. Percentage is each
// score relative to the best hit; when the best score is 0 every
// percentage is 0 rather than dividing by zero. Ordering follows retrieval
// rank, not percentage.
func (s *Scorer) TopKWithPercentages(ctx context.Context, query string, k int) Report {
	if k <= 0 {
		k = 3
	}

	hits, err := s.store.Query(ctx, query, k)
	if err != nil {
		s.log.Error("relevance retrieval failed", "error", err)
		hits = nil
	}

	if len(hits) == 0 {
		return Report{
			Message: "No relevant FAS rules found or retriever not available.",
			Rules:   []Rule{},
		}
	}

	var maxScore float64
	for _, hit := range hits {
		maxScore = math.Max(maxScore, hit.Score)
	}

	rules := make([]Rule, 0, len(hits))
	for _, hit := range hits {
		var pct float64
		if maxScore > 0 {
			pct = math.Round(hit.Score/maxScore*100*100) / 100
		}

		rules = append(rules, Rule{
			Source:              hit.Chunk.Source,
			Page:                hit.Chunk.Page,
			ContentSnippet:      snippet(hit.Chunk.Text),
			RelevancePercentage: pct,
		})
	}

	return Report{
		Message: fmt.Sprintf("Found %d relevant FAS rules.", len(rules)),
		Rules:   rules,
	}
}

func snippet(text string) string {
	if len(text) > snippetLimit {
		return text[:snippetLimit] + "..."
	}

	return text
}
