package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dia-Souci/IsDBI/docstore"
)

// Sentinel context blocks returned when retrieval cannot contribute.
// They are valid prompt input; the pipeline degrades, it never fails,
// when retrieval comes up empty.
const (
	noRetrieverContext = "No document retriever available. Proceeding without additional context."
	noResultsContext   = "No relevant documents found in knowledge base."
	retrievalErrorCtx  = "Error retrieving documents from knowledge base."
)

// Searcher is the store-side contract the retriever and scorer depend on.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]docstore.Hit, error)
}

// Retriever turns top-k similarity hits into a prompt-ready context block.
type Retriever struct {
	log   *slog.Logger
	store Searcher
	k     int
}

func NewRetriever(log *slog.Logger, store Searcher, k int) *Retriever {
	if k <= 0 {
		k = 3
	}

	return &Retriever{log: log, store: store, k: k}
}

// FormatContext renders the top-k hits for query as numbered document
// blocks. Retrieval failures degrade to a sentinel block and are logged;
// they are never surfaced to the caller.
func (r *Retriever) FormatContext(ctx context.Context, query string) string {
	hits, err := r.store.Query(ctx, query, r.k)
	if err != nil {
		if errors.Is(err, docstore.ErrIndexNotBuilt) {
			return noRetrieverContext
		}

		r.log.Error("context retrieval failed", "error", err)
		return retrievalErrorCtx
	}

	if len(hits) == 0 {
		return noResultsContext
	}

	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		parts = append(parts, fmt.Sprintf("Document %d (Source: %s, Page: %d):\n%s\n",
			i+1, hit.Chunk.Source, hit.Chunk.Page, hit.Chunk.Text))
	}

	return strings.Join(parts, "\n")
}
