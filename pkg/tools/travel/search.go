// Package travel answers trip questions from the user's stored itinerary
// documents via vector search.
package travel

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-assistant-be/pkg/tools"
)

// Document is one retrieved itinerary snippet.
type Document struct {
	Title    string
	Content  string
	Category string
	Score    float64
}

// Searcher runs a nearest-neighbor lookup over stored travel documents.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]Document, error)
}

// Embedder turns query text into a vector.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchTool is the search_travel_info agent tool.
type SearchTool struct {
	Embedder Embedder
	Searcher Searcher
	Limit    int
	Logger   *log.Logger
}

func (t *SearchTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:           "search_travel_info",
		Description:    "Search the user's saved travel documents (flights, hotels, itinerary) for the answer to a travel question.",
		ArgumentSchema: `{"query": "string"}`,
	}
}

func (t *SearchTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	query := tools.StringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("search_travel_info requires a query")
	}
	embedding, err := t.Embedder.GetEmbedding(ctx, query)
	if err != nil {
		return "", tools.MarkTransient(fmt.Errorf("failed to embed travel query: %w", err))
	}
	limit := t.Limit
	if limit <= 0 {
		limit = 4
	}
	docs, err := t.Searcher.Search(ctx, embedding, limit)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No saved travel documents matched the question. Answer only from what the user provided; do not guess flight numbers, times or addresses.", nil
	}
	var b strings.Builder
	b.WriteString("Relevant travel documents (answer strictly from these, never invent details):\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. [%s] %s\n%s\n", i+1, doc.Category, doc.Title, strings.TrimSpace(doc.Content))
	}
	if t.Logger != nil {
		t.Logger.Printf("[TRAVEL] query %q matched %d documents", query, len(docs))
	}
	return b.String(), nil
}
