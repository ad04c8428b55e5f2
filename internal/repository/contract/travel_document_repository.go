package contract

import (
	"context"

	"ai-assistant-be/internal/entity"
)

// ScoredTravelDocument pairs a document with its cosine similarity to the
// query vector.
type ScoredTravelDocument struct {
	Document   *entity.TravelDocument
	Similarity float64
}

type TravelDocumentRepository interface {
	Create(ctx context.Context, doc *entity.TravelDocument) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*ScoredTravelDocument, error)
}
