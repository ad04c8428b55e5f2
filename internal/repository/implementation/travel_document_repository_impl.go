package implementation

import (
	"context"

	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type TravelDocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewTravelDocumentRepository(db *gorm.DB) contract.TravelDocumentRepository {
	return &TravelDocumentRepositoryImpl{db: db}
}

func (r *TravelDocumentRepositoryImpl) Create(ctx context.Context, doc *entity.TravelDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// SearchSimilar ranks documents by cosine similarity. Cosine distance in
// pgvector is 1 - cosine_similarity, so similarity = 1 - (embedding <=> q).
func (r *TravelDocumentRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredTravelDocument, error) {
	if limit <= 0 {
		limit = 4
	}

	type result struct {
		entity.TravelDocument
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("travel_documents").
		Select("travel_documents.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredTravelDocument, len(results))
	for i := range results {
		doc := results[i].TravelDocument
		scored[i] = &contract.ScoredTravelDocument{
			Document:   &doc,
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
