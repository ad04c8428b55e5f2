package service

import (
	"context"

	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/contract"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/tools/travel"
)

// recencyStoreAdapter backs the pipeline's recency lookups with the
// recent_events table.
type recencyStoreAdapter struct {
	repo contract.RecentEventRepository
}

func NewRecencyStoreAdapter(repo contract.RecentEventRepository) *recencyStoreAdapter {
	return &recencyStoreAdapter{repo: repo}
}

func (a *recencyStoreAdapter) Add(ctx context.Context, e state.RecentEntity) error {
	return a.repo.Create(ctx, &entity.RecentEvent{
		SessionId:  e.SessionID,
		EventId:    e.ExternalID,
		CalendarId: e.CollectionID,
		Summary:    e.Label,
		CreatedAt:  e.CreatedAt,
	})
}

func (a *recencyStoreAdapter) Recent(ctx context.Context, sessionID string, limit int) ([]state.RecentEntity, error) {
	rows, err := a.repo.FindRecentBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	entities := make([]state.RecentEntity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, state.RecentEntity{
			SessionID:    row.SessionId,
			ExternalID:   row.EventId,
			CollectionID: row.CalendarId,
			Label:        row.Summary,
			CreatedAt:    row.CreatedAt,
		})
	}
	return entities, nil
}

// profileStoreAdapter surfaces distilled user facts to prompts.
type profileStoreAdapter struct {
	repo contract.UserFactRepository
}

func NewProfileStoreAdapter(repo contract.UserFactRepository) *profileStoreAdapter {
	return &profileStoreAdapter{repo: repo}
}

func (a *profileStoreAdapter) Facts(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := a.repo.FindBySession(ctx, sessionID, 10)
	if err != nil {
		return nil, err
	}
	facts := make([]string, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, row.Fact)
	}
	return facts, nil
}

// travelSearcherAdapter backs the travel tool with pgvector search.
type travelSearcherAdapter struct {
	repo contract.TravelDocumentRepository
}

func NewTravelSearcherAdapter(repo contract.TravelDocumentRepository) *travelSearcherAdapter {
	return &travelSearcherAdapter{repo: repo}
}

func (a *travelSearcherAdapter) Search(ctx context.Context, embedding []float32, limit int) ([]travel.Document, error) {
	scored, err := a.repo.SearchSimilar(ctx, embedding, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]travel.Document, 0, len(scored))
	for _, s := range scored {
		docs = append(docs, travel.Document{
			Title:    s.Document.Title,
			Content:  s.Document.Content,
			Category: s.Document.Category,
			Score:    s.Similarity,
		})
	}
	return docs, nil
}
