package main

import (
	"context"
	"log"

	"ai-assistant-be/internal/config"
	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/implementation"
	embeddingOllama "ai-assistant-be/pkg/embedding/ollama"
	"ai-assistant-be/pkg/database"

	"github.com/pgvector/pgvector-go"
)

type seedDocument struct {
	Title    string
	Category string
	Content  string
}

var seedDocuments = []seedDocument{
	{
		Title:    "Osaka outbound flight",
		Category: "flight",
		Content:  "Outbound flight KE723, Incheon (ICN) to Kansai (KIX), departing 2026-02-03 09:35, arriving 11:20. Booking reference 5KXX9A, seat 24C.",
	},
	{
		Title:    "Osaka return flight",
		Category: "flight",
		Content:  "Return flight KE724, Kansai (KIX) to Incheon (ICN), departing 2026-02-06 18:10, arriving 20:05. Booking reference 5KXX9A, seat 31A.",
	},
	{
		Title:    "Osaka hotel",
		Category: "hotel",
		Content:  "Hotel Monterey Grasmere Osaka, 1-2-3 Minatomachi, Naniwa-ku, Osaka. Check-in 2026-02-03 15:00, check-out 2026-02-06 11:00. Reservation 88412030.",
	},
	{
		Title:    "Osaka itinerary day 2",
		Category: "itinerary",
		Content:  "Day 2 (2026-02-04): Osaka Castle in the morning, lunch at Dotonbori, Umeda Sky Building at sunset.",
	},
}

func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	provider := embeddingOllama.NewOllamaEmbeddingProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
		cfg.Ai.EmbeddingDimension,
	)
	repo := implementation.NewTravelDocumentRepository(db)
	ctx := context.Background()

	for _, doc := range seedDocuments {
		vector, err := provider.GetEmbedding(ctx, doc.Content)
		if err != nil {
			log.Fatalf("Error: Failed to embed %q: %v", doc.Title, err)
		}
		err = repo.Create(ctx, &entity.TravelDocument{
			Title:     doc.Title,
			Category:  doc.Category,
			Content:   doc.Content,
			Embedding: pgvector.NewVector(vector),
		})
		if err != nil {
			log.Fatalf("Error: Failed to insert %q: %v", doc.Title, err)
		}
		log.Printf("Seeded travel document: %s", doc.Title)
	}

	log.Println("Travel document seeding completed")
}
