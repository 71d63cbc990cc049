package main

import (
	"context"
	"flag"
	"log"
	"os"

	"medichat-backend/internal/config"
	"medichat-backend/internal/database"
	"medichat-backend/internal/models"
	"medichat-backend/internal/search"
	"medichat-backend/internal/services"
)

// ingest loads a biomedical Q&A corpus from disk, embeds each entry and
// indexes it into the vector store. Run it once before enabling
// retrieval-augmented answers, or whenever the corpus changes.
func main() {
	path := flag.String("path", "", "file or directory to ingest (defaults to CORPUS_PATH)")
	flag.Parse()

	cfg := config.Load()

	corpusPath := *path
	if corpusPath == "" {
		corpusPath = cfg.CorpusPath
	}

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}

	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiChatModel,
		cfg.GeminiEmbeddingModel,
		cfg.GeminiConcurrentReqs,
		nil,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()

	searcher := search.NewSearcher(pool, geminiService)
	extractService := services.NewCorpusExtractService()

	info, err := os.Stat(corpusPath)
	if err != nil {
		log.Fatalf("✗ Corpus path inaccessible: %v", err)
	}

	var entries []models.PubMedSource
	if info.IsDir() {
		entries, err = extractService.ExtractDir(corpusPath)
	} else {
		entries, err = extractService.ExtractFromPath(corpusPath)
	}
	if err != nil {
		log.Fatalf("✗ Corpus extraction failed: %v", err)
	}
	log.Printf("✓ Extracted %d entries from %s", len(entries), corpusPath)

	ctx := context.Background()
	indexed := 0
	rejected := 0
	for _, entry := range entries {
		if err := searcher.Upsert(ctx, []models.PubMedSource{entry}); err != nil {
			log.Printf("  skipping entry %q: %v", entry.PMID, err)
			rejected++
			continue
		}
		indexed++
	}

	log.Printf("✓ Indexed %d entries (%d rejected)", indexed, rejected)
}
