// Package search provides vector-similarity lookup over the biomedical
// Q&A corpus stored in PostgreSQL with pgvector.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"medichat-backend/internal/models"
)

// Embedder turns text into the vector used for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher performs ranked lookups against the pubmed_qa table. It is
// constructed once at startup with its embedder and shared across
// sessions; both pgxpool and the Gemini client are safe for concurrent
// use.
type Searcher struct {
	pool     *pgxpool.Pool
	embedder Embedder
}

func NewSearcher(pool *pgxpool.Pool, embedder Embedder) *Searcher {
	return &Searcher{pool: pool, embedder: embedder}
}

// Search returns up to topK sources ordered by descending similarity.
// Tie-break order among equally ranked rows is whatever Postgres returns.
// topK <= 0 short-circuits to an empty result without touching the index.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]models.PubMedSource, error) {
	if topK <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pmid, question, contexts, labels, year, meshes
		FROM pubmed_qa
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var sources []models.PubMedSource
	for rows.Next() {
		var pmid, question, contexts, labels, year, meshes string
		if err := rows.Scan(&pmid, &question, &contexts, &labels, &year, &meshes); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		sources = append(sources, parseSource(pmid, question, contexts, labels, year, meshes))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return sources, nil
}

// Upsert embeds and indexes corpus entries. Used by the ingest CLI and the
// corpus-import worker, never by the chat path.
func (s *Searcher) Upsert(ctx context.Context, entries []models.PubMedSource) error {
	for _, e := range entries {
		text := e.Question
		if len(e.Contexts) > 0 {
			text = text + "\n" + strings.Join(e.Contexts, "\n")
		}

		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed entry %q: %w", e.PMID, err)
		}

		_, err = s.pool.Exec(ctx, `
			INSERT INTO pubmed_qa (pmid, question, contexts, labels, year, meshes, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (pmid) DO UPDATE SET
				question = EXCLUDED.question,
				contexts = EXCLUDED.contexts,
				labels = EXCLUDED.labels,
				year = EXCLUDED.year,
				meshes = EXCLUDED.meshes,
				embedding = EXCLUDED.embedding`,
			e.PMID, e.Question,
			strings.Join(e.Contexts, "|||"), strings.Join(e.Labels, ","),
			e.Year, strings.Join(e.Meshes, ","),
			pgvector.NewVector(embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert entry %q: %w", e.PMID, err)
		}
	}

	return nil
}

// parseSource maps a stored row onto a PubMedSource. Delimited fields use
// "|||" for context spans and "," for labels and mesh terms; empty fields
// degrade to empty lists and a missing year degrades to "N/A".
func parseSource(pmid, question, contexts, labels, year, meshes string) models.PubMedSource {
	src := models.PubMedSource{
		PMID:     pmid,
		Question: question,
		Year:     year,
	}
	if src.Year == "" {
		src.Year = "N/A"
	}
	if contexts != "" {
		src.Contexts = strings.Split(contexts, "|||")
	}
	if labels != "" {
		src.Labels = strings.Split(labels, ",")
	}
	if meshes != "" {
		src.Meshes = strings.Split(meshes, ",")
	}
	return src
}
