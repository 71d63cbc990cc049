package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"medichat-backend/internal/models"
	"medichat-backend/internal/repository"
	"medichat-backend/internal/search"
	"medichat-backend/internal/services"
)

// Pool processes corpus-import jobs: extract Q&A entries from the
// requested path, embed them and index them into the vector store.
type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	extract     *services.CorpusExtractService
	searcher    *search.Searcher
	jobRepo     *repository.JobRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	extract *services.CorpusExtractService,
	searcher *search.Searcher,
	jobRepo *repository.JobRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		extract:     extract,
		searcher:    searcher,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{"queue:corpus-import"}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		if err := p.processImport(ctx, &job); err != nil {
			p.handleFailure(ctx, &job, err)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processImport(ctx context.Context, job *models.Job) error {
	var config models.CorpusImportConfig
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return fmt.Errorf("invalid job config: %w", err)
	}

	p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     1,
			StepName: "Extracting corpus entries",
		},
	})

	info, err := os.Stat(config.Path)
	if err != nil {
		return fmt.Errorf("corpus path inaccessible: %w", err)
	}

	var entries []models.PubMedSource
	if info.IsDir() {
		entries, err = p.extract.ExtractDir(config.Path)
	} else {
		entries, err = p.extract.ExtractFromPath(config.Path)
	}
	if err != nil {
		return err
	}

	p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     2,
			StepName: fmt.Sprintf("Indexing %d entries", len(entries)),
		},
	})

	indexed := 0
	rejected := 0
	for _, entry := range entries {
		if err := p.searcher.Upsert(ctx, []models.PubMedSource{entry}); err != nil {
			log.Printf("corpus import %s: skipping entry %q: %v", job.ID, entry.PMID, err)
			rejected++
			continue
		}
		indexed++
	}

	if err := p.jobRepo.MarkCompleted(ctx, job.ID); err != nil {
		return err
	}

	p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:           job.ID,
			EntriesIndexed:  indexed,
			EntriesRejected: rejected,
		},
	})

	log.Printf("corpus import %s: indexed %d entries (%d rejected)", job.ID, indexed, rejected)
	return nil
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	log.Printf("corpus import %s failed: %v", job.ID, err)

	p.jobRepo.MarkFailed(ctx, job.ID, err.Error())

	p.gemini.PublishUpdate(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "IMPORT_FAILED",
			ErrorMessage: err.Error(),
		},
	})
}
