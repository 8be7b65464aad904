package recorder

import (
	"context"
	"log"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/governor"
	"github.com/aman-churiwal/exchange-governor/internal/models"
	"github.com/aman-churiwal/exchange-governor/internal/repository"
)

const (
	batchSize     = 100
	flushInterval = 5 * time.Second
)

// Recorder persists ticket resolutions in the background. Record never
// blocks: the governor calls it from its scheduling path, so a slow or down
// database must only cost us history, never admissions.
type Recorder struct {
	repo     *repository.TicketLogRepository
	ch       chan governor.TicketRecord
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(repo *repository.TicketLogRepository, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	return &Recorder{
		repo:     repo,
		ch:       make(chan governor.TicketRecord, bufferSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the batching worker
func (r *Recorder) Start() {
	go r.run()
}

// Record queues a resolution for persistence; drops it if the buffer is full
func (r *Recorder) Record(rec governor.TicketRecord) {
	select {
	case r.ch <- rec:
	default:
		log.Printf("recorder: buffer full, dropping record for ticket %s", rec.ID)
	}
}

// Stop flushes pending records and shuts the worker down
func (r *Recorder) Stop() {
	close(r.stopChan)
	<-r.doneChan
}

func (r *Recorder) run() {
	defer close(r.doneChan)

	batch := make([]*models.TicketLog, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec := <-r.ch:
			batch = append(batch, toLog(rec))
			if len(batch) >= batchSize {
				r.flush(batch)
				batch = make([]*models.TicketLog, 0, batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = make([]*models.TicketLog, 0, batchSize)
			}
		case <-r.stopChan:
			// Drain whatever is still buffered before exiting
			for {
				select {
				case rec := <-r.ch:
					batch = append(batch, toLog(rec))
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(batch []*models.TicketLog) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.repo.CreateBatch(ctx, batch); err != nil {
		log.Printf("recorder: failed to insert %d ticket logs: %v", len(batch), err)
	}
}

func toLog(rec governor.TicketRecord) *models.TicketLog {
	return &models.TicketLog{
		TicketID:   rec.ID,
		Tier:       rec.Tier.String(),
		Outcome:    rec.Outcome,
		WeightCost: rec.WeightCost,
		OrdersCost: rec.OrdersCost,
		EnqueuedAt: rec.EnqueuedAt,
		ResolvedAt: rec.ResolvedAt,
		WaitMs:     rec.WaitMs,
	}
}
