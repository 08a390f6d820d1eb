// Package worker drains the delivery queue and executes sends.
package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/threesixtyvue/outreach/internal/mailer"
	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/logger"
	"github.com/threesixtyvue/outreach/internal/queue"
)

const (
	// claimTimeout is how long a worker blocks waiting for a job.
	claimTimeout = 5 * time.Second

	// retryBaseDelay is the delay before a failed send retries.
	retryBaseDelay = 30 * time.Second
)

// SendWorkerPool runs N goroutines that claim queued outbound emails,
// re-check recipient state, send via the configured transport, and record
// the outcome. Jobs carry only the outbound email ID, so workers always
// act on current state (a lead who unsubscribed after enqueue is skipped).
type SendWorkerPool struct {
	store       *outreach.Store
	queue       *queue.Queue
	sender      mailer.Sender
	numWorkers  int
	maxAttempts int

	// Stats
	totalSent       int64
	totalFailed     int64
	totalSuppressed int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewSendWorkerPool creates a pool. maxAttempts bounds delivery retries
// per job before it is dead-lettered.
func NewSendWorkerPool(store *outreach.Store, q *queue.Queue, sender mailer.Sender, numWorkers, maxAttempts int) *SendWorkerPool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &SendWorkerPool{
		store:       store,
		queue:       q,
		sender:      sender,
		numWorkers:  numWorkers,
		maxAttempts: maxAttempts,
	}
}

// Start launches the worker goroutines.
func (p *SendWorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())

	log.Printf("[SendWorker] Starting %d worker(s)", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
}

// Stop cancels the workers and waits for in-flight sends to finish.
func (p *SendWorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	log.Printf("[SendWorker] Stopped (sent=%d failed=%d suppressed=%d)",
		atomic.LoadInt64(&p.totalSent),
		atomic.LoadInt64(&p.totalFailed),
		atomic.LoadInt64(&p.totalSuppressed))
}

// Stats returns cumulative delivery counters.
func (p *SendWorkerPool) Stats() (sent, failed, suppressed int64) {
	return atomic.LoadInt64(&p.totalSent),
		atomic.LoadInt64(&p.totalFailed),
		atomic.LoadInt64(&p.totalSuppressed)
}

func (p *SendWorkerPool) runWorker(id int) {
	defer p.wg.Done()

	for {
		if p.ctx.Err() != nil {
			return
		}
		job, err := p.queue.Dequeue(p.ctx, claimTimeout)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			log.Printf("[SendWorker %d] Dequeue error: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if job == "" {
			continue
		}
		p.process(job)
	}
}

// process executes one claimed job end to end.
func (p *SendWorkerPool) process(job string) {
	ctx := p.ctx

	outboundID, err := uuid.Parse(job)
	if err != nil {
		// Garbage in the queue cannot succeed later; drop it.
		log.Printf("[SendWorker] Dropping malformed job %q", job)
		if err := p.queue.Ack(ctx, job); err != nil {
			log.Printf("[SendWorker] Ack error: %v", err)
		}
		return
	}

	item, err := p.store.GetOutboundForDelivery(ctx, outboundID)
	if err != nil {
		p.retry(ctx, job, err)
		return
	}
	if item == nil || item.Unsubscribed {
		// Intentional suppression: no status change, no error.
		atomic.AddInt64(&p.totalSuppressed, 1)
		if err := p.queue.Ack(ctx, job); err != nil {
			log.Printf("[SendWorker] Ack error: %v", err)
		}
		return
	}

	messageID, err := p.sender.Send(ctx, &mailer.Message{
		To:       item.Email,
		Subject:  item.Subject,
		HTMLBody: item.BodyHTML,
	})
	if err != nil {
		logger.Warn("send failed", "outbound_id", job, "email", item.Email, "error", err.Error())
		p.retry(ctx, job, err)
		return
	}

	if err := p.store.MarkOutboundSent(ctx, outboundID, messageID); err != nil {
		// The transport delivered; losing the status update means a
		// retry would double-send. Log loudly and ack.
		logger.Error("sent but failed to record status", "outbound_id", job, "error", err.Error())
	}
	atomic.AddInt64(&p.totalSent, 1)
	if err := p.queue.Ack(ctx, job); err != nil {
		log.Printf("[SendWorker] Ack error: %v", err)
	}
}

// retry nacks the job with backoff; once retries are exhausted the
// outbound record is marked FAILED and the job dead-letters.
func (p *SendWorkerPool) retry(ctx context.Context, job string, cause error) {
	retrying, attempts, err := p.queue.Nack(ctx, job, retryBaseDelay, p.maxAttempts)
	if err != nil {
		log.Printf("[SendWorker] Nack error for %s: %v", job, err)
		return
	}
	if retrying {
		log.Printf("[SendWorker] Job %s attempt %d failed, will retry: %v", job, attempts, cause)
		return
	}

	atomic.AddInt64(&p.totalFailed, 1)
	logger.Error("delivery abandoned after max attempts",
		"outbound_id", job, "attempts", attempts, "error", cause.Error())
	if id, perr := uuid.Parse(job); perr == nil {
		if merr := p.store.MarkOutboundFailed(ctx, id); merr != nil {
			log.Printf("[SendWorker] Failed to mark %s FAILED: %v", job, merr)
		}
	}
}
