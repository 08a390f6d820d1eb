package queue

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultPromoteInterval is how often due delayed jobs are promoted.
	DefaultPromoteInterval = 5 * time.Second

	// DefaultStaleAge is how long a claim may sit unacked before the
	// holding worker is presumed dead.
	DefaultStaleAge = 5 * time.Minute
)

// Maintainer runs the queue's background upkeep: promoting due delayed
// jobs and rescuing claims abandoned by crashed workers.
type Maintainer struct {
	queue           *Queue
	promoteInterval time.Duration
	staleAge        time.Duration
}

// NewMaintainer creates a maintainer with default timing.
func NewMaintainer(q *Queue) *Maintainer {
	return &Maintainer{
		queue:           q,
		promoteInterval: DefaultPromoteInterval,
		staleAge:        DefaultStaleAge,
	}
}

// NewMaintainerWithConfig creates a maintainer with custom timing.
func NewMaintainerWithConfig(q *Queue, promoteInterval, staleAge time.Duration) *Maintainer {
	if promoteInterval <= 0 {
		promoteInterval = DefaultPromoteInterval
	}
	if staleAge <= 0 {
		staleAge = DefaultStaleAge
	}
	return &Maintainer{queue: q, promoteInterval: promoteInterval, staleAge: staleAge}
}

// Start begins the upkeep loop. It blocks until ctx is cancelled.
func (m *Maintainer) Start(ctx context.Context) {
	log.Printf("[QueueMaintainer] Starting (promote_interval=%s, stale_age=%s)",
		m.promoteInterval, m.staleAge)

	promote := time.NewTicker(m.promoteInterval)
	defer promote.Stop()
	rescue := time.NewTicker(m.staleAge / 2)
	defer rescue.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[QueueMaintainer] Stopping")
			return
		case <-promote.C:
			n, err := m.queue.PromoteDue(ctx, time.Now())
			if err != nil {
				log.Printf("[QueueMaintainer] Promote error: %v", err)
			} else if n > 0 {
				log.Printf("[QueueMaintainer] Promoted %d due job(s)", n)
			}
		case <-rescue.C:
			n, err := m.queue.RequeueStale(ctx, m.staleAge)
			if err != nil {
				log.Printf("[QueueMaintainer] Rescue error: %v", err)
			} else if n > 0 {
				log.Printf("[QueueMaintainer] Rescued %d stale claim(s)", n)
			}
		}
	}
}
