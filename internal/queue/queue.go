// Package queue implements the Redis-backed delayed delivery queue.
//
// Jobs are outbound email IDs. A job scheduled in the future sits in a
// sorted set scored by its ready time; a maintainer loop promotes due jobs
// onto a ready list, and workers claim from the ready list onto a
// processing list so a crashed worker never loses a job. Delivery is
// at-least-once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyReady      = "ready"      // list of jobs ready to send
	keyDelayed    = "delayed"    // zset of jobs scored by ready time (unix ms)
	keyProcessing = "processing" // list of jobs claimed by workers
	keyDead       = "dead"       // list of jobs that exhausted retries
	keyAttempts   = "attempts"   // hash: job -> delivery attempt count
	keyClaims     = "claims"     // hash: job -> claim time (unix ms)
)

// promoteScript atomically moves all due members from the delayed zset to
// the ready list.
var promoteScript = redis.NewScript(`
	local due = redis.call("zrangebyscore", KEYS[1], "-inf", ARGV[1])
	for _, job in ipairs(due) do
		redis.call("zrem", KEYS[1], job)
		redis.call("lpush", KEYS[2], job)
	end
	return #due
`)

// Queue is a delayed job queue over Redis. Safe for concurrent use.
type Queue struct {
	client *redis.Client
	ns     string
}

// New creates a queue under the given key namespace (e.g. "outreach:sendq").
func New(client *redis.Client, namespace string) *Queue {
	return &Queue{client: client, ns: namespace}
}

func (q *Queue) key(suffix string) string {
	return q.ns + ":" + suffix
}

// Enqueue schedules a job. With zero delay the job is immediately ready;
// otherwise it waits in the delayed set until promoted.
func (q *Queue) Enqueue(ctx context.Context, job string, delay time.Duration) error {
	if delay <= 0 {
		if err := q.client.LPush(ctx, q.key(keyReady), job).Err(); err != nil {
			return fmt.Errorf("enqueue ready: %w", err)
		}
		return nil
	}
	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.key(keyDelayed), redis.Z{Score: readyAt, Member: job}).Err(); err != nil {
		return fmt.Errorf("enqueue delayed: %w", err)
	}
	return nil
}

// PromoteDue moves every job whose ready time has passed onto the ready
// list. Returns the number promoted.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, q.client,
		[]string{q.key(keyDelayed), q.key(keyReady)},
		now.UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("promote due: %w", err)
	}
	return n, nil
}

// Dequeue claims the next ready job, blocking up to timeout. Returns
// ("", nil) when the queue stays empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	job, err := q.client.BRPopLPush(ctx, q.key(keyReady), q.key(keyProcessing), timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dequeue: %w", err)
	}
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := q.client.HSet(ctx, q.key(keyClaims), job, now).Err(); err != nil {
		return "", fmt.Errorf("record claim: %w", err)
	}
	return job, nil
}

// Ack marks a claimed job done and clears its bookkeeping.
func (q *Queue) Ack(ctx context.Context, job string) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.key(keyProcessing), 1, job)
	pipe.HDel(ctx, q.key(keyClaims), job)
	pipe.HDel(ctx, q.key(keyAttempts), job)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// Nack returns a failed job to the queue with the given retry delay, or
// moves it to the dead list once maxAttempts deliveries have failed.
// It reports whether the job will be retried and the attempt count so far.
func (q *Queue) Nack(ctx context.Context, job string, retryDelay time.Duration, maxAttempts int) (bool, int64, error) {
	attempts, err := q.client.HIncrBy(ctx, q.key(keyAttempts), job, 1).Result()
	if err != nil {
		return false, 0, fmt.Errorf("nack count: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.key(keyProcessing), 1, job)
	pipe.HDel(ctx, q.key(keyClaims), job)
	if attempts >= int64(maxAttempts) {
		pipe.LPush(ctx, q.key(keyDead), job)
		pipe.HDel(ctx, q.key(keyAttempts), job)
	} else {
		readyAt := float64(time.Now().Add(retryDelay).UnixMilli())
		pipe.ZAdd(ctx, q.key(keyDelayed), redis.Z{Score: readyAt, Member: job})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, attempts, fmt.Errorf("nack: %w", err)
	}
	return attempts < int64(maxAttempts), attempts, nil
}

// RequeueStale rescues jobs claimed longer than staleAge ago, which means
// the worker holding them died. Rescued jobs go back on the ready list.
func (q *Queue) RequeueStale(ctx context.Context, staleAge time.Duration) (int, error) {
	claims, err := q.client.HGetAll(ctx, q.key(keyClaims)).Result()
	if err != nil {
		return 0, fmt.Errorf("requeue stale: %w", err)
	}

	cutoff := time.Now().Add(-staleAge).UnixMilli()
	rescued := 0
	for job, claimedAt := range claims {
		ms, err := strconv.ParseInt(claimedAt, 10, 64)
		if err != nil || ms > cutoff {
			continue
		}
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, q.key(keyProcessing), 1, job)
		pipe.HDel(ctx, q.key(keyClaims), job)
		pipe.LPush(ctx, q.key(keyReady), job)
		if _, err := pipe.Exec(ctx); err != nil {
			return rescued, fmt.Errorf("requeue stale job: %w", err)
		}
		rescued++
	}
	return rescued, nil
}

// Stats reports queue depths for the health endpoint.
type Stats struct {
	Ready      int64 `json:"ready"`
	Delayed    int64 `json:"delayed"`
	Processing int64 `json:"processing"`
	Dead       int64 `json:"dead"`
}

// Stats returns the current depth of each queue segment.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.key(keyReady))
	processing := pipe.LLen(ctx, q.key(keyProcessing))
	dead := pipe.LLen(ctx, q.key(keyDead))
	delayed := pipe.ZCard(ctx, q.key(keyDelayed))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{
		Ready:      ready.Val(),
		Delayed:    delayed.Val(),
		Processing: processing.Val(),
		Dead:       dead.Val(),
	}, nil
}
