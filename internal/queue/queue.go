package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/logging"
)

// ErrPaused is returned by Enqueue while an emergency purge is
// draining the queue.
var ErrPaused = errors.New("queue intake paused")

// Job is one unit of location-processing work. Jobs run exactly once:
// a failed job is recorded, never retried.
type Job struct {
	ID         string
	DedupKey   string
	Delay      time.Duration
	Sample     model.RawLocationSample
	EnqueuedAt time.Time
}

// Handler processes one dequeued job.
type Handler func(ctx context.Context, job *Job) error

// Stats mirrors the job-count categories operators watch.
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
	Total     int `json:"total"`
}

// PurgeResult reports what an emergency purge cleared.
type PurgeResult struct {
	Waiting   int `json:"waiting"`
	Delayed   int `json:"delayed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	DedupKeys int `json:"dedupKeys"`
}

type Config struct {
	Workers            int
	Capacity           int           // pending buffer size
	RatePerSecond      int           // accepted enqueues per second
	DedupWindow        time.Duration // coarse duplicate bucket
	BatchStagger       time.Duration // per-index delay for batch items
	CompletedRetention int           // max retained completed records
	FailedRetention    int           // max retained failed records
	RetentionAge       time.Duration // max age of retained records
}

func DefaultConfig() Config {
	return Config{
		Workers:            4,
		Capacity:           256,
		RatePerSecond:      30,
		DedupWindow:        30 * time.Second,
		BatchStagger:       100 * time.Millisecond,
		CompletedRetention: 50,
		FailedRetention:    25,
		RetentionAge:       time.Hour,
	}
}

type jobRecord struct {
	JobID  string
	UserID string
	Err    string
	At     time.Time
}

// Queue is the in-process ingestion queue: deduplicating, rate-limited
// and memory-bounded. Safe for concurrent enqueue from many request
// goroutines.
type Queue struct {
	cfg     Config
	log     logging.Logger
	handler Handler

	pending chan *Job

	mutex    sync.Mutex
	paused   bool
	dedup    map[string]time.Time // dedup key -> accepted at
	timers   map[string]*time.Timer
	delayed  int
	active   int
	nextSlot time.Time // rate limiter: next free accept slot

	completed []jobRecord
	failed    []jobRecord

	now func() time.Time
}

func New(cfg Config, handler Handler, log logging.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Queue{
		cfg:     cfg,
		log:     log,
		handler: handler,
		pending: make(chan *Job, cfg.Capacity),
		dedup:   make(map[string]time.Time),
		timers:  make(map[string]*time.Timer),
		now:     time.Now,
	}
}

// BatchStagger is the configured per-index delay for batch items.
func (q *Queue) BatchStagger() time.Duration {
	return q.cfg.BatchStagger
}

// DedupKey derives the coarse duplicate bucket for a sample.
func DedupKey(userID string, t time.Time, window time.Duration) string {
	return fmt.Sprintf("%s:%d", userID, t.UnixNano()/int64(window))
}

// Enqueue accepts one sample for processing. The boolean is false for
// a silently dropped duplicate. Delay carried on the job (batch
// stagger) is added on top of any rate-limiter delay.
func (q *Queue) Enqueue(sample model.RawLocationSample, delay time.Duration) (bool, error) {
	now := q.now()
	key := DedupKey(sample.UserID, now, q.cfg.DedupWindow)

	q.mutex.Lock()
	if q.paused {
		q.mutex.Unlock()
		return false, ErrPaused
	}

	if at, seen := q.dedup[key]; seen && now.Sub(at) < q.cfg.DedupWindow {
		q.mutex.Unlock()
		return false, nil
	}
	q.dedup[key] = now

	// Rate limiting queues with delay instead of rejecting: each
	// accepted job takes the next free 1/rate slot.
	interval := time.Second / time.Duration(q.cfg.RatePerSecond)
	if q.nextSlot.Before(now) {
		q.nextSlot = now
	}
	wait := q.nextSlot.Sub(now) + delay
	q.nextSlot = q.nextSlot.Add(interval)

	job := &Job{
		ID:         uuid.NewString(),
		DedupKey:   key,
		Delay:      wait,
		Sample:     sample,
		EnqueuedAt: now,
	}

	if wait <= 0 {
		q.mutex.Unlock()
		q.pending <- job
		return true, nil
	}

	q.delayed++
	q.timers[job.ID] = time.AfterFunc(wait, func() {
		q.mutex.Lock()
		if _, live := q.timers[job.ID]; !live {
			q.mutex.Unlock()
			return // purged while waiting
		}
		delete(q.timers, job.ID)
		q.delayed--
		q.mutex.Unlock()
		q.pending <- job
	})
	q.mutex.Unlock()
	return true, nil
}

// Run pulls jobs with cfg.Workers goroutines until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job := <-q.pending:
					q.process(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) process(ctx context.Context, job *Job) {
	q.mutex.Lock()
	q.active++
	q.mutex.Unlock()

	err := q.handler(ctx, job)

	q.mutex.Lock()
	q.active--
	record := jobRecord{JobID: job.ID, UserID: job.Sample.UserID, At: q.now()}
	if err != nil {
		record.Err = err.Error()
		q.failed = append(q.failed, record)
	} else {
		q.completed = append(q.completed, record)
	}
	q.trimRetentionLocked()
	q.mutex.Unlock()

	if err != nil {
		q.log.Error("job processing failed", "jobId", job.ID, "userId", job.Sample.UserID, "error", err)
	}
}

func (q *Queue) trimRetentionLocked() {
	cutoff := q.now().Add(-q.cfg.RetentionAge)
	q.completed = trimRecords(q.completed, q.cfg.CompletedRetention, cutoff)
	q.failed = trimRecords(q.failed, q.cfg.FailedRetention, cutoff)
}

func trimRecords(records []jobRecord, max int, cutoff time.Time) []jobRecord {
	if len(records) > max {
		records = records[len(records)-max:]
	}
	firstFresh := 0
	for firstFresh < len(records) && records[firstFresh].At.Before(cutoff) {
		firstFresh++
	}
	return records[firstFresh:]
}

// PruneDedup drops dedup buckets older than the window. Run
// periodically by the janitor.
func (q *Queue) PruneDedup() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	cutoff := q.now().Add(-q.cfg.DedupWindow)
	pruned := 0
	for key, at := range q.dedup {
		if at.Before(cutoff) {
			delete(q.dedup, key)
			pruned++
		}
	}
	return pruned
}

// TrimRetention applies the count/age caps outside the job path.
func (q *Queue) TrimRetention() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.trimRetentionLocked()
}

// Stats snapshots the job counts.
func (q *Queue) Stats() Stats {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	s := Stats{
		Waiting:   len(q.pending),
		Active:    q.active,
		Completed: len(q.completed),
		Failed:    len(q.failed),
		Delayed:   q.delayed,
	}
	s.Total = s.Waiting + s.Active + s.Completed + s.Failed + s.Delayed
	return s
}

// Purge pauses intake, clears every job class and the dedup index,
// then resumes. In-flight jobs finish; nothing is left half-cleared.
func (q *Queue) Purge() PurgeResult {
	q.mutex.Lock()
	q.paused = true

	result := PurgeResult{
		Delayed:   len(q.timers),
		Completed: len(q.completed),
		Failed:    len(q.failed),
		DedupKeys: len(q.dedup),
	}

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.delayed = 0
	q.completed = nil
	q.failed = nil
	q.dedup = make(map[string]time.Time)
	q.mutex.Unlock()

	// Drain whatever was already waiting. Workers may race us for
	// individual jobs; either way each job is fully taken or fully
	// dropped.
	for {
		select {
		case <-q.pending:
			result.Waiting++
		default:
			q.mutex.Lock()
			q.paused = false
			q.mutex.Unlock()
			q.log.Warn("queue purged",
				"waiting", result.Waiting, "delayed", result.Delayed,
				"completed", result.Completed, "failed", result.Failed)
			return result
		}
	}
}
