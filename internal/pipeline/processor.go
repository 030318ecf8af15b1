package pipeline

import (
	"context"
	"fmt"
	"sync"

	"fieldtrack/internal/cache"
	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/fanout"
	"fieldtrack/internal/geo"
	"fieldtrack/internal/kalman"
	"fieldtrack/internal/logging"
)

const (
	cachePrefix     = "loc:"
	lastPointPrefix = cachePrefix + "last:"
	livePrefix      = cachePrefix + "live:"
)

func lastPointKey(userID string) string { return lastPointPrefix + userID }

// LiveKey is the cache key of a user's live-location snapshot.
func LiveKey(userID string) string { return livePrefix + userID }

// Processor runs the per-sample state machine. It is the sole writer
// of LiveLocationState and, through the track store, of TrackSegment
// records. Samples for one user are serialized on a per-user lock;
// different users process in parallel.
type Processor struct {
	cfg        Config
	filters    *kalman.Registry
	cache      *cache.Cache
	live       repository.LiveLocationRepository
	tracks     *TrackStore
	classifier *Classifier
	publisher  fanout.Publisher
	log        logging.Logger

	lockMutex sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewProcessor(
	cfg Config,
	filters *kalman.Registry,
	c *cache.Cache,
	live repository.LiveLocationRepository,
	tracks *TrackStore,
	classifier *Classifier,
	publisher fanout.Publisher,
	log logging.Logger,
) *Processor {
	return &Processor{
		cfg:        cfg,
		filters:    filters,
		cache:      c,
		live:       live,
		tracks:     tracks,
		classifier: classifier,
		publisher:  publisher,
		log:        log,
		userLocks:  make(map[string]*sync.Mutex),
	}
}

func (p *Processor) userLock(userID string) *sync.Mutex {
	p.lockMutex.Lock()
	defer p.lockMutex.Unlock()

	lock, ok := p.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.userLocks[userID] = lock
	}
	return lock
}

// Process handles one accepted raw sample end to end.
func (p *Processor) Process(ctx context.Context, raw model.RawLocationSample) error {
	lock := p.userLock(raw.UserID)
	lock.Lock()
	defer lock.Unlock()

	accuracy := raw.Accuracy
	if accuracy <= 0 {
		accuracy = p.cfg.DefaultAccuracyM
	}

	smoothedLat, smoothedLng := p.filters.ForUser(raw.UserID).Smooth(raw.Latitude, raw.Longitude, accuracy)

	last, err := p.lastPoint(ctx, raw.UserID)
	if err != nil {
		return fmt.Errorf("load last point for %s: %w", raw.UserID, err)
	}

	point := &model.ProcessedPoint{
		UserID:      raw.UserID,
		SmoothedLat: smoothedLat,
		SmoothedLng: smoothedLng,
		RawLat:      raw.Latitude,
		RawLng:      raw.Longitude,
		Speed:       raw.Speed,
		Accuracy:    raw.Accuracy,
		Timestamp:   raw.Timestamp,
	}
	point.MovementStatus = model.MovementStatusForSpeed(raw.Speed)

	if last != nil {
		point.DistanceFromLastM = geo.HaversineMeters(last.SmoothedLat, last.SmoothedLng, smoothedLat, smoothedLng)
		point.TimeFromLastSec = raw.Timestamp.Sub(last.Timestamp).Seconds()
	}
	point.Significant, point.SignificantSpatial = p.cfg.significance(
		point.DistanceFromLastM, point.TimeFromLastSec, last == nil)

	// The live view updates on every accepted sample. A failed write
	// fails the job; everything after it is layered on best-effort or
	// significance checks.
	liveState := model.LiveStateFromPoint(point, &raw)
	if err := p.live.Upsert(liveState); err != nil {
		return fmt.Errorf("persist live state for %s: %w", raw.UserID, err)
	}
	if err := p.cache.Set(ctx, LiveKey(raw.UserID), liveState, p.cfg.LiveCacheTTL); err != nil {
		p.log.Warn("live cache write failed", "userId", raw.UserID, "error", err)
	}

	update := fanout.Update{
		UserID:    raw.UserID,
		Point:     *point,
		DistanceM: point.DistanceFromLastM,
		IsMoving:  raw.Speed > p.cfg.MovingSpeedKmh,
	}
	if err := p.publisher.Publish(ctx, update); err != nil {
		// Fanout is best-effort: the live write above already landed.
		p.log.Warn("fanout publish failed", "userId", raw.UserID, "error", err)
	}

	p.classifier.Track(point)

	if !point.Significant {
		return nil
	}

	if err := p.cache.Set(ctx, lastPointKey(raw.UserID), point, p.cfg.LastPointTTL); err != nil {
		p.log.Warn("last point cache write failed", "userId", raw.UserID, "error", err)
	}
	if err := p.tracks.Append(point, &raw); err != nil {
		return fmt.Errorf("append track point for %s: %w", raw.UserID, err)
	}
	if err := p.classifier.Classify(point); err != nil {
		return fmt.Errorf("classify movement for %s: %w", raw.UserID, err)
	}
	return nil
}

// lastPoint loads the user's last processed point from the ephemeral
// cache, falling back to the durable live record when the cache entry
// expired.
func (p *Processor) lastPoint(ctx context.Context, userID string) (*model.ProcessedPoint, error) {
	var cached model.ProcessedPoint
	hit, err := p.cache.Get(ctx, lastPointKey(userID), &cached)
	if err == nil && hit {
		return &cached, nil
	}
	if err != nil {
		p.log.Warn("last point cache read failed", "userId", userID, "error", err)
	}

	state, err := p.live.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return &model.ProcessedPoint{
		UserID:      userID,
		SmoothedLat: state.Latitude,
		SmoothedLng: state.Longitude,
		RawLat:      state.RawLatitude,
		RawLng:      state.RawLongitude,
		Speed:       state.Speed,
		Timestamp:   state.LastUpdated,
	}, nil
}

// EvictIdle expires per-user ephemeral state across the pipeline.
// Driven by the janitor.
func (p *Processor) EvictIdle() (filters, windows, segments, cacheEntries int) {
	filters = p.filters.EvictIdle()
	windows = p.classifier.EvictIdle()
	segments = p.tracks.EvictIdle()
	cacheEntries = p.cache.EvictExpired()
	return
}

// PurgeState clears every ephemeral per-user structure the processor
// owns. Counts per category are returned for the purge report.
func (p *Processor) PurgeState(ctx context.Context) map[string]int {
	counts := map[string]int{
		"kalmanFilters":   p.filters.Reset(),
		"movementWindows": p.classifier.Reset(),
		"activeSegments":  p.tracks.Reset(),
	}

	cleared, err := p.cache.ClearPrefix(ctx, cachePrefix)
	if err != nil {
		p.log.Warn("cache clear during purge failed", "error", err)
	}
	counts["cacheEntries"] = cleared

	p.lockMutex.Lock()
	p.userLocks = make(map[string]*sync.Mutex)
	p.lockMutex.Unlock()
	return counts
}
