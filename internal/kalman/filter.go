package kalman

import (
	"sync"
	"time"
)

// Tuning parameters for the scalar filters. Process noise reflects how
// far a person plausibly drifts between samples; measurement noise is
// the floor applied when the device reports an optimistic accuracy.
type Config struct {
	ProcessNoise         float64 // Q, degrees²
	BaseMeasurementNoise float64 // R floor, degrees²
	IdleTTL              time.Duration
}

func DefaultConfig() Config {
	return Config{
		// ~5m of plausible movement per sample keeps the filter
		// responsive to real walking while damping jitter.
		ProcessNoise:         2e-9,
		BaseMeasurementNoise: 2e-11, // ~0.5m floor
		IdleTTL:              60 * time.Second,
	}
}

// Filter is a one-dimensional Kalman filter tracking a single axis.
type Filter struct {
	x           float64 // estimate
	p           float64 // error covariance
	q           float64 // process noise
	r           float64 // base measurement noise
	initialized bool
}

func NewFilter(cfg Config) *Filter {
	return &Filter{q: cfg.ProcessNoise, r: cfg.BaseMeasurementNoise}
}

// Update folds one measurement into the estimate. accuracy is the
// device-reported error in the measurement's own units; larger accuracy
// means the sample is trusted less. The first measurement seeds the
// filter and is returned unchanged.
func (f *Filter) Update(measurement, accuracy float64) float64 {
	if !f.initialized {
		f.x = measurement
		f.p = accuracy * accuracy
		f.initialized = true
		return measurement
	}

	rEff := accuracy * accuracy
	if rEff < f.r {
		rEff = f.r
	}

	// Predict: position model is static, only covariance grows.
	pPred := f.p + f.q

	k := pPred / (pPred + rEff)
	f.x = f.x + k*(measurement-f.x)
	f.p = (1 - k) * pPred
	return f.x
}

// Estimate returns the current state without updating it.
func (f *Filter) Estimate() float64 {
	return f.x
}

// UserFilter is the lat/lng filter pair for one tracked user.
type UserFilter struct {
	Lat      *Filter
	Lng      *Filter
	lastUsed time.Time
}

// Smooth runs both axes through their filters. GPS accuracy is
// reported in meters; it is scaled to degree space so the covariance
// arithmetic stays in one unit system.
func (u *UserFilter) Smooth(lat, lng, accuracyMeters float64) (float64, float64) {
	accDeg := accuracyMeters / 111320 // meters per degree at the equator
	return u.Lat.Update(lat, accDeg), u.Lng.Update(lng, accDeg)
}

// Registry owns the per-user filter pairs. Entries are created on
// first use and evicted after IdleTTL of inactivity so the map cannot
// grow without bound.
type Registry struct {
	cfg     Config
	mu      sync.Mutex
	filters map[string]*UserFilter
	now     func() time.Time
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:     cfg,
		filters: make(map[string]*UserFilter),
		now:     time.Now,
	}
}

// ForUser returns the user's filter pair, creating it if absent.
func (r *Registry) ForUser(userID string) *UserFilter {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.filters[userID]
	if !ok {
		f = &UserFilter{
			Lat: NewFilter(r.cfg),
			Lng: NewFilter(r.cfg),
		}
		r.filters[userID] = f
	}
	f.lastUsed = r.now()
	return f
}

// EvictIdle drops filters idle longer than the configured TTL and
// returns how many were removed.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.cfg.IdleTTL)
	evicted := 0
	for id, f := range r.filters {
		if f.lastUsed.Before(cutoff) {
			delete(r.filters, id)
			evicted++
		}
	}
	return evicted
}

// Reset discards all filter state. Used by the emergency purge.
func (r *Registry) Reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.filters)
	r.filters = make(map[string]*UserFilter)
	return n
}

// Len reports the number of tracked users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filters)
}
