package service

import (
	"context"
	"errors"
	"time"

	"fieldtrack/internal/cache"
	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/export"
	"fieldtrack/internal/logging"
	"fieldtrack/internal/pipeline"
)

// ErrBadTimeRange rejects queries whose range is empty or inverted.
var ErrBadTimeRange = errors.New("invalid time range")

// TrackFormat selects the point detail level for track queries.
type TrackFormat string

const (
	TrackFull       TrackFormat = "full"
	TrackCompressed TrackFormat = "compressed"
)

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type LocationHistory struct {
	Segments   []*model.TrackSegment `json:"trackSegments"`
	StopEvents []*model.StopEvent    `json:"stopEvents"`
	Pagination Pagination            `json:"pagination"`
}

type LocationService interface {
	CurrentLocation(ctx context.Context, userID string) (*model.LiveLocationState, error)
	ActiveUsers(ctx context.Context, threshold time.Duration) ([]*model.LiveLocationState, error)
	History(ctx context.Context, userID string, from, to time.Time, page, pageSize int) (*LocationHistory, error)
	HighFrequencyTrack(ctx context.Context, userID string, from, to time.Time, format TrackFormat) ([]*model.TrackSegment, error)
	Export(ctx context.Context, userID string, from, to time.Time, format export.Format) ([]byte, string, error)
}

type locationService struct {
	cache    *cache.Cache
	live     repository.LiveLocationRepository
	segments repository.TrackSegmentRepository
	stops    repository.StopEventRepository
	log      logging.Logger
}

func NewLocationService(
	c *cache.Cache,
	live repository.LiveLocationRepository,
	segments repository.TrackSegmentRepository,
	stops repository.StopEventRepository,
	log logging.Logger,
) LocationService {
	return &locationService{
		cache:    c,
		live:     live,
		segments: segments,
		stops:    stops,
		log:      log,
	}
}

// CurrentLocation serves from the live cache first so reads keep
// working when the durable store is struggling.
func (s *locationService) CurrentLocation(ctx context.Context, userID string) (*model.LiveLocationState, error) {
	var cached model.LiveLocationState
	hit, err := s.cache.Get(ctx, pipeline.LiveKey(userID), &cached)
	if err == nil && hit {
		return &cached, nil
	}
	return s.live.FindByUserID(userID)
}

func (s *locationService) ActiveUsers(_ context.Context, threshold time.Duration) ([]*model.LiveLocationState, error) {
	if threshold <= 0 {
		threshold = model.OnlineWindow
	}
	return s.live.FindUpdatedSince(time.Now().Add(-threshold))
}

func (s *locationService) History(_ context.Context, userID string, from, to time.Time, page, pageSize int) (*LocationHistory, error) {
	if !from.Before(to) {
		return nil, ErrBadTimeRange
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	segments, total, err := s.segments.FindByUserAndRange(userID, from, to, page, pageSize)
	if err != nil {
		return nil, err
	}
	stops, err := s.stops.FindByUserAndRange(userID, from, to)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &LocationHistory{
		Segments:   segments,
		StopEvents: stops,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages},
	}, nil
}

// HighFrequencyTrack returns segments in full detail, or with points
// replaced by the compressed path when the caller asks for the
// compressed form and a compressed path exists.
func (s *locationService) HighFrequencyTrack(_ context.Context, userID string, from, to time.Time, format TrackFormat) ([]*model.TrackSegment, error) {
	if !from.Before(to) {
		return nil, ErrBadTimeRange
	}

	segments, _, err := s.segments.FindByUserAndRange(userID, from, to, 1, 1000)
	if err != nil {
		return nil, err
	}
	if format != TrackCompressed {
		return segments, nil
	}

	compressed := make([]*model.TrackSegment, len(segments))
	for i, seg := range segments {
		copied := *seg
		if len(copied.CompressedPath) > 0 {
			copied.Points = nil
		}
		compressed[i] = &copied
	}
	return compressed, nil
}

func (s *locationService) Export(ctx context.Context, userID string, from, to time.Time, format export.Format) ([]byte, string, error) {
	contentType := format.ContentType()
	if contentType == "" {
		return nil, "", errors.New("unsupported export format")
	}

	segments, err := s.HighFrequencyTrack(ctx, userID, from, to, TrackFull)
	if err != nil {
		return nil, "", err
	}

	body, err := export.Render(segments, format)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}
