package service

import (
	"errors"
	"fmt"
	"time"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/logging"
	"fieldtrack/internal/pipeline"
	"fieldtrack/internal/queue"
)

// Validation errors are caller-visible and stop the sample before it
// ever reaches the queue.
var (
	ErrMissingUserID      = errors.New("missing user id")
	ErrUnknownUser        = errors.New("unknown user")
	ErrInactiveUser       = errors.New("user is not active")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)

type IngestStatus string

const (
	StatusAccepted IngestStatus = "accepted"
	StatusDropped  IngestStatus = "dropped"
)

// DropReason labels quality-filtered drops. Drops are not errors: the
// client's submission flow succeeded, the sample was just not useful.
type DropReason string

const (
	DropPoorAccuracy DropReason = "poor_accuracy"
	DropDuplicate    DropReason = "duplicate"
)

type IngestResult struct {
	Status IngestStatus `json:"status"`
	Reason DropReason   `json:"reason,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type IngestService interface {
	Ingest(sample model.RawLocationSample) (IngestResult, error)
	IngestBatch(samples []model.RawLocationSample) []IngestResult
}

type ingestService struct {
	cfg   pipeline.Config
	users repository.UserDirectory
	queue *queue.Queue
	log   logging.Logger
}

func NewIngestService(cfg pipeline.Config, users repository.UserDirectory, q *queue.Queue, log logging.Logger) IngestService {
	return &ingestService{
		cfg:   cfg,
		users: users,
		queue: q,
		log:   log,
	}
}

func (s *ingestService) validate(sample *model.RawLocationSample) error {
	if sample.UserID == "" {
		return ErrMissingUserID
	}
	if sample.Latitude < -90 || sample.Latitude > 90 ||
		sample.Longitude < -180 || sample.Longitude > 180 {
		return ErrInvalidCoordinates
	}

	user, err := s.users.FindByID(sample.UserID)
	if err != nil {
		return fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return ErrUnknownUser
	}
	if !user.IsActive {
		return ErrInactiveUser
	}

	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	return nil
}

func (s *ingestService) Ingest(sample model.RawLocationSample) (IngestResult, error) {
	return s.ingestOne(sample, 0)
}

func (s *ingestService) ingestOne(sample model.RawLocationSample, delay time.Duration) (IngestResult, error) {
	if err := s.validate(&sample); err != nil {
		return IngestResult{}, err
	}

	// Quality gate: an accuracy figure above the limit means the fix
	// is too noisy to smooth. Exactly at the limit is still accepted.
	if sample.Accuracy > s.cfg.MaxAccuracyM {
		s.log.Debug("sample dropped for poor accuracy",
			"userId", sample.UserID, "accuracy", sample.Accuracy)
		return IngestResult{Status: StatusDropped, Reason: DropPoorAccuracy}, nil
	}

	accepted, err := s.queue.Enqueue(sample, delay)
	if err != nil {
		return IngestResult{}, fmt.Errorf("enqueue: %w", err)
	}
	if !accepted {
		return IngestResult{Status: StatusDropped, Reason: DropDuplicate}, nil
	}
	return IngestResult{Status: StatusAccepted}, nil
}

// IngestBatch staggers items by index so a burst of queued-up client
// samples does not land on the workers at once. Per-item failures are
// reported in place; one bad sample never rejects the batch.
func (s *ingestService) IngestBatch(samples []model.RawLocationSample) []IngestResult {
	results := make([]IngestResult, len(samples))
	for i, sample := range samples {
		result, err := s.ingestOne(sample, time.Duration(i)*s.queue.BatchStagger())
		if err != nil {
			result = IngestResult{Status: StatusDropped, Error: err.Error()}
		}
		results[i] = result
	}
	return results
}
