package service

import (
	"context"

	"fieldtrack/internal/logging"
	"fieldtrack/internal/pipeline"
	"fieldtrack/internal/queue"
)

// PurgeReport is what an emergency purge cleared, per category.
type PurgeReport struct {
	Queue queue.PurgeResult `json:"queue"`
	State map[string]int    `json:"state"`
}

// OpsService exposes the operator surface: queue statistics and the
// emergency purge used to recover from memory-pressure incidents.
type OpsService interface {
	QueueStats() queue.Stats
	EmergencyPurge(ctx context.Context) PurgeReport
}

type opsService struct {
	queue     *queue.Queue
	processor *pipeline.Processor
	log       logging.Logger
}

func NewOpsService(q *queue.Queue, processor *pipeline.Processor, log logging.Logger) OpsService {
	return &opsService{queue: q, processor: processor, log: log}
}

func (s *opsService) QueueStats() queue.Stats {
	return s.queue.Stats()
}

// EmergencyPurge pauses intake, clears every job class, then sweeps
// the processor's ephemeral per-user state and the location cache.
func (s *opsService) EmergencyPurge(ctx context.Context) PurgeReport {
	s.log.Warn("emergency purge requested")

	report := PurgeReport{
		Queue: s.queue.Purge(),
		State: s.processor.PurgeState(ctx),
	}

	s.log.Warn("emergency purge finished",
		"waiting", report.Queue.Waiting,
		"delayed", report.Queue.Delayed,
		"cacheEntries", report.State["cacheEntries"])
	return report
}
