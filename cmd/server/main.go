package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"fieldtrack/internal/api/router"
	"fieldtrack/internal/cache"
	"fieldtrack/internal/config"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/core/service"
	"fieldtrack/internal/fanout"
	"fieldtrack/internal/kalman"
	"fieldtrack/internal/logging"
	"fieldtrack/internal/pipeline"
	"fieldtrack/internal/queue"
)

func main() {
	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel)

	// Repositories: Mongo when configured, in-memory otherwise so the
	// pipeline can run standalone in development.
	var (
		liveRepo  repository.LiveLocationRepository
		trackRepo repository.TrackSegmentRepository
		stopRepo  repository.StopEventRepository
		userDir   repository.UserDirectory
	)

	mongoConfig := config.NewMongoConfig()
	if mongoConfig.URI != "" {
		db, err := config.ConnectMongoDB(mongoConfig)
		if err != nil {
			log.Error("failed to connect to mongodb", "error", err)
			os.Exit(1)
		}
		liveRepo = repository.NewMongoLiveLocationRepository(db)
		trackRepo = repository.NewMongoTrackSegmentRepository(db)
		stopRepo = repository.NewMongoStopEventRepository(db)
		userDir = repository.NewMongoUserDirectory(db)
	} else {
		log.Warn("mongodb not configured, using in-memory repositories")
		liveRepo = repository.NewInMemoryLiveLocationRepository()
		trackRepo = repository.NewInMemoryTrackSegmentRepository()
		stopRepo = repository.NewInMemoryStopEventRepository()
		userDir = repository.NewInMemoryUserDirectory()
	}

	locCache := cache.New(cfg.RedisURL, log)
	defer locCache.Close()

	hub := fanout.NewHub(log)
	var publisher fanout.Publisher = hub
	if cfg.AMQPURL != "" {
		amqpPub, err := fanout.NewAMQPPublisher(cfg.AMQPURL, log)
		if err != nil {
			log.Warn("amqp unavailable, fanout is in-process only", "error", err)
		} else {
			defer amqpPub.Close()
			publisher = fanout.Tee{hub, amqpPub}
		}
	}

	pipeCfg := pipeline.DefaultConfig()
	kalmanCfg := kalman.DefaultConfig()
	kalmanCfg.IdleTTL = pipeCfg.StateTTL
	filters := kalman.NewRegistry(kalmanCfg)
	tracks := pipeline.NewTrackStore(pipeCfg, trackRepo, log)
	classifier := pipeline.NewClassifier(pipeCfg, stopRepo, log)
	processor := pipeline.NewProcessor(pipeCfg, filters, locCache, liveRepo, tracks, classifier, publisher, log)

	queueCfg := queue.DefaultConfig()
	queueCfg.Workers = cfg.Workers
	queueCfg.Capacity = cfg.QueueCapacity
	queueCfg.RatePerSecond = cfg.RatePerSecond
	ingestQueue := queue.New(queueCfg, func(ctx context.Context, job *queue.Job) error {
		return processor.Process(ctx, job.Sample)
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := ingestQueue.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("worker pool stopped", "error", err)
		}
	}()

	// Janitor: bound ephemeral per-user state and queue bookkeeping.
	janitor := cron.New()
	janitor.Schedule(cron.Every(cfg.JanitorInterval), cron.FuncJob(func() {
		filters, windows, segments, cacheEntries := processor.EvictIdle()
		pruned := ingestQueue.PruneDedup()
		ingestQueue.TrimRetention()
		if filters+windows+segments+cacheEntries+pruned > 0 {
			log.Debug("janitor sweep",
				"kalmanFilters", filters, "movementWindows", windows,
				"activeSegments", segments, "cacheEntries", cacheEntries,
				"dedupKeys", pruned)
		}
	}))
	janitor.Start()
	defer janitor.Stop()

	ingestService := service.NewIngestService(pipeCfg, userDir, ingestQueue, log)
	locationService := service.NewLocationService(locCache, liveRepo, trackRepo, stopRepo, log)
	opsService := service.NewOpsService(ingestQueue, processor, log)

	r := router.NewRouter(ingestService, locationService, opsService, hub, log)

	server := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Info("server starting", "addr", server.Addr, "workers", queueCfg.Workers)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
