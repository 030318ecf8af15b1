package router

import (
	"encoding/json"
	"net/http"

	"fieldtrack/internal/api/handler"
	"fieldtrack/internal/api/middleware"
	"fieldtrack/internal/core/service"
	"fieldtrack/internal/fanout"
	"fieldtrack/internal/logging"
)

func NewRouter(
	ingestService service.IngestService,
	locationService service.LocationService,
	opsService service.OpsService,
	hub *fanout.Hub,
	log logging.Logger,
) http.Handler {
	locationHandler := handler.NewLocationHandler(ingestService, locationService)
	opsHandler := handler.NewOpsHandler(opsService)
	streamHandler := handler.NewStreamHandler(hub, log)

	mux := http.NewServeMux()

	withMiddleware := func(h http.Handler) http.Handler {
		return middleware.CORS(middleware.Logging(log)(h))
	}

	handlePost := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		})))
	}
	handleGet := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		})))
	}

	mux.Handle("/health", withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})))

	// Ingestion
	handlePost("/api/locations", locationHandler.Ingest)
	handlePost("/api/locations/batch", locationHandler.IngestBatch)

	// Live view
	handleGet("/api/locations/current", locationHandler.CurrentLocation)
	handleGet("/api/locations/active", locationHandler.ActiveUsers)

	// History
	handleGet("/api/locations/history", locationHandler.History)
	handleGet("/api/locations/track", locationHandler.HighFrequencyTrack)
	handleGet("/api/locations/export", locationHandler.Export)

	// Live stream (websocket upgrade, no method wrapper)
	mux.Handle("/api/locations/stream", http.HandlerFunc(streamHandler.Subscribe))

	// Operations
	handleGet("/api/queue/stats", opsHandler.QueueStats)
	handlePost("/api/queue/purge", opsHandler.EmergencyPurge)

	return mux
}
