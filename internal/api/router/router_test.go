package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fieldtrack/internal/cache"
	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/repository"
	"fieldtrack/internal/core/service"
	"fieldtrack/internal/fanout"
	"fieldtrack/internal/kalman"
	"fieldtrack/internal/logging"
	"fieldtrack/internal/pipeline"
	"fieldtrack/internal/queue"
)

type apiFixture struct {
	server *httptest.Server
	live   repository.LiveLocationRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := logging.Nop()
	cfg := pipeline.DefaultConfig()

	users := repository.NewInMemoryUserDirectory()
	users.Add("worker-1", true)

	live := repository.NewInMemoryLiveLocationRepository()
	segments := repository.NewInMemoryTrackSegmentRepository()
	stops := repository.NewInMemoryStopEventRepository()
	locationCache := cache.New("", log)
	hub := fanout.NewHub(log)

	processor := pipeline.NewProcessor(
		cfg,
		kalman.NewRegistry(kalman.DefaultConfig()),
		locationCache,
		live,
		pipeline.NewTrackStore(cfg, segments, log),
		pipeline.NewClassifier(cfg, stops, log),
		hub,
		log,
	)

	q := queue.New(queue.DefaultConfig(), func(ctx context.Context, job *queue.Job) error {
		return processor.Process(ctx, job.Sample)
	}, log)

	mux := NewRouter(
		service.NewIngestService(cfg, users, q, log),
		service.NewLocationService(locationCache, live, segments, stops, log),
		service.NewOpsService(q, processor, log),
		hub,
		log,
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &apiFixture{server: server, live: live}
}

func (f *apiFixture) get(t *testing.T, path string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("GET %s: undecodable body: %v", path, err)
	}
	return resp, body
}

func (f *apiFixture) post(t *testing.T, path, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}
	if string(body["status"]) != `"ok"` {
		t.Errorf("health status = %s, want ok", body["status"])
	}
}

func TestIngestEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	sample := fmt.Sprintf(`{"userId":"worker-1","latitude":43.2389,"longitude":76.8897,"speed":4,"accuracy":10,"timestamp":%q}`,
		time.Now().UTC().Format(time.RFC3339))
	resp := f.post(t, "/api/locations", sample)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid sample = %d, want 200", resp.StatusCode)
	}

	var result service.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Status != service.StatusAccepted {
		t.Errorf("result = %+v, want accepted", result)
	}
}

func TestIngestEndpointErrors(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"malformed body", `{"userId":`, http.StatusBadRequest},
		{"unknown user", `{"userId":"ghost","latitude":43.2,"longitude":76.8}`, http.StatusNotFound},
		{"missing user", `{"latitude":43.2,"longitude":76.8}`, http.StatusBadRequest},
		{"bad coordinates", `{"userId":"worker-1","latitude":123,"longitude":76.8}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := f.post(t, "/api/locations", tt.payload); resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestIngestRejectsWrongMethod(t *testing.T) {
	f := newAPIFixture(t)
	resp, err := http.Get(f.server.URL + "/api/locations")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET on an ingest route = %d, want 405", resp.StatusCode)
	}
}

func TestCurrentLocationEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.get(t, "/api/locations/current?userId=worker-1")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unseen user = %d, want 404", resp.StatusCode)
	}

	state := &model.LiveLocationState{
		UserID: "worker-1", Latitude: 43.2389, Longitude: 76.8897,
		Status: model.StatusWalking, LastUpdated: time.Now(),
	}
	if err := f.live.Upsert(state); err != nil {
		t.Fatal(err)
	}

	resp, body := f.get(t, "/api/locations/current?userId=worker-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("known user = %d, want 200", resp.StatusCode)
	}
	if string(body["isOnline"]) != "true" {
		t.Errorf("isOnline = %s for a just-updated user, want true", body["isOnline"])
	}

	resp, _ = f.get(t, "/api/locations/current")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing userId = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryEndpointValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.get(t, "/api/locations/history?userId=worker-1&from=bogus&to=2025-03-10T10:00:00Z")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad from = %d, want 400", resp.StatusCode)
	}

	resp, _ = f.get(t, "/api/locations/history?userId=worker-1&from=2025-03-10T10:00:00Z&to=2025-03-10T09:00:00Z")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("inverted range = %d, want 400", resp.StatusCode)
	}

	resp, _ = f.get(t, "/api/locations/history?userId=worker-1&from=2025-03-10T09:00:00Z&to=2025-03-10T10:00:00Z")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid empty history = %d, want 200", resp.StatusCode)
	}
}

func TestQueueOpsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.get(t, "/api/queue/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/queue/stats = %d, want 200", resp.StatusCode)
	}
	if _, ok := body["waiting"]; !ok {
		t.Errorf("stats body %v missing waiting count", body)
	}

	purge := f.post(t, "/api/queue/purge", "")
	if purge.StatusCode != http.StatusOK {
		t.Errorf("POST /api/queue/purge = %d, want 200", purge.StatusCode)
	}
	var report service.PurgeReport
	if err := json.NewDecoder(purge.Body).Decode(&report); err != nil {
		t.Fatalf("purge report undecodable: %v", err)
	}
}
