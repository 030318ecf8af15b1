package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fieldtrack/internal/core/model"
	"fieldtrack/internal/core/service"
	"fieldtrack/internal/export"
	"fieldtrack/internal/queue"
)

type LocationHandler struct {
	ingest    service.IngestService
	locations service.LocationService
}

func NewLocationHandler(ingest service.IngestService, locations service.LocationService) *LocationHandler {
	return &LocationHandler{
		ingest:    ingest,
		locations: locations,
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ingestStatus maps the error taxonomy onto HTTP codes: validation is
// the caller's fault, a paused/unavailable queue is ours.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMissingUserID),
		errors.Is(err, service.ErrInactiveUser),
		errors.Is(err, service.ErrInvalidCoordinates):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrPaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *LocationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var sample model.RawLocationSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.ingest.Ingest(sample)
	if err != nil {
		respondError(w, ingestStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *LocationHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var samples []model.RawLocationSample
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	respondJSON(w, http.StatusOK, h.ingest.IngestBatch(samples))
}

func (h *LocationHandler) CurrentLocation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}

	state, err := h.locations.CurrentLocation(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if state == nil {
		respondError(w, http.StatusNotFound, "no location known for user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"location": state,
		"isOnline": state.IsOnline(time.Now()),
	})
}

func (h *LocationHandler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	threshold := model.OnlineWindow
	if raw := r.URL.Query().Get("thresholdMinutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			respondError(w, http.StatusBadRequest, "invalid thresholdMinutes")
			return
		}
		threshold = time.Duration(minutes) * time.Minute
	}

	states, err := h.locations.ActiveUsers(r.Context(), threshold)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": states,
		"count": len(states),
	})
}

func timeRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
	}
	return from, to, nil
}

func (h *LocationHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	history, err := h.locations.History(r.Context(), userID, from, to, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrBadTimeRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *LocationHandler) HighFrequencyTrack(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := service.TrackFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = service.TrackFull
	}

	segments, err := h.locations.HighFrequencyTrack(r.Context(), userID, from, to, format)
	if err != nil {
		if errors.Is(err, service.ErrBadTimeRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"trackSegments": segments})
}

func (h *LocationHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}
	from, to, err := timeRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatGPX
	}

	body, contentType, err := h.locations.Export(r.Context(), userID, from, to, format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "track-"+userID+"."+string(format)))
	w.Write(body)
}
