package handler

import (
	"net/http"

	"fieldtrack/internal/core/service"
)

type OpsHandler struct {
	ops service.OpsService
}

func NewOpsHandler(ops service.OpsService) *OpsHandler {
	return &OpsHandler{ops: ops}
}

func (h *OpsHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ops.QueueStats())
}

func (h *OpsHandler) EmergencyPurge(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ops.EmergencyPurge(r.Context()))
}
