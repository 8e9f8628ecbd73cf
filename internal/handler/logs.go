package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legali/transaction-service/internal/eventlog"
)

// LogsHandler exposes the in-memory event log to the log viewer.
type LogsHandler struct {
	log *eventlog.Log
}

// NewLogsHandler initializes the log viewer handler.
func NewLogsHandler(log *eventlog.Log) *LogsHandler {
	return &LogsHandler{log: log}
}

// Recent handles GET /logs.
func (h *LogsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}
	writeJSON(w, http.StatusOK, h.log.Recent(limit))
}

// ByTransaction handles GET /logs/transaction/{id}.
func (h *LogsHandler) ByTransaction(w http.ResponseWriter, r *http.Request) {
	entries := h.log.ByTransaction(mux.Vars(r)["id"])
	if entries == nil {
		entries = []eventlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ByRequest handles GET /logs/request/{id}.
func (h *LogsHandler) ByRequest(w http.ResponseWriter, r *http.Request) {
	entries := h.log.ByRequest(mux.Vars(r)["id"])
	if entries == nil {
		entries = []eventlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
