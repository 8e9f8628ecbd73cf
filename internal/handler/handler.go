package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/models"
	"github.com/legali/transaction-service/internal/service"
)

// Correlation headers carried on requests and responses.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderTransactionID  = "X-Transaction-Id"
	HeaderRequestID      = "X-Request-Id"
)

// Handler exposes the transaction lifecycle over HTTP.
type Handler struct {
	svc       *service.Service
	summaries *service.SummaryService
	log       *logrus.Logger
}

// NewHandler initializes the HTTP handler set.
func NewHandler(svc *service.Service, summaries *service.SummaryService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, summaries: summaries, log: log}
}

type createTransactionRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
}

// CreateTransaction handles POST /transactions/create.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	typ, ok := models.ParseTransactionType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid type: must be credit or debit")
		return
	}

	key := r.Header.Get(HeaderIdempotencyKey)
	tx, replayed, err := h.svc.Create(userID, req.Amount, typ, key)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if key != "" {
		w.Header().Set(HeaderIdempotencyKey, key)
	}
	w.Header().Set(HeaderTransactionID, tx.ID.String())
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, tx)
}

// ListTransactions handles GET /transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	txs, err := h.svc.List(limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus handles PATCH /transactions/{id}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, ok := models.ParseTransactionStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	updated, oldStatus, err := h.svc.ChangeStatus(id, status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// Publication happens here, after persistence succeeded, so a publish
	// failure can never roll the transition back.
	evt := models.TransactionStatusChanged(updated.ID.String(), oldStatus, updated.Status, updated.UpdatedAt)
	h.svc.Publish(evt)

	w.Header().Set(HeaderTransactionID, updated.ID.String())
	writeJSON(w, http.StatusOK, updated)
}

type asyncProcessRequest struct {
	TransactionID string `json:"transaction_id"`
}

// AsyncProcess handles POST /transactions/async-process.
func (h *Handler) AsyncProcess(w http.ResponseWriter, r *http.Request) {
	var req asyncProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction_id")
		return
	}

	jobID, err := h.svc.EnqueueProcessing(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set(HeaderTransactionID, id.String())
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":         jobID,
		"transaction_id": id.String(),
		"status":         "enqueued",
	})
}

type summarizeRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// Summarize handles POST /assistant/summarize.
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.summaries.Summarize(r.Context(), req.Text, req.Model, r.Header.Get(HeaderRequestID))
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.log.WithError(err).Error("summarize failed")
		writeError(w, http.StatusBadGateway, "summarization failed")
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// GetSummary handles GET /assistant/summaries/{id}.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid summary id")
		return
	}
	summary, err := h.summaries.Get(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
