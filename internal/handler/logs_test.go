package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legali/transaction-service/internal/eventlog"
)

func newLogsRouter(log *eventlog.Log) *mux.Router {
	h := NewLogsHandler(log)
	r := mux.NewRouter()
	r.HandleFunc("/logs", h.Recent).Methods("GET")
	r.HandleFunc("/logs/transaction/{id}", h.ByTransaction).Methods("GET")
	r.HandleFunc("/logs/request/{id}", h.ByRequest).Methods("GET")
	return r
}

func TestLogsRecent(t *testing.T) {
	log := eventlog.New(10)
	log.Append(eventlog.Entry{Event: "transaction.created", TransactionID: "t1", Timestamp: time.Now()})
	log.Append(eventlog.Entry{Event: "transaction.enqueued", TransactionID: "t1", Timestamp: time.Now()})
	r := newLogsRouter(log)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []eventlog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "transaction.enqueued", entries[0].Event)
}

func TestLogsByTransaction(t *testing.T) {
	log := eventlog.New(10)
	log.Append(eventlog.Entry{Event: "transaction.created", TransactionID: "t1"})
	log.Append(eventlog.Entry{Event: "transaction.created", TransactionID: "t2"})
	r := newLogsRouter(log)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/transaction/t2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []eventlog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "t2", entries[0].TransactionID)
}

func TestLogsByRequestEmpty(t *testing.T) {
	log := eventlog.New(10)
	r := newLogsRouter(log)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/request/nope", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
