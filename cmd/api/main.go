package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/config"
	"github.com/legali/transaction-service/internal/eventlog"
	"github.com/legali/transaction-service/internal/events"
	"github.com/legali/transaction-service/internal/handler"
	"github.com/legali/transaction-service/internal/integrations/openai"
	"github.com/legali/transaction-service/internal/notify"
	"github.com/legali/transaction-service/internal/queue"
	"github.com/legali/transaction-service/internal/repository"
	"github.com/legali/transaction-service/internal/service"
	"github.com/legali/transaction-service/internal/ws"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Select the storage backend
	var (
		txRepo repository.TransactionRepository
		idem   repository.IdempotencyStore
	)
	switch cfg.PersistenceMode() {
	case config.PersistencePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		if err := repository.InitPostgresSchema(db); err != nil {
			logger.Fatalf("Failed to init schema: %v", err)
		}
		txRepo = repository.NewPostgresRepository(db)
		idem = repository.NewPostgresIdempotencyStore(db)
	case config.PersistenceSqlite:
		db, err := repository.OpenSqlite(cfg.SqlitePath())
		if err != nil {
			logger.Fatalf("Failed to open sqlite: %v", err)
		}
		txRepo = repository.NewSqliteRepository(db)
		idem = repository.NewSqliteIdempotencyStore(db)
	default:
		txRepo = repository.NewMemoryTransactionRepository()
		idem = repository.NewMemoryIdempotencyStore()
	}
	logger.Infof("Using %s persistence", cfg.PersistenceMode())

	// Core plumbing: bus, queue, websocket hub, event log.
	bus := events.NewBus(logger)
	jobs := queue.NewMemoryQueue()
	hub := ws.NewHub(logger)
	eventLog := eventlog.New(0)

	bus.Subscribe(events.Wildcard, func(eventType string, payload map[string]any) {
		entry := eventlog.Entry{
			Timestamp: time.Now().UTC(),
			Service:   "api",
			Event:     eventType,
			RequestID: "-",
			Payload:   map[string]any{},
		}
		for k, v := range payload {
			switch k {
			case "transaction_id":
				entry.TransactionID, _ = v.(string)
			case "job_id":
				entry.JobID, _ = v.(string)
				entry.Service = "worker"
			case "request_id":
				if s, ok := v.(string); ok && s != "" {
					entry.RequestID = s
				}
			default:
				entry.Payload[k] = v
			}
		}
		eventLog.Append(entry)
	})

	bus.Subscribe("transaction.status_changed", ws.BroadcastHandler(hub))

	if cfg.SMTPHost != "" {
		notifier := notify.NewEmailNotifier(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword,
			cfg.EmailFrom, cfg.EmailTo, logger)
		bus.Subscribe("transaction.status_changed", notifier.Handler())
		logger.Info("Email notifications enabled")
	}

	// Summarizer: stub unless an API key is configured.
	var summarizer openai.Summarizer = openai.Stub{}
	if cfg.OpenAIAPIKey != "" {
		summarizer = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	}

	// Initialize layers
	svc := service.NewService(txRepo, idem, jobs, bus, logger, cfg.IdempotencyKeyRequired)
	summaries := service.NewSummaryService(repository.NewMemorySummaryRepository(), summarizer, bus, logger)
	h := handler.NewHandler(svc, summaries, logger)
	logsHandler := handler.NewLogsHandler(eventLog)

	// Background worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := service.NewWorker(jobs, svc, bus, logger, cfg.FailProbability, cfg.SimulateWork,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	// Periodic stats reporter
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.StatsSchedule, func() {
		logger.WithFields(logrus.Fields{
			"queue_depth": jobs.Len(),
			"ws_clients":  hub.Count(),
		}).Info("stats")
	}); err != nil {
		logger.Fatalf("Failed to schedule stats reporter: %v", err)
	}
	scheduler.Start()

	// Setup router
	r := mux.NewRouter()
	r.HandleFunc("/transactions/create", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	r.HandleFunc("/transactions/async-process", h.AsyncProcess).Methods("POST")
	r.HandleFunc("/transactions/{id}/status", h.ChangeStatus).Methods("PATCH")
	r.HandleFunc("/transactions/stream", ws.StreamHandler(hub, logger)).Methods("GET")
	r.HandleFunc("/assistant/summarize", h.Summarize).Methods("POST")
	r.HandleFunc("/assistant/summaries/{id}", h.GetSummary).Methods("GET")
	r.HandleFunc("/logs", logsHandler.Recent).Methods("GET")
	r.HandleFunc("/logs/transaction/{id}", logsHandler.ByTransaction).Methods("GET")
	r.HandleFunc("/logs/request/{id}", logsHandler.ByRequest).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// Long-lived websocket upgrades bypass this; it bounds the REST surface.
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, then stop the worker after
	// it finishes its current dequeue attempt.
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
	scheduler.Stop()
	stopWorker()
	<-workerDone
	logger.Info("Stopped")
}
