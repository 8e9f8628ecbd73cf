package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/legali/transaction-service/internal/events"
	"github.com/legali/transaction-service/internal/integrations/openai"
	"github.com/legali/transaction-service/internal/models"
	"github.com/legali/transaction-service/internal/repository"
)

// SummaryService generates and stores text summaries.
type SummaryService struct {
	repo       repository.SummaryRepository
	summarizer openai.Summarizer
	bus        *events.Bus
	log        *logrus.Logger
	now        func() time.Time
}

// NewSummaryService initializes a new summary service.
func NewSummaryService(repo repository.SummaryRepository, summarizer openai.Summarizer, bus *events.Bus, log *logrus.Logger) *SummaryService {
	return &SummaryService{
		repo:       repo,
		summarizer: summarizer,
		bus:        bus,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Summarize normalizes the text, generates a summary and persists it.
func (s *SummaryService) Summarize(ctx context.Context, text, model, requestID string) (models.Summary, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return models.Summary{}, models.NewValidationError("text", "must not be blank")
	}

	summaryText, effectiveModel, err := s.summarizer.Summarize(ctx, normalized, model)
	if err != nil {
		return models.Summary{}, fmt.Errorf("summarize: %w", err)
	}

	summary := models.NewSummary(normalized, summaryText, effectiveModel, requestID, s.now())
	if err := s.repo.Add(summary); err != nil {
		return models.Summary{}, fmt.Errorf("persist summary: %w", err)
	}

	s.bus.Publish(models.EventSummaryCreated, map[string]any{
		"summary_id": summary.ID.String(),
		"model":      summary.Model,
		"request_id": requestID,
	})
	s.log.WithFields(logrus.Fields{
		"summary_id": summary.ID,
		"model":      summary.Model,
	}).Info(models.EventSummaryCreated)

	return summary, nil
}

// Get returns a stored summary by id.
func (s *SummaryService) Get(id uuid.UUID) (models.Summary, error) {
	return s.repo.Get(id)
}
