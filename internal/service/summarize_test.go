package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legali/transaction-service/internal/events"
	"github.com/legali/transaction-service/internal/integrations/openai"
	"github.com/legali/transaction-service/internal/models"
	"github.com/legali/transaction-service/internal/repository"
)

func newSummaryService() (*SummaryService, *events.Bus) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	bus := events.NewBus(log)
	return NewSummaryService(repository.NewMemorySummaryRepository(), openai.Stub{}, bus, log), bus
}

func TestSummarizePersistsAndPublishes(t *testing.T) {
	svc, bus := newSummaryService()

	var published int
	bus.Subscribe(models.EventSummaryCreated, func(string, map[string]any) { published++ })

	summary, err := svc.Summarize(context.Background(), "a short text", "", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "a short text", summary.Text)
	assert.Equal(t, "stub-model", summary.Model)
	assert.Equal(t, "req-1", summary.RequestID)
	assert.Equal(t, 1, published)

	stored, err := svc.Get(summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Summary, stored.Summary)
}

func TestSummarizeNormalizesWhitespace(t *testing.T) {
	svc, _ := newSummaryService()

	summary, err := svc.Summarize(context.Background(), "  uneven \n\t spacing  here ", "", "")
	require.NoError(t, err)
	assert.Equal(t, "uneven spacing here", summary.Text)
}

func TestSummarizeRejectsBlankText(t *testing.T) {
	svc, _ := newSummaryService()

	_, err := svc.Summarize(context.Background(), " \n\t ", "", "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGetSummaryUnknownID(t *testing.T) {
	svc, _ := newSummaryService()

	_, err := svc.Get(uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
