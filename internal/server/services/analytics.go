package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
)

// AnalyticsService summarizes a user's orders over a time window.
type AnalyticsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewAnalyticsService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *AnalyticsService {
	return &AnalyticsService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "services.analytics"),
		now:         time.Now,
	}
}

// OrderSummary aggregates the user's orders in [from, to). A zero bound
// defaults to the current UTC day.
func (s *AnalyticsService) OrderSummary(ctx context.Context, userID int64, from, to time.Time) (*models.OrderSummary, error) {
	dayStart := s.now().UTC().Truncate(24 * time.Hour)
	if from.IsZero() {
		from = dayStart
	}
	if to.IsZero() {
		to = dayStart.Add(24 * time.Hour)
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", common.ErrValidation)
	}

	summary, err := s.repomanager.Orders(s.db).Summary(ctx, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("order summary: %w", err)
	}
	return summary, nil
}
