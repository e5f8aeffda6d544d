package orders

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

type Repository interface {
	// Insert stores the order unless an identical (user, time, app) row exists.
	Insert(ctx context.Context, order *models.Order) error
	// Summary aggregates the user's orders with InsertDate in [from, to).
	Summary(ctx context.Context, userID int64, from, to time.Time) (*models.OrderSummary, error)
}
