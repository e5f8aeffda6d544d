package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, o *models.Order) error {
	query :=
		`INSERT INTO orders (user_id, insert_date, order_total, external_app_name, customer_id, lat, lng)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, insert_date, external_app_name) DO NOTHING
		 `

	_, err := r.db.ExecContext(ctx, query,
		o.UserID, o.InsertDate, o.OrderTotal, o.ExternalAppName, o.CustomerID, o.Lat, o.Lng)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Summary(ctx context.Context, userID int64, from, to time.Time) (*models.OrderSummary, error) {
	s := &models.OrderSummary{From: from, To: to, ByApp: []models.AppTotal{}, ByHour: []models.HourTotal{}}

	totalsQuery :=
		`SELECT COUNT(*), COALESCE(SUM(order_total), 0) FROM orders
		 WHERE user_id = $1 AND insert_date >= $2 AND insert_date < $3
		 `
	if err := r.db.QueryRowContext(ctx, totalsQuery, userID, from, to).Scan(&s.OrderCount, &s.Revenue); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	byApp, err := r.byApp(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	s.ByApp = append(s.ByApp, byApp...)

	byHour, err := r.byHour(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	s.ByHour = append(s.ByHour, byHour...)

	return s, nil
}

func (r *PostgresRepository) byApp(ctx context.Context, userID int64, from, to time.Time) ([]models.AppTotal, error) {
	query :=
		`SELECT external_app_name, COUNT(*), COALESCE(SUM(order_total), 0) FROM orders
		 WHERE user_id = $1 AND insert_date >= $2 AND insert_date < $3
		 GROUP BY external_app_name
		 ORDER BY external_app_name
		 `
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []models.AppTotal
	for rows.Next() {
		var a models.AppTotal
		if err := rows.Scan(&a.App, &a.Orders, &a.Revenue); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) byHour(ctx context.Context, userID int64, from, to time.Time) ([]models.HourTotal, error) {
	query :=
		`SELECT EXTRACT(HOUR FROM insert_date AT TIME ZONE 'UTC')::int AS hour, COUNT(*) FROM orders
		 WHERE user_id = $1 AND insert_date >= $2 AND insert_date < $3
		 GROUP BY hour
		 ORDER BY hour
		 `
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []models.HourTotal
	for rows.Next() {
		var h models.HourTotal
		if err := rows.Scan(&h.Hour, &h.Orders); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}
