// Package seed provisions the bootstrap admin account and a day of sample
// orders for local development.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/cryptox"
	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
)

const (
	AdminEmail = "admin@example.com"
	AdminName  = "Admin"
)

// sampleHours are the UTC hours of today that get two sample orders each.
var sampleHours = []int{10, 11, 12, 13, 17, 18, 19, 20}

type Seeder struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	signer      cryptox.PasswordSigner
	logger      logging.Logger
	now         func() time.Time
}

// NewSeeder returns a Seeder. With a nil db all writes go straight to the
// repositories without a transaction.
func NewSeeder(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher,
	signer cryptox.PasswordSigner, logger logging.Logger) *Seeder {
	if signer == nil {
		signer = cryptox.NopSigner{}
	}
	return &Seeder{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		signer:      signer,
		logger:      logger.With("module", "seed"),
		now:         time.Now,
	}
}

// Run ensures the admin account exists and inserts today's sample orders.
// Re-running it changes nothing: an existing admin keeps its password and
// duplicate orders are skipped.
func (s *Seeder) Run(ctx context.Context, adminPassword string) (*models.User, error) {
	hash, err := s.hasher.Hash(adminPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	candidate := &models.User{
		Email:        AdminEmail,
		Name:         AdminName,
		PasswordHash: hash,
		Role:         common.RoleAdmin,
	}
	if sig := s.signer.Sign(adminPassword); sig != "" {
		candidate.PasswordSig = &sig
	}

	var admin *models.User
	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		admin, err = s.repomanager.Users(tx).Ensure(ctx, candidate)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}

		orders := s.repomanager.Orders(tx)
		for _, o := range SampleOrders(admin.ID, s.now()) {
			o := o
			if err := orders.Insert(ctx, &o); err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "seed complete", "admin_id", admin.ID)
	return admin, nil
}

func (s *Seeder) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}

// SampleOrders returns two orders per sample hour of the UTC day containing
// now.
func SampleOrders(userID int64, now time.Time) []models.Order {
	base := now.UTC().Truncate(24 * time.Hour)
	res := make([]models.Order, 0, len(sampleHours)*2)
	for _, h := range sampleHours {
		at := base.Add(time.Duration(h) * time.Hour)
		res = append(res,
			models.Order{
				UserID: userID, InsertDate: at, OrderTotal: 150.25,
				ExternalAppName: "Yemeksepeti", CustomerID: 101, Lat: 41.01, Lng: 28.97,
			},
			models.Order{
				UserID: userID, InsertDate: at.Add(15 * time.Minute), OrderTotal: 320.10,
				ExternalAppName: "Getir", CustomerID: 202, Lat: 41.03, Lng: 28.99,
			},
		)
	}
	return res
}
