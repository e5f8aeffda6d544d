// Command seed creates the bootstrap admin account and today's sample
// orders in the configured database.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/authgate/internal/cryptox"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authgate/internal/server/seed"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadSeedConfig()
	if err != nil {
		return err
	}
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	password, err := seed.AdminPassword(os.LookupEnv, int(os.Stdin.Fd()), os.Stderr)
	if err != nil {
		return err
	}

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	admin, err := seed.NewSeeder(db, rm, hasher, cryptox.NewSigner(cfg.PasswordSigKey), logger).Run(ctx, password)
	if err != nil {
		return err
	}

	logger.Info(ctx, "admin ready", "id", admin.ID, "email", admin.Email)
	return nil
}
