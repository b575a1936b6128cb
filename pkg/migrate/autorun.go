package migrate

import (
	"context"
	"fmt"

	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/logger"
)

// autoMigrateKind is the only service kind that migrates on boot, so workers
// started alongside it never race on the goose version table.
const autoMigrateKind = "api"

// MaybeRunDev applies the embedded migrations on boot when the api runs in dev
// with STOREFRONT_AUTO_MIGRATE set. Every other environment migrates
// through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !shouldAutoMigrate(cfg) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	fsys, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, cfg.DB.Driver, fsys)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})
	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	if !pending {
		logg.Debug(ctx, "schema up to date")
		return nil
	}

	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "dev migrations applied")
	return nil
}

func shouldAutoMigrate(cfg *config.Config) bool {
	return cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate && cfg.Service.Kind == autoMigrateKind
}
