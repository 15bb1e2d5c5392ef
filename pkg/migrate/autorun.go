package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/calorielens-backend/pkg/config"
	"github.com/angelmondragon/calorielens-backend/pkg/db"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
)

// MaybeRunDev executes the embedded migrations when the app is running in dev
// mode with auto-migrate enabled. SQLite mode is skipped; its schema comes from
// gorm AutoMigrate at connect time.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate || cfg.FeatureFlags.UseSQLite {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir})
	logg.Info(ctx, "migrate.autorun.start")

	if err := Run(ctx, sqlDB, Embedded, EmbeddedDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrate.autorun.complete")
	return nil
}
