package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newMigrateCmd creates the 'migrate' subcommand. It applies the Postgres
// schema and upserts the platforms declared in config.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the Postgres schema and seeds configured platforms",
		Args:  cobra.NoArgs,
		RunE:  runMigrateCommand,
	}
}

func runMigrateCommand(cmd *cobra.Command, _ []string) (err error) {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	ctx := cmd.Context()

	if cfg.DB.Provider != "postgres" {
		return fmt.Errorf("%w: migrate needs db.provider postgres, got %q", errUsage, cfg.DB.Provider)
	}
	store, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	for _, p := range cfg.Platforms {
		id, err := store.SeedPlatform(ctx, p.Slug, p.Name, p.Active, p.MinDelay.Milliseconds(), p.APIURL, p.AffiliateURL)
		if err != nil {
			return fmt.Errorf("seed platform %s: %w", p.Slug, err)
		}
		if p.Account.AffiliateID != "" || p.Account.APIKey != "" {
			status := p.Account.Status
			if status == "" {
				status = "active"
			}
			if err := store.SeedAccount(ctx, id, p.Account.AffiliateID, p.Account.APIKey, status); err != nil {
				return fmt.Errorf("seed account for %s: %w", p.Slug, err)
			}
		}
		logger.Info("platform seeded", zap.String("platform", p.Slug), zap.Int64("platform_id", id))
	}
	return nil
}
