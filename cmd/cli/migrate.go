package cli

import (
	"materialhub/internal/server"

	"github.com/spf13/cobra"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := server.OpenDatabase(cfg, log)
		if err != nil {
			return err
		}
		log.Info("Starting database migration...")
		if err := server.Migrate(db); err != nil {
			return err
		}
		if migrateSeed {
			app, err := server.New(cmd.Context(), cfg, db, log)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.Seed(cmd.Context()); err != nil {
				return err
			}
			log.Info("Seed data loaded")
		}
		log.Info("Database migration completed successfully")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "load demo accounts and materials")
	rootCmd.AddCommand(migrateCmd)
}
