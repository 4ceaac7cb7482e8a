package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/killallgit/course-api/internal/database"
	"github.com/killallgit/course-api/internal/models"
	"github.com/killallgit/course-api/pkg/config"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the database schema of the Course Generation API.

The schema is derived from the session models and applied with GORM
auto-migration, which only ever adds tables, columns and indexes.

Available subcommands:
  up      - Create or update every table
  status  - Show which tables exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update every table",
	Long: `Create or update every table of the session log.

Running it repeatedly is safe; tables that are already current are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runMigrateUp(cfg.Database, cmd.OutOrStdout(), dryRun)
	},
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

Every model is listed together with its table and whether that table exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runMigrateStatus(cfg.Database, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func runMigrateUp(cfg config.DatabaseConfig, out io.Writer, dryRun bool) error {
	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, model := range models.AllModels() {
			fmt.Fprintf(out, "  would migrate %T\n", model)
		}
		return nil
	}

	db, err := database.InitializeWithMigrations(cfg)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(out, "Migrated %d model(s) in %s\n", len(models.AllModels()), cfg.Path)
	return nil
}

func runMigrateStatus(cfg config.DatabaseConfig, out io.Writer) error {
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))

	for _, model := range models.AllModels() {
		stmt := &gorm.Statement{DB: db.DB}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("failed to parse %T: %w", model, err)
		}

		state := "pending"
		if db.DB.Migrator().HasTable(model) {
			state = "applied"
		}
		fmt.Fprintf(out, "  %-24s %s\n", stmt.Schema.Table, state)
	}
	return nil
}
