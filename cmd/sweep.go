package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"barvault/internal/backup"
	"barvault/internal/display"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete backups older than the retention window",
	Long: `Removes every cataloged backup older than retention_days from the blob
store and the catalog. Runs automatically after each backup; this command
triggers it on demand.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	service, err := backup.NewServiceFromConfig(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	result, err := service.Sweep(ctx)
	if result != nil {
		display.NewResultPrinter(os.Stdout, nil).PrintSweepResult(result)
	}
	return err
}
