package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"barvault/internal/backup"
	"barvault/internal/display"
)

var (
	listBarID int64
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged backups, newest first",
	RunE:  runList,
}

func init() {
	listCmd.Flags().Int64Var(&listBarID, "bar-id", 0, "list only this venue's backups")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum entries to show (0 for all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	entries, err := service.List(ctx, tenantFlag(cmd, "bar-id", listBarID), listLimit)
	if err != nil {
		return err
	}

	display.NewResultPrinter(os.Stdout, nil).PrintCatalog(entries)
	return nil
}
