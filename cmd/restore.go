package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"barvault/internal/backup"
	"barvault/internal/display"
)

var (
	restoreBarID int64
	restoreYes   bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore tables from a cataloged backup",
	Long: `Downloads a cataloged backup, decrypts and decompresses it as its
stored header dictates, and replaces the live contents of every table it
contains. This is destructive: current rows in those tables are deleted.
Use --bar-id to restore only one venue's rows into tenant-scoped tables.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().Int64Var(&restoreBarID, "bar-id", 0, "restore only this venue's rows")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(restoreCmd)
}

func confirmRestore(backupID string) bool {
	fmt.Printf("Restoring %s will REPLACE current table contents. Continue? [y/N]: ", backupID)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runRestore(cmd *cobra.Command, args []string) error {
	backupID := args[0]

	if !restoreYes && !confirmRestore(backupID) {
		fmt.Println("Restore cancelled")
		return nil
	}

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
	service.SetPassphrase(promptPassphrase(cfg))

	result, err := service.Restore(ctx, backupID, tenantFlag(cmd, "bar-id", restoreBarID))

	printer := display.NewResultPrinter(os.Stdout, nil)
	if result != nil {
		printer.PrintRestoreResult(result)
	}
	return err
}
