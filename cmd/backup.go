package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"barvault/internal/backup"
	"barvault/internal/display"
)

var (
	backupBarID      int64
	backupAllTenants bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run a backup of the configured tables",
	Long: `Captures the configured tables into a bundle, compresses and encrypts
it per configuration, uploads it to the blob store, and records it in the
backup catalog. Use --bar-id to back up a single venue's rows only.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().Int64Var(&backupBarID, "bar-id", 0, "back up only this venue's rows")
	backupCmd.Flags().BoolVar(&backupAllTenants, "all", false, "back up all venues (default when --bar-id is unset)")
	rootCmd.AddCommand(backupCmd)
}

// tenantFlag converts the --bar-id flag into the optional tenant scope.
func tenantFlag(cmd *cobra.Command, flagName string, value int64) *int64 {
	if !cmd.Flags().Changed(flagName) {
		return nil
	}
	return &value
}

// promptPassphrase reads the encryption passphrase from the terminal when
// encryption is on and the environment does not provide one. Non-terminal
// stdin falls through to the configured default.
func promptPassphrase(cfg *backup.Config) string {
	if !cfg.Encryption {
		return ""
	}
	if os.Getenv("BARVAULT_ENCRYPTION_PASSPHRASE") != "" {
		return ""
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return ""
	}

	fmt.Fprint(os.Stderr, "Encryption passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(raw)
}

func runBackup(cmd *cobra.Command, args []string) error {
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

	result, err := service.CreateBackup(ctx, tenantFlag(cmd, "bar-id", backupBarID))

	printer := display.NewResultPrinter(os.Stdout, nil)
	if result != nil {
		printer.PrintRunResult(result)
	}
	return err
}
