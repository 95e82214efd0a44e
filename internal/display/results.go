package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"barvault/internal/backup"
)

// ResultPrinter renders backup subsystem results for the terminal.
type ResultPrinter struct {
	out    io.Writer
	colors *ColorSystem
}

// NewResultPrinter creates a printer writing to out.
func NewResultPrinter(out io.Writer, colors *ColorSystem) *ResultPrinter {
	if colors == nil {
		colors = NewColorSystem(DefaultTheme())
	}
	return &ResultPrinter{out: out, colors: colors}
}

// PrintRunResult renders the outcome of a backup run.
func (rp *ResultPrinter) PrintRunResult(result *backup.RunResult) {
	if result.Success {
		fmt.Fprintln(rp.out, rp.colors.Success("✓ Backup completed"))
	} else {
		fmt.Fprintln(rp.out, rp.colors.Error("✗ Backup failed"))
	}

	fmt.Fprintf(rp.out, "  %s %s\n", rp.colors.Info("Backup ID:"), result.BackupID)
	fmt.Fprintf(rp.out, "  %s %d\n", rp.colors.Info("Tables:"), len(result.Tables))
	fmt.Fprintf(rp.out, "  %s %d\n", rp.colors.Info("Records:"), result.TotalRecords)
	fmt.Fprintf(rp.out, "  %s %.2f MB\n", rp.colors.Info("Size:"), result.FileSizeMB)
	fmt.Fprintf(rp.out, "  %s %.1fs\n", rp.colors.Info("Duration:"), result.DurationSeconds)

	if len(result.SkippedTables) > 0 {
		fmt.Fprintf(rp.out, "  %s %s\n",
			rp.colors.Warning("Skipped:"), strings.Join(result.SkippedTables, ", "))
	}
	if result.Error != "" {
		fmt.Fprintf(rp.out, "  %s %s\n", rp.colors.Error("Error:"), result.Error)
	}
}

// PrintRestoreResult renders the outcome of a restore run.
func (rp *ResultPrinter) PrintRestoreResult(result *backup.RestoreResult) {
	if result.Success {
		fmt.Fprintln(rp.out, rp.colors.Success("✓ Restore completed"))
	} else {
		fmt.Fprintln(rp.out, rp.colors.Error("✗ Restore completed with failures"))
	}

	fmt.Fprintf(rp.out, "  %s %s\n", rp.colors.Info("Backup ID:"), result.BackupID)
	fmt.Fprintf(rp.out, "  %s %s\n",
		rp.colors.Info("Restored:"), strings.Join(result.TablesRestored, ", "))
	fmt.Fprintf(rp.out, "  %s %d\n", rp.colors.Info("Records:"), result.RecordsWritten)
	fmt.Fprintf(rp.out, "  %s %.1fs\n", rp.colors.Info("Duration:"), result.DurationSeconds)

	if len(result.FailedTables) > 0 {
		fmt.Fprintf(rp.out, "  %s %s\n",
			rp.colors.Error("Failed:"), strings.Join(result.FailedTables, ", "))
	}
	if result.Error != "" {
		fmt.Fprintf(rp.out, "  %s %s\n", rp.colors.Error("Error:"), result.Error)
	}
}

// PrintCatalog renders catalog entries as a table, newest first.
func (rp *ResultPrinter) PrintCatalog(entries []*backup.CatalogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(rp.out, rp.colors.Info("No backups in catalog"))
		return
	}

	w := tabwriter.NewWriter(rp.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, rp.colors.Highlight("BACKUP ID\tCREATED\tTABLES\tRECORDS\tSIZE\tENC\tBAR"))
	for _, entry := range entries {
		enc := "-"
		if entry.IsEncrypted {
			enc = "yes"
		}
		bar := "all"
		if entry.TenantID != nil {
			bar = fmt.Sprintf("%d", *entry.TenantID)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f MB\t%s\t%s\n",
			entry.BackupID,
			entry.CreatedAt.UTC().Format(time.RFC3339),
			len(entry.TablesBackedUp),
			entry.TotalRecords,
			entry.FileSizeMB,
			enc,
			bar,
		)
	}
	w.Flush()
}

// PrintSweepResult renders the outcome of a retention sweep.
func (rp *ResultPrinter) PrintSweepResult(result *backup.SweepResult) {
	fmt.Fprintln(rp.out, rp.colors.Success("✓ Retention sweep completed"))
	fmt.Fprintf(rp.out, "  %s %d\n", rp.colors.Info("Examined:"), result.Examined)
	fmt.Fprintf(rp.out, "  %s %d\n", rp.colors.Info("Deleted:"), result.Deleted)
	fmt.Fprintf(rp.out, "  %s %.2f MB\n", rp.colors.Info("Freed:"), result.FreedMB)
	for _, msg := range result.Errors {
		fmt.Fprintf(rp.out, "  %s %s\n", rp.colors.Error("Error:"), msg)
	}
}
