package backup

import (
	"context"
	"fmt"
	"time"

	"barvault/internal/logging"
)

// Sweeper removes backups older than the retention window. Blobs are
// deleted before their catalog rows so a failure mid-sweep leaves entries
// pointing at missing blobs rather than orphaned blobs with no entry; the
// next sweep retries those entries.
type Sweeper struct {
	catalog Catalog
	store   BlobStore
	logger  *logging.Logger
}

// NewSweeper creates a retention sweeper.
func NewSweeper(catalog Catalog, store BlobStore, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Sweeper{catalog: catalog, store: store, logger: logger}
}

// Sweep deletes every backup created strictly before now minus
// retentionDays. A backup created exactly at the cutoff is kept. A zero or
// negative retention disables sweeping entirely.
func (s *Sweeper) Sweep(ctx context.Context, retentionDays int) (*SweepResult, error) {
	result := &SweepResult{CutoffAge: retentionDays}

	if retentionDays <= 0 {
		s.logger.Debug("Retention sweeping disabled")
		return result, nil
	}

	cutoff := nowUTC().AddDate(0, 0, -retentionDays)
	expired, err := s.catalog.ListOlderThan(ctx, cutoff)
	if err != nil {
		return result, err
	}

	result.Examined = len(expired)
	if len(expired) == 0 {
		s.logger.WithFields(map[string]interface{}{
			"cutoff":         cutoff.Format(time.RFC3339),
			"retention_days": retentionDays,
		}).Debug("No expired backups to sweep")
		return result, nil
	}

	names := make([]string, 0, len(expired))
	ids := make([]string, 0, len(expired))
	for _, entry := range expired {
		names = append(names, entry.StoragePath)
		ids = append(ids, entry.BackupID)
		result.FreedMB += entry.FileSizeMB
	}

	if err := s.store.DeleteMany(ctx, names); err != nil {
		result.Errors = append(result.Errors, err.Error())
		s.logger.WithFields(map[string]interface{}{
			"expired": len(expired),
			"error":   err.Error(),
		}).Error("Failed to delete expired backup blobs, catalog left untouched")
		return result, err
	}

	if err := s.catalog.DeleteByIDs(ctx, ids); err != nil {
		result.Errors = append(result.Errors, err.Error())
		s.logger.WithFields(map[string]interface{}{
			"expired": len(expired),
			"error":   err.Error(),
		}).Error("Deleted expired blobs but failed to remove catalog entries")
		return result, err
	}

	result.Deleted = len(expired)
	s.logger.WithFields(map[string]interface{}{
		"deleted":        result.Deleted,
		"freed_mb":       fmt.Sprintf("%.2f", result.FreedMB),
		"cutoff":         cutoff.Format(time.RFC3339),
		"retention_days": retentionDays,
	}).Info("Retention sweep completed")

	return result, nil
}
