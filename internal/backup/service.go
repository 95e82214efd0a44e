package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync/atomic"
	"time"

	"barvault/internal/logging"
)

// Service orchestrates the backup subsystem: capture, the
// serialize/compress/encrypt pipeline, upload, cataloging, retention, and
// notifications. One Service guards one datastore; overlapping runs on the
// same Service are rejected rather than queued.
type Service struct {
	cfg      *Config
	rows     RowStore
	catalog  Catalog
	store    BlobStore
	sweeper  *Sweeper
	comp     *CompressionManager
	notifier Notifier
	logger   *logging.Logger

	passphrase        string
	passphraseFromEnv bool

	running atomic.Bool
}

// NewService wires a Service from its components.
func NewService(cfg *Config, rows RowStore, catalog Catalog, store BlobStore, notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}

	passphrase, fromEnv := ResolvePassphrase()

	return &Service{
		cfg:               cfg,
		rows:              rows,
		catalog:           catalog,
		store:             store,
		sweeper:           NewSweeper(catalog, store, logger),
		comp:              NewCompressionManager(),
		notifier:          notifier,
		logger:            logger,
		passphrase:        passphrase,
		passphraseFromEnv: fromEnv,
	}
}

// NewServiceFromConfig builds a Service against a live database handle,
// creating the blob store and notifier the configuration selects.
func NewServiceFromConfig(ctx context.Context, cfg *Config, db *sql.DB, logger *logging.Logger) (*Service, error) {
	store, err := NewBlobStore(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	var notifier Notifier = NoopNotifier{}
	if cfg.NotificationWebhook != "" {
		notifier = NewWebhookNotifier(cfg.NotificationWebhook)
	}

	registry := NewRegistry(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	return NewService(cfg, NewRowSource(db), registry, store, notifier, logger), nil
}

// SetPassphrase overrides the passphrase resolved from the environment,
// e.g. with one collected interactively.
func (s *Service) SetPassphrase(passphrase string) {
	if passphrase != "" {
		s.passphrase = passphrase
		s.passphraseFromEnv = true
	}
}

// backupTables returns the tables a run should capture. A tenant-scoped run
// captures only the tables that carry the tenant column; a full run
// captures everything configured.
func (s *Service) backupTables(tenantID *int64) []string {
	if tenantID == nil {
		return s.cfg.Tables
	}
	tables := make([]string, 0, len(s.cfg.TenantScopedTables))
	for _, table := range s.cfg.Tables {
		if s.cfg.IsTenantScoped(table) {
			tables = append(tables, table)
		}
	}
	return tables
}

// CreateBackup runs one backup end to end: capture every configured table,
// serialize, compress, encrypt, upload, catalog, sweep, notify. A nil
// tenantID backs up all venues; a non-nil tenantID captures only that
// venue's rows from tenant-scoped tables.
//
// Per-table read failures skip the table and continue; an upload failure
// aborts the run with no catalog entry. A catalog write failure after a
// successful upload is logged and reported but does not fail the run, since
// the backup itself is durable.
func (s *Service) CreateBackup(ctx context.Context, tenantID *int64) (*RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, NewConcurrentRunError("a backup or restore is already running")
	}
	defer s.running.Store(false)

	start := time.Now()
	backupID := GenerateBackupID()
	createdAt := nowUTC()

	result := &RunResult{BackupID: backupID}

	logFields := map[string]interface{}{"backup_id": backupID}
	if tenantID != nil {
		logFields[TenantColumn] = *tenantID
	}
	s.logger.WithFields(logFields).Info("Backup run started")

	if s.cfg.Encryption && !s.passphraseFromEnv {
		s.logger.Warn("Encryption enabled without BARVAULT_ENCRYPTION_PASSPHRASE, using built-in default passphrase")
	}

	// Capture phase. Unreadable tables are skipped, not fatal; the manifest
	// records only what was actually captured.
	records := make(map[string][]Record)
	var captured []string
	for _, table := range s.backupTables(tenantID) {
		tableStart := time.Now()
		rows, err := s.rows.ReadTable(ctx, table, tenantID, s.cfg.IsTenantScoped(table))
		s.logger.LogTableCapture(table, len(rows), time.Since(tableStart), err)
		if err != nil {
			result.SkippedTables = append(result.SkippedTables, table)
			continue
		}
		records[table] = rows
		captured = append(captured, table)
	}

	bundle := NewBundle(captured, records, tenantID, createdAt)
	result.Tables = captured
	result.TotalRecords = bundle.Manifest.TotalRecords

	serialized, err := SerializeBundle(bundle)
	s.logger.LogPipelineStage("serialize", bundle.Manifest.TotalRecords, len(serialized), err)
	if err != nil {
		result.Error = err.Error()
		s.notifyFailure(ctx, backupID, err)
		return result, err
	}

	payload := serialized
	algorithm := CompressionTypeNone
	if s.cfg.Compression {
		var compressed []byte
		compressed, algorithm = s.comp.Compress(serialized, s.cfg.CompressionAlgorithm)
		s.logger.LogPipelineStage("compress", len(serialized), len(compressed), nil)
		if algorithm == CompressionTypeNone && s.cfg.CompressionAlgorithm != CompressionTypeNone {
			s.logger.Warnf("Compression with %s unavailable, storing uncompressed", s.cfg.CompressionAlgorithm)
		}
		payload = compressed
	}

	encrypted := false
	if s.cfg.Encryption {
		sealed, err := Encrypt(payload, s.passphrase)
		s.logger.LogPipelineStage("encrypt", len(payload), len(sealed), err)
		if err != nil {
			result.Error = err.Error()
			s.notifyFailure(ctx, backupID, err)
			return result, err
		}
		payload = sealed
		encrypted = true
	}

	blob, err := EncodeEnvelope(algorithm, encrypted, payload)
	if err != nil {
		result.Error = err.Error()
		s.notifyFailure(ctx, backupID, err)
		return result, err
	}

	objectName := ObjectName(backupID, createdAt)
	sizeMB := float64(len(blob)) / (1024 * 1024)

	uploadStart := time.Now()
	err = s.store.Put(ctx, objectName, blob)
	s.logger.LogUpload(s.cfg.StorageBucket, objectName, sizeMB, time.Since(uploadStart), err)
	if err != nil {
		// No catalog entry for a blob that never landed.
		result.Error = err.Error()
		s.notifyFailure(ctx, backupID, err)
		return result, err
	}

	result.Success = true
	result.FileSizeMB = sizeMB
	result.DurationSeconds = time.Since(start).Seconds()

	snapshot, _ := json.Marshal(s.cfg)
	entry := &CatalogEntry{
		BackupID:        backupID,
		CreatedAt:       createdAt,
		TablesBackedUp:  captured,
		TotalRecords:    bundle.Manifest.TotalRecords,
		FileSizeMB:      sizeMB,
		DurationSeconds: result.DurationSeconds,
		Success:         true,
		StoragePath:     objectName,
		StorageBucket:   s.cfg.StorageBucket,
		IsEncrypted:     encrypted,
		IsCompressed:    algorithm != CompressionTypeNone,
		TenantID:        tenantID,
		ConfigSnapshot:  snapshot,
	}
	if err := s.catalog.Insert(ctx, entry); err != nil {
		// The blob is durable; an uncataloged backup is recoverable by
		// object name, so the run still counts as a success.
		result.Error = err.Error()
		s.logger.WithFields(map[string]interface{}{
			"backup_id": backupID,
			"error":     err.Error(),
		}).Error("Backup uploaded but catalog write failed")
	}

	if _, err := s.sweeper.Sweep(ctx, s.cfg.RetentionDays); err != nil {
		s.logger.Warnf("Retention sweep after backup failed: %v", err)
	}

	if err := s.notifier.NotifySuccess(ctx, result); err != nil {
		s.logger.Warnf("Success notification failed: %v", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"backup_id": backupID,
		"tables":    len(captured),
		"records":   result.TotalRecords,
		"size_mb":   sizeMB,
		"duration":  time.Since(start).String(),
	}).Info("Backup run completed")

	return result, nil
}

func (s *Service) notifyFailure(ctx context.Context, backupID string, runErr error) {
	if err := s.notifier.NotifyFailure(ctx, backupID, runErr); err != nil {
		s.logger.Warnf("Failure notification failed: %v", err)
	}
}

// Restore replaces live table contents from a cataloged backup. The bundle
// format version is checked before any table is touched; per-table write
// failures are logged and the remaining tables still restore. A nil
// tenantID restores everything in the bundle; a non-nil tenantID restores
// only that venue's rows into tenant-scoped tables.
func (s *Service) Restore(ctx context.Context, backupID string, tenantID *int64) (*RestoreResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, NewConcurrentRunError("a backup or restore is already running")
	}
	defer s.running.Store(false)

	start := time.Now()
	result := &RestoreResult{BackupID: backupID}

	entry, err := s.catalog.GetByID(ctx, backupID)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	blob, err := s.store.Get(ctx, entry.StoragePath)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	// The stored header, not today's configuration, decides how the blob is
	// unwrapped. A backup taken with different settings restores correctly.
	algorithm, isEncrypted, payload, err := DecodeEnvelope(blob)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	if isEncrypted {
		plain, err := Decrypt(payload, s.passphrase)
		s.logger.LogPipelineStage("decrypt", len(payload), len(plain), err)
		if err != nil {
			result.Error = err.Error()
			return result, err
		}
		payload = plain
	}

	serialized, err := s.comp.Decompress(payload, algorithm)
	s.logger.LogPipelineStage("decompress", len(payload), len(serialized), err)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	bundle, err := DeserializeBundle(serialized)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	for _, table := range bundle.Manifest.Tables {
		scoped := s.cfg.IsTenantScoped(table)
		if tenantID != nil && !scoped {
			s.logger.Debugf("Skipping table %s: not tenant scoped", table)
			continue
		}

		written, err := s.rows.ReplaceTable(ctx, table, bundle.Records[table], tenantID, scoped)
		s.logger.LogTableRestore(table, written, err)
		if err != nil {
			result.FailedTables = append(result.FailedTables, table)
			continue
		}
		result.TablesRestored = append(result.TablesRestored, table)
		result.RecordsWritten += written
	}

	result.Success = len(result.FailedTables) == 0
	result.DurationSeconds = time.Since(start).Seconds()

	s.logger.WithFields(map[string]interface{}{
		"backup_id": backupID,
		"restored":  len(result.TablesRestored),
		"failed":    len(result.FailedTables),
		"records":   result.RecordsWritten,
		"duration":  time.Since(start).String(),
	}).Info("Restore completed")

	return result, nil
}

// List returns cataloged backups newest first, optionally filtered to one
// venue.
func (s *Service) List(ctx context.Context, tenantID *int64, limit int) ([]*CatalogEntry, error) {
	return s.catalog.ListByTenant(ctx, tenantID, limit)
}

// Sweep runs a retention sweep outside of a backup run.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	return s.sweeper.Sweep(ctx, s.cfg.RetentionDays)
}
