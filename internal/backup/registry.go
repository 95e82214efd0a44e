package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// catalogTable is the durable registry of completed backup runs.
const catalogTable = "backup_catalog"

// catalogSchema creates the catalog table. The surrogate seq key gives
// listings a stable tie-break when two runs share a creation timestamp; the
// unique key on backup_id is the collision backstop for generated ids.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS backup_catalog (
    seq              BIGINT NOT NULL AUTO_INCREMENT,
    backup_id        VARCHAR(64) NOT NULL,
    created_at       DATETIME(6) NOT NULL,
    tables_backed_up TEXT NOT NULL,
    total_records    INT NOT NULL,
    file_size_mb     DOUBLE NOT NULL,
    duration_seconds DOUBLE NOT NULL,
    success          TINYINT(1) NOT NULL,
    error_message    TEXT,
    storage_path     VARCHAR(512) NOT NULL,
    storage_bucket   VARCHAR(255) NOT NULL,
    is_encrypted     TINYINT(1) NOT NULL,
    is_compressed    TINYINT(1) NOT NULL,
    bar_id           BIGINT NULL,
    config_snapshot  JSON NULL,
    PRIMARY KEY (seq),
    UNIQUE KEY uq_backup_catalog_backup_id (backup_id),
    KEY idx_backup_catalog_created_at (created_at),
    KEY idx_backup_catalog_bar_id (bar_id)
)`

const catalogColumns = "backup_id, created_at, tables_backed_up, total_records, file_size_mb, " +
	"duration_seconds, success, error_message, storage_path, storage_bucket, " +
	"is_encrypted, is_compressed, bar_id, config_snapshot"

// Registry persists catalog entries in the venue datastore.
type Registry struct {
	db *sql.DB
}

// NewRegistry creates a Registry over an open database handle.
func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

// EnsureSchema creates the catalog table if it does not exist.
func (r *Registry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, catalogSchema); err != nil {
		return NewCatalogWriteError("failed to create catalog table", err)
	}
	return nil
}

// Insert writes one catalog entry. A duplicate backup id fails with a
// CATALOG_WRITE_ERROR.
func (r *Registry) Insert(ctx context.Context, entry *CatalogEntry) error {
	if entry == nil {
		return NewValidationError("catalog entry cannot be nil", nil)
	}
	if err := entry.Validate(); err != nil {
		return NewValidationError("invalid catalog entry", err)
	}

	tables, err := json.Marshal(entry.TablesBackedUp)
	if err != nil {
		return NewCatalogWriteError("failed to encode table list", err)
	}

	var snapshot interface{}
	if len(entry.ConfigSnapshot) > 0 {
		snapshot = string(entry.ConfigSnapshot)
	}

	var tenant interface{}
	if entry.TenantID != nil {
		tenant = *entry.TenantID
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		catalogTable, catalogColumns)

	_, err = r.db.ExecContext(ctx, query,
		entry.BackupID,
		entry.CreatedAt.UTC(),
		string(tables),
		entry.TotalRecords,
		entry.FileSizeMB,
		entry.DurationSeconds,
		entry.Success,
		entry.ErrorMessage,
		entry.StoragePath,
		entry.StorageBucket,
		entry.IsEncrypted,
		entry.IsCompressed,
		tenant,
		snapshot,
	)
	if err != nil {
		return NewCatalogWriteError(fmt.Sprintf("failed to insert catalog entry %s", entry.BackupID), err)
	}
	return nil
}

// GetByID fetches a single catalog entry, failing with a NOT_FOUND error
// when the id is unknown.
func (r *Registry) GetByID(ctx context.Context, backupID string) (*CatalogEntry, error) {
	if backupID == "" {
		return nil, NewValidationError("backup ID cannot be empty", nil)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE backup_id = ?", catalogColumns, catalogTable)
	entry, err := scanCatalogEntry(r.db.QueryRowContext(ctx, query, backupID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError(fmt.Sprintf("backup %s not found in catalog", backupID), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to read catalog entry %s", backupID), err)
	}
	return entry, nil
}

// ListByTenant returns catalog entries newest first. A nil tenantID lists
// everything; a non-nil tenantID lists only that tenant's backups. Entries
// sharing a creation timestamp keep insertion order.
func (r *Registry) ListByTenant(ctx context.Context, tenantID *int64, limit int) ([]*CatalogEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", catalogColumns, catalogTable)
	args := []interface{}{}
	if tenantID != nil {
		query += " WHERE bar_id = ?"
		args = append(args, *tenantID)
	}
	query += " ORDER BY created_at DESC, seq ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("failed to list catalog entries", err)
	}
	defer rows.Close()

	return collectCatalogEntries(rows)
}

// ListOlderThan returns entries created strictly before the cutoff, oldest
// first.
func (r *Registry) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*CatalogEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE created_at < ? ORDER BY created_at ASC, seq ASC",
		catalogColumns, catalogTable)

	rows, err := r.db.QueryContext(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, NewStorageError("failed to list expired catalog entries", err)
	}
	defer rows.Close()

	return collectCatalogEntries(rows)
}

// DeleteByIDs removes the catalog rows for the given backup ids.
func (r *Registry) DeleteByIDs(ctx context.Context, backupIDs []string) error {
	if len(backupIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(backupIDs)), ", ")
	query := fmt.Sprintf("DELETE FROM %s WHERE backup_id IN (%s)", catalogTable, placeholders)

	args := make([]interface{}, len(backupIDs))
	for i, id := range backupIDs {
		args[i] = id
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return NewCatalogWriteError("failed to delete catalog entries", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCatalogEntry(row rowScanner) (*CatalogEntry, error) {
	var (
		entry    CatalogEntry
		tables   string
		errMsg   sql.NullString
		tenant   sql.NullInt64
		snapshot sql.NullString
	)

	err := row.Scan(
		&entry.BackupID,
		&entry.CreatedAt,
		&tables,
		&entry.TotalRecords,
		&entry.FileSizeMB,
		&entry.DurationSeconds,
		&entry.Success,
		&errMsg,
		&entry.StoragePath,
		&entry.StorageBucket,
		&entry.IsEncrypted,
		&entry.IsCompressed,
		&tenant,
		&snapshot,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tables), &entry.TablesBackedUp); err != nil {
		return nil, fmt.Errorf("corrupt table list for %s: %w", entry.BackupID, err)
	}
	if errMsg.Valid {
		entry.ErrorMessage = errMsg.String
	}
	if tenant.Valid {
		id := tenant.Int64
		entry.TenantID = &id
	}
	if snapshot.Valid && snapshot.String != "" {
		entry.ConfigSnapshot = json.RawMessage(snapshot.String)
	}
	return &entry, nil
}

func collectCatalogEntries(rows *sql.Rows) ([]*CatalogEntry, error) {
	var entries []*CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, NewStorageError("failed to scan catalog entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("failed while iterating catalog entries", err)
	}
	return entries, nil
}
