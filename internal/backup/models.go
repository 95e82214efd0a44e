package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BundleFormatVersion is the bundle format this build reads and writes.
// Restore refuses bundles carrying any other version before touching the
// datastore.
const BundleFormatVersion = "1.0"

// TenantColumn is the per-row ownership key used to scope backup and
// restore to a single venue.
const TenantColumn = "bar_id"

// ValueKind discriminates the variants of a Value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueNumber
	ValueString
	ValueJSON
)

// Value is a single schema-less record field: a scalar, null, or nested
// JSON document. Numbers are kept as their exact decimal representation so
// a backup/restore cycle reproduces rows bit-for-bit.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number json.Number
	Str    string
	Raw    json.RawMessage
}

// NullValue returns the null Value.
func NullValue() Value {
	return Value{Kind: ValueNull}
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value {
	return Value{Kind: ValueBool, Bool: b}
}

// NumberValue returns a numeric Value from its decimal representation.
func NumberValue(n json.Number) Value {
	return Value{Kind: ValueNumber, Number: n}
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

// JSONValue returns a nested-document Value holding raw JSON.
func JSONValue(raw json.RawMessage) Value {
	return Value{Kind: ValueJSON, Raw: raw}
}

// MarshalJSON encodes the Value as the plain JSON it represents.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueBool:
		return json.Marshal(v.Bool)
	case ValueNumber:
		if v.Number == "" {
			return []byte("0"), nil
		}
		return []byte(v.Number), nil
	case ValueString:
		return json.Marshal(v.Str)
	case ValueJSON:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("unknown value kind: %d", v.Kind)
	}
}

// UnmarshalJSON decodes plain JSON into the matching Value variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case 'n':
		*v = NullValue()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case '{', '[':
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		*v = JSONValue(raw)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
		return nil
	}
}

// Record is one row of a captured table: field name to value, with no
// schema assumed at this layer.
type Record map[string]Value

// TenantID returns the record's bar_id field as an integer, if present.
func (r Record) TenantID() (int64, bool) {
	v, ok := r[TenantColumn]
	if !ok || v.Kind != ValueNumber {
		return 0, false
	}
	id, err := v.Number.Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

// Manifest is the versioned header describing what a bundle contains.
type Manifest struct {
	FormatVersion string    `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
	Tables        []string  `json:"tables"`
	TotalRecords  int       `json:"total_records"`
	TenantID      *int64    `json:"bar_id,omitempty"`
}

// Validate checks the manifest's internal consistency against the captured
// tables.
func (m *Manifest) Validate(records map[string][]Record) error {
	var errs ValidationErrors

	if m.FormatVersion == "" {
		errs.Add("format_version", "format version is required", m.FormatVersion)
	}
	if m.CreatedAt.IsZero() {
		errs.Add("created_at", "creation timestamp is required", m.CreatedAt)
	}

	total := 0
	for _, table := range m.Tables {
		total += len(records[table])
	}
	if total != m.TotalRecords {
		errs.Add("total_records",
			fmt.Sprintf("manifest count %d does not match captured rows %d", m.TotalRecords, total),
			m.TotalRecords)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Bundle is the in-memory manifest plus captured table rows. It exists only
// in memory and in flight; it is never persisted unencrypted when
// encryption is enabled.
type Bundle struct {
	Manifest Manifest            `json:"manifest"`
	Records  map[string][]Record `json:"records"`
}

// NewBundle assembles a bundle from captured tables, deriving the manifest
// counts from the rows themselves.
func NewBundle(tables []string, records map[string][]Record, tenantID *int64, createdAt time.Time) *Bundle {
	total := 0
	for _, table := range tables {
		total += len(records[table])
	}
	return &Bundle{
		Manifest: Manifest{
			FormatVersion: BundleFormatVersion,
			CreatedAt:     createdAt,
			Tables:        tables,
			TotalRecords:  total,
			TenantID:      tenantID,
		},
		Records: records,
	}
}

// CatalogEntry is one durable catalog row describing a completed backup
// run. Entries are written exactly once, after a successful upload, and are
// removed only by the retention sweeper or an explicit purge.
type CatalogEntry struct {
	BackupID        string          `json:"backup_id"`
	CreatedAt       time.Time       `json:"created_at"`
	TablesBackedUp  []string        `json:"tables_backed_up"`
	TotalRecords    int             `json:"total_records"`
	FileSizeMB      float64         `json:"file_size_mb"`
	DurationSeconds float64         `json:"duration_seconds"`
	Success         bool            `json:"success"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	StoragePath     string          `json:"storage_path"`
	StorageBucket   string          `json:"storage_bucket"`
	IsEncrypted     bool            `json:"is_encrypted"`
	IsCompressed    bool            `json:"is_compressed"`
	TenantID        *int64          `json:"bar_id,omitempty"`
	ConfigSnapshot  json.RawMessage `json:"config,omitempty"`
}

// Validate validates the CatalogEntry struct
func (ce *CatalogEntry) Validate() error {
	var errs ValidationErrors

	if ce.BackupID == "" {
		errs.Add("backup_id", "backup ID is required", ce.BackupID)
	}
	if ce.CreatedAt.IsZero() {
		errs.Add("created_at", "creation timestamp is required", ce.CreatedAt)
	}
	if ce.StoragePath == "" {
		errs.Add("storage_path", "storage path is required", ce.StoragePath)
	}
	if ce.StorageBucket == "" {
		errs.Add("storage_bucket", "storage bucket is required", ce.StorageBucket)
	}
	if ce.TotalRecords < 0 {
		errs.Add("total_records", "record count cannot be negative", ce.TotalRecords)
	}
	if ce.FileSizeMB < 0 {
		errs.Add("file_size_mb", "file size cannot be negative", ce.FileSizeMB)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// RunResult is the structured outcome of a backup run returned to callers.
type RunResult struct {
	BackupID        string   `json:"backup_id"`
	Success         bool     `json:"success"`
	Tables          []string `json:"tables"`
	SkippedTables   []string `json:"skipped_tables,omitempty"`
	TotalRecords    int      `json:"total_records"`
	FileSizeMB      float64  `json:"file_size_mb"`
	DurationSeconds float64  `json:"duration_seconds"`
	Error           string   `json:"error,omitempty"`
}

// RestoreResult is the structured outcome of a restore run.
type RestoreResult struct {
	BackupID        string   `json:"backup_id"`
	Success         bool     `json:"success"`
	TablesRestored  []string `json:"tables_restored"`
	FailedTables    []string `json:"failed_tables,omitempty"`
	RecordsWritten  int      `json:"records_written"`
	DurationSeconds float64  `json:"duration_seconds"`
	Error           string   `json:"error,omitempty"`
}

// SweepResult summarizes one retention sweep.
type SweepResult struct {
	Examined  int      `json:"examined"`
	Deleted   int      `json:"deleted"`
	FreedMB   float64  `json:"freed_mb"`
	CutoffAge int      `json:"cutoff_days"`
	Errors    []string `json:"errors,omitempty"`
}

// GenerateBackupID generates a backup id with a timestamp prefix and a
// random suffix. Uniqueness is not formally guaranteed; the catalog's
// unique key on backup_id is the backstop.
func GenerateBackupID() string {
	timestamp := time.Now().UTC().Format("20060102150405")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("bk-%s-%s", timestamp, suffix)
}

// ObjectName returns the blob store object name for a backup:
// <backup_id>_<ISO8601 with dashes for colons>.backup
func ObjectName(backupID string, createdAt time.Time) string {
	stamp := strings.ReplaceAll(createdAt.UTC().Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("%s_%s.backup", backupID, stamp)
}
