package backup

import (
	"context"
	"time"
)

// RowStore reads and replaces table rows in the venue datastore.
// RowSource is the MySQL implementation.
type RowStore interface {
	ReadTable(ctx context.Context, table string, tenantID *int64, scoped bool) ([]Record, error)
	ReplaceTable(ctx context.Context, table string, records []Record, tenantID *int64, scoped bool) (int, error)
}

// Catalog is the durable registry of completed backup runs. Registry is the
// MySQL implementation.
type Catalog interface {
	Insert(ctx context.Context, entry *CatalogEntry) error
	GetByID(ctx context.Context, backupID string) (*CatalogEntry, error)
	ListByTenant(ctx context.Context, tenantID *int64, limit int) ([]*CatalogEntry, error)
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*CatalogEntry, error)
	DeleteByIDs(ctx context.Context, backupIDs []string) error
}

var (
	_ RowStore = (*RowSource)(nil)
	_ Catalog  = (*Registry)(nil)
)
