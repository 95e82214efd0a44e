package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalogAges(t *testing.T, catalog *fakeCatalog, store *memBlobStore, now time.Time, ages []int) {
	t.Helper()
	for _, age := range ages {
		created := now.AddDate(0, 0, -age)
		backupID := GenerateBackupID()
		name := ObjectName(backupID, created)
		entry := &CatalogEntry{
			BackupID:      backupID,
			CreatedAt:     created,
			StoragePath:   name,
			StorageBucket: "venue-backups",
			FileSizeMB:    1.0,
		}
		require.NoError(t, catalog.Insert(context.Background(), entry))
		require.NoError(t, store.Put(context.Background(), name, []byte("blob")))
	}
}

func TestSweepDeletesOnlyStrictlyOlderThanCutoff(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	restore := nowUTC
	nowUTC = func() time.Time { return now }
	defer func() { nowUTC = restore }()

	catalog := newFakeCatalog()
	store := newMemBlobStore()
	seedCatalogAges(t, catalog, store, now, []int{10, 29, 30, 31, 90})

	sweeper := NewSweeper(catalog, store, quietLogger(t))
	result, err := sweeper.Sweep(context.Background(), 30)
	require.NoError(t, err)

	// The entry created exactly 30 days ago sits on the cutoff and is kept.
	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, 2, result.Deleted)
	assert.InDelta(t, 2.0, result.FreedMB, 0.001)

	remaining, err := catalog.ListByTenant(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
	assert.Len(t, store.objects, 3)
}

func TestSweepZeroRetentionDisabled(t *testing.T) {
	catalog := newFakeCatalog()
	store := newMemBlobStore()
	seedCatalogAges(t, catalog, store, time.Now().UTC(), []int{400})

	sweeper := NewSweeper(catalog, store, quietLogger(t))
	result, err := sweeper.Sweep(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)

	remaining, err := catalog.ListByTenant(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestSweepNothingExpired(t *testing.T) {
	catalog := newFakeCatalog()
	store := newMemBlobStore()
	seedCatalogAges(t, catalog, store, time.Now().UTC(), []int{1, 5})

	sweeper := NewSweeper(catalog, store, quietLogger(t))
	result, err := sweeper.Sweep(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Examined)
	assert.Equal(t, 0, result.Deleted)
}

func TestSweepRunsAfterBackup(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	restore := nowUTC
	nowUTC = func() time.Time { return now }
	defer func() { nowUTC = restore }()

	cfg := serviceConfig()
	service, rows, catalog, store := testService(t, cfg)
	seedTables(rows)
	seedCatalogAges(t, catalog, store, now, []int{45})

	_, err := service.CreateBackup(context.Background(), nil)
	require.NoError(t, err)

	// The expired entry is gone, the fresh one remains.
	remaining, err := catalog.ListByTenant(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].CreatedAt.Equal(now))
}
