package backup

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTableConvertsColumnValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 8, 1, 18, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "bar_id", "total", "note", "created_at", "line_items"}).
		AddRow(int64(1), int64(7), 42.5, nil, created, []byte(`[{"sku":"beer"}]`)).
		AddRow(int64(2), int64(7), 9.99, "happy hour", created, []byte(`[]`))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders`")).
		WillReturnRows(rows)

	rs := NewRowSource(db)
	records, err := rs.ReadTable(context.Background(), "orders", nil, false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, NumberValue("1"), first["id"])
	assert.Equal(t, NumberValue("7"), first["bar_id"])
	assert.Equal(t, NumberValue("42.5"), first["total"])
	assert.Equal(t, NullValue(), first["note"])
	assert.Equal(t, StringValue("2026-08-01T18:30:00Z"), first["created_at"])
	assert.Equal(t, StringValue(`[{"sku":"beer"}]`), first["line_items"])

	assert.Equal(t, StringValue("happy hour"), records[1]["note"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableTenantScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenant := int64(7)
	rows := sqlmock.NewRows([]string{"id", "bar_id"}).AddRow(int64(1), int64(7))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders` WHERE `bar_id` = ?")).
		WithArgs(tenant).
		WillReturnRows(rows)

	rs := NewRowSource(db)
	records, err := rs.ReadTable(context.Background(), "orders", &tenant, true)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableUnscopedIgnoresTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenant := int64(7)
	rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(1))

	// A table without the tenant column is read in full even on a scoped run.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `menu_items`")).
		WillReturnRows(rows)

	rs := NewRowSource(db)
	_, err = rs.ReadTable(context.Background(), "menu_items", &tenant, false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableLargeTableSingleQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Capture must issue exactly one SELECT and stream every row through it.
	// Splitting a large table across OFFSET pages has no ordering guarantee
	// and can drop or duplicate rows between queries.
	const rowCount = 2500
	rows := sqlmock.NewRows([]string{"id"})
	for i := 1; i <= rowCount; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders`")).
		WillReturnRows(rows)

	rs := NewRowSource(db)
	records, err := rs.ReadTable(context.Background(), "orders", nil, false)
	require.NoError(t, err)
	require.Len(t, records, rowCount)

	seen := make(map[string]bool, rowCount)
	for _, record := range records {
		seen[string(record["id"].Number)] = true
	}
	assert.Len(t, seen, rowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableRejectsBadIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rs := NewRowSource(db)
	_, err = rs.ReadTable(context.Background(), "orders; DROP TABLE orders", nil, false)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeValidation))
}

func TestReadTableQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `orders`")).
		WillReturnError(assert.AnError)

	rs := NewRowSource(db)
	_, err = rs.ReadTable(context.Background(), "orders", nil, false)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeTableRead))
}

func TestReplaceTableDeletesThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	records := []Record{
		{"id": NumberValue("1"), "bar_id": NumberValue("7"), "total": NumberValue("42.50"), "note": NullValue()},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `orders`")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders` (`bar_id`, `id`, `note`, `total`) VALUES (?, ?, ?, ?)")).
		WithArgs("7", "1", nil, "42.50").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rs := NewRowSource(db)
	written, err := rs.ReplaceTable(context.Background(), "orders", records, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTableTenantScopedFiltersRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenant := int64(7)
	records := []Record{
		{"id": NumberValue("1"), "bar_id": NumberValue("7")},
		{"id": NumberValue("2"), "bar_id": NumberValue("8")}, // other venue, skipped
		{"id": NumberValue("3")},                             // no tenant column, skipped
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `orders` WHERE `bar_id` = ?")).
		WithArgs(tenant).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders` (`bar_id`, `id`) VALUES (?, ?)")).
		WithArgs("7", "1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rs := NewRowSource(db)
	written, err := rs.ReplaceTable(context.Background(), "orders", records, &tenant, true)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTableRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	records := []Record{{"id": NumberValue("1")}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `orders`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `orders`")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	rs := NewRowSource(db)
	_, err = rs.ReplaceTable(context.Background(), "orders", records, nil, false)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeTableWrite))
	assert.NoError(t, mock.ExpectationsWereMet())
}
