package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validateIdentifier rejects table and column names that cannot be safely
// interpolated into SQL. Identifiers come from configuration and from
// captured bundles, never from end users, but the check holds either way.
func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return NewValidationError(fmt.Sprintf("invalid identifier %q", name), nil)
	}
	return nil
}

// RowSource reads and replaces table rows in the venue datastore. It is the
// only component that touches the analytics tables directly; everything
// above it works with schema-less records.
type RowSource struct {
	db *sql.DB
}

// NewRowSource creates a RowSource over an open database handle.
func NewRowSource(db *sql.DB) *RowSource {
	return &RowSource{db: db}
}

// ReadTable captures every row of a table as schema-less records. A single
// SELECT is streamed through the driver cursor; OFFSET paging would need a
// stable ORDER BY on a key this layer cannot assume, and unordered pages
// can silently drop or duplicate rows between queries. When tenantID is
// non-nil and the table is tenant scoped, only rows belonging to that
// tenant are read.
func (rs *RowSource) ReadTable(ctx context.Context, table string, tenantID *int64, scoped bool) ([]Record, error) {
	if err := validateIdentifier(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM `%s`", table)
	args := []interface{}{}
	if tenantID != nil && scoped {
		query += fmt.Sprintf(" WHERE `%s` = ?", TenantColumn)
		args = append(args, *tenantID)
	}

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewTableReadError(fmt.Sprintf("failed to read table %s", table), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, NewTableReadError(fmt.Sprintf("failed to read columns of table %s", table), err)
	}

	records := []Record{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, NewTableReadError(fmt.Sprintf("failed to scan row of table %s", table), err)
		}

		record := make(Record, len(columns))
		for i, column := range columns {
			record[column] = columnValue(values[i])
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, NewTableReadError(fmt.Sprintf("failed while iterating table %s", table), err)
	}
	return records, nil
}

// columnValue converts a driver-scanned column value into a Value.
func columnValue(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(v)
	case int64:
		return NumberValue(json.Number(strconv.FormatInt(v, 10)))
	case float64:
		return NumberValue(json.Number(strconv.FormatFloat(v, 'g', -1, 64)))
	case time.Time:
		return StringValue(v.UTC().Format(time.RFC3339))
	case []byte:
		return StringValue(string(v))
	case string:
		return StringValue(v)
	default:
		return StringValue(fmt.Sprintf("%v", v))
	}
}

// recordArg converts a Value into a driver argument for an INSERT.
func recordArg(v Value) interface{} {
	switch v.Kind {
	case ValueNull:
		return nil
	case ValueBool:
		return v.Bool
	case ValueNumber:
		return string(v.Number)
	case ValueString:
		return v.Str
	case ValueJSON:
		return string(v.Raw)
	default:
		return nil
	}
}

// ReplaceTable replaces a table's contents with the given records inside a
// single transaction: a scoped delete followed by row-at-a-time inserts.
// When tenantID is non-nil and the table is tenant scoped, only that
// tenant's rows are deleted, and records belonging to other tenants are
// skipped rather than written. The returned count is the number of rows
// actually inserted.
func (rs *RowSource) ReplaceTable(ctx context.Context, table string, records []Record, tenantID *int64, scoped bool) (int, error) {
	if err := validateIdentifier(table); err != nil {
		return 0, err
	}

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewTableWriteError(fmt.Sprintf("failed to begin transaction for table %s", table), err)
	}
	defer tx.Rollback()

	deleteQuery := fmt.Sprintf("DELETE FROM `%s`", table)
	deleteArgs := []interface{}{}
	if tenantID != nil && scoped {
		deleteQuery += fmt.Sprintf(" WHERE `%s` = ?", TenantColumn)
		deleteArgs = append(deleteArgs, *tenantID)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return 0, NewTableWriteError(fmt.Sprintf("failed to clear table %s", table), err)
	}

	inserted := 0
	for _, record := range records {
		if tenantID != nil && scoped {
			id, ok := record.TenantID()
			if !ok || id != *tenantID {
				continue
			}
		}

		columns := make([]string, 0, len(record))
		for column := range record {
			columns = append(columns, column)
		}
		sort.Strings(columns)

		args := make([]interface{}, 0, len(columns))
		quoted := make([]string, 0, len(columns))
		placeholders := make([]string, 0, len(columns))
		for _, column := range columns {
			if err := validateIdentifier(column); err != nil {
				return 0, err
			}
			quoted = append(quoted, "`"+column+"`")
			placeholders = append(placeholders, "?")
			args = append(args, recordArg(record[column]))
		}

		insertQuery := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)",
			table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return 0, NewTableWriteError(fmt.Sprintf("failed to insert row into table %s", table), err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, NewTableWriteError(fmt.Sprintf("failed to commit restore of table %s", table), err)
	}
	return inserted, nil
}
