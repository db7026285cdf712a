package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"query_clash_backend/internal/model"

	"gorm.io/gorm"
)

// ErrMultipleStatements is returned for input holding more than one statement.
var ErrMultipleStatements = errors.New("You can only execute one statement at a time.")

// DatasetRepository reads the mystery dataset that players query.
type DatasetRepository struct {
	DB *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{DB: db}
}

func (r *DatasetRepository) WithTx(tx *gorm.DB) *DatasetRepository {
	return &DatasetRepository{DB: tx}
}

// VisibleSchema lists every dataset table with its columns, skipping the game's
// own tables and engine internals.
func (r *DatasetRepository) VisibleSchema(ctx context.Context) (map[string][]string, error) {
	migrator := r.DB.WithContext(ctx).Migrator()
	tables, err := migrator.GetTables()
	if err != nil {
		return nil, err
	}
	sort.Strings(tables)

	schema := make(map[string][]string, len(tables))
	for _, table := range tables {
		if model.HiddenTables[table] || strings.HasPrefix(table, "sqlite_") {
			continue
		}
		columnTypes, err := migrator.ColumnTypes(table)
		if err != nil {
			return nil, err
		}
		columns := make([]string, 0, len(columnTypes))
		for _, ct := range columnTypes {
			columns = append(columns, ct.Name())
		}
		schema[table] = columns
	}
	return schema, nil
}

// Rows is a bounded read of a raw statement.
type Rows struct {
	Columns   []string
	Records   []map[string]interface{}
	Truncated bool
}

// Select runs a statement that has already been classified as read-only and
// reads at most limit rows. Column names come from the cursor, so they are
// complete even when no row is returned.
func (r *DatasetRepository) Select(ctx context.Context, statement string, limit int) (*Rows, error) {
	statement, err := SingleStatement(statement)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.WithContext(ctx).Raw(statement).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &Rows{Columns: columns, Records: make([]map[string]interface{}, 0)}
	for rows.Next() {
		if len(out.Records) >= limit {
			out.Truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		out.Records = append(out.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SingleStatement strips a trailing semicolon and fails with
// ErrMultipleStatements when anything but whitespace or comments follows it.
// Semicolons inside string literals, quoted identifiers and comments do not
// end a statement.
func SingleStatement(sql string) (string, error) {
	end := statementEnd(sql)
	if end == len(sql) {
		return sql, nil
	}
	for rest := sql[end:]; rest != ""; {
		switch {
		case rest[0] == ';' || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r' || rest[0] == '\f':
			rest = rest[1:]
		case strings.HasPrefix(rest, "--"), strings.HasPrefix(rest, "/*"):
			rest = rest[skipQuoted(rest, 0):]
		default:
			return "", ErrMultipleStatements
		}
	}
	return strings.TrimRight(sql[:end], " \t\n\r\f"), nil
}

// statementEnd is the index of the first top-level semicolon, or len(sql).
func statementEnd(sql string) int {
	for i := 0; i < len(sql); {
		if sql[i] == ';' {
			return i
		}
		i = skipQuoted(sql, i)
	}
	return len(sql)
}

// skipQuoted returns the index just past the literal, identifier or comment
// opening at i, or i+1 when none opens there. Unterminated ones run to the end.
func skipQuoted(sql string, i int) int {
	var closer string
	switch {
	case sql[i] == '\'' || sql[i] == '"' || sql[i] == '`':
		closer = sql[i : i+1]
	case sql[i] == '[':
		closer = "]"
	case strings.HasPrefix(sql[i:], "--"):
		closer = "\n"
	case strings.HasPrefix(sql[i:], "/*"):
		closer = "*/"
	default:
		return i + 1
	}
	j := i + 1
	if len(closer) == 2 || sql[i] == '-' {
		j = i + 2
	}
	for {
		k := strings.Index(sql[j:], closer)
		if k < 0 {
			return len(sql)
		}
		j += k + len(closer)
		// a doubled quote is an escaped quote, not the end
		if (closer == "'" || closer == `"` || closer == "`") && j < len(sql) && sql[j] == closer[0] {
			j++
			continue
		}
		return j
	}
}
