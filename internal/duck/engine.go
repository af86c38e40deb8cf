// Package duck wraps an in-memory DuckDB instance used to read and write
// Parquet files. Datasets are loaded through the appender and exported with
// COPY ... (FORMAT PARQUET); Parquet input is read with read_parquet.
package duck

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb/v2"
	"github.com/spf13/cast"

	"etlcore/internal/dataset"
)

// Engine owns one in-memory database. It is safe for concurrent use; calls
// are serialized.
type Engine struct {
	mu sync.Mutex
	db *sql.DB
}

// Open starts an in-memory engine.
func Open() (*Engine, error) {
	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		_, err := execer.ExecContext(context.Background(), `SET schema='main'`, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("duck: create connector: %w", err)
	}
	return &Engine{db: sql.OpenDB(connector)}, nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// quoteIdent quotes a SQL identifier for DuckDB.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// quoteLiteral quotes a string literal; file paths go through here because
// table functions and COPY targets do not take bind parameters.
func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// ReadParquet loads a Parquet file into a Dataset. DuckDB column types map
// to numeric, boolean, datetime (DATE and TIMESTAMP families) or text.
func (e *Engine) ReadParquet(ctx context.Context, path string) (*dataset.Dataset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.db.QueryContext(ctx, "SELECT * FROM read_parquet("+quoteLiteral(path)+")")
	if err != nil {
		return nil, fmt.Errorf("duck: read_parquet %s: %w", path, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("duck: column types: %w", err)
	}
	builders := make([]*columnBuilder, len(types))
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		builders[i] = &columnBuilder{typ: mapType(ct.DatabaseTypeName())}
	}
	names = dataset.CleanHeader(names)

	vals := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("duck: scan: %w", err)
		}
		for i, v := range vals {
			builders[i].append(v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duck: rows: %w", err)
	}

	cols := make([]*dataset.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.build(names[i])
	}
	return dataset.New(cols...)
}

// mapType folds a DuckDB type name onto a ColumnType.
func mapType(name string) dataset.ColumnType {
	n := strings.ToUpper(name)
	switch {
	case n == "BOOLEAN":
		return dataset.Boolean
	case n == "DATE", strings.HasPrefix(n, "TIMESTAMP"):
		return dataset.Datetime
	case strings.HasPrefix(n, "DECIMAL"),
		strings.HasSuffix(n, "INT"), strings.HasSuffix(n, "INTEGER"),
		n == "FLOAT", n == "DOUBLE", n == "REAL":
		return dataset.Numeric
	}
	return dataset.Text
}

type columnBuilder struct {
	typ     dataset.ColumnType
	nums    []float64
	strs    []string
	times   []time.Time
	bools   []bool
	nulls   []bool
	hasNull bool
}

func (b *columnBuilder) append(v any) {
	null := v == nil
	b.nulls = append(b.nulls, null)
	b.hasNull = b.hasNull || null
	switch b.typ {
	case dataset.Numeric:
		f := 0.0
		if !null {
			f = toFloat(v)
		}
		b.nums = append(b.nums, f)
	case dataset.Boolean:
		bv, _ := v.(bool)
		b.bools = append(b.bools, bv)
	case dataset.Datetime:
		t, _ := v.(time.Time)
		b.times = append(b.times, t)
	default:
		s := ""
		if !null {
			s = toString(v)
		}
		b.strs = append(b.strs, s)
	}
}

func (b *columnBuilder) build(name string) *dataset.Column {
	nulls := b.nulls
	if !b.hasNull {
		nulls = nil
	}
	switch b.typ {
	case dataset.Numeric:
		return dataset.NewNumeric(name, orEmpty(b.nums), nulls)
	case dataset.Boolean:
		return dataset.NewBoolean(name, orEmpty(b.bools), nulls)
	case dataset.Datetime:
		return dataset.NewDatetime(name, orEmpty(b.times), nulls)
	}
	return dataset.NewText(name, orEmpty(b.strs), nulls)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func toFloat(v any) float64 {
	switch d := v.(type) {
	case duckdb.Decimal:
		return decimalFloat(d)
	case *duckdb.Decimal:
		return decimalFloat(*d)
	case *big.Int:
		f, _ := new(big.Float).SetInt(d).Float64()
		return f
	}
	return cast.ToFloat64(v)
}

func decimalFloat(d duckdb.Decimal) float64 {
	if d.Value == nil {
		return 0
	}
	f := new(big.Float).SetInt(d.Value)
	if d.Scale > 0 {
		scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil))
		f.Quo(f, scale)
	}
	out, _ := f.Float64()
	return out
}

func toString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// sqlType picks the DuckDB column type used when exporting a column.
func sqlType(t dataset.ColumnType) string {
	switch t {
	case dataset.Numeric:
		return "DOUBLE"
	case dataset.Boolean:
		return "BOOLEAN"
	case dataset.Datetime:
		return "TIMESTAMP"
	}
	return "VARCHAR"
}

// WriteParquet writes ds to path as Parquet. Column order, names and nulls
// are kept; Text and Categorical become VARCHAR.
func (e *Engine) WriteParquet(ctx context.Context, ds *dataset.Dataset, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("duck: get connection: %w", err)
	}
	defer conn.Close()

	table := "export_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	cols := ds.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c.Type)
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("duck: create %s: %w", table, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+quoteIdent(table))
	}()

	if err := appendDataset(conn, table, ds); err != nil {
		return err
	}

	q := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)", quoteIdent(table), quoteLiteral(path))
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("duck: copy to %s: %w", path, err)
	}
	return nil
}

func appendDataset(conn *sql.Conn, table string, ds *dataset.Dataset) error {
	var appender *duckdb.Appender
	err := conn.Raw(func(dc any) error {
		driverConn, ok := dc.(driver.Conn)
		if !ok {
			return fmt.Errorf("failed to assert driver.Conn")
		}
		var err error
		appender, err = duckdb.NewAppenderFromConn(driverConn, "main", table)
		return err
	})
	if err != nil {
		return fmt.Errorf("duck: create appender: %w", err)
	}

	cols := ds.Columns()
	row := make([]driver.Value, len(cols))
	for i := 0; i < ds.Rows(); i++ {
		for j, c := range cols {
			row[j] = cellValue(c, i)
		}
		if err := appender.AppendRow(row...); err != nil {
			_ = appender.Close()
			return fmt.Errorf("duck: append row %d: %w", i, err)
		}
	}
	// Close flushes the pending rows.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("duck: flush appender: %w", err)
	}
	return nil
}

func cellValue(c *dataset.Column, i int) driver.Value {
	if c.IsNull(i) {
		return nil
	}
	switch c.Type {
	case dataset.Numeric:
		return c.Nums[i]
	case dataset.Boolean:
		return c.Bools[i]
	case dataset.Datetime:
		return c.Times[i].UTC()
	}
	return c.Strs[i]
}
