package pvpchess

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// recordedStmt is one statement seen by the fake connection.
type recordedStmt struct {
	query string
	args  []any
}

// sqlFake is a minimal database/sql driver: it records statements and answers
// every query with the canned rows.
type sqlFake struct {
	mu      sync.Mutex
	stmts   []recordedStmt
	columns []string
	rows    [][]driver.Value
}

func newSQLFake(t *testing.T) (*sqlFake, *sql.DB) {
	t.Helper()
	f := &sqlFake{}
	db := sql.OpenDB(f)
	t.Cleanup(func() { _ = db.Close() })
	return f, db
}

func (f *sqlFake) Connect(context.Context) (driver.Conn, error) { return &fakeConn{f: f}, nil }
func (f *sqlFake) Driver() driver.Driver                        { return fakeDriver{f} }

func (f *sqlFake) record(query string, args []driver.NamedValue) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	f.mu.Lock()
	f.stmts = append(f.stmts, recordedStmt{query: query, args: vals})
	f.mu.Unlock()
}

func (f *sqlFake) last(t *testing.T) recordedStmt {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stmts) == 0 {
		t.Fatalf("no statement executed")
	}
	return f.stmts[len(f.stmts)-1]
}

type fakeDriver struct{ f *sqlFake }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{f: d.f}, nil }

type fakeConn struct{ f *sqlFake }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("sqlfake: prepared statements unsupported")
}
func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("sqlfake: transactions unsupported")
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.f.record(query, args)
	return driver.RowsAffected(1), nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.f.record(query, args)
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	return &fakeRows{columns: c.f.columns, rows: c.f.rows}, nil
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *fakeRows) Columns() []string { return r.columns }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}
