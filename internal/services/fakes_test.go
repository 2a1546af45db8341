package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.scanFunc == nil {
		return errors.New("unexpected scan")
	}
	return r.scanFunc(dest...)
}

// rowFromValues returns a Row that scans values into dest positionally.
func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

func rowWithError(err error) Row {
	return fakeRow{scanFunc: func(dest ...any) error { return err }}
}

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return errors.New("scan called without row")
	}
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close() { r.closed = true }

func (r *fakeRows) Err() error { return r.err }

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 { return t.rowsAffected }

type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return rowWithError(fmt.Errorf("unexpected QueryRow: %s", sql))
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return fakeCommandTag{}, nil
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc == nil {
		return nil, errors.New("unexpected Begin")
	}
	return f.BeginFunc(ctx)
}

type fakeTx struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	committed  bool
	rolledBack bool
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return rowWithError(fmt.Errorf("unexpected QueryRow: %s", sql))
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return fakeCommandTag{}, nil
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.CommitFunc != nil {
		if err := f.CommitFunc(ctx); err != nil {
			return err
		}
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	if f.RollbackFunc != nil {
		return f.RollbackFunc(ctx)
	}
	return nil
}

// dbWithTx returns a fakeDB whose Begin hands out tx.
func dbWithTx(tx *fakeTx) *fakeDB {
	return &fakeDB{
		BeginFunc: func(ctx context.Context) (Tx, error) { return tx, nil },
	}
}

type fakeKeyValueStore struct {
	getValue string
	getErr   error
	lastKey  string
}

func (f *fakeKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	f.lastKey = key
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.getValue, nil
}

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(values), len(dest))
	}
	for i := range dest {
		if err := assignValue(dest[i], values[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assignValue(dest any, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return errors.New("destination must be a non-nil pointer")
	}
	target := dv.Elem()

	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case target.Kind() == reflect.Ptr && v.Type().AssignableTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(v)
		target.Set(p)
	case v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}
