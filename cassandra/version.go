package cassandra

import (
	"fmt"

	"go-cql-engine/cql"
)

// OptimisticLockError reports a version-conditioned write whose condition
// did not hold: another writer changed the row since it was read. Callers
// decide whether to reload and retry; the engine never retries.
type OptimisticLockError struct {
	Table           string
	Column          string
	ExpectedVersion int64
	Previous        cql.Row
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("optimistic lock failure on %s: expected %s = %d", e.Table, e.Column, e.ExpectedVersion)
}

// VersionedWriter implements the optimistic-concurrency protocol on top of
// the statement factory and executor. Entities without a version column pass
// through unconditioned.
type VersionedWriter struct {
	factory  *cql.StatementFactory
	executor *Executor
}

func NewVersionedWriter(factory *cql.StatementFactory, executor *Executor) *VersionedWriter {
	return &VersionedWriter{factory: factory, executor: executor}
}

// Insert writes a new row. Versioned entities always insert with
// IF NOT EXISTS and their version initialized before the statement is built;
// a not-applied result means the row already exists.
func (w *VersionedWriter) Insert(row cql.Row, meta cql.TableMetadata, opts cql.InsertOptions) (*WriteResult, error) {
	if meta.IsVersioned() {
		row = cloneRow(row)
		row[meta.Version.Name()] = int64(1)
		opts.IfNotExists = true
	}
	result, err := Execute(w.executor, w.factory.Insert(row, meta, opts))
	if err != nil {
		return nil, err
	}
	if meta.IsVersioned() && !result.Applied {
		return result, w.lockError(meta, 0, result)
	}
	return result, nil
}

// Update rewrites the row's non-key columns. For versioned entities the
// current version is read from the row, incremented, and the write is
// conditioned on the version still matching the previous value.
func (w *VersionedWriter) Update(row cql.Row, meta cql.TableMetadata, opts cql.UpdateOptions) (*WriteResult, error) {
	var previous int64
	if meta.IsVersioned() {
		var err error
		previous, err = versionOf(row, meta)
		if err != nil {
			return nil, err
		}
		row = cloneRow(row)
		row[meta.Version.Name()] = previous + 1
		opts = opts.IfCondition(cql.Filter{cql.Eq(meta.Version, previous)})
	}
	result, err := Execute(w.executor, w.factory.UpdateEntity(row, meta, opts))
	if err != nil {
		return nil, err
	}
	if meta.IsVersioned() && !result.Applied {
		return result, w.lockError(meta, previous, result)
	}
	return result, nil
}

// Delete removes the row, conditioned on the current version for versioned
// entities.
func (w *VersionedWriter) Delete(row cql.Row, meta cql.TableMetadata, opts cql.DeleteOptions) (*WriteResult, error) {
	var current int64
	if meta.IsVersioned() {
		var err error
		current, err = versionOf(row, meta)
		if err != nil {
			return nil, err
		}
		opts = opts.IfCondition(cql.Filter{cql.Eq(meta.Version, current)})
	}
	result, err := Execute(w.executor, w.factory.DeleteEntity(row, meta, opts))
	if err != nil {
		return nil, err
	}
	if meta.IsVersioned() && !result.Applied {
		return result, w.lockError(meta, current, result)
	}
	return result, nil
}

func (w *VersionedWriter) lockError(meta cql.TableMetadata, expected int64, result *WriteResult) error {
	err := &OptimisticLockError{
		Table:           meta.Table,
		Column:          meta.Version.Name(),
		ExpectedVersion: expected,
	}
	if len(result.Rows) > 0 {
		err.Previous = result.Rows[0]
	}
	return err
}

func versionOf(row cql.Row, meta cql.TableMetadata) (int64, error) {
	v, ok := row[meta.Version.Name()]
	if !ok {
		return 0, fmt.Errorf("row for table %s is missing version column %s", meta.Table, meta.Version.Name())
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("version column %s holds non-integer value %v", meta.Version.Name(), v)
	}
}

func cloneRow(row cql.Row) cql.Row {
	out := make(cql.Row, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	return out
}
