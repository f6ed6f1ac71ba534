package cassandra

import (
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	"go-cql-engine/cql"
)

// WriteResult reports the outcome of a write. For lightweight transactions
// Applied mirrors the server's applied flag and Rows carries the pre-image
// row(s) when the transaction was not applied; that is the only channel by
// which conflict detail surfaces.
type WriteResult struct {
	Applied  bool
	Rows     []cql.Row
	Metadata ExecutionMetadata
}

// ExecutionMetadata describes how the write ran, independent of its outcome.
type ExecutionMetadata struct {
	Latency    time.Duration
	Statements int
}

// Metric carries engine counters read by the prometheus collector.
type Metric struct {
	StatementsExecuted int64
	RowsRead           int64
	BatchesExecuted    int64
	CasConflicts       int64
	WriteLatencyMs     int64
}

// Executor runs built statements against a Session, honoring the statement
// options folded in during build. It performs no retries; retry policy
// belongs to the driver and the caller.
type Executor struct {
	session  Session
	metric   *Metric
	profiles map[string]cql.StatementOptions
}

func NewExecutor(session Session) *Executor {
	return &Executor{session: session, metric: &Metric{}}
}

// WithExecutionProfiles registers named option bundles. A statement naming a
// profile inherits its options, with the statement's own options winning.
func (e *Executor) WithExecutionProfiles(profiles map[string]cql.StatementOptions) *Executor {
	e.profiles = profiles
	return e
}

func (e *Executor) GetMetric() *Metric {
	return e.metric
}

// query materializes a driver query for the statement, using the prepared
// path when the statement carries bound values.
func (e *Executor) query(stmt cql.Statement) Query {
	text, values := stmt.CQL()

	var q Query
	if len(values) > 0 {
		q = e.session.PreparedQuery(text, values...)
	} else {
		q = e.session.Query(text)
	}
	return applyOptions(q, e.resolveOptions(stmt.Options()))
}

// resolveOptions layers statement options over their named execution
// profile, when one is set and registered.
func (e *Executor) resolveOptions(opts cql.StatementOptions) cql.StatementOptions {
	if opts.ExecutionProfile == "" {
		return opts
	}
	base, ok := e.profiles[opts.ExecutionProfile]
	if !ok {
		return opts
	}
	return opts.Merge(base)
}

// applyOptions maps statement options onto the driver query. The timestamp
// is not applied here: write statements own it as a USING TIMESTAMP clause.
func applyOptions(q Query, opts cql.StatementOptions) Query {
	if opts.Consistency != "" {
		q = q.Consistency(parseConsistency(opts.Consistency))
	}
	if opts.SerialConsistency == "LOCAL_SERIAL" {
		q = q.SerialConsistency(gocql.LocalSerial)
	} else if opts.SerialConsistency != "" {
		q = q.SerialConsistency(gocql.Serial)
	}
	if opts.PageSize > 0 {
		q = q.PageSize(opts.PageSize)
	}
	if opts.Idempotent {
		q = q.Idempotent(true)
	}
	if opts.RoutingKey != nil {
		q = q.RoutingKey(opts.RoutingKey)
	}
	if opts.Tracing {
		q = q.Tracing(true)
	}
	return q
}

// ExecuteWrite runs an insert, update or delete. Conditional statements go
// through the CAS scan path so the applied flag and pre-image surface in the
// result; unconditional writes report Applied on success.
func (e *Executor) ExecuteWrite(stmt cql.Statement) (*WriteResult, error) {
	started := time.Now()
	defer func() {
		atomic.StoreInt64(&e.metric.WriteLatencyMs, time.Since(started).Milliseconds())
		atomic.AddInt64(&e.metric.StatementsExecuted, 1)
	}()

	q := e.query(stmt)
	if !stmt.Conditional() {
		if err := q.Exec(); err != nil {
			return nil, err
		}
		return &WriteResult{
			Applied:  true,
			Metadata: ExecutionMetadata{Latency: time.Since(started), Statements: 1},
		}, nil
	}

	previous := make(map[string]interface{})
	applied, err := q.MapScanCAS(previous)
	if err != nil {
		return nil, err
	}
	result := &WriteResult{
		Applied:  applied,
		Metadata: ExecutionMetadata{Latency: time.Since(started), Statements: 1},
	}
	if !applied {
		atomic.AddInt64(&e.metric.CasConflicts, 1)
		result.Rows = []cql.Row{cql.Row(previous)}
	}
	return result, nil
}

// Select runs a select statement and returns its rows plus the cursor for
// continuing the scan.
func (e *Executor) Select(stmt *cql.SelectStatement) ([]cql.Row, []byte, error) {
	q := e.query(stmt)
	if state := stmt.PagingState(); len(state) > 0 {
		q = q.PageState(state)
	}

	iter := q.Iter()
	var rows []cql.Row
	for {
		row := make(map[string]interface{})
		if !iter.MapScan(row) {
			break
		}
		rows = append(rows, cql.Row(row))
	}
	pagingState := iter.PageState()
	if err := iter.Close(); err != nil {
		return nil, nil, err
	}
	atomic.AddInt64(&e.metric.StatementsExecuted, 1)
	atomic.AddInt64(&e.metric.RowsRead, int64(len(rows)))
	return rows, pagingState, nil
}

// Count runs a COUNT select and extracts the single counter cell.
func (e *Executor) Count(stmt *cql.SelectStatement) (int64, error) {
	rows, _, err := e.Select(stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, v := range rows[0] {
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
	}
	return 0, nil
}

// Exists reports whether the statement matched at least one row; row content
// is irrelevant.
func (e *Executor) Exists(stmt *cql.SelectStatement) (bool, error) {
	rows, _, err := e.Select(stmt)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Execute builds the builder with its term factory and runs the resulting
// write. Binding happens here, at execution time, not when the factory
// produced the builder.
func Execute[S cql.Statement](e *Executor, b *cql.StatementBuilder[S]) (*WriteResult, error) {
	stmt, err := b.Build()
	if err != nil {
		return nil, err
	}
	return e.ExecuteWrite(stmt)
}
