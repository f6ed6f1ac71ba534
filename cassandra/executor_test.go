package cassandra

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cql-engine/cql"
)

type executedQuery struct {
	stmt        string
	values      []interface{}
	prepared    bool
	pageSize    int
	consistency gocql.Consistency
	timestamped bool
	traced      bool
}

type mockSession struct {
	mu          sync.Mutex
	queries     []executedQuery
	batches     []*mockBatch
	rows        []map[string]interface{}
	casApplied  bool
	casPrevious map[string]interface{}
	casRest     []map[string]interface{}
	execErr     error
}

func (m *mockSession) record(q executedQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
}

func (m *mockSession) Query(stmt string, values ...interface{}) Query {
	return &mockQuery{session: m, record: executedQuery{stmt: stmt, values: values}}
}

func (m *mockSession) PreparedQuery(stmt string, values ...interface{}) Query {
	return &mockQuery{session: m, record: executedQuery{stmt: stmt, values: values, prepared: true}}
}

func (m *mockSession) NewBatch(gocql.BatchType) Batch {
	b := &mockBatch{session: m}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, b)
	return b
}

func (m *mockSession) Keyspace() string { return "test_keyspace" }
func (m *mockSession) Close()           {}

type mockQuery struct {
	session *mockSession
	record  executedQuery
}

func (q *mockQuery) Exec() error {
	q.session.record(q.record)
	return q.session.execErr
}

func (q *mockQuery) Iter() Iterator {
	q.session.record(q.record)
	return &mockIter{rows: q.session.rows}
}

func (q *mockQuery) MapScanCAS(dest map[string]interface{}) (bool, error) {
	q.session.record(q.record)
	if q.session.execErr != nil {
		return false, q.session.execErr
	}
	if !q.session.casApplied {
		for k, v := range q.session.casPrevious {
			dest[k] = v
		}
	}
	return q.session.casApplied, nil
}

func (q *mockQuery) Consistency(level gocql.Consistency) Query {
	q.record.consistency = level
	return q
}

func (q *mockQuery) SerialConsistency(gocql.SerialConsistency) Query { return q }

func (q *mockQuery) PageSize(n int) Query {
	q.record.pageSize = n
	return q
}

func (q *mockQuery) PageState([]byte) Query { return q }

func (q *mockQuery) WithTimestamp(int64) Query {
	q.record.timestamped = true
	return q
}

func (q *mockQuery) Idempotent(bool) Query   { return q }
func (q *mockQuery) RoutingKey([]byte) Query { return q }

func (q *mockQuery) Tracing(enabled bool) Query {
	q.record.traced = enabled
	return q
}

type mockIter struct {
	rows []map[string]interface{}
	idx  int
}

func (i *mockIter) MapScan(dest map[string]interface{}) bool {
	if i.idx >= len(i.rows) {
		return false
	}
	for k, v := range i.rows[i.idx] {
		dest[k] = v
	}
	i.idx++
	return true
}

func (i *mockIter) PageState() []byte { return []byte("cursor") }
func (i *mockIter) Close() error      { return nil }

type batchEntry struct {
	stmt   string
	values []interface{}
}

type mockBatch struct {
	session    *mockSession
	mu         sync.Mutex
	entries    []batchEntry
	timestamp  *int64
	executions int
}

func (b *mockBatch) Query(stmt string, values ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, batchEntry{stmt: stmt, values: values})
}

func (b *mockBatch) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *mockBatch) WithTimestamp(ts int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timestamp = &ts
}

func (b *mockBatch) ExecuteBatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executions++
	return b.session.execErr
}

func (b *mockBatch) ExecuteBatchCAS(dest map[string]interface{}) (bool, []map[string]interface{}, error) {
	b.mu.Lock()
	b.executions++
	b.mu.Unlock()
	if b.session.execErr != nil {
		return false, nil, b.session.execErr
	}
	if !b.session.casApplied {
		for k, v := range b.session.casPrevious {
			dest[k] = v
		}
		return false, b.session.casRest, nil
	}
	return true, nil, nil
}

var testMeta = cql.TableMetadata{
	Keyspace:   "app",
	Table:      "accounts",
	Columns:    []cql.Column{cql.Col("id"), cql.Col("owner"), cql.Col("balance"), cql.Col("version")},
	PrimaryKey: []cql.Column{cql.Col("id")},
	Version:    cql.Col("version"),
}

func testFactory() *cql.StatementFactory {
	return cql.NewStatementFactory(cql.EntityKeyspace{}, true)
}

func TestExecutor_UnconditionalWrite(t *testing.T) {
	session := &mockSession{}
	executor := NewExecutor(session)

	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	result, err := Execute(executor, testFactory().Delete(q, testMeta, cql.DeleteOptions{}))
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Empty(t, result.Rows)

	require.Len(t, session.queries, 1)
	assert.Equal(t, "DELETE FROM app.accounts WHERE id = ?", session.queries[0].stmt)
	assert.True(t, session.queries[0].prepared, "bound statements take the prepared path")
}

func TestExecutor_ConditionalWriteNotApplied(t *testing.T) {
	session := &mockSession{
		casApplied:  false,
		casPrevious: map[string]interface{}{"id": "a1", "version": int64(3)},
	}
	executor := NewExecutor(session)

	row := cql.Row{"id": "a1", "owner": "x"}
	result, err := Execute(executor, testFactory().Insert(row, testMeta, cql.InsertOptions{IfNotExists: true}))
	require.NoError(t, err)

	assert.False(t, result.Applied)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(3), result.Rows[0]["version"])
	assert.Equal(t, int64(1), executor.GetMetric().CasConflicts)
}

func TestExecutor_ConditionalWriteApplied(t *testing.T) {
	session := &mockSession{casApplied: true}
	executor := NewExecutor(session)

	row := cql.Row{"id": "a1"}
	result, err := Execute(executor, testFactory().Insert(row, testMeta, cql.InsertOptions{IfNotExists: true}))
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Empty(t, result.Rows)
}

func TestExecutor_WriteError(t *testing.T) {
	session := &mockSession{execErr: fmt.Errorf("write timeout")}
	executor := NewExecutor(session)

	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	_, err := Execute(executor, testFactory().Delete(q, testMeta, cql.DeleteOptions{}))
	assert.ErrorContains(t, err, "write timeout")
}

func TestExecutor_SelectRowsAndCursor(t *testing.T) {
	session := &mockSession{rows: []map[string]interface{}{
		{"id": "a1", "owner": "x"},
		{"id": "a2", "owner": "y"},
	}}
	executor := NewExecutor(session)

	stmt, err := testFactory().Select(cql.Query{Columns: cql.AllColumns()}, testMeta).Build()
	require.NoError(t, err)

	rows, pagingState, err := executor.Select(stmt)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0]["id"])
	assert.Equal(t, []byte("cursor"), pagingState)
	assert.Equal(t, int64(2), executor.GetMetric().RowsRead)
}

func TestExecutor_Count(t *testing.T) {
	session := &mockSession{rows: []map[string]interface{}{{"count": int64(42)}}}
	executor := NewExecutor(session)

	stmt, err := testFactory().Count(cql.Query{}, testMeta).Build()
	require.NoError(t, err)

	n, err := executor.Count(stmt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestExecutor_Exists(t *testing.T) {
	tests := []struct {
		name string
		rows []map[string]interface{}
		want bool
	}{
		{name: "row present", rows: []map[string]interface{}{{"id": "a1"}}, want: true},
		{name: "no rows", rows: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewExecutor(&mockSession{rows: tt.rows})

			stmt, err := testFactory().Exists(cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}, testMeta).Build()
			require.NoError(t, err)

			found, err := executor.Exists(stmt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found)
		})
	}
}

func TestExecutor_WriteMetadata(t *testing.T) {
	session := &mockSession{}
	executor := NewExecutor(session)

	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	result, err := Execute(executor, testFactory().Delete(q, testMeta, cql.DeleteOptions{}))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metadata.Statements)
	assert.GreaterOrEqual(t, result.Metadata.Latency, time.Duration(0))
}

func TestExecutor_ExecutionProfile(t *testing.T) {
	session := &mockSession{}
	executor := NewExecutor(session).WithExecutionProfiles(map[string]cql.StatementOptions{
		"analytics": {Consistency: "LOCAL_ONE", PageSize: 50, Tracing: true},
	})

	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	opts := cql.DeleteOptions{}
	opts.StatementOptions = cql.StatementOptions{ExecutionProfile: "analytics", PageSize: 10}
	_, err := Execute(executor, testFactory().Delete(q, testMeta, opts))
	require.NoError(t, err)

	require.Len(t, session.queries, 1)
	executed := session.queries[0]
	assert.Equal(t, gocql.LocalOne, executed.consistency, "profile supplies unset options")
	assert.Equal(t, 10, executed.pageSize, "statement options win over the profile")
	assert.True(t, executed.traced)
}

func TestExecutor_UnknownProfileIsIgnored(t *testing.T) {
	session := &mockSession{}
	executor := NewExecutor(session)

	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	opts := cql.DeleteOptions{}
	opts.StatementOptions = cql.StatementOptions{ExecutionProfile: "absent", Consistency: "ONE"}
	_, err := Execute(executor, testFactory().Delete(q, testMeta, opts))
	require.NoError(t, err)
	assert.Equal(t, gocql.One, session.queries[0].consistency)
}

// The statement text owns the timestamp as USING TIMESTAMP; the driver-level
// timestamp must not be set a second time.
func TestExecutor_TimestampRendersOnceInStatementText(t *testing.T) {
	session := &mockSession{}
	executor := NewExecutor(session)

	ts := int64(1234)
	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	opts := cql.DeleteOptions{}
	opts.Timestamp = &ts
	_, err := Execute(executor, testFactory().Delete(q, testMeta, opts))
	require.NoError(t, err)

	executed := session.queries[0]
	assert.Equal(t, "DELETE FROM app.accounts USING TIMESTAMP 1234 WHERE id = ?", executed.stmt)
	assert.False(t, executed.timestamped)
}

func TestParseConsistency(t *testing.T) {
	tests := []struct {
		input    string
		expected gocql.Consistency
	}{
		{input: "ANY", expected: gocql.Any},
		{input: "ONE", expected: gocql.One},
		{input: "TWO", expected: gocql.Two},
		{input: "THREE", expected: gocql.Three},
		{input: "QUORUM", expected: gocql.Quorum},
		{input: "ALL", expected: gocql.All},
		{input: "LOCAL_QUORUM", expected: gocql.LocalQuorum},
		{input: "EACH_QUORUM", expected: gocql.EachQuorum},
		{input: "LOCAL_ONE", expected: gocql.LocalOne},
		{input: "", expected: gocql.Quorum},
		{input: "INVALID", expected: gocql.Quorum},
	}

	for _, tt := range tests {
		t.Run("consistency "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseConsistency(tt.input))
		})
	}
}
