package cassandra

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cql-engine/cql"
)

func buildInsert(t *testing.T, id string) cql.Statement {
	t.Helper()
	stmt, err := testFactory().Insert(cql.Row{"id": id, "owner": "x"}, testMeta, cql.InsertOptions{}).Build()
	require.NoError(t, err)
	return stmt
}

func TestBatchAccumulator_SingleUse(t *testing.T) {
	session := &mockSession{}
	acc := NewBatchAccumulator(session, &Metric{})

	require.NoError(t, acc.Add(buildInsert(t, "a1"), buildInsert(t, "a2")))
	require.NoError(t, acc.Add(buildInsert(t, "a3")))
	assert.Equal(t, 3, acc.Size())

	result, err := acc.Execute()
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, 3, result.Metadata.Statements)

	_, err = acc.Execute()
	assert.ErrorIs(t, err, ErrBatchExecuted)
	assert.ErrorIs(t, acc.Add(buildInsert(t, "a4")), ErrBatchExecuted)

	require.Len(t, session.batches, 1)
	assert.Equal(t, 1, session.batches[0].executions, "latch must prevent re-submission")
	assert.Len(t, session.batches[0].entries, 3)
}

func TestBatchAccumulator_RejectsNonBatchableStatements(t *testing.T) {
	acc := NewBatchAccumulator(&mockSession{}, nil)

	sel, err := testFactory().Select(cql.Query{Columns: cql.AllColumns()}, testMeta).Build()
	require.NoError(t, err)

	var pe *cql.PreconditionError
	assert.ErrorAs(t, acc.Add(sel), &pe)
	assert.Equal(t, 0, acc.Size())
}

func TestBatchAccumulator_ConditionalTakesCASPath(t *testing.T) {
	session := &mockSession{
		casApplied:  false,
		casPrevious: map[string]interface{}{"id": "a1", "version": int64(2)},
		casRest: []map[string]interface{}{
			{"id": "a2", "version": int64(5)},
		},
	}
	metric := &Metric{}
	acc := NewBatchAccumulator(session, metric)

	conditional, err := testFactory().Insert(cql.Row{"id": "a1"}, testMeta, cql.InsertOptions{IfNotExists: true}).Build()
	require.NoError(t, err)
	require.NoError(t, acc.Add(conditional, buildInsert(t, "a2")))

	result, err := acc.Execute()
	require.NoError(t, err)
	assert.False(t, result.Applied)

	// Every pre-image row surfaces, not only the first.
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(2), result.Rows[0]["version"])
	assert.Equal(t, int64(5), result.Rows[1]["version"])
	assert.Equal(t, int64(1), metric.CasConflicts)
	assert.Equal(t, int64(1), metric.BatchesExecuted)
}

func TestBatchAccumulator_WithTimestamp(t *testing.T) {
	session := &mockSession{}
	acc := NewBatchAccumulator(session, nil).WithTimestamp(1234)

	require.NoError(t, acc.Add(buildInsert(t, "a1")))
	_, err := acc.Execute()
	require.NoError(t, err)

	require.NotNil(t, session.batches[0].timestamp)
	assert.Equal(t, int64(1234), *session.batches[0].timestamp)
}

func TestBatchAccumulator_AddBuilt(t *testing.T) {
	acc := NewBatchAccumulator(&mockSession{}, nil)

	q := cql.Query{Filter: cql.Filter{cql.Eq(cql.Col("id"), "a1")}}
	require.NoError(t, AddBuilt(acc, testFactory().Delete(q, testMeta, cql.DeleteOptions{})))
	assert.Equal(t, 1, acc.Size())
}

func TestBatchAccumulator_ConcurrentAddAndExecute(t *testing.T) {
	session := &mockSession{}
	acc := NewBatchAccumulator(session, nil)
	require.NoError(t, acc.Add(buildInsert(t, "seed")))

	var wg sync.WaitGroup
	added := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := acc.Add(buildInsert(t, "a"))
			added <- err == nil
		}()
	}
	_, err := acc.Execute()
	require.NoError(t, err)
	wg.Wait()
	close(added)

	accepted := 0
	for ok := range added {
		if ok {
			accepted++
		}
	}
	// Every accepted statement reached the batch before the single execution.
	assert.Equal(t, 1+accepted, len(session.batches[0].entries))
	assert.Equal(t, 1, session.batches[0].executions)
}
