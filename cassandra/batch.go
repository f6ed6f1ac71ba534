package cassandra

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	"go-cql-engine/cql"
)

// ErrBatchExecuted rejects any use of a batch after its single Execute call,
// including every later Execute attempt regardless of the first one's
// outcome.
var ErrBatchExecuted = errors.New("batch was already executed")

// BatchAccumulator collects insert/update/delete statements into one atomic,
// single-timestamp unit. The storage engine applies the whole batch or none
// of it, but does not isolate it from concurrent readers, and statement
// order may be reordered server-side.
//
// Add is safe to call concurrently with a single Execute: once Execute has
// latched, further Add calls fail instead of silently losing statements.
//
// The accumulator does not check how many CAS-conditioned statements it
// holds; a batch with more than one conditional statement fails at the
// server, at execution time.
type BatchAccumulator struct {
	session     Session
	metric      *Metric
	mu          sync.Mutex
	batch       Batch
	conditional bool
	timestamp   *int64
	executed    int32
}

func NewBatchAccumulator(session Session, metric *Metric) *BatchAccumulator {
	return &BatchAccumulator{
		session: session,
		metric:  metric,
		batch:   session.NewBatch(gocql.LoggedBatch),
	}
}

// WithTimestamp applies one timestamp uniformly to the whole batch, instead
// of the driver's per-statement auto-timestamp.
func (b *BatchAccumulator) WithTimestamp(ts int64) *BatchAccumulator {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timestamp = &ts
	return b
}

// Add appends built statements to the batch. Only insert, update and delete
// statements are batchable; anything else is a precondition violation.
func (b *BatchAccumulator) Add(stmts ...cql.Statement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if atomic.LoadInt32(&b.executed) != 0 {
		return ErrBatchExecuted
	}
	for _, stmt := range stmts {
		switch stmt.(type) {
		case *cql.InsertStatement, *cql.UpdateStatement, *cql.DeleteStatement:
		default:
			return &cql.PreconditionError{Msg: "only insert, update and delete statements are batchable"}
		}
		if stmt.Conditional() {
			b.conditional = true
		}
		text, values := stmt.CQL()
		b.batch.Query(text, values...)
	}
	return nil
}

// Size reports the number of accumulated statements.
func (b *BatchAccumulator) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batch.Size()
}

// Execute submits the batch as one atomic unit. Only the first invocation
// performs work; the latch makes every subsequent call fail without
// re-submitting anything.
func (b *BatchAccumulator) Execute() (*WriteResult, error) {
	if !atomic.CompareAndSwapInt32(&b.executed, 0, 1) {
		return nil, ErrBatchExecuted
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	started := time.Now()
	metadata := func() ExecutionMetadata {
		return ExecutionMetadata{Latency: time.Since(started), Statements: b.batch.Size()}
	}

	if b.timestamp != nil {
		b.batch.WithTimestamp(*b.timestamp)
	}
	if b.metric != nil {
		defer atomic.AddInt64(&b.metric.BatchesExecuted, 1)
	}

	if b.conditional {
		previous := make(map[string]interface{})
		applied, rest, err := b.batch.ExecuteBatchCAS(previous)
		if err != nil {
			return nil, err
		}
		result := &WriteResult{Applied: applied, Metadata: metadata()}
		if !applied {
			if b.metric != nil {
				atomic.AddInt64(&b.metric.CasConflicts, 1)
			}
			result.Rows = []cql.Row{cql.Row(previous)}
			for _, row := range rest {
				result.Rows = append(result.Rows, cql.Row(row))
			}
		}
		return result, nil
	}

	if err := b.batch.ExecuteBatch(); err != nil {
		return nil, err
	}
	return &WriteResult{Applied: true, Metadata: metadata()}, nil
}

// AddBuilt builds a statement builder and adds the result to the batch.
func AddBuilt[S cql.Statement](b *BatchAccumulator, builder *cql.StatementBuilder[S]) error {
	stmt, err := builder.Build()
	if err != nil {
		return err
	}
	return b.Add(stmt)
}
