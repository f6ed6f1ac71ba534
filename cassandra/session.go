package cassandra

import (
	"crypto/tls"
	"log"
	"sync"

	"github.com/gocql/gocql"

	config "go-cql-engine/configs"
)

// Session abstracts the gocql session so the execution layer can be tested
// against mocks.
type Session interface {
	Query(stmt string, values ...interface{}) Query
	PreparedQuery(stmt string, values ...interface{}) Query
	NewBatch(batchType gocql.BatchType) Batch
	Keyspace() string
	Close()
}

// Query abstracts a single statement execution, including the
// lightweight-transaction result channel: MapScanCAS reports the applied
// flag and fills dest with the pre-image row when the transaction was not
// applied.
type Query interface {
	Exec() error
	Iter() Iterator
	MapScanCAS(dest map[string]interface{}) (applied bool, err error)
	Consistency(level gocql.Consistency) Query
	SerialConsistency(level gocql.SerialConsistency) Query
	PageSize(n int) Query
	PageState(state []byte) Query
	WithTimestamp(ts int64) Query
	Idempotent(idempotent bool) Query
	RoutingKey(key []byte) Query
	Tracing(enabled bool) Query
}

// Iterator abstracts row iteration over a select result.
type Iterator interface {
	MapScan(dest map[string]interface{}) bool
	PageState() []byte
	Close() error
}

// Batch abstracts a gocql batch: entries accumulate and execute as one
// atomic unit, optionally CAS-conditioned. ExecuteBatchCAS fills dest with
// the first pre-image row of a not-applied batch and returns the remaining
// ones.
type Batch interface {
	Query(stmt string, values ...interface{})
	Size() int
	WithTimestamp(ts int64)
	ExecuteBatch() error
	ExecuteBatchCAS(dest map[string]interface{}) (applied bool, rest []map[string]interface{}, err error)
}

// NewSession dials the cluster described by cfg, mirroring its consistency,
// auth, timeout, pooling, retry, compression and TLS settings onto the gocql
// cluster config.
func NewSession(cfg config.Cassandra) (Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)

	if cfg.SerialConsistency != "" {
		switch cfg.SerialConsistency {
		case "LOCAL_SERIAL":
			cluster.SerialConsistency = gocql.LocalSerial
		default:
			cluster.SerialConsistency = gocql.Serial
		}
	}

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.ConnectTimeout
	if cfg.KeepAlive > 0 {
		cluster.SocketKeepalive = cfg.KeepAlive
	}
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}
	if cfg.MaxPreparedStmts > 0 {
		cluster.MaxPreparedStmts = cfg.MaxPreparedStmts
	}
	if cfg.MaxRoutingKeyInfo > 0 {
		cluster.MaxRoutingKeyInfo = cfg.MaxRoutingKeyInfo
	}
	if cfg.PageSize > 0 {
		cluster.PageSize = cfg.PageSize
	}
	if cfg.RetryPolicy.NumRetries > 0 {
		cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
			NumRetries: cfg.RetryPolicy.NumRetries,
			Min:        cfg.RetryPolicy.MinRetryDelay,
			Max:        cfg.RetryPolicy.MaxRetryDelay,
		}
	}

	switch cfg.Compressor {
	case "snappy":
		cluster.Compressor = gocql.SnappyCompressor{}
	case "":
	default:
		log.Printf("unknown compressor %q, using snappy", cfg.Compressor)
		cluster.Compressor = gocql.SnappyCompressor{}
	}

	if cfg.SSL.Enable {
		cluster.SslOpts = &gocql.SslOptions{
			CertPath: cfg.SSL.CertPath,
			KeyPath:  cfg.SSL.KeyPath,
			CaPath:   cfg.SSL.CaPath,
			Config: &tls.Config{
				InsecureSkipVerify: cfg.SSL.InsecureSkipVerify,
			},
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		log.Printf("failed to create cassandra session: %v", err)
		return nil, err
	}
	return NewGocqlSessionAdapter(session, cfg.Keyspace), nil
}

func parseConsistency(name string) gocql.Consistency {
	switch name {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.Quorum
	}
}

// GocqlSessionAdapter adapts *gocql.Session to the Session interface with a
// prepared-query cache keyed by statement text.
type GocqlSessionAdapter struct {
	*gocql.Session
	keyspace      string
	preparedStmts map[string]*gocql.Query
	mutex         sync.RWMutex
}

func NewGocqlSessionAdapter(session *gocql.Session, keyspace string) *GocqlSessionAdapter {
	return &GocqlSessionAdapter{
		Session:       session,
		keyspace:      keyspace,
		preparedStmts: make(map[string]*gocql.Query),
	}
}

func (s *GocqlSessionAdapter) Keyspace() string { return s.keyspace }

func (s *GocqlSessionAdapter) Query(stmt string, values ...interface{}) Query {
	return &GocqlQueryAdapter{q: s.Session.Query(stmt, values...), session: s.Session}
}

func (s *GocqlSessionAdapter) PreparedQuery(stmt string, values ...interface{}) Query {
	s.mutex.RLock()
	if prepared, exists := s.preparedStmts[stmt]; exists {
		s.mutex.RUnlock()
		return &GocqlQueryAdapter{q: prepared.Bind(values...), session: s.Session}
	}
	s.mutex.RUnlock()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if prepared, exists := s.preparedStmts[stmt]; exists {
		return &GocqlQueryAdapter{q: prepared.Bind(values...), session: s.Session}
	}
	prepared := s.Session.Query(stmt)
	s.preparedStmts[stmt] = prepared
	return &GocqlQueryAdapter{q: prepared.Bind(values...), session: s.Session}
}

func (s *GocqlSessionAdapter) NewBatch(batchType gocql.BatchType) Batch {
	return &GocqlBatchAdapter{
		batch:   s.Session.NewBatch(batchType),
		session: s.Session,
	}
}

type GocqlQueryAdapter struct {
	q       *gocql.Query
	session *gocql.Session
}

func (q *GocqlQueryAdapter) Exec() error { return q.q.Exec() }

func (q *GocqlQueryAdapter) Iter() Iterator {
	return &GocqlIterAdapter{iter: q.q.Iter()}
}

func (q *GocqlQueryAdapter) MapScanCAS(dest map[string]interface{}) (bool, error) {
	return q.q.MapScanCAS(dest)
}

func (q *GocqlQueryAdapter) Consistency(level gocql.Consistency) Query {
	q.q = q.q.Consistency(level)
	return q
}

func (q *GocqlQueryAdapter) SerialConsistency(level gocql.SerialConsistency) Query {
	q.q = q.q.SerialConsistency(level)
	return q
}

func (q *GocqlQueryAdapter) PageSize(n int) Query {
	q.q = q.q.PageSize(n)
	return q
}

func (q *GocqlQueryAdapter) PageState(state []byte) Query {
	q.q = q.q.PageState(state)
	return q
}

func (q *GocqlQueryAdapter) WithTimestamp(ts int64) Query {
	q.q = q.q.WithTimestamp(ts)
	return q
}

func (q *GocqlQueryAdapter) Idempotent(idempotent bool) Query {
	q.q = q.q.Idempotent(idempotent)
	return q
}

func (q *GocqlQueryAdapter) RoutingKey(key []byte) Query {
	q.q = q.q.RoutingKey(key)
	return q
}

func (q *GocqlQueryAdapter) Tracing(enabled bool) Query {
	if enabled && q.session != nil {
		q.q = q.q.Trace(gocql.NewTraceWriter(q.session, log.Writer()))
	}
	return q
}

type GocqlIterAdapter struct {
	iter *gocql.Iter
}

func (i *GocqlIterAdapter) MapScan(dest map[string]interface{}) bool {
	return i.iter.MapScan(dest)
}

func (i *GocqlIterAdapter) PageState() []byte { return i.iter.PageState() }

func (i *GocqlIterAdapter) Close() error { return i.iter.Close() }

type GocqlBatchAdapter struct {
	batch   *gocql.Batch
	session *gocql.Session
}

func (b *GocqlBatchAdapter) Query(stmt string, values ...interface{}) {
	b.batch.Query(stmt, values...)
}

func (b *GocqlBatchAdapter) Size() int { return b.batch.Size() }

func (b *GocqlBatchAdapter) WithTimestamp(ts int64) {
	b.batch.WithTimestamp(ts)
}

func (b *GocqlBatchAdapter) ExecuteBatch() error {
	return b.session.ExecuteBatch(b.batch)
}

func (b *GocqlBatchAdapter) ExecuteBatchCAS(dest map[string]interface{}) (bool, []map[string]interface{}, error) {
	applied, iter, err := b.session.MapExecuteBatchCAS(b.batch, dest)
	if err != nil {
		return false, nil, err
	}

	// A not-applied batch reports one pre-image row per conditioned
	// statement; the first lands in dest, the rest come off the iterator.
	var rest []map[string]interface{}
	if iter != nil {
		for {
			row := make(map[string]interface{})
			if !iter.MapScan(row) {
				break
			}
			rest = append(rest, row)
		}
		if cerr := iter.Close(); cerr != nil {
			return applied, nil, cerr
		}
	}
	return applied, rest, nil
}
