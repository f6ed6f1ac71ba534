package cqlengine

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"go-cql-engine/cassandra"
	config "go-cql-engine/configs"
	"go-cql-engine/cql"
	"go-cql-engine/interface/rest"
	"go-cql-engine/metrics"
)

// Engine wires the statement factory, executor, optimistic-concurrency
// writer and batch accumulation over one session. The translation layer
// itself is pure; Engine is the single place holding the session.
type Engine struct {
	config    *config.Engine
	session   cassandra.Session
	factory   *cql.StatementFactory
	executor  *cassandra.Executor
	writer    *cassandra.VersionedWriter
	collector *metrics.Collector
	monitor   *http.Server
}

type EngineBuilder struct {
	config    any
	keyspaces cql.KeyspaceProvider
	session   cassandra.Session
}

func NewEngineBuilder(cfg any) EngineBuilder {
	return EngineBuilder{config: cfg}
}

// SetKeyspaceProvider overrides the keyspace resolution strategy derived
// from the config.
func (b EngineBuilder) SetKeyspaceProvider(p cql.KeyspaceProvider) EngineBuilder {
	b.keyspaces = p
	return b
}

// SetSession injects a session, bypassing cluster dialing. Tests use it with
// mock sessions.
func (b EngineBuilder) SetSession(s cassandra.Session) EngineBuilder {
	b.session = s
	return b
}

func (b EngineBuilder) Build() (*Engine, error) {
	cfg, err := newConfig(b.config)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keyspaces := b.keyspaces
	if keyspaces == nil {
		switch cfg.KeyspaceStrategy {
		case "session":
			keyspaces = cql.SessionKeyspace{}
		default:
			keyspaces = cql.EntityKeyspace{Default: cfg.Cassandra.Keyspace}
		}
	}

	session := b.session
	if session == nil {
		session, err = cassandra.NewSession(cfg.Cassandra)
		if err != nil {
			return nil, err
		}
	}

	executor := cassandra.NewExecutor(session).WithExecutionProfiles(executionProfiles(cfg))
	factory := cql.NewStatementFactory(keyspaces, cfg.PreparedStatements)

	return &Engine{
		config:    cfg,
		session:   session,
		factory:   factory,
		executor:  executor,
		writer:    cassandra.NewVersionedWriter(factory, executor),
		collector: metrics.NewCollector(executor.GetMetric()),
	}, nil
}

func newConfigFromPath(path string) (*config.Engine, error) {
	return config.Load(path)
}

func executionProfiles(cfg *config.Engine) map[string]cql.StatementOptions {
	if len(cfg.ExecutionProfiles) == 0 {
		return nil
	}
	profiles := make(map[string]cql.StatementOptions, len(cfg.ExecutionProfiles))
	for name, p := range cfg.ExecutionProfiles {
		profiles[name] = cql.StatementOptions{
			Consistency:       p.Consistency,
			SerialConsistency: p.SerialConsistency,
			PageSize:          p.PageSize,
			Idempotent:        p.Idempotent,
			Tracing:           p.Tracing,
		}
	}
	return profiles
}

func newConfig(cf any) (*config.Engine, error) {
	switch v := cf.(type) {
	case *config.Engine:
		return v, nil
	case config.Engine:
		return &v, nil
	case []byte:
		var c config.Engine
		if err := yaml.Unmarshal(v, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case string:
		return newConfigFromPath(v)
	default:
		return nil, errors.New("invalid config")
	}
}

// Factory exposes the statement factory for callers composing their own
// builders.
func (e *Engine) Factory() *cql.StatementFactory { return e.factory }

// Executor exposes the raw execution layer.
func (e *Engine) Executor() *cassandra.Executor { return e.executor }

// Find builds and runs a select, returning rows and the continuation
// cursor.
func (e *Engine) Find(q cql.Query, meta cql.TableMetadata) ([]cql.Row, []byte, error) {
	stmt, err := e.factory.Select(q, meta).Build()
	if err != nil {
		return nil, nil, err
	}
	return e.executor.Select(stmt)
}

// Count builds and runs a COUNT select.
func (e *Engine) Count(q cql.Query, meta cql.TableMetadata) (int64, error) {
	stmt, err := e.factory.Count(q, meta).Build()
	if err != nil {
		return 0, err
	}
	return e.executor.Count(stmt)
}

// Exists reports whether any row matches the query.
func (e *Engine) Exists(q cql.Query, meta cql.TableMetadata) (bool, error) {
	stmt, err := e.factory.Exists(q, meta).Build()
	if err != nil {
		return false, err
	}
	return e.executor.Exists(stmt)
}

// Insert writes a row, applying the optimistic-concurrency protocol for
// versioned tables.
func (e *Engine) Insert(row cql.Row, meta cql.TableMetadata, opts cql.InsertOptions) (*cassandra.WriteResult, error) {
	return e.writer.Insert(row, meta, opts)
}

// Update rewrites a row's non-key columns, version-conditioned for
// versioned tables.
func (e *Engine) Update(row cql.Row, meta cql.TableMetadata, opts cql.UpdateOptions) (*cassandra.WriteResult, error) {
	return e.writer.Update(row, meta, opts)
}

// UpdateByQuery applies an Update to the rows a Filter selects.
func (e *Engine) UpdateByQuery(q cql.Query, update cql.Update, meta cql.TableMetadata, opts cql.UpdateOptions) (*cassandra.WriteResult, error) {
	return cassandra.Execute(e.executor, e.factory.Update(q, update, meta, opts))
}

// Delete removes a row, version-conditioned for versioned tables.
func (e *Engine) Delete(row cql.Row, meta cql.TableMetadata, opts cql.DeleteOptions) (*cassandra.WriteResult, error) {
	return e.writer.Delete(row, meta, opts)
}

// DeleteByQuery removes the rows (or columns) a Filter selects.
func (e *Engine) DeleteByQuery(q cql.Query, meta cql.TableMetadata, opts cql.DeleteOptions) (*cassandra.WriteResult, error) {
	return cassandra.Execute(e.executor, e.factory.Delete(q, meta, opts))
}

// NewBatch opens a fresh single-use batch accumulator.
func (e *Engine) NewBatch() *cassandra.BatchAccumulator {
	return cassandra.NewBatchAccumulator(e.session, e.executor.GetMetric())
}

// Start registers the metrics collector and, when configured, serves the
// monitoring endpoints.
func (e *Engine) Start() error {
	if err := prometheus.Register(e.collector); err != nil {
		return err
	}
	if e.config.AppPort == "" {
		return nil
	}

	router := rest.NewServer(func() bool { return e.session != nil }).SetupRouter()
	e.monitor = &http.Server{
		Addr:    e.config.AppPort,
		Handler: router,
	}
	go func() {
		if err := e.monitor.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("monitoring server error: %v", err)
		}
	}()
	return nil
}

// Close stops the monitoring server, unregisters metrics and closes the
// session.
func (e *Engine) Close() {
	if e.monitor != nil {
		_ = e.monitor.Shutdown(context.Background())
	}
	e.collector.Unregister()
	e.session.Close()
}
