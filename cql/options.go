package cql

import "time"

// StatementOptions carries the execution-level knobs recognized by the
// engine. They are data only; the execution layer beneath the translation
// core interprets them.
type StatementOptions struct {
	Consistency       string
	SerialConsistency string
	TTL               time.Duration
	Timestamp         *int64
	Idempotent        bool
	PageSize          int
	RoutingKey        []byte
	Keyspace          string
	ExecutionProfile  string
	Tracing           bool
}

// Merge folds non-zero fields of o over base. The execution layer uses it to
// resolve named execution profiles under per-statement options.
func (o StatementOptions) Merge(base StatementOptions) StatementOptions {
	out := base
	if o.Consistency != "" {
		out.Consistency = o.Consistency
	}
	if o.SerialConsistency != "" {
		out.SerialConsistency = o.SerialConsistency
	}
	if o.TTL != 0 {
		out.TTL = o.TTL
	}
	if o.Timestamp != nil {
		out.Timestamp = o.Timestamp
	}
	if o.Idempotent {
		out.Idempotent = true
	}
	if o.PageSize != 0 {
		out.PageSize = o.PageSize
	}
	if o.RoutingKey != nil {
		out.RoutingKey = o.RoutingKey
	}
	if o.Keyspace != "" {
		out.Keyspace = o.Keyspace
	}
	if o.ExecutionProfile != "" {
		out.ExecutionProfile = o.ExecutionProfile
	}
	if o.Tracing {
		out.Tracing = true
	}
	return out
}

// QueryOptions configures SELECT execution.
type QueryOptions struct {
	StatementOptions
}

// WriteOptions configures write execution.
type WriteOptions struct {
	StatementOptions
}

// InsertOptions extends WriteOptions for INSERT statements.
type InsertOptions struct {
	WriteOptions
	// IfNotExists appends a lightweight-transaction clause.
	IfNotExists bool
	// InsertNulls writes nil-valued columns as explicit NULL instead of
	// omitting them. Omission leaves prior values untouched on upsert;
	// explicit NULL deletes them.
	InsertNulls bool
}

// UpdateOptions extends WriteOptions for UPDATE statements. IfExists and
// IfCondition are mutually exclusive; setting one clears the other.
type UpdateOptions struct {
	WriteOptions
	ifExists    bool
	ifCondition Filter
}

func (o UpdateOptions) IfExists() UpdateOptions {
	o.ifExists = true
	o.ifCondition = nil
	return o
}

func (o UpdateOptions) IfCondition(filter Filter) UpdateOptions {
	o.ifCondition = filter
	o.ifExists = false
	return o
}

func (o UpdateOptions) HasIfExists() bool   { return o.ifExists }
func (o UpdateOptions) Condition() Filter   { return o.ifCondition }

// DeleteOptions extends WriteOptions for DELETE statements, with the same
// IfExists/IfCondition exclusivity as UpdateOptions.
type DeleteOptions struct {
	WriteOptions
	ifExists    bool
	ifCondition Filter
}

func (o DeleteOptions) IfExists() DeleteOptions {
	o.ifExists = true
	o.ifCondition = nil
	return o
}

func (o DeleteOptions) IfCondition(filter Filter) DeleteOptions {
	o.ifCondition = filter
	o.ifExists = false
	return o
}

func (o DeleteOptions) HasIfExists() bool { return o.ifExists }
func (o DeleteOptions) Condition() Filter { return o.ifCondition }
