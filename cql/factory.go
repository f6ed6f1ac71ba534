package cql

import (
	"sort"
	"strings"
)

// StatementFactory turns Query/Update/Filter values plus table metadata into
// deferred statement builders. It is pure and safe for concurrent use; every
// call produces a fresh builder.
type StatementFactory struct {
	keyspaces  KeyspaceProvider
	prepared   bool
	projection ProjectionFunc
}

// NewStatementFactory builds a factory resolving keyspaces through the given
// provider. prepared marks produced statements as eligible for
// prepared-statement binding; when false all terms render as inline
// literals.
func NewStatementFactory(keyspaces KeyspaceProvider, prepared bool) *StatementFactory {
	return &StatementFactory{
		keyspaces:  keyspaces,
		prepared:   prepared,
		projection: ProjectionFunc(RequestedColumns).Otherwise(MappedColumns),
	}
}

// WithProjection replaces the projection chain consulted when a query
// requests no explicit columns.
func (f *StatementFactory) WithProjection(p ProjectionFunc) *StatementFactory {
	clone := *f
	clone.projection = p
	return &clone
}

func (f *StatementFactory) termFactory() TermFactory {
	return NewTermFactory(f.prepared)
}

func (f *StatementFactory) base(meta TableMetadata) statementBase {
	return statementBase{
		keyspace: f.keyspaces.Keyspace(meta),
		table:    meta.Table,
	}
}

// Select maps a Query onto a SELECT builder: projection, WHERE relations,
// ordering (including vector-similarity), limit, ALLOW FILTERING, paging
// state and query options.
func (f *StatementFactory) Select(q Query, meta TableMetadata) *StatementBuilder[*SelectStatement] {
	stmt := &SelectStatement{statementBase: f.base(meta)}
	b := newBuilder(stmt, f.termFactory())

	b.bind(func(s *SelectStatement, tf TermFactory) error {
		if !q.Columns.IsAll() {
			for _, col := range f.projection(q, meta) {
				s.selectors = append(s.selectors, col.CQL())
			}
		}
		where, err := translateFilter(q.Filter, tf)
		if err != nil {
			return err
		}
		s.where = where

		for _, srt := range q.Sort {
			if len(srt.Vector) > 0 {
				t := renderTerm(tf.Create(srt.Vector))
				s.orderBy = append(s.orderBy, srt.Column.CQL()+" ANN OF "+t.text)
				s.orderValues = append(s.orderValues, t.values...)
				continue
			}
			dir := " ASC"
			if srt.Desc {
				dir = " DESC"
			}
			s.orderBy = append(s.orderBy, srt.Column.CQL()+dir)
		}

		if q.Limit > 0 {
			limit := renderTerm(tf.Create(int(q.Limit)))
			s.limit = &limit
		}
		s.allowFiltering = q.AllowFiltering
		return nil
	})

	if q.Options != nil {
		opts := *q.Options
		b.Apply(func(s *SelectStatement) {
			s.opts = opts.StatementOptions.Merge(s.opts)
		})
	}
	if len(q.PagingState) > 0 {
		state := q.PagingState
		b.OnBuild(func(s *SelectStatement) {
			s.pagingState = state
		})
	}
	return b
}

// Count reuses the select path with a single COUNT(*) selector, ignoring any
// requested columns.
func (f *StatementFactory) Count(q Query, meta TableMetadata) *StatementBuilder[*SelectStatement] {
	q.Columns = AllColumns()
	b := f.Select(q, meta)
	b.Apply(func(s *SelectStatement) {
		s.selectors = []string{"COUNT(*)"}
	})
	return b
}

// Exists is select with limit 1 and a primary-key-only projection; presence
// of a row, not its content, answers the check.
func (f *StatementFactory) Exists(q Query, meta TableMetadata) *StatementBuilder[*SelectStatement] {
	q.Limit = 1
	q.Columns = IncludeColumns()
	return f.WithProjection(ProjectionFunc(PrimaryKeyColumns).Otherwise(MappedColumns)).Select(q, meta)
}

// Insert maps a row onto an INSERT builder. Nil-valued columns are omitted
// unless opts.InsertNulls asks for explicit NULLs; omission leaves prior
// values untouched on upsert while explicit NULL deletes them.
func (f *StatementFactory) Insert(row Row, meta TableMetadata, opts InsertOptions) *StatementBuilder[*InsertStatement] {
	stmt := &InsertStatement{statementBase: f.base(meta)}
	b := newBuilder(stmt, f.termFactory())

	b.bind(func(s *InsertStatement, tf TermFactory) error {
		if len(row) == 0 {
			return preconditionf("insert requires a non-empty row for table %s", meta.Table)
		}
		for _, col := range insertColumns(row, meta) {
			value, present := row[col.Name()]
			if !present || (value == nil && !opts.InsertNulls) {
				continue
			}
			s.columns = append(s.columns, col.CQL())
			s.terms = append(s.terms, renderTerm(tf.Create(value)))
		}
		s.ifNotExists = opts.IfNotExists
		return nil
	})

	b.Apply(func(s *InsertStatement) {
		s.opts = opts.StatementOptions.Merge(s.opts)
	})
	return b
}

// insertColumns yields the row's columns in entity declaration order,
// with unmapped extras appended alphabetically for deterministic statements.
func insertColumns(row Row, meta TableMetadata) []Column {
	seen := make(map[string]struct{}, len(row))
	cols := make([]Column, 0, len(row))
	for _, col := range meta.Columns {
		if _, ok := row[col.Name()]; ok {
			cols = append(cols, col)
			seen[strings.ToLower(col.Name())] = struct{}{}
		}
	}
	var extras []string
	for name := range row {
		if _, ok := seen[strings.ToLower(name)]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		cols = append(cols, Col(name))
	}
	return cols
}

// Update maps a Filter and an Update onto an UPDATE builder, attaching CAS
// conditions from opts.
func (f *StatementFactory) Update(q Query, update Update, meta TableMetadata, opts UpdateOptions) *StatementBuilder[*UpdateStatement] {
	stmt := &UpdateStatement{statementBase: f.base(meta)}
	b := newBuilder(stmt, f.termFactory())

	b.bind(func(s *UpdateStatement, tf TermFactory) error {
		assignments, err := translateUpdate(update, tf)
		if err != nil {
			return err
		}
		s.assignments = assignments

		where, err := translateFilter(q.Filter, tf)
		if err != nil {
			return err
		}
		s.where = where
		return f.applyWriteConditions(&s.ifExists, &s.conditions, opts.ifExists, opts.ifCondition, tf)
	})

	f.applyWriteOptions(b, q, opts.StatementOptions)
	return b
}

// UpdateEntity derives WHERE from the row's primary-key columns and the SET
// list from its remaining columns. A column used as a key predicate is never
// also a plain assignment.
func (f *StatementFactory) UpdateEntity(row Row, meta TableMetadata, opts UpdateOptions) *StatementBuilder[*UpdateStatement] {
	stmt := &UpdateStatement{statementBase: f.base(meta)}
	b := newBuilder(stmt, f.termFactory())

	b.bind(func(s *UpdateStatement, tf TermFactory) error {
		where, err := translateFilter(primaryKeyFilter(row, meta), tf)
		if err != nil {
			return err
		}
		if len(where) == 0 {
			return preconditionf("entity update requires primary key values for table %s", meta.Table)
		}
		s.where = where

		var update Update
		for _, col := range insertColumns(row, meta) {
			if meta.IsPrimaryKey(col) {
				continue
			}
			update = append(update, Set(col, row[col.Name()]))
		}
		assignments, err := translateUpdate(update, tf)
		if err != nil {
			return err
		}
		s.assignments = assignments
		return f.applyWriteConditions(&s.ifExists, &s.conditions, opts.ifExists, opts.ifCondition, tf)
	})

	b.Apply(func(s *UpdateStatement) {
		s.opts = opts.StatementOptions.Merge(s.opts)
	})
	return b
}

// Delete maps a Filter onto a DELETE builder. An explicit include-list on
// the query selects column deletion instead of full-row deletion.
func (f *StatementFactory) Delete(q Query, meta TableMetadata, opts DeleteOptions) *StatementBuilder[*DeleteStatement] {
	stmt := &DeleteStatement{statementBase: f.base(meta)}
	b := newBuilder(stmt, f.termFactory())

	b.bind(func(s *DeleteStatement, tf TermFactory) error {
		if len(q.Filter) == 0 {
			return preconditionf("delete requires a filter for table %s", meta.Table)
		}
		if !q.Columns.IsAll() {
			for _, col := range q.Columns.Names() {
				s.columns = append(s.columns, col.CQL())
			}
		}
		where, err := translateFilter(q.Filter, tf)
		if err != nil {
			return err
		}
		s.where = where
		return f.applyWriteConditions(&s.ifExists, &s.conditions, opts.ifExists, opts.ifCondition, tf)
	})

	f.applyDeleteOptions(b, q, opts.StatementOptions)
	return b
}

// DeleteEntity derives the WHERE clause from the row's primary-key columns
// and deletes the full row.
func (f *StatementFactory) DeleteEntity(row Row, meta TableMetadata, opts DeleteOptions) *StatementBuilder[*DeleteStatement] {
	stmt := &DeleteStatement{statementBase: f.base(meta)}
	b := newBuilder(stmt, f.termFactory())

	b.bind(func(s *DeleteStatement, tf TermFactory) error {
		where, err := translateFilter(primaryKeyFilter(row, meta), tf)
		if err != nil {
			return err
		}
		if len(where) == 0 {
			return preconditionf("entity delete requires primary key values for table %s", meta.Table)
		}
		s.where = where
		return f.applyWriteConditions(&s.ifExists, &s.conditions, opts.ifExists, opts.ifCondition, tf)
	})

	b.Apply(func(s *DeleteStatement) {
		s.opts = opts.StatementOptions.Merge(s.opts)
	})
	return b
}

func (f *StatementFactory) applyWriteConditions(ifExists *bool, conditions *[]clause, optExists bool, condition Filter, tf TermFactory) error {
	if optExists {
		*ifExists = true
		return nil
	}
	if len(condition) > 0 {
		cs, err := translateConditions(condition, tf)
		if err != nil {
			return err
		}
		*conditions = cs
	}
	return nil
}

func (f *StatementFactory) applyWriteOptions(b *StatementBuilder[*UpdateStatement], q Query, opts StatementOptions) {
	b.Apply(func(s *UpdateStatement) {
		s.opts = opts.Merge(s.opts)
		if q.Options != nil {
			s.opts = q.Options.StatementOptions.Merge(s.opts)
		}
	})
}

func (f *StatementFactory) applyDeleteOptions(b *StatementBuilder[*DeleteStatement], q Query, opts StatementOptions) {
	b.Apply(func(s *DeleteStatement) {
		s.opts = opts.Merge(s.opts)
		if q.Options != nil {
			s.opts = q.Options.StatementOptions.Merge(s.opts)
		}
	})
}

// primaryKeyFilter builds an EQ filter over the row's primary-key values.
func primaryKeyFilter(row Row, meta TableMetadata) Filter {
	var filter Filter
	for _, col := range meta.PrimaryKey {
		if value, ok := row[col.Name()]; ok {
			filter = append(filter, Eq(col, value))
		}
	}
	return filter
}
