package cql

import (
	"strconv"
	"strings"
)

// Statement is a fully built, executable CQL statement value.
type Statement interface {
	// CQL renders the statement text and its positionally bound values.
	CQL() (string, []interface{})
	// Options exposes the execution knobs folded in during build.
	Options() StatementOptions
	// Conditional reports whether the statement carries a lightweight
	// transaction clause, so the executor reads the applied flag.
	Conditional() bool
}

type statementBase struct {
	keyspace string
	table    string
	opts     StatementOptions
}

func (s *statementBase) Options() StatementOptions { return s.opts }

func (s *statementBase) target() string {
	return qualifiedTable(s.keyspace, s.table)
}

// usingClause renders USING TTL/TIMESTAMP for writes.
func (s *statementBase) usingClause(withTTL bool) string {
	var parts []string
	if withTTL && s.opts.TTL > 0 {
		parts = append(parts, "TTL "+strconv.FormatInt(int64(s.opts.TTL.Seconds()), 10))
	}
	if s.opts.Timestamp != nil {
		parts = append(parts, "TIMESTAMP "+strconv.FormatInt(*s.opts.Timestamp, 10))
	}
	if len(parts) == 0 {
		return ""
	}
	return " USING " + strings.Join(parts, " AND ")
}

// SelectStatement is the built shape of SELECT, COUNT and existence queries.
type SelectStatement struct {
	statementBase
	selectors      []string
	where          []clause
	orderBy        []string
	orderValues    []interface{}
	limit          *clause
	allowFiltering bool
	pagingState    []byte
}

func (s *SelectStatement) Conditional() bool { return false }

func (s *SelectStatement) PagingState() []byte { return s.pagingState }

func (s *SelectStatement) CQL() (string, []interface{}) {
	var sb strings.Builder
	var values []interface{}

	sb.WriteString("SELECT ")
	if len(s.selectors) == 0 {
		sb.WriteByte('*')
	} else {
		sb.WriteString(strings.Join(s.selectors, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(s.target())

	if len(s.where) > 0 {
		text, vals := joinClauses(s.where, " AND ")
		sb.WriteString(" WHERE ")
		sb.WriteString(text)
		values = append(values, vals...)
	}
	if len(s.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(s.orderBy, ", "))
		values = append(values, s.orderValues...)
	}
	if s.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(s.limit.text)
		values = append(values, s.limit.values...)
	}
	if s.allowFiltering {
		sb.WriteString(" ALLOW FILTERING")
	}
	return sb.String(), values
}

// InsertStatement is the built shape of an INSERT, optionally with
// IF NOT EXISTS.
type InsertStatement struct {
	statementBase
	columns     []string
	terms       []clause
	ifNotExists bool
}

func (s *InsertStatement) Conditional() bool { return s.ifNotExists }

func (s *InsertStatement) CQL() (string, []interface{}) {
	var sb strings.Builder
	var values []interface{}

	sb.WriteString("INSERT INTO ")
	sb.WriteString(s.target())
	sb.WriteString(" (")
	sb.WriteString(strings.Join(s.columns, ", "))
	sb.WriteString(") VALUES (")
	text, vals := joinClauses(s.terms, ", ")
	sb.WriteString(text)
	sb.WriteByte(')')
	values = append(values, vals...)

	if s.ifNotExists {
		sb.WriteString(" IF NOT EXISTS")
	}
	sb.WriteString(s.usingClause(true))
	return sb.String(), values
}

// UpdateStatement is the built shape of an UPDATE, optionally conditioned by
// IF EXISTS or IF <conditions>.
type UpdateStatement struct {
	statementBase
	assignments []clause
	where       []clause
	conditions  []clause
	ifExists    bool
}

func (s *UpdateStatement) Conditional() bool {
	return s.ifExists || len(s.conditions) > 0
}

func (s *UpdateStatement) CQL() (string, []interface{}) {
	var sb strings.Builder
	var values []interface{}

	sb.WriteString("UPDATE ")
	sb.WriteString(s.target())
	sb.WriteString(s.usingClause(true))

	text, vals := joinClauses(s.assignments, ", ")
	sb.WriteString(" SET ")
	sb.WriteString(text)
	values = append(values, vals...)

	if len(s.where) > 0 {
		text, vals = joinClauses(s.where, " AND ")
		sb.WriteString(" WHERE ")
		sb.WriteString(text)
		values = append(values, vals...)
	}
	if s.ifExists {
		sb.WriteString(" IF EXISTS")
	} else if len(s.conditions) > 0 {
		text, vals = joinClauses(s.conditions, " AND ")
		sb.WriteString(" IF ")
		sb.WriteString(text)
		values = append(values, vals...)
	}
	return sb.String(), values
}

// DeleteStatement is the built shape of a DELETE, either full-row or
// explicit-column.
type DeleteStatement struct {
	statementBase
	columns    []string
	where      []clause
	conditions []clause
	ifExists   bool
}

func (s *DeleteStatement) Conditional() bool {
	return s.ifExists || len(s.conditions) > 0
}

func (s *DeleteStatement) CQL() (string, []interface{}) {
	var sb strings.Builder
	var values []interface{}

	sb.WriteString("DELETE ")
	if len(s.columns) > 0 {
		sb.WriteString(strings.Join(s.columns, ", "))
		sb.WriteByte(' ')
	}
	sb.WriteString("FROM ")
	sb.WriteString(s.target())
	sb.WriteString(s.usingClause(false))

	if len(s.where) > 0 {
		text, vals := joinClauses(s.where, " AND ")
		sb.WriteString(" WHERE ")
		sb.WriteString(text)
		values = append(values, vals...)
	}
	if s.ifExists {
		sb.WriteString(" IF EXISTS")
	} else if len(s.conditions) > 0 {
		text, vals := joinClauses(s.conditions, " AND ")
		sb.WriteString(" IF ")
		sb.WriteString(text)
		values = append(values, vals...)
	}
	return sb.String(), values
}
