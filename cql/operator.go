package cql

import "strings"

// Operator is the closed set of comparison and containment operators a
// Criterion may carry.
type Operator string

const (
	OpEq          Operator = "="
	OpNe          Operator = "!="
	OpGt          Operator = ">"
	OpGte         Operator = ">="
	OpLt          Operator = "<"
	OpLte         Operator = "<="
	OpIn          Operator = "IN"
	OpLike        Operator = "LIKE"
	OpIsNotNull   Operator = "IS NOT NULL"
	OpContains    Operator = "CONTAINS"
	OpContainsKey Operator = "CONTAINS KEY"
)

// Column identifies a CQL column. Unquoted names compare case-insensitively,
// quoted names preserve case and compare exactly, matching CQL identifier
// rules.
type Column struct {
	name   string
	quoted bool
}

func Col(name string) Column {
	return Column{name: name}
}

func QuotedCol(name string) Column {
	return Column{name: name, quoted: true}
}

func (c Column) Name() string {
	return c.name
}

func (c Column) IsZero() bool {
	return c.name == ""
}

func (c Column) Equal(o Column) bool {
	if c.quoted || o.quoted {
		return c.quoted == o.quoted && c.name == o.name
	}
	return strings.EqualFold(c.name, o.name)
}

// CQL renders the identifier, double-quoting when case must be preserved.
func (c Column) CQL() string {
	if c.quoted {
		return `"` + strings.ReplaceAll(c.name, `"`, `""`) + `"`
	}
	return c.name
}

func (c Column) String() string {
	return c.CQL()
}

// Predicate pairs an operator with its (optional) right-hand value.
type Predicate struct {
	Operator Operator
	Value    interface{}
}

// Criterion is one column/predicate pair of a Filter. Immutable once
// constructed; build them through the helper constructors below.
type Criterion struct {
	Column    Column
	Predicate Predicate
}

// Filter is an ordered, conjunctive sequence of criteria. An empty Filter
// matches all rows.
type Filter []Criterion

func Eq(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpEq, Value: value}}
}

func Ne(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpNe, Value: value}}
}

func Gt(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpGt, Value: value}}
}

func Gte(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpGte, Value: value}}
}

func Lt(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpLt, Value: value}}
}

func Lte(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpLte, Value: value}}
}

// In matches when the column equals any element of values. A single
// non-collection value is treated as one bind marker.
func In(column Column, values ...interface{}) Criterion {
	var v interface{}
	if len(values) == 1 {
		v = values[0]
	} else {
		v = values
	}
	return Criterion{Column: column, Predicate: Predicate{Operator: OpIn, Value: v}}
}

func Like(column Column, pattern string) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpLike, Value: pattern}}
}

func IsNotNull(column Column) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpIsNotNull}}
}

func Contains(column Column, value interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpContains, Value: value}}
}

func ContainsKey(column Column, key interface{}) Criterion {
	return Criterion{Column: column, Predicate: Predicate{Operator: OpContainsKey, Value: key}}
}
