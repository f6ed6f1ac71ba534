package cql

import "strings"

// clause is one rendered statement fragment: a relation, an assignment, or a
// CAS condition, together with the values its bound terms collected.
type clause struct {
	text   string
	values []interface{}
}

func renderTerm(t Term) clause {
	var sb strings.Builder
	var values []interface{}
	t.render(&sb, &values)
	return clause{text: sb.String(), values: values}
}

// translateCriterion renders one Filter criterion as a WHERE relation.
func translateCriterion(c Criterion, f TermFactory) (clause, error) {
	col := c.Column.CQL()
	op := c.Predicate.Operator
	value := c.Predicate.Value

	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike:
		t := renderTerm(f.Create(value))
		return clause{text: col + " " + string(op) + " " + t.text, values: t.values}, nil

	case OpIn:
		return translateIn(c.Column, value, f)

	case OpIsNotNull:
		if value != nil {
			return clause{}, preconditionf("%s on column %s takes no value, got %v", op, col, value)
		}
		return clause{text: col + " IS NOT NULL"}, nil

	case OpContains, OpContainsKey:
		if value == nil {
			return clause{}, preconditionf("%s on column %s requires a value", op, col)
		}
		t := renderTerm(f.Create(value))
		return clause{text: col + " " + string(op) + " " + t.text, values: t.values}, nil

	default:
		return clause{}, &UnsupportedOperationError{Operator: op, Column: c.Column, Value: value}
	}
}

// translateIn renders an IN relation. Collection values bind as one
// parameter when the driver supports it; otherwise they expand into a
// parenthesized literal list, which matches the same rows as the bound form.
// Non-collection values bind as a single term, or join the literal expansion
// as a one-element list since IN requires either a bind marker or
// parentheses.
func translateIn(column Column, value interface{}, f TermFactory) (clause, error) {
	col := column.CQL()

	if !isCollection(value) {
		if f.Bind {
			t := renderTerm(f.Create(value))
			return clause{text: col + " IN " + t.text, values: t.values}, nil
		}
		value = []interface{}{value}
	}

	if f.CanBindCollection() {
		t := renderTerm(f.Create(value))
		return clause{text: col + " IN " + t.text, values: t.values}, nil
	}

	elems := collectionElements(value)
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		parts = append(parts, renderTerm(f.Literal(e)).text)
	}
	return clause{text: col + " IN (" + strings.Join(parts, ", ") + ")"}, nil
}

// translateFilter renders a whole Filter as ordered WHERE relations.
func translateFilter(filter Filter, f TermFactory) ([]clause, error) {
	relations := make([]clause, 0, len(filter))
	for _, c := range filter {
		r, err := translateCriterion(c, f)
		if err != nil {
			return nil, err
		}
		relations = append(relations, r)
	}
	return relations, nil
}

// conditionOperators is the operator subset CAS conditions accept.
var conditionOperators = map[Operator]struct{}{
	OpEq: {}, OpNe: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {}, OpIn: {},
}

// translateConditions renders a Filter as lightweight-transaction conditions.
// Conditions use a narrower operator subset than relations; LIKE,
// IS NOT NULL and CONTAINS forms are rejected.
func translateConditions(filter Filter, f TermFactory) ([]clause, error) {
	conditions := make([]clause, 0, len(filter))
	for _, c := range filter {
		if _, ok := conditionOperators[c.Predicate.Operator]; !ok {
			return nil, &UnsupportedOperationError{
				Operator: c.Predicate.Operator,
				Column:   c.Column,
				Value:    c.Predicate.Value,
			}
		}
		r, err := translateCriterion(c, f)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, r)
	}
	return conditions, nil
}
