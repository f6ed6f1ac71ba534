package cql

import (
	"strconv"
	"strings"
)

// translateAssignment renders one Update assignment as a SET fragment.
func translateAssignment(a Assignment, f TermFactory) (clause, error) {
	switch op := a.(type) {
	case SetOp:
		t := renderTerm(f.Create(op.Value))
		return clause{text: op.Column.CQL() + " = " + t.text, values: t.values}, nil

	case SetAtIndexOp:
		t := renderTerm(f.Create(op.Value))
		return clause{
			text:   op.Column.CQL() + "[" + strconv.Itoa(op.Index) + "] = " + t.text,
			values: t.values,
		}, nil

	case SetAtKeyOp:
		key := renderTerm(f.Create(op.Key))
		val := renderTerm(f.Create(op.Value))
		return clause{
			text:   op.Column.CQL() + "[" + key.text + "] = " + val.text,
			values: append(key.values, val.values...),
		}, nil

	case IncrementOp:
		// The wire form has no signed increment; the sign selects the
		// operator and the magnitude is rendered inline.
		col := op.Column.CQL()
		sign := "+"
		magnitude := op.Delta
		if op.Delta < 0 {
			sign = "-"
			magnitude = -op.Delta
		}
		return clause{text: col + " = " + col + " " + sign + " " + strconv.FormatInt(magnitude, 10)}, nil

	case RemoveOp:
		// Multi-element removals collapse into one subtract-collection
		// assignment; scalars subtract as a singleton.
		col := op.Column.CQL()
		return clause{text: col + " = " + col + " - " + formatSetLiteral(op.Value)}, nil

	case AddToOp:
		col := op.Column.CQL()
		if isSetValue(op.Value) {
			// Sets are unordered; prepend degrades to append.
			return clause{text: col + " = " + col + " + " + formatSetLiteral(op.Value)}, nil
		}
		t := renderTerm(f.Literal(asListValue(op.Value)))
		if op.Mode == Prepend {
			return clause{text: col + " = " + t.text + " + " + col}, nil
		}
		return clause{text: col + " = " + col + " + " + t.text}, nil

	case AddToMapOp:
		col := op.Column.CQL()
		return clause{text: col + " = " + col + " + " + formatLiteral(op.Entries)}, nil

	default:
		return clause{}, preconditionf("unknown assignment %T for column %s", a, a.column())
	}
}

// translateUpdate renders an Update preserving caller order.
func translateUpdate(update Update, f TermFactory) ([]clause, error) {
	if len(update) == 0 {
		return nil, preconditionf("update requires at least one assignment")
	}
	assignments := make([]clause, 0, len(update))
	for _, a := range update {
		c, err := translateAssignment(a, f)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, c)
	}
	return assignments, nil
}

// SetValue marks a slice as set-typed so AddTo renders set syntax instead of
// list syntax. Callers targeting set columns wrap their elements with it.
type SetValue []interface{}

func isSetValue(v interface{}) bool {
	_, ok := v.(SetValue)
	return ok
}

// asListValue normalizes scalars into single-element lists for list
// add/prepend rendering.
func asListValue(v interface{}) interface{} {
	if isCollection(v) {
		return v
	}
	return []interface{}{v}
}

func joinClauses(clauses []clause, sep string) (string, []interface{}) {
	parts := make([]string, 0, len(clauses))
	var values []interface{}
	for _, c := range clauses {
		parts = append(parts, c.text)
		values = append(values, c.values...)
	}
	return strings.Join(parts, sep), values
}
