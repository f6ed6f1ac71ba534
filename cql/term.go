package cql

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// Term is a value rendered into a statement, either as an inline literal or
// as a bound placeholder whose value is collected positionally.
type Term struct {
	bound bool
	value interface{}
}

// render appends the term to the statement text, collecting the value when
// the term is bound.
func (t Term) render(sb *strings.Builder, values *[]interface{}) {
	if t.bound {
		sb.WriteByte('?')
		*values = append(*values, t.value)
		return
	}
	sb.WriteString(formatLiteral(t.value))
}

// TermFactory converts raw values into terms. The mode is fixed once per
// statement: bound terms for prepared-eligible statements, inline literals
// otherwise.
type TermFactory struct {
	// Bind selects placeholder terms over inline literals.
	Bind bool
	// BindCollections reports whether the driver accepts a whole collection
	// as a single bound parameter for IN relations. gocql does, so it is the
	// default through NewTermFactory.
	BindCollections bool
}

func NewTermFactory(bind bool) TermFactory {
	return TermFactory{Bind: bind, BindCollections: true}
}

func (f TermFactory) Create(value interface{}) Term {
	return Term{bound: f.Bind, value: value}
}

// Literal forces an inline term regardless of the factory mode. The IN
// translator uses it when collection binding is unavailable.
func (f TermFactory) Literal(value interface{}) Term {
	return Term{value: value}
}

// CanBindCollection reports whether an IN collection may be bound as one
// parameter. When false the relation translator expands the collection into
// literal terms producing an equivalent result set.
func (f TermFactory) CanBindCollection() bool {
	return f.Bind && f.BindCollections
}

// formatLiteral renders a Go value as a CQL literal.
func formatLiteral(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return strconv.FormatInt(x.UnixMilli(), 10)
	case time.Duration:
		return strconv.FormatInt(int64(x.Seconds()), 10)
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case gocql.UUID:
		return x.String()
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return "'" + strings.ReplaceAll(x.String(), "'", "''") + "'"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, formatLiteral(rv.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		parts := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			parts = append(parts, formatLiteral(iter.Key().Interface())+": "+formatLiteral(iter.Value().Interface()))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatSetLiteral renders a slice as a CQL set literal. Used for
// subtract-collection assignments where set syntax is required.
func formatSetLiteral(v interface{}) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "{" + formatLiteral(v) + "}"
	}
	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts = append(parts, formatLiteral(rv.Index(i).Interface()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// isCollection reports whether the value is list/array-like for IN handling.
func isCollection(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// collectionElements flattens a slice/array value into its elements.
func collectionElements(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	out := make([]interface{}, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}
