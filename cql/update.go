package cql

// AddMode selects where list elements are added. Sets ignore the mode since
// they are unordered.
type AddMode int

const (
	Append AddMode = iota
	Prepend
)

// Assignment is one column-mutation instruction of an UPDATE statement.
// The set of implementations is closed; the translator matches exhaustively.
type Assignment interface {
	column() Column
}

// Update is an ordered sequence of assignments. Order is preserved verbatim
// into the generated SET list; repeated columns are not merged (the last
// assignment wins, matching CQL semantics).
type Update []Assignment

// SetOp replaces the whole column value.
type SetOp struct {
	Column Column
	Value  interface{}
}

// SetAtIndexOp replaces one list element by position.
type SetAtIndexOp struct {
	Column Column
	Index  int
	Value  interface{}
}

// SetAtKeyOp replaces one map entry by key.
type SetAtKeyOp struct {
	Column Column
	Key    interface{}
	Value  interface{}
}

// IncrementOp adjusts a counter column. A negative delta decrements; the
// sign and magnitude are split before rendering since CQL has no signed
// increment form.
type IncrementOp struct {
	Column Column
	Delta  int64
}

// RemoveOp removes elements from a collection column. A slice value becomes
// a single subtract-collection assignment; a scalar is subtracted as a
// singleton set.
type RemoveOp struct {
	Column Column
	Value  interface{}
}

// AddToOp adds elements to a list or set column. Lists honor Mode; sets
// always append.
type AddToOp struct {
	Column Column
	Value  interface{}
	Mode   AddMode
}

// AddToMapOp merges entries into a map column.
type AddToMapOp struct {
	Column  Column
	Entries map[interface{}]interface{}
}

func (a SetOp) column() Column        { return a.Column }
func (a SetAtIndexOp) column() Column { return a.Column }
func (a SetAtKeyOp) column() Column   { return a.Column }
func (a IncrementOp) column() Column  { return a.Column }
func (a RemoveOp) column() Column     { return a.Column }
func (a AddToOp) column() Column      { return a.Column }
func (a AddToMapOp) column() Column   { return a.Column }

func Set(column Column, value interface{}) Assignment {
	return SetOp{Column: column, Value: value}
}

func SetAtIndex(column Column, index int, value interface{}) Assignment {
	return SetAtIndexOp{Column: column, Index: index, Value: value}
}

func SetAtKey(column Column, key, value interface{}) Assignment {
	return SetAtKeyOp{Column: column, Key: key, Value: value}
}

func Increment(column Column, delta int64) Assignment {
	return IncrementOp{Column: column, Delta: delta}
}

func Remove(column Column, value interface{}) Assignment {
	return RemoveOp{Column: column, Value: value}
}

func PrependTo(column Column, value interface{}) Assignment {
	return AddToOp{Column: column, Value: value, Mode: Prepend}
}

func AppendTo(column Column, value interface{}) Assignment {
	return AddToOp{Column: column, Value: value, Mode: Append}
}

func AddToMap(column Column, entries map[interface{}]interface{}) Assignment {
	return AddToMapOp{Column: column, Entries: entries}
}
