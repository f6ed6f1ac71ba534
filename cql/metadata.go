package cql

// TableMetadata describes the mapped table of an entity. It is produced by
// an external mapping registry and consumed read-only by the statement
// factory.
type TableMetadata struct {
	// Keyspace is the entity-declared keyspace; empty when the entity
	// relies on the session default.
	Keyspace string
	// Table is the mapped table name.
	Table string
	// Columns lists all mapped columns in declaration order.
	Columns []Column
	// PrimaryKey lists the identifying columns (partition + clustering).
	PrimaryKey []Column
	// Version is the optimistically-locked version column, zero when the
	// entity is unversioned.
	Version Column
}

func (m TableMetadata) IsVersioned() bool {
	return !m.Version.IsZero()
}

func (m TableMetadata) IsPrimaryKey(c Column) bool {
	for _, k := range m.PrimaryKey {
		if k.Equal(c) {
			return true
		}
	}
	return false
}

// Row is an already column-mapped entity value. Field mapping and reflection
// belong to an external collaborator; the engine consumes column names only.
type Row map[string]interface{}

// Columns selects either every mapped column or an explicit include-list.
// The empty include-list is distinct from "all": under projection it means
// "let the projection chain decide", which typically resolves to the primary
// key.
type Columns struct {
	all   bool
	names []Column
}

func AllColumns() Columns {
	return Columns{all: true}
}

func IncludeColumns(names ...Column) Columns {
	return Columns{names: names}
}

func (c Columns) IsAll() bool      { return c.all }
func (c Columns) IsEmpty() bool    { return !c.all && len(c.names) == 0 }
func (c Columns) Names() []Column  { return c.names }

// Sort orders query results by a clustering column. When Vector is set the
// ordering is vector-similarity (ANN) instead of natural order.
type Sort struct {
	Column Column
	Desc   bool
	Vector []float32
}

// Query is the caller's read intent: an already column-mapped filter plus
// projection, ordering and paging concerns.
type Query struct {
	Filter         Filter
	Columns        Columns
	Sort           []Sort
	Limit          uint32
	AllowFiltering bool
	PagingState    []byte
	Options        *QueryOptions
}
