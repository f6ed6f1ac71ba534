package cql

// ProjectionFunc resolves the projected columns for a query whose column
// request is empty. Returning an empty set delegates to the next function in
// the chain.
type ProjectionFunc func(q Query, meta TableMetadata) []Column

// Otherwise chains a fallback consulted only when p yields no columns. The
// first non-empty result wins and later functions are not consulted.
func (p ProjectionFunc) Otherwise(next ProjectionFunc) ProjectionFunc {
	return func(q Query, meta TableMetadata) []Column {
		if cols := p(q, meta); len(cols) > 0 {
			return cols
		}
		return next(q, meta)
	}
}

// RequestedColumns projects the query's explicit include-list.
func RequestedColumns(q Query, meta TableMetadata) []Column {
	if q.Columns.IsAll() {
		return nil
	}
	return q.Columns.Names()
}

// MappedColumns projects every column the entity maps.
func MappedColumns(_ Query, meta TableMetadata) []Column {
	return meta.Columns
}

// PrimaryKeyColumns projects the identifying columns only. Existence checks
// use it to keep the result row minimal.
func PrimaryKeyColumns(_ Query, meta TableMetadata) []Column {
	return meta.PrimaryKey
}
