package cql

// KeyspaceProvider resolves the keyspace qualifying a statement's table,
// decoupling statement keyspace from connection keyspace. Passed to the
// statement factory at construction, never read from ambient state.
type KeyspaceProvider interface {
	Keyspace(meta TableMetadata) string
}

// EntityKeyspace prefers the entity-declared keyspace and falls back to a
// fixed default when the entity declares none.
type EntityKeyspace struct {
	Default string
}

func (p EntityKeyspace) Keyspace(meta TableMetadata) string {
	if meta.Keyspace != "" {
		return meta.Keyspace
	}
	return p.Default
}

// SessionKeyspace leaves table names unqualified so the session's logged-in
// keyspace applies.
type SessionKeyspace struct{}

func (SessionKeyspace) Keyspace(TableMetadata) string { return "" }

// qualifiedTable renders "keyspace.table", or bare "table" when no keyspace
// resolves.
func qualifiedTable(keyspace, table string) string {
	if keyspace == "" {
		return table
	}
	return keyspace + "." + table
}
