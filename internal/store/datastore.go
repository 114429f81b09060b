package store

// DataStore is the write side of extraction. Both Store (direct SQLite) and
// BatchedStore (in-memory buffering for parallel extraction) implement it.
type DataStore interface {
	InsertSymbol(sym *Symbol) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
