package catalog

import "github.com/pkg/errors"

var (
	// ErrDatabaseExists is returned when creating a database directory that
	// already exists.
	ErrDatabaseExists = errors.New("catalog: database already exists")
	// ErrDatabaseNotFound is returned when opening a database directory that
	// does not exist.
	ErrDatabaseNotFound = errors.New("catalog: database not found")
)

// TableExistsError names the table a CreateTable collided with.
type TableExistsError struct {
	Table string
}

func (e *TableExistsError) Error() string {
	return "catalog: table already exists: " + e.Table
}

// TableNotFoundError names a table referenced by name that has no entry.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return "catalog: table not found: " + e.Table
}

// ColumnNotFoundError names a column referenced by name that has no entry.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return "catalog: column not found: " + e.Column
}

// AmbiguousColumnError names a column that resolves to more than one table
// in a multi-table FROM list.
type AmbiguousColumnError struct {
	Column string
}

func (e *AmbiguousColumnError) Error() string {
	return "catalog: ambiguous column: " + e.Column
}

// IndexExistsError names the (table, column) pair an index already covers.
type IndexExistsError struct {
	Table, Column string
}

func (e *IndexExistsError) Error() string {
	return "catalog: index already exists on " + e.Table + "." + e.Column
}

// IndexNotFoundError names the (table, column) pair with no index.
type IndexNotFoundError struct {
	Table, Column string
}

func (e *IndexNotFoundError) Error() string {
	return "catalog: index not found on " + e.Table + "." + e.Column
}
