// Package engine ties the paged file, record, index, catalog and query
// layers together into one open database, the way the original keeps a
// handful of process-wide managers wired to each other.
package engine

import (
	"minirel/internal/catalog"
	"minirel/internal/ix"
	"minirel/internal/pf"
	"minirel/internal/query"
	"minirel/internal/rm"
	"minirel/internal/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Database is one open database directory: its paged-file manager, record
// and index managers, system catalog, and the query executor wired over
// all of them. Grounded on the teacher's pkg/database/database.go
// constructor shape, generalized from a single bptree+pager pair into the
// full pf/rm/ix/catalog/query stack SPEC_FULL.md describes.
type Database struct {
	log *zap.SugaredLogger

	pf  *pf.Manager
	rm  *rm.Manager
	ix  *ix.Manager
	cat *catalog.Catalog

	exec *query.Executor
}

// CreateDB lays out a brand new database directory at dir.
func CreateDB(dir string, log *zap.SugaredLogger) (*Database, error) {
	cat, err := catalog.Create(dir, log)
	if err != nil {
		return nil, err
	}
	return wire(cat, log), nil
}

// OpenDB opens an existing database directory at dir.
func OpenDB(dir string, log *zap.SugaredLogger) (*Database, error) {
	cat, err := catalog.Open(dir, log)
	if err != nil {
		return nil, err
	}
	return wire(cat, log), nil
}

func wire(cat *catalog.Catalog, log *zap.SugaredLogger) *Database {
	pfm := pf.NewManager(log)
	rmMgr := rm.NewManager(pfm)
	ixMgr := ix.NewManager(pfm)
	exec := query.NewExecutor(log, pfm, rmMgr, ixMgr, cat)
	return &Database{log: log, pf: pfm, rm: rmMgr, ix: ixMgr, cat: cat, exec: exec}
}

// CloseDB flushes and releases every page the database still has cached.
func (db *Database) CloseDB() error {
	return db.pf.Close()
}

// Execute lexes, parses and runs one SQL statement against db.
func (db *Database) Execute(stmtText string) (*query.ResultSet, error) {
	toks, err := sql.NewLexer(stmtText).Tokenize()
	if err != nil {
		return nil, errors.Wrap(err, "engine: tokenize")
	}
	stmt, err := sql.NewParser(toks).Parse()
	if err != nil {
		return nil, errors.Wrap(err, "engine: parse")
	}
	return db.exec.Exec(stmt)
}

// Catalog exposes the open database's system catalog, e.g. for a raw CLI
// or a `.tables` meta-command to list what exists.
func (db *Database) Catalog() *catalog.Catalog {
	return db.cat
}
