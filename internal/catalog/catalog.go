package catalog

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pkg/errors"
)

// MetaFileName is the catalog's sidecar file within a database directory.
const MetaFileName = "db.meta"

// Catalog is the system catalog for one open database: the in-memory
// DbMeta plus the on-disk sidecar it persists to.
type Catalog struct {
	log     *zap.SugaredLogger
	dir     string
	metaTab *DbMeta
}

// metaPath returns the path to dir's db.meta sidecar.
func metaPath(dir string) string {
	return filepath.Join(dir, MetaFileName)
}

// Create lays out a new database directory and its empty catalog.
func Create(dir string, log *zap.SugaredLogger) (*Catalog, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, errors.WithStack(ErrDatabaseExists)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "catalog: create database directory")
	}
	cat := &Catalog{log: log, dir: dir, metaTab: NewDbMeta(filepath.Base(dir))}
	if err := cat.Save(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Open loads an existing database directory's catalog.
func Open(dir string, log *zap.SugaredLogger) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.WithStack(ErrDatabaseNotFound)
	}
	f, err := os.Open(metaPath(dir))
	if err != nil {
		return nil, errors.Wrap(err, "catalog: open db.meta")
	}
	defer f.Close()
	meta, err := Load(f)
	if err != nil {
		return nil, err
	}
	return &Catalog{log: log, dir: dir, metaTab: meta}, nil
}

// Save persists the catalog's current state to db.meta.
func (c *Catalog) Save() error {
	tmp := metaPath(c.dir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "catalog: save")
	}
	if err := Save(f, c.metaTab); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "catalog: save")
	}
	if err := os.Rename(tmp, metaPath(c.dir)); err != nil {
		return errors.Wrap(err, "catalog: save: rename")
	}
	c.log.Debugw("catalog saved", "dir", c.dir, "tables", len(c.metaTab.Tabs))
	return nil
}

// Dir returns the database directory backing c.
func (c *Catalog) Dir() string {
	return c.dir
}

// TablePath returns the path of tabName's record file within the database
// directory.
func (c *Catalog) TablePath(tabName string) string {
	return filepath.Join(c.dir, tabName)
}

// IsTable reports whether tabName is a known table.
func (c *Catalog) IsTable(tabName string) bool {
	return c.metaTab.IsTable(tabName)
}

// GetTable returns tabName's metadata.
func (c *Catalog) GetTable(tabName string) (*TabMeta, error) {
	return c.metaTab.GetTable(tabName)
}

// GetColumn resolves colName against tabNames (see DbMeta.GetColumn).
func (c *Catalog) GetColumn(tabNames []string, colName string) (*TabMeta, *ColMeta, error) {
	return c.metaTab.GetColumn(tabNames, colName)
}

// AllTables returns every table's metadata, in no particular order.
func (c *Catalog) AllTables() []*TabMeta {
	tabs := make([]*TabMeta, 0, len(c.metaTab.Tabs))
	for _, t := range c.metaTab.Tabs {
		tabs = append(tabs, t)
	}
	return tabs
}

// CreateTableMeta registers tabName with the given columns, computing each
// column's byte offset within the table's fixed-size record layout. It
// does not touch the record file itself; callers create that separately
// via rm.Manager.CreateFile.
func (c *Catalog) CreateTableMeta(tabName string, cols []ColMeta) error {
	if c.metaTab.IsTable(tabName) {
		return errors.WithStack(&TableExistsError{Table: tabName})
	}
	offset := 0
	for i := range cols {
		cols[i].TabName = tabName
		cols[i].Offset = offset
		offset += cols[i].Len
	}
	c.metaTab.Tabs[tabName] = &TabMeta{Name: tabName, Cols: cols}
	return c.Save()
}

// DropTableMeta removes tabName's entry from the catalog.
func (c *Catalog) DropTableMeta(tabName string) error {
	if !c.metaTab.IsTable(tabName) {
		return errors.WithStack(&TableNotFoundError{Table: tabName})
	}
	delete(c.metaTab.Tabs, tabName)
	return c.Save()
}

// SetIndexed marks colName of tabName as carrying (or no longer carrying)
// a B+ tree index.
func (c *Catalog) SetIndexed(tabName, colName string, indexed bool) error {
	tab, err := c.metaTab.GetTable(tabName)
	if err != nil {
		return err
	}
	col, err := tab.GetCol(colName)
	if err != nil {
		return err
	}
	if indexed && col.Index {
		return errors.WithStack(&IndexExistsError{Table: tabName, Column: colName})
	}
	if !indexed && !col.Index {
		return errors.WithStack(&IndexNotFoundError{Table: tabName, Column: colName})
	}
	col.Index = indexed
	return c.Save()
}

// ColIndex returns the ordinal position of colName within tabName's column
// list, used to derive the per-column index file name.
func (t *TabMeta) ColIndex(colName string) int {
	for i := range t.Cols {
		if t.Cols[i].Name == colName {
			return i
		}
	}
	return -1
}
