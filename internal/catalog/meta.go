package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"minirel/internal/ix"

	"github.com/pkg/errors"
)

// ColMeta describes one column of a table: its name, declared type and
// width, its byte offset within a fixed-size record, and whether a B+ tree
// index currently covers it.
type ColMeta struct {
	TabName string
	Name    string
	Type    ix.ColType
	Len     int
	Offset  int
	Index   bool
}

// TabMeta describes one table: its name and ordered column list.
type TabMeta struct {
	Name string
	Cols []ColMeta
}

// RecordSize is the fixed-size record width rm.CreateFile lays the table
// out with: the sum of all column widths.
func (t *TabMeta) RecordSize() int {
	size := 0
	for _, c := range t.Cols {
		size += c.Len
	}
	return size
}

// IsCol reports whether colName names a column of t.
func (t *TabMeta) IsCol(colName string) bool {
	for i := range t.Cols {
		if t.Cols[i].Name == colName {
			return true
		}
	}
	return false
}

// GetCol returns a pointer to colName's metadata, letting callers flip
// Index in place.
func (t *TabMeta) GetCol(colName string) (*ColMeta, error) {
	for i := range t.Cols {
		if t.Cols[i].Name == colName {
			return &t.Cols[i], nil
		}
	}
	return nil, errors.WithStack(&ColumnNotFoundError{Column: colName})
}

// DbMeta is the whole-database catalog: every table, keyed by name.
type DbMeta struct {
	Name string
	Tabs map[string]*TabMeta
}

// NewDbMeta returns an empty catalog for a newly created database.
func NewDbMeta(name string) *DbMeta {
	return &DbMeta{Name: name, Tabs: make(map[string]*TabMeta)}
}

// IsTable reports whether tabName names a table of db.
func (db *DbMeta) IsTable(tabName string) bool {
	_, ok := db.Tabs[tabName]
	return ok
}

// GetTable returns tabName's metadata.
func (db *DbMeta) GetTable(tabName string) (*TabMeta, error) {
	tab, ok := db.Tabs[tabName]
	if !ok {
		return nil, errors.WithStack(&TableNotFoundError{Table: tabName})
	}
	return tab, nil
}

// GetColumn resolves colName against tabNames, returning the owning table's
// metadata and the column. It reports AmbiguousColumnError if more than one
// table in tabNames carries a column of that name, matching the implicit
// multi-table FROM join's column-resolution rule.
func (db *DbMeta) GetColumn(tabNames []string, colName string) (*TabMeta, *ColMeta, error) {
	var foundTab *TabMeta
	var foundCol *ColMeta
	for _, tabName := range tabNames {
		tab, err := db.GetTable(tabName)
		if err != nil {
			return nil, nil, err
		}
		if !tab.IsCol(colName) {
			continue
		}
		if foundTab != nil {
			return nil, nil, errors.WithStack(&AmbiguousColumnError{Column: colName})
		}
		col, err := tab.GetCol(colName)
		if err != nil {
			return nil, nil, err
		}
		foundTab, foundCol = tab, col
	}
	if foundTab == nil {
		return nil, nil, errors.WithStack(&ColumnNotFoundError{Column: colName})
	}
	return foundTab, foundCol, nil
}

// writeCol serializes one ColMeta as "tab_name name type len offset index",
// mirroring sm_meta.h's operator<< for ColMeta.
func writeCol(w io.Writer, col ColMeta) error {
	_, err := fmt.Fprintf(w, "%s %s %d %d %d %t\n",
		col.TabName, col.Name, int(col.Type), col.Len, col.Offset, col.Index)
	return err
}

// writeTab serializes one TabMeta as "name\ncolCount\n" followed by each
// column's line, mirroring sm_meta.h's operator<< for TabMeta.
func writeTab(w io.Writer, tab *TabMeta) error {
	if _, err := fmt.Fprintf(w, "%s\n%d\n", tab.Name, len(tab.Cols)); err != nil {
		return err
	}
	for _, col := range tab.Cols {
		if err := writeCol(w, col); err != nil {
			return err
		}
	}
	return nil
}

// Save writes db in sm_meta.h's whitespace-tokenized text format: database
// name, table count, then each table's block in turn.
func Save(w io.Writer, db *DbMeta) error {
	if _, err := fmt.Fprintf(w, "%s\n%d\n", db.Name, len(db.Tabs)); err != nil {
		return errors.Wrap(err, "catalog: save")
	}
	for _, tab := range db.Tabs {
		if err := writeTab(w, tab); err != nil {
			return errors.Wrap(err, "catalog: save")
		}
	}
	return nil
}

// tokenReader reads whitespace-delimited tokens, mirroring C++'s `istream
// >>` which skips newlines transparently.
type tokenReader struct {
	sc *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &tokenReader{sc: sc}
}

func (t *tokenReader) next() (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", errors.Wrap(err, "catalog: load")
		}
		return "", errors.Wrap(io.ErrUnexpectedEOF, "catalog: load")
	}
	return t.sc.Text(), nil
}

func (t *tokenReader) nextInt() (int, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "catalog: load: expected integer, got %q", tok)
	}
	return n, nil
}

func (t *tokenReader) nextBool() (bool, error) {
	tok, err := t.next()
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(tok)
	if err != nil {
		return false, errors.Wrapf(err, "catalog: load: expected bool, got %q", tok)
	}
	return b, nil
}

func readCol(t *tokenReader) (ColMeta, error) {
	var col ColMeta
	tabName, err := t.next()
	if err != nil {
		return col, err
	}
	name, err := t.next()
	if err != nil {
		return col, err
	}
	typ, err := t.nextInt()
	if err != nil {
		return col, err
	}
	length, err := t.nextInt()
	if err != nil {
		return col, err
	}
	offset, err := t.nextInt()
	if err != nil {
		return col, err
	}
	index, err := t.nextBool()
	if err != nil {
		return col, err
	}
	col = ColMeta{TabName: tabName, Name: name, Type: ix.ColType(typ), Len: length, Offset: offset, Index: index}
	return col, nil
}

func readTab(t *tokenReader) (*TabMeta, error) {
	name, err := t.next()
	if err != nil {
		return nil, err
	}
	n, err := t.nextInt()
	if err != nil {
		return nil, err
	}
	tab := &TabMeta{Name: name, Cols: make([]ColMeta, 0, n)}
	for i := 0; i < n; i++ {
		col, err := readCol(t)
		if err != nil {
			return nil, err
		}
		tab.Cols = append(tab.Cols, col)
	}
	return tab, nil
}

// Load reads a catalog previously written by Save.
func Load(r io.Reader) (*DbMeta, error) {
	t := newTokenReader(r)
	name, err := t.next()
	if err != nil {
		return nil, err
	}
	n, err := t.nextInt()
	if err != nil {
		return nil, err
	}
	db := NewDbMeta(name)
	for i := 0; i < n; i++ {
		tab, err := readTab(t)
		if err != nil {
			return nil, err
		}
		db.Tabs[tab.Name] = tab
	}
	return db, nil
}
