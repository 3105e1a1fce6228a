package query

import (
	"sort"

	"minirel/internal/catalog"
	"minirel/internal/ix"
	"minirel/internal/pf"
	"minirel/internal/rm"
	"minirel/internal/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Executor is the single entry point the REPL and raw CLI call: it takes
// one parsed sql.Statement and drives the catalog/rm/ix layers plus the
// Exec iterator tree to produce a ResultSet. Grounded on original_source's
// QlManager, which plays the same role of dispatching a parsed statement
// to the catalog and record/index managers.
type Executor struct {
	log *zap.SugaredLogger
	pf  *pf.Manager
	rm  *rm.Manager
	ix  *ix.Manager
	cat *catalog.Catalog
}

// NewExecutor wires an Executor over an already-open database.
func NewExecutor(log *zap.SugaredLogger, pfm *pf.Manager, rmMgr *rm.Manager, ixMgr *ix.Manager, cat *catalog.Catalog) *Executor {
	return &Executor{log: log, pf: pfm, rm: rmMgr, ix: ixMgr, cat: cat}
}

// Exec runs one parsed statement to completion.
func (e *Executor) Exec(stmt sql.Statement) (*ResultSet, error) {
	switch s := stmt.(type) {
	case *sql.CreateTableStmt:
		return e.execCreateTable(s)
	case *sql.DropTableStmt:
		return e.execDropTable(s)
	case *sql.CreateIndexStmt:
		return e.execCreateIndex(s)
	case *sql.DropIndexStmt:
		return e.execDropIndex(s)
	case *sql.InsertStmt:
		return e.execInsert(s)
	case *sql.DeleteStmt:
		return e.execDelete(s)
	case *sql.UpdateStmt:
		return e.execUpdate(s)
	case *sql.SelectStmt:
		return e.execSelect(s)
	default:
		return nil, errors.Errorf("query: unsupported statement type %T", stmt)
	}
}

func colType(decl string) ix.ColType {
	switch decl {
	case "INT":
		return ix.ColInt
	case "FLOAT":
		return ix.ColFloat
	default:
		return ix.ColString
	}
}

func (e *Executor) execCreateTable(s *sql.CreateTableStmt) (*ResultSet, error) {
	cols := make([]catalog.ColMeta, len(s.Cols))
	recSize := 0
	for i, c := range s.Cols {
		cols[i] = catalog.ColMeta{Name: c.Name, Type: colType(c.Type), Len: c.Len}
		recSize += c.Len
	}
	if err := e.cat.CreateTableMeta(s.Table, cols); err != nil {
		return nil, err
	}
	if err := e.rm.CreateFile(e.cat.TablePath(s.Table), recSize); err != nil {
		return nil, err
	}
	e.log.Debugw("created table", "table", s.Table, "columns", len(cols))
	return &ResultSet{Message: "CREATE TABLE"}, nil
}

func (e *Executor) execDropTable(s *sql.DropTableStmt) (*ResultSet, error) {
	tab, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	for i, c := range tab.Cols {
		if c.Index {
			if err := e.ix.DestroyIndex(e.cat.TablePath(s.Table), i); err != nil {
				return nil, err
			}
		}
	}
	if err := e.rm.DestroyFile(e.cat.TablePath(s.Table)); err != nil {
		return nil, err
	}
	if err := e.cat.DropTableMeta(s.Table); err != nil {
		return nil, err
	}
	return &ResultSet{Message: "DROP TABLE"}, nil
}

func (e *Executor) execCreateIndex(s *sql.CreateIndexStmt) (*ResultSet, error) {
	tab, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	col, err := tab.GetCol(s.Column)
	if err != nil {
		return nil, err
	}
	colIdx := tab.ColIndex(s.Column)
	path := e.cat.TablePath(s.Table)

	if err := e.ix.CreateIndex(path, colIdx, col.Type, col.Len); err != nil {
		return nil, err
	}
	ih, err := e.ix.OpenIndex(path, colIdx)
	if err != nil {
		return nil, err
	}
	fh, err := e.rm.OpenFile(path)
	if err != nil {
		return nil, err
	}

	scan, err := rm.NewScan(fh)
	if err != nil {
		return nil, err
	}
	for !scan.IsEnd() {
		rid := scan.Rid()
		data, err := fh.GetRecord(rid)
		if err != nil {
			return nil, err
		}
		key := data[col.Offset : col.Offset+col.Len]
		if err := ih.InsertEntry(key, rid); err != nil {
			return nil, err
		}
		if err := scan.Next(); err != nil {
			return nil, err
		}
	}

	if err := e.ix.CloseIndex(ih); err != nil {
		return nil, err
	}
	if err := e.rm.CloseFile(fh); err != nil {
		return nil, err
	}
	if err := e.cat.SetIndexed(s.Table, s.Column, true); err != nil {
		return nil, err
	}
	return &ResultSet{Message: "CREATE INDEX"}, nil
}

func (e *Executor) execDropIndex(s *sql.DropIndexStmt) (*ResultSet, error) {
	tab, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	colIdx := tab.ColIndex(s.Column)
	if err := e.ix.DestroyIndex(e.cat.TablePath(s.Table), colIdx); err != nil {
		return nil, err
	}
	if err := e.cat.SetIndexed(s.Table, s.Column, false); err != nil {
		return nil, err
	}
	return &ResultSet{Message: "DROP INDEX"}, nil
}

func (e *Executor) execInsert(s *sql.InsertStmt) (*ResultSet, error) {
	tab, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	if len(s.Values) != len(tab.Cols) {
		return nil, errors.Errorf("query: table %s has %d columns, insert supplied %d", s.Table, len(tab.Cols), len(s.Values))
	}
	buf := make([]byte, 0, tab.RecordSize())
	for i, v := range s.Values {
		b, err := encodeValue(tab.Cols[i], v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}

	path := e.cat.TablePath(s.Table)
	fh, err := e.rm.OpenFile(path)
	if err != nil {
		return nil, err
	}
	rid, err := fh.InsertRecord(buf)
	if err != nil {
		return nil, err
	}
	for i, c := range tab.Cols {
		if !c.Index {
			continue
		}
		if err := e.insertIndexEntry(path, i, c, buf, rid); err != nil {
			return nil, err
		}
	}
	if err := e.rm.CloseFile(fh); err != nil {
		return nil, err
	}
	return &ResultSet{Message: "INSERT"}, nil
}

func (e *Executor) insertIndexEntry(path string, colIdx int, col catalog.ColMeta, record []byte, rid rm.Rid) error {
	ih, err := e.ix.OpenIndex(path, colIdx)
	if err != nil {
		return err
	}
	key := record[col.Offset : col.Offset+col.Len]
	if err := ih.InsertEntry(key, rid); err != nil {
		return err
	}
	return e.ix.CloseIndex(ih)
}

func (e *Executor) deleteIndexEntry(path string, colIdx int, col catalog.ColMeta, record []byte, rid rm.Rid) error {
	ih, err := e.ix.OpenIndex(path, colIdx)
	if err != nil {
		return err
	}
	key := record[col.Offset : col.Offset+col.Len]
	if err := ih.DeleteEntry(key, rid); err != nil {
		return err
	}
	return e.ix.CloseIndex(ih)
}

func (e *Executor) execDelete(s *sql.DeleteStmt) (*ResultSet, error) {
	tab, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	path := e.cat.TablePath(s.Table)
	fh, err := e.rm.OpenFile(path)
	if err != nil {
		return nil, err
	}

	exec := Exec(NewFilter(NewTableScan(s.Table, tab.Cols, fh), s.Conds))
	if err := exec.Open(); err != nil {
		return nil, err
	}

	var rids []rm.Rid
	var records [][]byte
	for !exec.IsEnd() {
		row, err := exec.Row()
		if err != nil {
			return nil, err
		}
		rids = append(rids, row.Rids[s.Table])
		records = append(records, append([]byte(nil), row.Data...))
		if err := exec.Next(); err != nil {
			return nil, err
		}
	}

	for i, rid := range rids {
		for colIdx, c := range tab.Cols {
			if !c.Index {
				continue
			}
			if err := e.deleteIndexEntry(path, colIdx, c, records[i], rid); err != nil {
				return nil, err
			}
		}
		if err := fh.DeleteRecord(rid); err != nil {
			return nil, err
		}
	}

	if err := e.rm.CloseFile(fh); err != nil {
		return nil, err
	}
	return &ResultSet{Message: "DELETE"}, nil
}

func (e *Executor) execUpdate(s *sql.UpdateStmt) (*ResultSet, error) {
	tab, err := e.cat.GetTable(s.Table)
	if err != nil {
		return nil, err
	}
	path := e.cat.TablePath(s.Table)
	fh, err := e.rm.OpenFile(path)
	if err != nil {
		return nil, err
	}

	exec := Exec(NewFilter(NewTableScan(s.Table, tab.Cols, fh), s.Conds))
	if err := exec.Open(); err != nil {
		return nil, err
	}

	var rids []rm.Rid
	var oldRecords [][]byte
	for !exec.IsEnd() {
		row, err := exec.Row()
		if err != nil {
			return nil, err
		}
		rids = append(rids, row.Rids[s.Table])
		oldRecords = append(oldRecords, append([]byte(nil), row.Data...))
		if err := exec.Next(); err != nil {
			return nil, err
		}
	}

	for i, rid := range rids {
		newRecord := append([]byte(nil), oldRecords[i]...)
		for _, set := range s.Sets {
			col, err := tab.GetCol(set.Col)
			if err != nil {
				return nil, err
			}
			b, err := encodeValue(*col, set.Val)
			if err != nil {
				return nil, err
			}
			copy(newRecord[col.Offset:col.Offset+col.Len], b)
		}

		for colIdx, c := range tab.Cols {
			if !c.Index {
				continue
			}
			oldKey := oldRecords[i][c.Offset : c.Offset+c.Len]
			newKey := newRecord[c.Offset : c.Offset+c.Len]
			if string(oldKey) == string(newKey) {
				continue
			}
			if err := e.deleteIndexEntry(path, colIdx, c, oldRecords[i], rid); err != nil {
				return nil, err
			}
			if err := e.insertIndexEntry(path, colIdx, c, newRecord, rid); err != nil {
				return nil, err
			}
		}

		if err := fh.UpdateRecord(rid, newRecord); err != nil {
			return nil, err
		}
	}

	if err := e.rm.CloseFile(fh); err != nil {
		return nil, err
	}
	return &ResultSet{Message: "UPDATE"}, nil
}

func (e *Executor) execSelect(s *sql.SelectStmt) (*ResultSet, error) {
	var exec Exec
	var fhs []*rm.FileHandle
	defer func() {
		for _, fh := range fhs {
			e.rm.CloseFile(fh)
		}
	}()

	for _, tabName := range s.Tables {
		tab, err := e.cat.GetTable(tabName)
		if err != nil {
			return nil, err
		}
		fh, err := e.rm.OpenFile(e.cat.TablePath(tabName))
		if err != nil {
			return nil, err
		}
		fhs = append(fhs, fh)

		scan := e.planScan(tabName, tab, fh, s.Conds)
		if exec == nil {
			exec = scan
		} else {
			exec = NewJoin(exec, scan)
		}
	}

	exec = NewFilter(exec, s.Conds)
	proj, err := NewProject(exec, s.Cols)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := proj.Close(); err != nil {
			e.log.Warnw("query: close exec tree", "error", err)
		}
	}()

	if err := proj.Open(); err != nil {
		return nil, err
	}
	rs := &ResultSet{Cols: proj.Cols()}
	for !proj.IsEnd() {
		row, err := proj.Row()
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row.Cols))
		offset := 0
		for i, c := range row.Cols {
			values[i] = decodeValue(c, row.Data[offset:offset+c.Len])
			offset += c.Len
		}
		rs.Rows = append(rs.Rows, values)
		if err := proj.Next(); err != nil {
			return nil, err
		}
	}

	if s.OrderBy != "" {
		if err := orderBy(rs, s.OrderBy); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// planScan chooses an index-bounded scan when conds pins tabName's
// indexed column with an equality predicate, else a full table scan.
func (e *Executor) planScan(tabName string, tab *catalog.TabMeta, fh *rm.FileHandle, conds []sql.Cond) *TableScanExec {
	for _, c := range conds {
		if c.IsCol || c.Op != "=" {
			continue
		}
		colTab, colName := splitQualified(c.Col)
		if colTab != "" && colTab != tabName {
			continue
		}
		col, err := tab.GetCol(colName)
		if err != nil || !col.Index {
			continue
		}
		colIdx := tab.ColIndex(colName)
		ih, err := e.ix.OpenIndex(e.cat.TablePath(tabName), colIdx)
		if err != nil {
			continue
		}
		key, err := encodeValue(*col, c.Rhs)
		if err != nil {
			e.ix.CloseIndex(ih)
			continue
		}
		lower, err := ih.LowerBound(key)
		if err != nil {
			e.ix.CloseIndex(ih)
			continue
		}
		upper, err := ih.UpperBound(key)
		if err != nil {
			e.ix.CloseIndex(ih)
			continue
		}
		return NewIndexScan(tabName, tab.Cols, fh, e.ix, ih, lower, upper)
	}
	return NewTableScan(tabName, tab.Cols, fh)
}

func orderBy(rs *ResultSet, col string) error {
	idx := -1
	_, name := splitQualified(col)
	for i, c := range rs.Cols {
		if c.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.WithStack(&catalog.ColumnNotFoundError{Column: col})
	}
	sort.SliceStable(rs.Rows, func(i, j int) bool {
		return compareValues(rs.Rows[i][idx], rs.Rows[j][idx]) < 0
	})
	return nil
}
