package query

import (
	"path/filepath"
	"testing"

	"minirel/internal/catalog"
	"minirel/internal/ix"
	"minirel/internal/pf"
	"minirel/internal/rm"
	"minirel/internal/sql"

	"go.uber.org/zap"
)

func setupTable(t *testing.T, pfm *pf.Manager, name string, cols []catalog.ColMeta, rows [][]sql.Value) (*rm.FileHandle, []catalog.ColMeta) {
	t.Helper()
	rmMgr := rm.NewManager(pfm)
	recSize := 0
	for _, c := range cols {
		recSize += c.Len
	}
	if err := rmMgr.CreateFile(name, recSize); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	fh, err := rmMgr.OpenFile(name)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	for _, row := range rows {
		buf := make([]byte, 0, recSize)
		for i, v := range row {
			b, err := encodeValue(cols[i], v)
			if err != nil {
				t.Fatalf("encodeValue: %v", err)
			}
			buf = append(buf, b...)
		}
		if _, err := fh.InsertRecord(buf); err != nil {
			t.Fatalf("InsertRecord: %v", err)
		}
	}
	return fh, cols
}

func TestTableScanAndFilter(t *testing.T) {
	dir := t.TempDir()
	pfm := pf.NewManager(zap.NewNop().Sugar())
	cols := []catalog.ColMeta{
		{TabName: "students", Name: "id", Type: ix.ColInt, Len: 4},
		{TabName: "students", Name: "name", Type: ix.ColString, Len: 16},
	}
	fh, cols := setupTable(t, pfm, filepath.Join(dir, "students"), cols, [][]sql.Value{
		{{Kind: "int", Int: 1}, {Kind: "string", Str: "Naruto"}},
		{{Kind: "int", Int: 2}, {Kind: "string", Str: "Sasuke"}},
		{{Kind: "int", Int: 3}, {Kind: "string", Str: "Sakura"}},
	})

	scan := NewTableScan("students", cols, fh)
	filtered := NewFilter(scan, []sql.Cond{{Col: "id", Op: ">", Rhs: sql.Value{Kind: "int", Int: 1}}})
	if err := filtered.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	var names []string
	for !filtered.IsEnd() {
		row, err := filtered.Row()
		if err != nil {
			t.Fatalf("Row: %v", err)
		}
		name, err := row.Get("name")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		names = append(names, name.(string))
		if err := filtered.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if len(names) != 2 || names[0] != "Sasuke" || names[1] != "Sakura" {
		t.Fatalf("unexpected filtered names: %v", names)
	}
}

func TestProjectNarrowsColumns(t *testing.T) {
	dir := t.TempDir()
	pfm := pf.NewManager(zap.NewNop().Sugar())
	cols := []catalog.ColMeta{
		{TabName: "t", Name: "id", Type: ix.ColInt, Len: 4},
		{TabName: "t", Name: "name", Type: ix.ColString, Len: 16},
	}
	fh, cols := setupTable(t, pfm, filepath.Join(dir, "t"), cols, [][]sql.Value{
		{{Kind: "int", Int: 1}, {Kind: "string", Str: "Naruto"}},
	})

	scan := NewTableScan("t", cols, fh)
	proj, err := NewProject(scan, []string{"name"})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if err := proj.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if proj.IsEnd() {
		t.Fatalf("unexpected empty scan")
	}
	row, err := proj.Row()
	if err != nil {
		t.Fatalf("Row: %v", err)
	}
	if len(row.Cols) != 1 || row.Cols[0].Name != "name" {
		t.Fatalf("unexpected projected cols: %+v", row.Cols)
	}
	v, err := row.Get("name")
	if err != nil || v.(string) != "Naruto" {
		t.Fatalf("Get(name) = %v, %v", v, err)
	}
}

func TestJoinProducesCrossProductFilteredByPredicate(t *testing.T) {
	dir := t.TempDir()
	pfm := pf.NewManager(zap.NewNop().Sugar())

	aCols := []catalog.ColMeta{{TabName: "a", Name: "id", Type: ix.ColInt, Len: 4}}
	aFh, aCols := setupTable(t, pfm, filepath.Join(dir, "a"), aCols, [][]sql.Value{
		{{Kind: "int", Int: 1}},
		{{Kind: "int", Int: 2}},
	})

	bCols := []catalog.ColMeta{
		{TabName: "b", Name: "id", Type: ix.ColInt, Len: 4},
		{TabName: "b", Name: "label", Type: ix.ColString, Len: 8},
	}
	bFh, bCols := setupTable(t, pfm, filepath.Join(dir, "b"), bCols, [][]sql.Value{
		{{Kind: "int", Int: 1}, {Kind: "string", Str: "one"}},
		{{Kind: "int", Int: 2}, {Kind: "string", Str: "two"}},
	})

	left := NewTableScan("a", aCols, aFh)
	right := NewTableScan("b", bCols, bFh)
	join := NewJoin(left, right)
	filtered := NewFilter(join, []sql.Cond{{Col: "a.id", Op: "=", IsCol: true, RhsCol: "b.id"}})

	if err := filtered.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	var labels []string
	for !filtered.IsEnd() {
		row, err := filtered.Row()
		if err != nil {
			t.Fatalf("Row: %v", err)
		}
		label, err := row.Get("b.label")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		labels = append(labels, label.(string))
		if err := filtered.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if len(labels) != 2 || labels[0] != "one" || labels[1] != "two" {
		t.Fatalf("unexpected joined labels: %v", labels)
	}
}
