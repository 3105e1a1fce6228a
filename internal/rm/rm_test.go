package rm

import (
	"bytes"
	"path/filepath"
	"testing"

	"minirel/internal/pf"

	"go.uber.org/zap"
)

func newTestRM(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	pfm := pf.NewManager(zap.NewNop().Sugar())
	return NewManager(pfm), filepath.Join(dir, "recs")
}

func fixedRecord(n int, b byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestCreateFillReopen(t *testing.T) {
	mgr, path := newTestRM(t)
	if err := mgr.CreateFile(path, 100); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	fh, err := mgr.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	var rids []Rid
	for i := 0; i < 10; i++ {
		rid, err := fh.InsertRecord(fixedRecord(100, byte(i)))
		if err != nil {
			t.Fatalf("InsertRecord %d: %v", i, err)
		}
		rids = append(rids, rid)
	}

	if err := mgr.CloseFile(fh); err != nil {
		t.Fatalf("CloseFile: %v", err)
	}

	fh2, err := mgr.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	scan, err := NewScan(fh2)
	if err != nil {
		t.Fatalf("NewScan: %v", err)
	}
	var got []Rid
	for !scan.IsEnd() {
		got = append(got, scan.Rid())
		rec, err := fh2.GetRecord(scan.Rid())
		if err != nil {
			t.Fatalf("GetRecord: %v", err)
		}
		if !bytes.Equal(rec, fixedRecord(100, byte(len(got)-1))) {
			t.Fatalf("record %d content mismatch", len(got)-1)
		}
		if err := scan.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 records, got %d", len(got))
	}
	for i, rid := range rids {
		if rid != got[i] {
			t.Fatalf("rid %d mismatch: want %+v got %+v", i, rid, got[i])
		}
	}
	if err := mgr.CloseFile(fh2); err != nil {
		t.Fatalf("CloseFile: %v", err)
	}
}

func TestDeleteThenGetNotFound(t *testing.T) {
	mgr, path := newTestRM(t)
	if err := mgr.CreateFile(path, 50); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	fh, err := mgr.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	rid, err := fh.InsertRecord(fixedRecord(50, 7))
	if err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := fh.DeleteRecord(rid); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, err := fh.GetRecord(rid); err == nil {
		t.Fatalf("expected RecordNotFoundError")
	}
	if ok, err := fh.IsRecord(rid); err != nil || ok {
		t.Fatalf("expected is_record false, got %v err %v", ok, err)
	}
}

func TestScanCountsMatchInsertsMinusDeletes(t *testing.T) {
	mgr, path := newTestRM(t)
	if err := mgr.CreateFile(path, 20); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	fh, err := mgr.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	var rids []Rid
	for i := 0; i < 30; i++ {
		rid, err := fh.InsertRecord(fixedRecord(20, byte(i)))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		rids = append(rids, rid)
	}
	for _, rid := range rids[:12] {
		if err := fh.DeleteRecord(rid); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}

	scan, err := NewScan(fh)
	if err != nil {
		t.Fatalf("NewScan: %v", err)
	}
	count := 0
	for !scan.IsEnd() {
		count++
		if err := scan.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if count != 18 {
		t.Fatalf("expected 18 remaining records, got %d", count)
	}
}
