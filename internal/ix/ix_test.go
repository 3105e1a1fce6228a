package ix

import (
	"encoding/binary"
	"path/filepath"
	"sort"
	"testing"

	"minirel/internal/pf"
	"minirel/internal/rm"

	"go.uber.org/zap"
)

func newTestIX(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	pfm := pf.NewManager(zap.NewNop().Sugar())
	return NewManager(pfm), filepath.Join(dir, "tab")
}

func intKey(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func decodeIntKey(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

func openIntIndex(t *testing.T, mgr *Manager, path string) *Handle {
	t.Helper()
	if err := mgr.CreateIndex(path, 0, ColInt, 4); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	ih, err := mgr.OpenIndex(path, 0)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	return ih
}

func scanAllKeys(t *testing.T, ih *Handle) []int32 {
	t.Helper()
	var got []int32
	iid := ih.LeafBegin()
	end, err := ih.LeafEnd()
	if err != nil {
		t.Fatalf("LeafEnd: %v", err)
	}
	s := NewScan(ih, iid, end)
	for !s.IsEnd() {
		node, err := ih.fetchNode(s.Iid().PageNo)
		if err != nil {
			t.Fatalf("fetchNode: %v", err)
		}
		got = append(got, decodeIntKey(node.GetKey(s.Iid().SlotNo)))
		if err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	return got
}

func TestBPlusTreeStressSequence(t *testing.T) {
	mgr, path := newTestIX(t)
	ih := openIntIndex(t, mgr, path)

	seq := []int32{5, 3, 8, 1, 9, 2, 7, 4, 6}
	for i, k := range seq {
		if err := ih.InsertEntry(intKey(k), rm.Rid{PageNo: 10, SlotNo: i}); err != nil {
			t.Fatalf("InsertEntry(%d): %v", k, err)
		}
	}

	got := scanAllKeys(t, ih)
	want := []int32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("scan length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan[%d] = %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}

	lower, err := ih.LowerBound(intKey(5))
	if err != nil {
		t.Fatalf("LowerBound: %v", err)
	}
	rid, err := ih.GetRid(lower)
	if err != nil {
		t.Fatalf("GetRid: %v", err)
	}
	if rid.SlotNo != 0 {
		t.Fatalf("lower_bound(5) rid = %+v, want the slot for 5", rid)
	}

	upper, err := ih.UpperBound(intKey(5))
	if err != nil {
		t.Fatalf("UpperBound: %v", err)
	}
	ridU, err := ih.GetRid(upper)
	if err != nil {
		t.Fatalf("GetRid upper: %v", err)
	}
	if decodeIntKey(mustKeyAt(t, ih, upper)) != 6 {
		t.Fatalf("upper_bound(5) should point to 6, got rid %+v", ridU)
	}

	for _, k := range []int32{1, 9, 5} {
		lb, err := ih.LowerBound(intKey(k))
		if err != nil {
			t.Fatalf("LowerBound(%d): %v", k, err)
		}
		r, err := ih.GetRid(lb)
		if err != nil {
			t.Fatalf("GetRid(%d): %v", k, err)
		}
		if err := ih.DeleteEntry(intKey(k), r); err != nil {
			t.Fatalf("DeleteEntry(%d): %v", k, err)
		}
	}

	got = scanAllKeys(t, ih)
	want = []int32{2, 3, 4, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("post-delete scan length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("post-delete scan[%d] = %d, want %d (full %v)", i, got[i], want[i], got)
		}
	}
}

func mustKeyAt(t *testing.T, ih *Handle, iid Iid) []byte {
	t.Helper()
	node, err := ih.fetchNode(iid.PageNo)
	if err != nil {
		t.Fatalf("fetchNode: %v", err)
	}
	return node.GetKey(iid.SlotNo)
}

// TestBPlusTreeSplitMergeBorrow forces a small btree_order, the way
// original_source/src/ix/ix_test.cpp's test_ix_insert_delete overrides
// ih->hdr.btree_order before inserting, so a few dozen keys actually drive
// node splits on insert and merges/borrows on delete, rather than fitting
// in one leaf under the column's natural (much larger) order.
func TestBPlusTreeSplitMergeBorrow(t *testing.T) {
	mgr, path := newTestIX(t)
	ih := openIntIndex(t, mgr, path)
	ih.Hdr.BtreeOrder = 4

	seq := []int32{15, 3, 27, 8, 1, 22, 9, 30, 2, 19, 11, 25, 6, 17, 4, 28, 13, 21, 7, 24}
	for i, k := range seq {
		if err := ih.InsertEntry(intKey(k), rm.Rid{PageNo: 100, SlotNo: i}); err != nil {
			t.Fatalf("InsertEntry(%d): %v", k, err)
		}
	}

	got := scanAllKeys(t, ih)
	want := append([]int32(nil), seq...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if len(got) != len(want) {
		t.Fatalf("post-insert scan length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("post-insert scan[%d] = %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}

	// Delete most keys, driving the tree back down through borrow and
	// merge rebalancing, and confirm what remains is still sorted and
	// exactly the survivors.
	toDelete := seq[:15]
	remaining := append([]int32(nil), seq[15:]...)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })

	for i, k := range toDelete {
		if err := ih.DeleteEntry(intKey(k), rm.Rid{PageNo: 100, SlotNo: i}); err != nil {
			t.Fatalf("DeleteEntry(%d): %v", k, err)
		}
	}

	got = scanAllKeys(t, ih)
	if len(got) != len(remaining) {
		t.Fatalf("post-delete scan length = %d, want %d (%v)", len(got), len(remaining), got)
	}
	for i := range remaining {
		if got[i] != remaining[i] {
			t.Fatalf("post-delete scan[%d] = %d, want %d (full: %v)", i, got[i], remaining[i], got)
		}
	}
}

func TestDuplicateKeys(t *testing.T) {
	mgr, path := newTestIX(t)
	ih := openIntIndex(t, mgr, path)

	ridA := rm.Rid{PageNo: 1, SlotNo: 0}
	ridB := rm.Rid{PageNo: 1, SlotNo: 1}
	ridC := rm.Rid{PageNo: 1, SlotNo: 2}

	for _, r := range []rm.Rid{ridA, ridB, ridC} {
		if err := ih.InsertEntry(intKey(2), r); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	lower, err := ih.LowerBound(intKey(2))
	if err != nil {
		t.Fatalf("LowerBound: %v", err)
	}
	first, err := ih.GetRid(lower)
	if err != nil {
		t.Fatalf("GetRid: %v", err)
	}
	if first != ridA {
		t.Fatalf("lower_bound(2) = %+v, want %+v", first, ridA)
	}

	if err := ih.DeleteEntry(intKey(2), ridB); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	iid := ih.LeafBegin()
	end, err := ih.LeafEnd()
	if err != nil {
		t.Fatalf("LeafEnd: %v", err)
	}
	s := NewScan(ih, iid, end)
	var rids []rm.Rid
	for !s.IsEnd() {
		r, err := s.Rid()
		if err != nil {
			t.Fatalf("Rid: %v", err)
		}
		rids = append(rids, r)
		if err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if len(rids) != 2 || rids[0] != ridA || rids[1] != ridC {
		t.Fatalf("expected [A C], got %v", rids)
	}
}

func TestCrossReopenDurability(t *testing.T) {
	mgr, path := newTestIX(t)
	ih := openIntIndex(t, mgr, path)

	for i := int32(0); i < 50; i++ {
		if err := ih.InsertEntry(intKey(i), rm.Rid{PageNo: int(i), SlotNo: 0}); err != nil {
			t.Fatalf("InsertEntry(%d): %v", i, err)
		}
	}
	before := scanAllKeys(t, ih)

	if err := mgr.CloseIndex(ih); err != nil {
		t.Fatalf("CloseIndex: %v", err)
	}

	ih2, err := mgr.OpenIndex(path, 0)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	after := scanAllKeys(t, ih2)

	if len(before) != len(after) {
		t.Fatalf("length changed across reopen: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("key %d changed across reopen: %d vs %d", i, before[i], after[i])
		}
	}
}
