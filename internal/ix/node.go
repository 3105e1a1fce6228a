package ix

import (
	"encoding/binary"

	"minirel/internal/pf"
	"minirel/internal/rm"
)

func marshalNodeHeader(buf []byte, h IndexNodeHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(h.NextFree)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(h.Parent)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.NumKey))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.NumChild))
	if h.IsLeaf {
		buf[16] = 1
	} else {
		buf[16] = 0
	}
	binary.LittleEndian.PutUint32(buf[20:24], uint32(int32(h.PrevLeaf)))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(int32(h.NextLeaf)))
}

func unmarshalNodeHeader(buf []byte) IndexNodeHeader {
	return IndexNodeHeader{
		NextFree: int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		Parent:   int(int32(binary.LittleEndian.Uint32(buf[4:8]))),
		NumKey:   int(binary.LittleEndian.Uint32(buf[8:12])),
		NumChild: int(binary.LittleEndian.Uint32(buf[12:16])),
		IsLeaf:   buf[16] != 0,
		PrevLeaf: int(int32(binary.LittleEndian.Uint32(buf[20:24]))),
		NextLeaf: int(int32(binary.LittleEndian.Uint32(buf[24:28]))),
	}
}

func encodeRid(buf []byte, rid rm.Rid) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(rid.PageNo)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(rid.SlotNo)))
}

func decodeRid(buf []byte) rm.Rid {
	return rm.Rid{
		PageNo: int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		SlotNo: int(int32(binary.LittleEndian.Uint32(buf[4:8]))),
	}
}

// NodeHandle is a borrowed view into one B+ tree node page: its header plus
// the key array and rid (child pointer) array, all backed by the page's
// buffer.
type NodeHandle struct {
	mgr  *pf.Manager
	ihdr *IndexFileHeader
	cmp  Comparator
	page *pf.Page
	Hdr  IndexNodeHeader
	keys []byte
	rids []byte
}

func newNodeHandle(mgr *pf.Manager, ihdr *IndexFileHeader, cmp Comparator, page *pf.Page) *NodeHandle {
	buf := page.Bytes()
	colLen := ihdr.ColLen
	maxEntries := ihdr.BtreeOrder + 1
	return &NodeHandle{
		mgr:  mgr,
		ihdr: ihdr,
		cmp:  cmp,
		page: page,
		Hdr:  unmarshalNodeHeader(buf),
		keys: buf[ihdr.KeyOffset : ihdr.KeyOffset+maxEntries*colLen],
		rids: buf[ihdr.RidOffset : ihdr.RidOffset+maxEntries*ridSize],
	}
}

func (n *NodeHandle) writeHeader() {
	marshalNodeHeader(n.page.Bytes(), n.Hdr)
}

func (n *NodeHandle) markDirty() {
	n.mgr.MarkDirty(n.page)
}

// GetKey returns the raw bytes of the key at idx.
func (n *NodeHandle) GetKey(idx int) []byte {
	colLen := n.ihdr.ColLen
	return n.keys[idx*colLen : idx*colLen+colLen]
}

// GetRid returns the child pointer / record rid at idx.
func (n *NodeHandle) GetRid(idx int) rm.Rid {
	return decodeRid(n.rids[idx*ridSize : idx*ridSize+ridSize])
}

// SetRid overwrites the rid stored at idx in place.
func (n *NodeHandle) SetRid(idx int, rid rm.Rid) {
	encodeRid(n.rids[idx*ridSize:idx*ridSize+ridSize], rid)
}

// LowerBound returns the index of the first key >= target, or NumKey.
func (n *NodeHandle) LowerBound(target []byte) int {
	idx := 0
	for idx < n.Hdr.NumKey {
		if n.cmp(target, n.GetKey(idx)) <= 0 {
			break
		}
		idx++
	}
	return idx
}

// UpperBound returns the index of the first key > target, or NumKey.
func (n *NodeHandle) UpperBound(target []byte) int {
	idx := 0
	for idx < n.Hdr.NumKey {
		if n.cmp(target, n.GetKey(idx)) < 0 {
			break
		}
		idx++
	}
	return idx
}

// InsertKeys shifts keys at and after pos right by count slots and copies
// count new keys (col_len bytes each, concatenated in key) into the gap.
func (n *NodeHandle) InsertKeys(pos int, key []byte, count int) {
	colLen := n.ihdr.ColLen
	start := pos * colLen
	tailLen := (n.Hdr.NumKey - pos) * colLen
	copy(n.keys[start+count*colLen:start+count*colLen+tailLen], n.keys[start:start+tailLen])
	copy(n.keys[start:start+count*colLen], key[:count*colLen])
	n.Hdr.NumKey += count
	n.writeHeader()
}

// InsertKey inserts a single key at pos.
func (n *NodeHandle) InsertKey(pos int, key []byte) {
	n.InsertKeys(pos, key, 1)
}

// EraseKey removes the key at pos, shifting later keys left.
func (n *NodeHandle) EraseKey(pos int) {
	colLen := n.ihdr.ColLen
	start := pos * colLen
	tailLen := (n.Hdr.NumKey - pos - 1) * colLen
	copy(n.keys[start:start+tailLen], n.keys[start+colLen:start+colLen+tailLen])
	n.Hdr.NumKey--
	n.writeHeader()
}

// InsertRids shifts rids at and after pos right by count slots and copies
// count new rids into the gap.
func (n *NodeHandle) InsertRids(pos int, rids []rm.Rid) {
	count := len(rids)
	start := pos * ridSize
	tailLen := (n.Hdr.NumChild - pos) * ridSize
	copy(n.rids[start+count*ridSize:start+count*ridSize+tailLen], n.rids[start:start+tailLen])
	for i, rid := range rids {
		encodeRid(n.rids[start+i*ridSize:start+(i+1)*ridSize], rid)
	}
	n.Hdr.NumChild += count
	n.writeHeader()
}

// InsertRid inserts a single rid at pos.
func (n *NodeHandle) InsertRid(pos int, rid rm.Rid) {
	n.InsertRids(pos, []rm.Rid{rid})
}

// EraseRid removes the rid at pos, shifting later rids left.
func (n *NodeHandle) EraseRid(pos int) {
	start := pos * ridSize
	tailLen := (n.Hdr.NumChild - pos - 1) * ridSize
	copy(n.rids[start:start+tailLen], n.rids[start+ridSize:start+ridSize+tailLen])
	n.Hdr.NumChild--
	n.writeHeader()
}

// FindChild returns child's rank among this node's children.
func (n *NodeHandle) FindChild(child *NodeHandle) int {
	for rank := 0; rank < n.Hdr.NumChild; rank++ {
		if n.GetRid(rank).PageNo == child.page.PageNo() {
			return rank
		}
	}
	panic("ix: child not found in parent")
}

// keysFrom returns the keys from idx through the last key as a flat byte
// slice, used when bulk-copying into another node during a split or merge.
func (n *NodeHandle) keysFrom(idx int) []byte {
	colLen := n.ihdr.ColLen
	return n.keys[idx*colLen : n.Hdr.NumKey*colLen]
}

func (n *NodeHandle) ridsFrom(idx int) []rm.Rid {
	out := make([]rm.Rid, n.Hdr.NumChild-idx)
	for i := range out {
		out[i] = n.GetRid(idx + i)
	}
	return out
}
