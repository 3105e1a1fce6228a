package ix

import (
	"encoding/binary"
	"fmt"

	"minirel/internal/pf"

	"github.com/pkg/errors"
)

// Manager creates, destroys, opens and closes index files on top of a
// shared pf.Manager. Index files are named "<table>.<colIdx>.idx".
type Manager struct {
	pf *pf.Manager
}

// NewManager wraps a pf.Manager for index-file operations.
func NewManager(pfm *pf.Manager) *Manager {
	return &Manager{pf: pfm}
}

// IndexName derives the on-disk file name for a table's colIdx-th column.
func IndexName(filename string, colIdx int) string {
	return fmt.Sprintf("%s.%d.idx", filename, colIdx)
}

// Exists reports whether an index file for (filename, colIdx) exists.
func (m *Manager) Exists(filename string, colIdx int) bool {
	return m.pf.IsFile(IndexName(filename, colIdx))
}

// CreateIndex lays out a new index file for a column of the given type and
// byte width, bootstrapping the sentinel leaf-ring header and the initial
// (leaf) root.
func (m *Manager) CreateIndex(filename string, colIdx int, colType ColType, colLen int) error {
	if colLen > MaxColLen {
		return errors.WithStack(&InvalidColLengthError{ColLen: colLen})
	}
	ixName := IndexName(filename, colIdx)
	if err := m.pf.CreateFile(ixName); err != nil {
		return err
	}
	h, err := m.pf.OpenFile(ixName)
	if err != nil {
		return err
	}

	btreeOrder := (pf.PageSize-nodeHdrSize)/(colLen+ridSize) - 1
	assertTrue(btreeOrder > 2, "create_index: btree_order too small for column width")
	keyOffset := nodeHdrSize
	ridOffset := keyOffset + (btreeOrder+1)*colLen

	fhdr := IndexFileHeader{
		FirstFree:  NoPage,
		NumPages:   InitNumPages,
		RootPage:   InitRootPage,
		ColType:    colType,
		ColLen:     colLen,
		BtreeOrder: btreeOrder,
		KeyOffset:  keyOffset,
		RidOffset:  ridOffset,
		FirstLeaf:  InitRootPage,
		LastLeaf:   InitRootPage,
	}
	if err := m.pf.WritePageRaw(h, FileHdrPage, marshalFileHeader(fhdr)); err != nil {
		return err
	}

	leafSentinel := make([]byte, pf.PageSize)
	marshalNodeHeader(leafSentinel, IndexNodeHeader{
		NextFree: NoPage,
		Parent:   NoPage,
		NumKey:   0,
		NumChild: 0,
		IsLeaf:   true,
		PrevLeaf: InitRootPage,
		NextLeaf: InitRootPage,
	})
	if err := m.pf.WritePageRaw(h, LeafHeaderPage, leafSentinel); err != nil {
		return err
	}

	root := make([]byte, pf.PageSize)
	marshalNodeHeader(root, IndexNodeHeader{
		NextFree: NoPage,
		Parent:   NoPage,
		NumKey:   0,
		NumChild: 0,
		IsLeaf:   true,
		PrevLeaf: LeafHeaderPage,
		NextLeaf: LeafHeaderPage,
	})
	if err := m.pf.WritePageRaw(h, InitRootPage, root); err != nil {
		return err
	}

	return m.pf.CloseFile(h)
}

// DestroyIndex removes the index file from disk.
func (m *Manager) DestroyIndex(filename string, colIdx int) error {
	return m.pf.DestroyFile(IndexName(filename, colIdx))
}

// OpenIndex opens an existing index file.
func (m *Manager) OpenIndex(filename string, colIdx int) (*Handle, error) {
	ixName := IndexName(filename, colIdx)
	h, err := m.pf.OpenFile(ixName)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, fileHdrSize)
	if err := m.pf.ReadPageRaw(h, FileHdrPage, buf); err != nil {
		return nil, err
	}
	hdr := unmarshalFileHeader(buf)
	return &Handle{mgr: m.pf, h: h, Hdr: hdr, cmp: NewComparator(hdr.ColType, hdr.ColLen)}, nil
}

// CloseIndex persists the (possibly mutated) file header and closes ih.
func (m *Manager) CloseIndex(ih *Handle) error {
	if err := m.pf.WritePageRaw(ih.h, FileHdrPage, marshalFileHeader(ih.Hdr)); err != nil {
		return err
	}
	return m.pf.CloseFile(ih.h)
}

func marshalFileHeader(h IndexFileHeader) []byte {
	buf := make([]byte, fileHdrSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(h.FirstFree)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.NumPages))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.RootPage))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.ColType))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.ColLen))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.BtreeOrder))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.KeyOffset))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.RidOffset))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(h.FirstLeaf))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(h.LastLeaf))
	return buf
}

func unmarshalFileHeader(buf []byte) IndexFileHeader {
	return IndexFileHeader{
		FirstFree:  int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		NumPages:   int(binary.LittleEndian.Uint32(buf[4:8])),
		RootPage:   int(binary.LittleEndian.Uint32(buf[8:12])),
		ColType:    ColType(binary.LittleEndian.Uint32(buf[12:16])),
		ColLen:     int(binary.LittleEndian.Uint32(buf[16:20])),
		BtreeOrder: int(binary.LittleEndian.Uint32(buf[20:24])),
		KeyOffset:  int(binary.LittleEndian.Uint32(buf[24:28])),
		RidOffset:  int(binary.LittleEndian.Uint32(buf[28:32])),
		FirstLeaf:  int(binary.LittleEndian.Uint32(buf[32:36])),
		LastLeaf:   int(binary.LittleEndian.Uint32(buf[36:40])),
	}
}
