package rm

import (
	"minirel/internal/pf"

	"github.com/pkg/errors"
)

// Manager creates, destroys, opens and closes record files on top of a
// shared pf.Manager.
type Manager struct {
	pf *pf.Manager
}

// NewManager wraps a pf.Manager for record-file operations.
func NewManager(pfm *pf.Manager) *Manager {
	return &Manager{pf: pfm}
}

// CreateFile lays out a new record file sized for fixed records of
// recordSize bytes, deriving num_records_per_page and bitmap_size from the
// constraint sizeof(hdr) + ceil(n/8) + n*record_size <= PAGE_SIZE.
func (m *Manager) CreateFile(filename string, recordSize int) error {
	if recordSize < 1 || recordSize > MaxRecordSize {
		return errors.Wrapf(ErrInvalidRecordSize, "size %d", recordSize)
	}
	if err := m.pf.CreateFile(filename); err != nil {
		return err
	}
	h, err := m.pf.OpenFile(filename)
	if err != nil {
		return err
	}

	numRecordsPerPage := (bitmapWidth*(pf.PageSize-1-pageHdrSize) + 1) / (1 + recordSize*bitmapWidth)
	bitmapSize := (numRecordsPerPage + bitmapWidth - 1) / bitmapWidth
	hdr := RecordFileHeader{
		RecordSize:        recordSize,
		NumPages:          FirstRecordPage,
		NumRecordsPerPage: numRecordsPerPage,
		FirstFree:         NoPage,
		BitmapSize:        bitmapSize,
	}
	if err := m.pf.WritePageRaw(h, FileHdrPage, marshalFileHeader(hdr)); err != nil {
		return err
	}
	return m.pf.CloseFile(h)
}

// DestroyFile removes filename from disk.
func (m *Manager) DestroyFile(filename string) error {
	return m.pf.DestroyFile(filename)
}

// OpenFile opens an existing record file.
func (m *Manager) OpenFile(filename string) (*FileHandle, error) {
	h, err := m.pf.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, fileHdrSize)
	if err := m.pf.ReadPageRaw(h, FileHdrPage, buf); err != nil {
		return nil, err
	}
	return &FileHandle{mgr: m.pf, h: h, Hdr: unmarshalFileHeader(buf)}, nil
}

// CloseFile persists the (possibly mutated) file header and closes fh.
func (m *Manager) CloseFile(fh *FileHandle) error {
	if err := m.pf.WritePageRaw(fh.h, FileHdrPage, marshalFileHeader(fh.Hdr)); err != nil {
		return err
	}
	return m.pf.CloseFile(fh.h)
}
