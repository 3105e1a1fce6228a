package rm

import (
	"encoding/binary"

	"minirel/internal/pf"
)

func marshalFileHeader(h RecordFileHeader) []byte {
	buf := make([]byte, fileHdrSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.RecordSize))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.NumPages))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.NumRecordsPerPage))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(int32(h.FirstFree)))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.BitmapSize))
	return buf
}

func unmarshalFileHeader(buf []byte) RecordFileHeader {
	return RecordFileHeader{
		RecordSize:        int(binary.LittleEndian.Uint32(buf[0:4])),
		NumPages:          int(binary.LittleEndian.Uint32(buf[4:8])),
		NumRecordsPerPage: int(binary.LittleEndian.Uint32(buf[8:12])),
		FirstFree:         int(int32(binary.LittleEndian.Uint32(buf[12:16]))),
		BitmapSize:        int(binary.LittleEndian.Uint32(buf[16:20])),
	}
}

func marshalPageHeader(buf []byte, h RecordPageHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(h.NextFree)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.NumRecords))
}

func unmarshalPageHeader(buf []byte) RecordPageHeader {
	return RecordPageHeader{
		NextFree:   int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		NumRecords: int(binary.LittleEndian.Uint32(buf[4:8])),
	}
}

// pageHandle is a borrowed view into one record page's header, bitmap and
// slot array, all backed by the same pf.Page buffer.
type pageHandle struct {
	page   *pf.Page
	hdr    RecordPageHeader
	bitmap []byte
	slots  []byte
	fhdr   *RecordFileHeader
}

func newPageHandle(fhdr *RecordFileHeader, page *pf.Page) *pageHandle {
	buf := page.Bytes()
	bitmap := buf[pageHdrSize : pageHdrSize+fhdr.BitmapSize]
	slots := buf[pageHdrSize+fhdr.BitmapSize:]
	return &pageHandle{
		page:   page,
		hdr:    unmarshalPageHeader(buf),
		bitmap: bitmap,
		slots:  slots,
		fhdr:   fhdr,
	}
}

func (ph *pageHandle) writeHeader() {
	marshalPageHeader(ph.page.Bytes(), ph.hdr)
}

func (ph *pageHandle) slot(slotNo int) []byte {
	off := slotNo * ph.fhdr.RecordSize
	return ph.slots[off : off+ph.fhdr.RecordSize]
}

// FileHandle is an open record file: its header plus the shared PF handle
// used to fetch/create its pages.
type FileHandle struct {
	mgr *pf.Manager
	h   *pf.Handle
	Hdr RecordFileHeader
}

// IsRecord reports whether rid's bitmap bit is set.
func (fh *FileHandle) IsRecord(rid Rid) (bool, error) {
	ph, err := fh.fetchPage(rid.PageNo)
	if err != nil {
		return false, err
	}
	return bitmapTest(ph.bitmap, rid.SlotNo), nil
}

// GetRecord returns a copy of the record stored at rid.
func (fh *FileHandle) GetRecord(rid Rid) ([]byte, error) {
	ph, err := fh.fetchPage(rid.PageNo)
	if err != nil {
		return nil, err
	}
	if !bitmapTest(ph.bitmap, rid.SlotNo) {
		return nil, &RecordNotFoundError{rid.PageNo, rid.SlotNo}
	}
	out := make([]byte, fh.Hdr.RecordSize)
	copy(out, ph.slot(rid.SlotNo))
	return out, nil
}

// InsertRecord copies buf (length must equal Hdr.RecordSize) into the first
// available slot, allocating a fresh page if the free-page chain is empty.
func (fh *FileHandle) InsertRecord(buf []byte) (Rid, error) {
	ph, err := fh.createPage()
	if err != nil {
		return Rid{}, err
	}
	slotNo := bitmapFirstBit(false, ph.bitmap, fh.Hdr.NumRecordsPerPage)
	bitmapSet(ph.bitmap, slotNo)
	fh.mgr.MarkDirty(ph.page)
	ph.hdr.NumRecords++
	if ph.hdr.NumRecords == fh.Hdr.NumRecordsPerPage {
		// Page is now full: drop it from the free chain.
		fh.Hdr.FirstFree = ph.hdr.NextFree
	}
	ph.writeHeader()
	copy(ph.slot(slotNo), buf)
	return Rid{PageNo: ph.page.PageNo(), SlotNo: slotNo}, nil
}

// DeleteRecord clears rid's bitmap bit, returning the page to the free
// chain if it had been full.
func (fh *FileHandle) DeleteRecord(rid Rid) error {
	ph, err := fh.fetchPage(rid.PageNo)
	if err != nil {
		return err
	}
	if !bitmapTest(ph.bitmap, rid.SlotNo) {
		return &RecordNotFoundError{rid.PageNo, rid.SlotNo}
	}
	fh.mgr.MarkDirty(ph.page)
	if ph.hdr.NumRecords == fh.Hdr.NumRecordsPerPage {
		fh.releasePage(ph)
	}
	bitmapReset(ph.bitmap, rid.SlotNo)
	ph.hdr.NumRecords--
	ph.writeHeader()
	return nil
}

// UpdateRecord overwrites the record at rid in place.
func (fh *FileHandle) UpdateRecord(rid Rid, buf []byte) error {
	ph, err := fh.fetchPage(rid.PageNo)
	if err != nil {
		return err
	}
	if !bitmapTest(ph.bitmap, rid.SlotNo) {
		return &RecordNotFoundError{rid.PageNo, rid.SlotNo}
	}
	fh.mgr.MarkDirty(ph.page)
	copy(ph.slot(rid.SlotNo), buf)
	return nil
}

func (fh *FileHandle) fetchPage(pageNo int) (*pageHandle, error) {
	page, err := fh.mgr.FetchPage(fh.h, pageNo)
	if err != nil {
		return nil, err
	}
	return newPageHandle(&fh.Hdr, page), nil
}

func (fh *FileHandle) createPage() (*pageHandle, error) {
	if fh.Hdr.FirstFree == NoPage {
		page, err := fh.mgr.CreatePage(fh.h, fh.Hdr.NumPages)
		if err != nil {
			return nil, err
		}
		ph := newPageHandle(&fh.Hdr, page)
		ph.hdr = RecordPageHeader{NextFree: NoPage, NumRecords: 0}
		for i := range ph.bitmap {
			ph.bitmap[i] = 0
		}
		ph.writeHeader()
		fh.Hdr.NumPages++
		fh.Hdr.FirstFree = page.PageNo()
		return ph, nil
	}
	return fh.fetchPage(fh.Hdr.FirstFree)
}

func (fh *FileHandle) releasePage(ph *pageHandle) {
	ph.hdr.NextFree = fh.Hdr.FirstFree
	fh.Hdr.FirstFree = ph.page.PageNo()
}
