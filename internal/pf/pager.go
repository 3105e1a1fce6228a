package pf

import (
	"container/list"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NumCachePages bounds the number of frames held in memory at once. The
// reference engine sizes this statically; we keep it a constant for the
// same reason: PF callers never need to reason about cache sizing.
const NumCachePages = 65536

// Pager is the shared LRU-cached buffer pool sitting in front of every open
// file descriptor. There is exactly one Pager per Manager.
type Pager struct {
	log *zap.SugaredLogger

	busy *list.List // of *Page, front = most recently used
	free *list.List // of *Page

	elems map[PageID]*list.Element // PageID -> element in busy
}

// NewPager builds an empty pager with NumCachePages free frames.
func NewPager(log *zap.SugaredLogger) *Pager {
	p := &Pager{
		log:   log,
		busy:  list.New(),
		free:  list.New(),
		elems: make(map[PageID]*list.Element, NumCachePages),
	}
	for i := 0; i < NumCachePages; i++ {
		p.free.PushBack(&Page{})
	}
	return p
}

// FetchPage returns the cached frame for (fd, pageNo), reading it from disk
// on a cache miss. The returned buffer is a live view into the frame; callers
// must not retain it across another PF call that might evict it.
func (p *Pager) FetchPage(file *os.File, fd, pageNo int) (*Page, error) {
	return p.getPage(file, fd, pageNo, true)
}

// CreatePage returns a frame for (fd, pageNo) without reading from disk,
// and marks it dirty immediately since its contents are meaningless until
// the caller initializes them.
func (p *Pager) CreatePage(file *os.File, fd, pageNo int) (*Page, error) {
	f, err := p.getPage(file, fd, pageNo, false)
	if err != nil {
		return nil, err
	}
	p.MarkDirty(f)
	return f, nil
}

// MarkDirty flags a frame for write-back at flush or eviction time.
func (p *Pager) MarkDirty(f *Page) {
	f.isDirty = true
}

func (p *Pager) getPage(file *os.File, fd, pageNo int, exists bool) (*Page, error) {
	id := PageID{Fd: fd, PageNo: pageNo}
	if elem, ok := p.elems[id]; ok {
		p.access(elem)
		return elem.Value.(*Page), nil
	}

	var elem *list.Element
	if p.free.Len() == 0 {
		// Cache full: evict the busy-list tail (LRU victim).
		victim := p.busy.Back()
		vf := victim.Value.(*Page)
		if err := p.forcePage(file, vf); err != nil {
			return nil, err
		}
		delete(p.elems, vf.id)
		p.busy.MoveToFront(victim)
		elem = victim
		p.log.Debugw("pf: evicted frame", "fd", vf.id.Fd, "page", vf.id.PageNo)
	} else {
		front := p.free.Front()
		p.free.Remove(front)
		elem = p.busy.PushFront(front.Value)
	}

	f := elem.Value.(*Page)
	f.id = id
	f.isDirty = false
	p.elems[id] = elem

	if exists {
		if err := readPage(file, pageNo, f.buf[:]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *Pager) access(elem *list.Element) {
	p.busy.MoveToFront(elem)
}

// FlushPage forces a single frame to disk (if dirty) and returns it to the
// free list.
func (p *Pager) FlushPage(file *os.File, f *Page) error {
	elem, ok := p.elems[f.id]
	if !ok {
		return nil
	}
	if err := p.forcePage(file, f); err != nil {
		return err
	}
	p.busy.Remove(elem)
	p.free.PushFront(f)
	delete(p.elems, f.id)
	return nil
}

// FlushFile forces every frame belonging to fd to disk and frees it. Called
// when the owning file is closed.
func (p *Pager) FlushFile(file *os.File, fd int) error {
	var next *list.Element
	for elem := p.busy.Front(); elem != nil; elem = next {
		next = elem.Next()
		f := elem.Value.(*Page)
		if f.id.Fd == fd {
			if err := p.FlushPage(file, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// FlushAll forces every cached frame to disk, used when the whole pager is
// torn down.
func (p *Pager) FlushAll(filesByFd map[int]*os.File) error {
	var next *list.Element
	for elem := p.busy.Front(); elem != nil; elem = next {
		next = elem.Next()
		f := elem.Value.(*Page)
		if file, ok := filesByFd[f.id.Fd]; ok {
			if err := p.forcePage(file, f); err != nil {
				return err
			}
		}
		p.free.PushBack(f)
		p.busy.Remove(elem)
	}
	p.elems = make(map[PageID]*list.Element, NumCachePages)
	return nil
}

func (p *Pager) forcePage(file *os.File, f *Page) error {
	if !f.isDirty {
		return nil
	}
	if err := writePage(file, f.id.PageNo, f.buf[:]); err != nil {
		return err
	}
	f.isDirty = false
	p.log.Debugw("pf: flushed frame", "fd", f.id.Fd, "page", f.id.PageNo)
	return nil
}

func readPage(file *os.File, pageNo int, buf []byte) error {
	n, err := file.ReadAt(buf, int64(pageNo)*PageSize)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "pf: read page %d", pageNo)
	}
	if n != PageSize {
		return errors.Errorf("pf: short read on page %d: got %d bytes", pageNo, n)
	}
	return nil
}

func writePage(file *os.File, pageNo int, buf []byte) error {
	n, err := file.WriteAt(buf, int64(pageNo)*PageSize)
	if err != nil {
		return errors.Wrapf(err, "pf: write page %d", pageNo)
	}
	if n != PageSize {
		return errors.Errorf("pf: short write on page %d: wrote %d bytes", pageNo, n)
	}
	return nil
}
