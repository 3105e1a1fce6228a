package pf

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handle is an open file known to a Manager: the OS file plus the fd it was
// registered under (a small monotonic counter, not a real unix descriptor,
// since Go already gives us a safe *os.File).
type Handle struct {
	fd   int
	path string
	file *os.File
}

// Fd is this handle's identity inside the shared pager's cache keys.
func (h *Handle) Fd() int { return h.fd }

// Manager owns the shared Pager and the bookkeeping of which paths are
// currently open, enforcing single-open-per-path the way the source's
// static _path2fd/_fd2path maps do.
type Manager struct {
	log *zap.SugaredLogger

	pager *Pager

	path2handle map[string]*Handle
	fd2handle   map[int]*Handle
	nextFd      int
}

// NewManager creates a Manager with a fresh, empty buffer pool.
func NewManager(log *zap.SugaredLogger) *Manager {
	return &Manager{
		log:         log,
		pager:       NewPager(log),
		path2handle: make(map[string]*Handle),
		fd2handle:   make(map[int]*Handle),
	}
}

// IsFile reports whether path names an existing regular file.
func (m *Manager) IsFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// CreateFile creates an empty file at path. The file is not opened.
func (m *Manager) CreateFile(path string) error {
	if m.IsFile(path) {
		return errors.Wrapf(ErrFileExists, "create %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "pf: create %s", path)
	}
	return f.Close()
}

// DestroyFile removes path from disk. It must not currently be open.
func (m *Manager) DestroyFile(path string) error {
	if !m.IsFile(path) {
		return errors.Wrapf(ErrFileNotFound, "destroy %s", path)
	}
	if _, open := m.path2handle[path]; open {
		return errors.Wrapf(ErrFileNotClosed, "destroy %s", path)
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "pf: destroy %s", path)
	}
	return nil
}

// OpenFile opens path for reading and writing, returning a Handle used for
// every subsequent Fetch/Create/Flush call against it.
func (m *Manager) OpenFile(path string) (*Handle, error) {
	if !m.IsFile(path) {
		return nil, errors.Wrapf(ErrFileNotFound, "open %s", path)
	}
	if _, open := m.path2handle[path]; open {
		return nil, errors.Wrapf(ErrFileNotClosed, "open %s", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "pf: open %s", path)
	}
	h := &Handle{fd: m.nextFd, path: path, file: f}
	m.nextFd++
	m.path2handle[path] = h
	m.fd2handle[h.fd] = h
	return h, nil
}

// CloseFile flushes every cached page of h to disk and closes the
// underlying OS file.
func (m *Manager) CloseFile(h *Handle) error {
	if _, open := m.fd2handle[h.fd]; !open {
		return errors.Wrapf(ErrFileNotOpen, "close fd %d", h.fd)
	}
	if err := m.pager.FlushFile(h.file, h.fd); err != nil {
		return err
	}
	delete(m.path2handle, h.path)
	delete(m.fd2handle, h.fd)
	return h.file.Close()
}

// FetchPage returns the cached page (reading from disk on a miss).
func (m *Manager) FetchPage(h *Handle, pageNo int) (*Page, error) {
	return m.pager.FetchPage(h.file, h.fd, pageNo)
}

// CreatePage returns a fresh, already-dirty page without reading disk.
func (m *Manager) CreatePage(h *Handle, pageNo int) (*Page, error) {
	return m.pager.CreatePage(h.file, h.fd, pageNo)
}

// MarkDirty flags a page for write-back.
func (m *Manager) MarkDirty(p *Page) {
	m.pager.MarkDirty(p)
}

// WritePageRaw writes buf (zero-padded to a full page) directly to a page
// slot, bypassing the cache. Used for file-header pages written at
// creation/close time and for the initial pages an index file is created
// with, matching the source's direct PfPager::write_page calls.
func (m *Manager) WritePageRaw(h *Handle, pageNo int, buf []byte) error {
	return writePage(h.file, pageNo, pad(buf))
}

// ReadPageRaw reads a page directly, bypassing the cache.
func (m *Manager) ReadPageRaw(h *Handle, pageNo int, buf []byte) error {
	full := make([]byte, PageSize)
	if err := readPage(h.file, pageNo, full); err != nil {
		return err
	}
	copy(buf, full)
	return nil
}

func pad(buf []byte) []byte {
	if len(buf) == PageSize {
		return buf
	}
	full := make([]byte, PageSize)
	copy(full, buf)
	return full
}

// Close flushes every remaining cached page across all open files. Used at
// process shutdown as a final safety net; well-behaved callers close every
// file explicitly first.
func (m *Manager) Close() error {
	files := make(map[int]*os.File, len(m.fd2handle))
	for fd, h := range m.fd2handle {
		files[fd] = h.file
	}
	return m.pager.FlushAll(files)
}
