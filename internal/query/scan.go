package query

import (
	"minirel/internal/catalog"
	"minirel/internal/ix"
	"minirel/internal/rm"
)

// TableScanExec walks one table's records, either in physical storage
// order (a full rm.Scan) or bounded by an equality predicate on an indexed
// column (an ix.Scan translating index entries back to rm rids). Choosing
// between the two happens in Executor.planScan; TableScanExec itself just
// wraps whichever {Next, IsEnd, Rid} source it's given.
type TableScanExec struct {
	tabName string
	cols    []catalog.ColMeta
	fh      *rm.FileHandle

	rmScan *rm.Scan
	ixScan *ix.Scan

	ixMgr *ix.Manager
	ih    *ix.Handle
}

// NewTableScan returns a full-table scan over fh.
func NewTableScan(tabName string, cols []catalog.ColMeta, fh *rm.FileHandle) *TableScanExec {
	return &TableScanExec{tabName: tabName, cols: cols, fh: fh}
}

// NewIndexScan returns a scan bounded to [lower, upper) of ih, reading the
// matching records from fh. Close releases ih back through ixMgr, so the
// caller must not close ih itself.
func NewIndexScan(tabName string, cols []catalog.ColMeta, fh *rm.FileHandle, ixMgr *ix.Manager, ih *ix.Handle, lower, upper ix.Iid) *TableScanExec {
	return &TableScanExec{tabName: tabName, cols: cols, fh: fh, ixScan: ix.NewScan(ih, lower, upper), ixMgr: ixMgr, ih: ih}
}

func (s *TableScanExec) Cols() []catalog.ColMeta { return s.cols }

func (s *TableScanExec) Open() error {
	if s.ixScan != nil {
		return nil
	}
	rmScan, err := rm.NewScan(s.fh)
	if err != nil {
		return err
	}
	s.rmScan = rmScan
	return nil
}

func (s *TableScanExec) IsEnd() bool {
	if s.ixScan != nil {
		return s.ixScan.IsEnd()
	}
	return s.rmScan.IsEnd()
}

func (s *TableScanExec) Next() error {
	if s.ixScan != nil {
		return s.ixScan.Next()
	}
	return s.rmScan.Next()
}

func (s *TableScanExec) rid() (rm.Rid, error) {
	if s.ixScan != nil {
		return s.ixScan.Rid()
	}
	return s.rmScan.Rid(), nil
}

func (s *TableScanExec) Row() (*Row, error) {
	rid, err := s.rid()
	if err != nil {
		return nil, err
	}
	data, err := s.fh.GetRecord(rid)
	if err != nil {
		return nil, err
	}
	return &Row{
		Cols: s.cols,
		Data: data,
		Rids: map[string]rm.Rid{s.tabName: rid},
	}, nil
}

func (s *TableScanExec) Close() error {
	if s.ih == nil {
		return nil
	}
	return s.ixMgr.CloseIndex(s.ih)
}
