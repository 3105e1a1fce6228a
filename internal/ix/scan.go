package ix

import "minirel/internal/rm"

// Scan walks entries in [lower, upper) across the leaf ring, implementing
// the same {next, is_end, rid} capability as rm.Scan.
type Scan struct {
	ih  *Handle
	iid Iid
	end Iid
}

// NewScan returns a scan over [lower, upper).
func NewScan(ih *Handle, lower, upper Iid) *Scan {
	return &Scan{ih: ih, iid: lower, end: upper}
}

// IsEnd reports whether the scan has reached its upper bound.
func (s *Scan) IsEnd() bool {
	return s.iid == s.end
}

// Iid returns the current position.
func (s *Scan) Iid() Iid {
	return s.iid
}

// Rid returns the entry stored at the current position.
func (s *Scan) Rid() (rm.Rid, error) {
	return s.ih.GetRid(s.iid)
}

// Next advances to the next entry, crossing into the next leaf via the
// leaf ring when the current leaf is exhausted.
func (s *Scan) Next() error {
	assertTrue(!s.IsEnd(), "ix scan: next called past end")
	node, err := s.ih.fetchNode(s.iid.PageNo)
	if err != nil {
		return err
	}
	assertTrue(node.Hdr.IsLeaf, "ix scan: position is not on a leaf")
	assertTrue(s.iid.SlotNo < node.Hdr.NumKey, "ix scan: slot beyond node occupancy")

	s.iid.SlotNo++
	if s.iid.PageNo != s.ih.Hdr.LastLeaf && s.iid.SlotNo == node.Hdr.NumKey {
		s.iid.SlotNo = 0
		s.iid.PageNo = node.Hdr.NextLeaf
	}
	return nil
}
