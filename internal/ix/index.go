package ix

import (
	"minirel/internal/pf"
	"minirel/internal/rm"
)

// Handle is an open index file: its header, a fetched comparator, and the
// shared PF handle used to reach its pages.
type Handle struct {
	mgr *pf.Manager
	h   *pf.Handle
	Hdr IndexFileHeader
	cmp Comparator
}

func assertTrue(cond bool, msg string) {
	if !cond {
		panic("ix: invariant violated: " + msg)
	}
}

func (ih *Handle) fetchNode(pageNo int) (*NodeHandle, error) {
	assertTrue(pageNo < ih.Hdr.NumPages, "fetch_node: page_no out of range")
	page, err := ih.mgr.FetchPage(ih.h, pageNo)
	if err != nil {
		return nil, err
	}
	return newNodeHandle(ih.mgr, &ih.Hdr, ih.cmp, page), nil
}

func (ih *Handle) createNode() (*NodeHandle, error) {
	var page *pf.Page
	var err error
	if ih.Hdr.FirstFree == NoPage {
		page, err = ih.mgr.CreatePage(ih.h, ih.Hdr.NumPages)
		if err != nil {
			return nil, err
		}
		ih.Hdr.NumPages++
		node := newNodeHandle(ih.mgr, &ih.Hdr, ih.cmp, page)
		node.markDirty()
		return node, nil
	}
	page, err = ih.mgr.FetchPage(ih.h, ih.Hdr.FirstFree)
	if err != nil {
		return nil, err
	}
	node := newNodeHandle(ih.mgr, &ih.Hdr, ih.cmp, page)
	ih.Hdr.FirstFree = node.Hdr.NextFree
	node.markDirty()
	return node, nil
}

// InsertEntry adds (key, rid) to the tree, splitting nodes along the
// insertion path as needed to preserve the btree_order bound.
func (ih *Handle) InsertEntry(key []byte, rid rm.Rid) error {
	iid, err := ih.UpperBound(key)
	if err != nil {
		return err
	}
	node, err := ih.fetchNode(iid.PageNo)
	if err != nil {
		return err
	}
	node.markDirty()
	node.InsertKey(iid.SlotNo, key)
	node.InsertRid(iid.SlotNo, rid)

	if iid.PageNo == ih.Hdr.LastLeaf && iid.SlotNo == node.Hdr.NumKey-1 {
		if err := ih.maintainParent(node); err != nil {
			return err
		}
	}

	for node.Hdr.NumChild > ih.Hdr.BtreeOrder {
		if node.Hdr.Parent == NoPage {
			root, err := ih.createNode()
			if err != nil {
				return err
			}
			root.Hdr = IndexNodeHeader{
				NextFree: NoPage,
				Parent:   NoPage,
				NumKey:   0,
				NumChild: 0,
				IsLeaf:   false,
				PrevLeaf: NoPage,
				NextLeaf: NoPage,
			}
			root.writeHeader()
			root.InsertRid(0, rm.Rid{PageNo: node.page.PageNo(), SlotNo: -1})
			root.InsertKey(0, node.GetKey(node.Hdr.NumKey-1))
			node.Hdr.Parent = root.page.PageNo()
			node.writeHeader()
			ih.Hdr.RootPage = root.page.PageNo()
		}

		bro, err := ih.createNode()
		if err != nil {
			return err
		}
		bro.Hdr = IndexNodeHeader{
			NextFree: NoPage,
			Parent:   node.Hdr.Parent,
			NumKey:   0,
			NumChild: 0,
			IsLeaf:   node.Hdr.IsLeaf,
			PrevLeaf: NoPage,
			NextLeaf: NoPage,
		}
		bro.writeHeader()

		if bro.Hdr.IsLeaf {
			bro.Hdr.NextLeaf = node.Hdr.NextLeaf
			bro.Hdr.PrevLeaf = node.page.PageNo()
			bro.writeHeader()
			next, err := ih.fetchNode(node.Hdr.NextLeaf)
			if err != nil {
				return err
			}
			next.markDirty()
			next.Hdr.PrevLeaf = bro.page.PageNo()
			next.writeHeader()
			node.Hdr.NextLeaf = bro.page.PageNo()
			node.writeHeader()
		}

		splitIdx := node.Hdr.NumChild / 2
		numTransfer := node.Hdr.NumKey - splitIdx
		bro.InsertKeys(0, node.keysFrom(splitIdx), numTransfer)
		bro.InsertRids(0, node.ridsFrom(splitIdx))
		node.Hdr.NumKey = splitIdx
		node.Hdr.NumChild = splitIdx
		node.writeHeader()

		for childIdx := 0; childIdx < bro.Hdr.NumChild; childIdx++ {
			if err := ih.maintainChild(bro, childIdx); err != nil {
				return err
			}
		}

		popupKey := append([]byte(nil), node.GetKey(splitIdx-1)...)
		parent, err := ih.fetchNode(node.Hdr.Parent)
		if err != nil {
			return err
		}
		parent.markDirty()
		childIdx := parent.FindChild(node)
		parent.InsertKey(childIdx, popupKey)
		parent.InsertRid(childIdx+1, rm.Rid{PageNo: bro.page.PageNo(), SlotNo: -1})

		if ih.Hdr.LastLeaf == node.page.PageNo() {
			ih.Hdr.LastLeaf = bro.page.PageNo()
		}
		node = parent
	}
	return nil
}

// DeleteEntry removes the (key, rid) pair, merging or borrowing from
// siblings along the path to fix any underflow.
func (ih *Handle) DeleteEntry(key []byte, rid rm.Rid) error {
	lower, err := ih.LowerBound(key)
	if err != nil {
		return err
	}
	upper, err := ih.UpperBound(key)
	if err != nil {
		return err
	}

	scan := &Scan{ih: ih, iid: lower, end: upper}
	for !scan.IsEnd() {
		node, err := ih.fetchNode(scan.iid.PageNo)
		if err != nil {
			return err
		}
		assertTrue(node.Hdr.IsLeaf, "delete_entry: scan landed on an inner node")
		curr := node.GetRid(scan.iid.SlotNo)
		if curr != rid {
			if err := scan.Next(); err != nil {
				return err
			}
			continue
		}

		node.markDirty()
		node.EraseKey(scan.iid.SlotNo)
		node.EraseRid(scan.iid.SlotNo)
		if err := ih.maintainParent(node); err != nil {
			return err
		}

		for node.Hdr.NumChild < (ih.Hdr.BtreeOrder+1)/2 {
			if node.Hdr.Parent == NoPage {
				if !node.Hdr.IsLeaf && node.Hdr.NumKey <= 1 {
					newRootPage := node.GetRid(0).PageNo
					newRoot, err := ih.fetchNode(newRootPage)
					if err != nil {
						return err
					}
					newRoot.markDirty()
					newRoot.Hdr.Parent = NoPage
					newRoot.writeHeader()
					ih.Hdr.RootPage = newRootPage
					ih.releaseNode(node)
				}
				return nil
			}

			parent, err := ih.fetchNode(node.Hdr.Parent)
			if err != nil {
				return err
			}
			parent.markDirty()
			childIdx := parent.FindChild(node)

			if childIdx > 0 {
				bro, err := ih.fetchNode(parent.GetRid(childIdx - 1).PageNo)
				if err != nil {
					return err
				}
				if bro.Hdr.NumChild > (ih.Hdr.BtreeOrder+1)/2 {
					bro.markDirty()
					node.InsertKey(0, bro.GetKey(bro.Hdr.NumKey-1))
					node.InsertRid(0, bro.GetRid(bro.Hdr.NumChild-1))
					bro.EraseKey(bro.Hdr.NumKey - 1)
					bro.EraseRid(bro.Hdr.NumChild - 1)
					if err := ih.maintainParent(bro); err != nil {
						return err
					}
					if err := ih.maintainChild(node, 0); err != nil {
						return err
					}
					return nil
				}
			}
			if childIdx+1 < parent.Hdr.NumChild {
				bro, err := ih.fetchNode(parent.GetRid(childIdx + 1).PageNo)
				if err != nil {
					return err
				}
				if bro.Hdr.NumChild > (ih.Hdr.BtreeOrder+1)/2 {
					bro.markDirty()
					node.InsertKey(node.Hdr.NumKey, bro.GetKey(0))
					node.InsertRid(node.Hdr.NumChild, bro.GetRid(0))
					bro.EraseKey(0)
					bro.EraseRid(0)
					if err := ih.maintainParent(node); err != nil {
						return err
					}
					if err := ih.maintainChild(node, node.Hdr.NumChild-1); err != nil {
						return err
					}
					return nil
				}
			}

			if childIdx > 0 {
				bro, err := ih.fetchNode(parent.GetRid(childIdx - 1).PageNo)
				if err != nil {
					return err
				}
				bro.markDirty()
				bro.InsertKeys(bro.Hdr.NumKey, node.keysFrom(0), node.Hdr.NumKey)
				bro.InsertRids(bro.Hdr.NumChild, node.ridsFrom(0))
				for i := bro.Hdr.NumChild - node.Hdr.NumChild; i < bro.Hdr.NumChild; i++ {
					if err := ih.maintainChild(bro, i); err != nil {
						return err
					}
				}
				parent.EraseKey(childIdx)
				parent.EraseRid(childIdx)
				if err := ih.maintainParent(bro); err != nil {
					return err
				}
				if node.Hdr.IsLeaf {
					if err := ih.eraseLeaf(node); err != nil {
						return err
					}
				}
				if ih.Hdr.LastLeaf == node.page.PageNo() {
					ih.Hdr.LastLeaf = bro.page.PageNo()
				}
				ih.releaseNode(node)
			} else {
				assertTrue(childIdx+1 < parent.Hdr.NumChild, "delete_entry: no sibling to merge with")
				bro, err := ih.fetchNode(parent.GetRid(childIdx + 1).PageNo)
				if err != nil {
					return err
				}
				bro.markDirty()
				node.InsertRids(node.Hdr.NumChild, bro.ridsFrom(0))
				node.InsertKeys(node.Hdr.NumKey, bro.keysFrom(0), bro.Hdr.NumKey)
				for i := node.Hdr.NumChild - bro.Hdr.NumChild; i < node.Hdr.NumChild; i++ {
					if err := ih.maintainChild(node, i); err != nil {
						return err
					}
				}
				parent.EraseRid(childIdx + 1)
				parent.EraseKey(childIdx)
				if err := ih.maintainParent(node); err != nil {
					return err
				}
				if bro.Hdr.IsLeaf {
					if err := ih.eraseLeaf(bro); err != nil {
						return err
					}
				}
				if ih.Hdr.LastLeaf == bro.page.PageNo() {
					ih.Hdr.LastLeaf = node.page.PageNo()
				}
				ih.releaseNode(bro)
			}
			node = parent
		}
		return nil
	}
	return ErrIndexEntryNotFound
}

// GetRid returns the rid stored at iid.
func (ih *Handle) GetRid(iid Iid) (rm.Rid, error) {
	node, err := ih.fetchNode(iid.PageNo)
	if err != nil {
		return rm.Rid{}, err
	}
	if iid.SlotNo >= node.Hdr.NumChild {
		return rm.Rid{}, ErrIndexEntryNotFound
	}
	return node.GetRid(iid.SlotNo), nil
}

// LowerBound returns the iid of the first entry whose key >= key.
func (ih *Handle) LowerBound(key []byte) (Iid, error) {
	node, err := ih.fetchNode(ih.Hdr.RootPage)
	if err != nil {
		return Iid{}, err
	}
	for !node.Hdr.IsLeaf {
		idx := node.LowerBound(key)
		if idx >= node.Hdr.NumKey {
			return ih.LeafEnd()
		}
		node, err = ih.fetchNode(node.GetRid(idx).PageNo)
		if err != nil {
			return Iid{}, err
		}
	}
	idx := node.LowerBound(key)
	return Iid{PageNo: node.page.PageNo(), SlotNo: idx}, nil
}

// UpperBound returns the iid of the first entry whose key > key.
func (ih *Handle) UpperBound(key []byte) (Iid, error) {
	node, err := ih.fetchNode(ih.Hdr.RootPage)
	if err != nil {
		return Iid{}, err
	}
	for !node.Hdr.IsLeaf {
		idx := node.UpperBound(key)
		if idx >= node.Hdr.NumKey {
			return ih.LeafEnd()
		}
		node, err = ih.fetchNode(node.GetRid(idx).PageNo)
		if err != nil {
			return Iid{}, err
		}
	}
	idx := node.UpperBound(key)
	return Iid{PageNo: node.page.PageNo(), SlotNo: idx}, nil
}

// LeafEnd is the iid one past the last entry of the last leaf.
func (ih *Handle) LeafEnd() (Iid, error) {
	node, err := ih.fetchNode(ih.Hdr.LastLeaf)
	if err != nil {
		return Iid{}, err
	}
	return Iid{PageNo: ih.Hdr.LastLeaf, SlotNo: node.Hdr.NumKey}, nil
}

// LeafBegin is the iid of the first entry of the first leaf.
func (ih *Handle) LeafBegin() Iid {
	return Iid{PageNo: ih.Hdr.FirstLeaf, SlotNo: 0}
}

func (ih *Handle) maintainParent(node *NodeHandle) error {
	curr := node
	for curr.Hdr.Parent != NoPage {
		parent, err := ih.fetchNode(curr.Hdr.Parent)
		if err != nil {
			return err
		}
		rank := parent.FindChild(curr)
		parentKey := parent.GetKey(rank)
		childMaxKey := curr.GetKey(curr.Hdr.NumKey - 1)
		if ih.cmp(parentKey, childMaxKey) == 0 {
			break
		}
		parent.markDirty()
		copy(parentKey, childMaxKey)
		curr = parent
	}
	return nil
}

func (ih *Handle) eraseLeaf(leaf *NodeHandle) error {
	assertTrue(leaf.Hdr.IsLeaf, "erase_leaf: node is not a leaf")
	prev, err := ih.fetchNode(leaf.Hdr.PrevLeaf)
	if err != nil {
		return err
	}
	prev.markDirty()
	prev.Hdr.NextLeaf = leaf.Hdr.NextLeaf
	prev.writeHeader()

	next, err := ih.fetchNode(leaf.Hdr.NextLeaf)
	if err != nil {
		return err
	}
	next.markDirty()
	next.Hdr.PrevLeaf = leaf.Hdr.PrevLeaf
	next.writeHeader()
	return nil
}

func (ih *Handle) releaseNode(node *NodeHandle) {
	node.Hdr.NextFree = ih.Hdr.FirstFree
	node.writeHeader()
	ih.Hdr.FirstFree = node.page.PageNo()
}

func (ih *Handle) maintainChild(node *NodeHandle, childIdx int) error {
	if node.Hdr.IsLeaf {
		return nil
	}
	childPageNo := node.GetRid(childIdx).PageNo
	child, err := ih.fetchNode(childPageNo)
	if err != nil {
		return err
	}
	child.markDirty()
	child.Hdr.Parent = node.page.PageNo()
	child.writeHeader()
	return nil
}
