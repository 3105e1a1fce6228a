package query

import (
	"minirel/internal/catalog"
	"minirel/internal/rm"
)

// JoinExec is a nested-loop inner join: for each left row it replays right
// from the start and yields every right row, then advances left. Ported
// from original_source's QlNodeJoin, which drives the same left/right
// cross product (feed/feed_right there propagate outer bindings into the
// inner WHERE evaluation; here the executor simply materializes the cross
// product and lets an enclosing FilterExec apply the join predicate).
type JoinExec struct {
	left, right Exec
	cols        []catalog.ColMeta
	leftRow     *Row
}

// NewJoin returns the cross product of left and right.
func NewJoin(left, right Exec) *JoinExec {
	cols := append(append([]catalog.ColMeta{}, left.Cols()...), right.Cols()...)
	return &JoinExec{left: left, right: right, cols: cols}
}

func (j *JoinExec) Cols() []catalog.ColMeta { return j.cols }

func (j *JoinExec) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if j.left.IsEnd() {
		return nil
	}
	row, err := j.left.Row()
	if err != nil {
		return err
	}
	j.leftRow = row
	return j.right.Open()
}

func (j *JoinExec) IsEnd() bool {
	return j.left.IsEnd()
}

func (j *JoinExec) Next() error {
	if err := j.right.Next(); err != nil {
		return err
	}
	if !j.right.IsEnd() {
		return nil
	}
	if err := j.left.Next(); err != nil {
		return err
	}
	if j.left.IsEnd() {
		return nil
	}
	row, err := j.left.Row()
	if err != nil {
		return err
	}
	j.leftRow = row
	if err := j.right.Close(); err != nil {
		return err
	}
	return j.right.Open()
}

func (j *JoinExec) Row() (*Row, error) {
	rightRow, err := j.right.Row()
	if err != nil {
		return nil, err
	}
	cols := append(append([]catalog.ColMeta{}, j.leftRow.Cols...), rightRow.Cols...)
	data := append(append([]byte{}, j.leftRow.Data...), rightRow.Data...)
	return &Row{Cols: cols, Data: data, Rids: mergeRids(j.leftRow.Rids, rightRow.Rids)}, nil
}

func mergeRids(a, b map[string]rm.Rid) map[string]rm.Rid {
	out := make(map[string]rm.Rid, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (j *JoinExec) Close() error {
	if err := j.right.Close(); err != nil {
		return err
	}
	return j.left.Close()
}
