package query

import (
	"minirel/internal/catalog"

	"github.com/pkg/errors"
)

// ProjectExec narrows each row of child down to a chosen column list,
// mirroring original_source's QlNodeProj (itself immutable: begin/next/
// is_end simply delegate to the child, only rec() differs).
type ProjectExec struct {
	child   Exec
	names   []string
	outCols []catalog.ColMeta
}

// NewProject returns child narrowed to names. An empty names means '*':
// every column of child, in child's order.
func NewProject(child Exec, names []string) (*ProjectExec, error) {
	if len(names) == 0 {
		return &ProjectExec{child: child, outCols: child.Cols()}, nil
	}
	outCols := make([]catalog.ColMeta, len(names))
	for i, name := range names {
		found := false
		tab, col := splitQualified(name)
		for _, c := range child.Cols() {
			if c.Name == col && (tab == "" || c.TabName == tab) {
				outCols[i] = c
				found = true
				break
			}
		}
		if !found {
			return nil, errors.WithStack(&catalog.ColumnNotFoundError{Column: name})
		}
	}
	return &ProjectExec{child: child, names: names, outCols: outCols}, nil
}

func (p *ProjectExec) Cols() []catalog.ColMeta { return p.outCols }
func (p *ProjectExec) Open() error             { return p.child.Open() }
func (p *ProjectExec) IsEnd() bool             { return p.child.IsEnd() }
func (p *ProjectExec) Next() error             { return p.child.Next() }
func (p *ProjectExec) Close() error            { return p.child.Close() }

func (p *ProjectExec) Row() (*Row, error) {
	row, err := p.child.Row()
	if err != nil {
		return nil, err
	}
	if len(p.names) == 0 {
		return row, nil
	}
	data := make([]byte, 0, recordSize(p.outCols))
	for _, name := range p.names {
		_, raw, err := row.col(name)
		if err != nil {
			return nil, err
		}
		data = append(data, raw...)
	}
	return &Row{Cols: p.outCols, Data: data, Rids: row.Rids}, nil
}

func recordSize(cols []catalog.ColMeta) int {
	n := 0
	for _, c := range cols {
		n += c.Len
	}
	return n
}
