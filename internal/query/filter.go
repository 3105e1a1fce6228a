package query

import (
	"minirel/internal/catalog"
	"minirel/internal/sql"

	"github.com/pkg/errors"
)

// FilterExec wraps a child Exec, advancing past rows that fail any of its
// conjunction of conditions. Ported from original_source's
// QlNodeTable::eval_conds, generalized to run over any child's Row rather
// than only a single table scan's.
type FilterExec struct {
	child Exec
	conds []sql.Cond
}

// NewFilter returns child filtered by conds (a conjunction; empty means no
// filtering).
func NewFilter(child Exec, conds []sql.Cond) *FilterExec {
	return &FilterExec{child: child, conds: conds}
}

func (f *FilterExec) Cols() []catalog.ColMeta { return f.child.Cols() }

func (f *FilterExec) Open() error {
	if err := f.child.Open(); err != nil {
		return err
	}
	return f.skipToMatch()
}

func (f *FilterExec) IsEnd() bool { return f.child.IsEnd() }

func (f *FilterExec) Next() error {
	if err := f.child.Next(); err != nil {
		return err
	}
	return f.skipToMatch()
}

func (f *FilterExec) skipToMatch() error {
	for !f.child.IsEnd() {
		row, err := f.child.Row()
		if err != nil {
			return err
		}
		ok, err := evalConds(row, f.conds)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := f.child.Next(); err != nil {
			return err
		}
	}
	return nil
}

func (f *FilterExec) Row() (*Row, error) { return f.child.Row() }

func (f *FilterExec) Close() error { return f.child.Close() }

// evalConds reports whether row satisfies every cond (AND semantics).
func evalConds(row *Row, conds []sql.Cond) (bool, error) {
	for _, c := range conds {
		ok, err := evalCond(row, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalCond(row *Row, c sql.Cond) (bool, error) {
	lhs, err := row.Get(c.Col)
	if err != nil {
		return false, err
	}
	var rhs interface{}
	if c.IsCol {
		rhs, err = row.Get(c.RhsCol)
		if err != nil {
			return false, err
		}
	} else {
		rhs = literalAs(lhs, c.Rhs)
	}
	cmp := compareValues(lhs, rhs)
	switch c.Op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, errors.Errorf("query: unsupported comparison operator %q", c.Op)
	}
}

// literalAs coerces a parsed literal to the same dynamic type as lhs, so
// compareValues's type switch applies whether the column is int or float.
func literalAs(lhs interface{}, v sql.Value) interface{} {
	switch lhs.(type) {
	case int32:
		return int32(v.Int)
	case float32:
		if v.Kind == "int" {
			return float32(v.Int)
		}
		return float32(v.Float)
	default:
		return v.Str
	}
}
