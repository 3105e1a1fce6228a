package query

import (
	"encoding/binary"
	"math"
	"strings"

	"minirel/internal/catalog"
	"minirel/internal/ix"
	"minirel/internal/rm"
	"minirel/internal/sql"

	"github.com/pkg/errors"
)

// Row is one tuple flowing through the executor tree: a flat column
// descriptor list plus the concatenated bytes of those columns (laid out
// contiguously, regardless of the columns' original table offsets, so a
// joined or projected row packs just as tightly as a table-scan row), and
// the per-source-table rid each tuple was read from (so Executor's DELETE
// and UPDATE handlers can address the physical record after a WHERE filter).
type Row struct {
	Cols []catalog.ColMeta
	Data []byte
	Rids map[string]rm.Rid
}

// col returns the column descriptor and byte range for name, resolved
// against either "col" or "table.col".
func (r *Row) col(name string) (catalog.ColMeta, []byte, error) {
	offset := 0
	tab, col := splitQualified(name)
	for _, c := range r.Cols {
		if c.Name == col && (tab == "" || c.TabName == tab) {
			return c, r.Data[offset : offset+c.Len], nil
		}
		offset += c.Len
	}
	return catalog.ColMeta{}, nil, errors.WithStack(&catalog.ColumnNotFoundError{Column: name})
}

func splitQualified(name string) (tab, col string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// Get decodes name's value as a Go-native int32/float32/string.
func (r *Row) Get(name string) (interface{}, error) {
	col, raw, err := r.col(name)
	if err != nil {
		return nil, err
	}
	return decodeValue(col, raw), nil
}

func decodeValue(col catalog.ColMeta, raw []byte) interface{} {
	switch col.Type {
	case ix.ColInt:
		return int32(binary.LittleEndian.Uint32(raw))
	case ix.ColFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw))
	default:
		return strings.TrimRight(string(raw), "\x00")
	}
}

// encodeValue serializes a parsed literal into col's fixed-width on-disk
// representation.
func encodeValue(col catalog.ColMeta, v sql.Value) ([]byte, error) {
	buf := make([]byte, col.Len)
	switch col.Type {
	case ix.ColInt:
		if v.Kind != "int" {
			return nil, errors.Errorf("catalog: column %s expects an integer, got %s", col.Name, v.Kind)
		}
		binary.LittleEndian.PutUint32(buf, uint32(int32(v.Int)))
	case ix.ColFloat:
		var f float32
		switch v.Kind {
		case "float":
			f = float32(v.Float)
		case "int":
			f = float32(v.Int)
		default:
			return nil, errors.Errorf("catalog: column %s expects a number, got %s", col.Name, v.Kind)
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
	default:
		if v.Kind != "string" {
			return nil, errors.Errorf("catalog: column %s expects a string, got %s", col.Name, v.Kind)
		}
		if len(v.Str) > col.Len {
			return nil, errors.Errorf("catalog: value for column %s exceeds its length %d", col.Name, col.Len)
		}
		copy(buf, v.Str)
	}
	return buf, nil
}

// compareValues orders a and b, which must have come from decodeValue on
// columns of the same type.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case int32:
		bv := b.(int32)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float32:
		bv := b.(float32)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(a.(string), b.(string))
	}
}
