package ix

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ColType tags the storage form of an indexed column.
type ColType int

const (
	ColInt ColType = iota
	ColFloat
	ColString
)

func (t ColType) String() string {
	switch t {
	case ColInt:
		return "INT"
	case ColFloat:
		return "FLOAT"
	case ColString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Comparator orders two keys in their on-disk byte form, returning <0, 0,
// >0 as a < b, a == b, a > b.
type Comparator func(a, b []byte) int

// NewComparator selects a comparator once per index, per the column's
// type, rather than branching on type for every comparison.
func NewComparator(t ColType, colLen int) Comparator {
	switch t {
	case ColInt:
		return func(a, b []byte) int {
			ia := int32(binary.LittleEndian.Uint32(a))
			ib := int32(binary.LittleEndian.Uint32(b))
			switch {
			case ia < ib:
				return -1
			case ia > ib:
				return 1
			default:
				return 0
			}
		}
	case ColFloat:
		return func(a, b []byte) int {
			fa := math.Float32frombits(binary.LittleEndian.Uint32(a))
			fb := math.Float32frombits(binary.LittleEndian.Uint32(b))
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	case ColString:
		return func(a, b []byte) int {
			return bytes.Compare(a[:colLen], b[:colLen])
		}
	default:
		panic("ix: unexpected column type")
	}
}
