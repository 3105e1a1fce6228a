package rm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecordSize is returned by CreateFile for a size outside
	// (0, MaxRecordSize].
	ErrInvalidRecordSize = errors.New("rm: invalid record size")
)

// RecordNotFoundError reports a Rid whose bitmap bit is clear.
type RecordNotFoundError struct {
	PageNo, SlotNo int
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("rm: record not found at (page %d, slot %d)", e.PageNo, e.SlotNo)
}
