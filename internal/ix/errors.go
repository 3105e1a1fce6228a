package ix

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexEntryNotFound is returned when DeleteEntry or GetRid cannot
	// locate the requested key/rid pair.
	ErrIndexEntryNotFound = errors.New("ix: index entry not found")
)

// InvalidColLengthError reports a column width exceeding MaxColLen.
type InvalidColLengthError struct {
	ColLen int
}

func (e *InvalidColLengthError) Error() string {
	return fmt.Sprintf("ix: invalid column length %d", e.ColLen)
}
