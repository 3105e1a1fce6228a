package pf

import "errors"

// Sentinel errors for the filesystem/path error kind. Callers compare with
// errors.Is; the engine never retries I/O, it only reports these upward.
var (
	ErrFileExists     = errors.New("pf: file already exists")
	ErrFileNotFound   = errors.New("pf: file not found")
	ErrFileNotClosed  = errors.New("pf: file is already open")
	ErrFileNotOpen    = errors.New("pf: file is not open")
	ErrInvalidPageNo  = errors.New("pf: page number out of bounds")
)
