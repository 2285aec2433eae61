package board

import "errors"

// ErrLocked is returned when another process owns the board directory.
var ErrLocked = errors.New("board: directory is locked by another process")
