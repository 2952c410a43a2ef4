package search

import "errors"

var (
	ErrNoMoves         = errors.New("no legal moves")
	ErrUnsetPlayer     = errors.New("move has no player")
	ErrDigestMismatch  = errors.New("board changed by make/unmake")
	ErrDuplicateDigest = errors.New("different moves produced the same digest")
	ErrSearchAborted   = errors.New("search aborted")
)
