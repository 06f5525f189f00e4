package database

import "errors"

// Set of reasons a block or chain is rejected. These are expected outcomes of
// handling untrusted input and are returned wrapped with detail, so use
// errors.Is to check for them.
var (
	ErrBadLinkage       = errors.New("bad linkage")
	ErrBadHash          = errors.New("bad hash")
	ErrInsufficientWork = errors.New("insufficient work")
	ErrBadGenesis       = errors.New("genesis block mismatch")
	ErrNotLonger        = errors.New("chain is not longer")
	ErrInvalid          = errors.New("chain is invalid")
)

// Reason returns a short label for the rejection reason carried by the error.
// ErrInvalid is checked last so a replace failure reports its cause.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotLonger):
		return "not_longer"
	case errors.Is(err, ErrBadGenesis):
		return "bad_genesis"
	case errors.Is(err, ErrBadLinkage):
		return "bad_linkage"
	case errors.Is(err, ErrBadHash):
		return "bad_hash"
	case errors.Is(err, ErrInsufficientWork):
		return "insufficient_work"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	}

	return "other"
}
