package journal

import "errors"

// Engine-level errors. The transport layer translates these into
// user-facing messages; callers test with errors.Is.
var (
	ErrTradeNotFound       = errors.New("trade not found")
	ErrTradeAlreadyClosed  = errors.New("trade is already closed")
	ErrIncompleteTradeData = errors.New("trade is missing the level required for this result")
	ErrInvalidResult       = errors.New("result must be WIN or LOSS")
	ErrInvalidTrade        = errors.New("invalid trade parameters")
	ErrInvalidFilter       = errors.New("unrecognized date filter")
	ErrConfiguration       = errors.New("invalid risk configuration")
)
