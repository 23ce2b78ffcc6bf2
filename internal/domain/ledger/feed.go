package ledger

import (
	"context"
	"errors"
)

// Feed-level errors. The infrastructure client wraps these with a specific
// operator hint (login page, HTML error page, malformed JSON) so a failed
// pull can be diagnosed without reading the wire capture.
var (
	ErrFeedUnreachable   = errors.New("ledger feed: upstream unreachable")
	ErrFeedInvalidFormat = errors.New("ledger feed: response is not the expected JSON array")
)

// Feed pulls the raw payment objects from the third-party ledger. A failed
// fetch returns an error and no items; the caller merges nothing in that
// case, so the local ledger is never half-updated by a broken pull.
type Feed interface {
	// FetchPayments retrieves the current batch of loosely-typed payment
	// objects from the upstream ledger
	FetchPayments(ctx context.Context) ([]map[string]any, error)
}
