package deposit

import (
	"context"
	"time"

	"github.com/tokenbay/tokenbay-api/internal/pkg/tron"
)

// ChainProvider is the read-only view of the external blockchain the
// reconciler needs. tron.Client satisfies it in production.
type ChainProvider interface {
	// NowBlock returns the current confirmed block height.
	NowBlock(ctx context.Context) (int64, error)

	// TokenTransfers returns confirmed token transfers to the address since
	// the given time, oldest first.
	TokenTransfers(ctx context.Context, address string, since time.Time) ([]tron.Transfer, error)
}
