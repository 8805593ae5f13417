package fetcher

import (
	"context"

	"ratewatcher/internal/offers"
)

// Source is the capability the evaluation engine depends on: one call
// returning the full normalized offer set, ranked ascending by rate. Any
// error means the current pass must be abandoned without touching state.
type Source interface {
	FetchOffers(ctx context.Context) ([]offers.Offer, error)
}
