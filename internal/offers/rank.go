package offers

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Rank returns the offers sorted ascending by rate. The sort is stable, so
// offers with equal rates keep their feed-arrival order.
func Rank(list []Offer) []Offer {
	ranked := make([]Offer, len(list))
	copy(ranked, list)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RateDecimal.LessThan(ranked[j].RateDecimal)
	})
	return ranked
}

// Best returns the lowest-rate offer of an already ranked list.
func Best(ranked []Offer) (Offer, bool) {
	if len(ranked) == 0 {
		return Offer{}, false
	}
	return ranked[0], true
}

// CheaperThan filters a ranked list to offers strictly below rate, preserving
// order; the first element of the result, if any, is the best cheaper offer.
func CheaperThan(ranked []Offer, rate decimal.Decimal) []Offer {
	var cheaper []Offer
	for _, o := range ranked {
		if o.RateDecimal.LessThan(rate) {
			cheaper = append(cheaper, o)
		}
	}
	return cheaper
}
