package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ratewatcher/internal/offers"
	"ratewatcher/internal/rates"
)

// FormatOfferBlock renders one offer as the multi-line detail block used in
// notifications and on-demand check replies.
func FormatOfferBlock(o offers.Offer) string {
	fees := "N/A"
	if len(o.Fees) > 0 {
		fees = strings.Join(o.Fees, ", ")
	}

	var links []string
	if o.ProviderURL != "" {
		links = append(links, "EnergizeCT: "+o.ProviderURL)
	}
	if o.EnrollURL != "" {
		links = append(links, "Enroll: "+o.EnrollURL)
	}
	linkText := "Link: N/A"
	if len(links) > 0 {
		linkText = strings.Join(links, "\n")
	}

	rec := ""
	if o.RecLabel != "" {
		rec = " • " + o.RecLabel
	}
	std := ""
	if o.StandardOffer {
		std = " (Standard Offer)"
	}

	return fmt.Sprintf(
		"%s%s\n- Rate: %s $/kWh\n- Type: %s\n- Term: %s%s\n- Fees: %s\n%s",
		o.Supplier, std, o.RateDisplay, o.OfferType, o.TermOfOffer, rec, fees, linkText,
	)
}

// renderAlert builds the daily notification text: headline, savings estimate
// for the best offer, its detail block, and up to MaxCheaperOffers-1 runner-up
// options. cheaper must be non-empty and ranked ascending.
func (e *Engine) renderAlert(userRate decimal.Decimal, cheaper []offers.Offer) string {
	best := cheaper[0]
	savings := rates.MonthlySavings(userRate, best.RateDecimal, e.opts.MonthlyUsageKWh)

	lines := []string{
		"⚡ Cheaper electricity rate found",
		fmt.Sprintf("Your rate: %s $/kWh", rates.Display(userRate)),
		fmt.Sprintf("Best offer: %s $/kWh (save ~$%s / month @ %d kWh)",
			best.RateDisplay, savings.StringFixed(2), e.opts.MonthlyUsageKWh),
		"",
		FormatOfferBlock(best),
	}

	top := cheaper
	if len(top) > e.opts.MaxCheaperOffers {
		top = top[:e.opts.MaxCheaperOffers]
	}
	if len(top) > 1 {
		lines = append(lines, "", "Other cheaper options:")
		for _, o := range top[1:] {
			lines = append(lines, fmt.Sprintf("- %s: %s $/kWh • %s", o.Supplier, o.RateDisplay, o.TermOfOffer))
		}
	}

	return strings.Join(lines, "\n")
}
