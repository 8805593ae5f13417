package offers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"ratewatcher/internal/rates"
)

// Placeholders for records that arrive without naming fields.
const (
	fallbackSupplier = "Unknown Supplier"
	fallbackTitle    = "Offer"
	fallbackType     = "Unknown"
	fallbackTerm     = "Unknown term"
)

// Offer is one normalized supplier plan. Offers are derived fresh on every
// fetch and never persisted; ID is the provider-assigned identity used for
// notification de-duplication.
type Offer struct {
	ID            string
	Supplier      string
	Title         string
	OfferType     string
	TermOfOffer   string
	Fees          []string
	RecLabel      string
	StandardOffer bool
	RateDecimal   decimal.Decimal
	RateDisplay   string
	ProviderURL   string
	EnrollURL     string
}

// Document mirrors the marketplace search response. Either array may be
// absent or empty.
type Document struct {
	Results        []Record `json:"results"`
	CompareResults []Record `json:"compareResults"`
}

// Record is a single raw feed entry. The feed is loosely typed: id may be a
// number or a string, and the rate arrives either as the string "rate" or the
// numeric "blendedRate".
type Record struct {
	ID            any        `json:"id"`
	Supplier      string     `json:"supplier"`
	Title         string     `json:"title"`
	OfferType     string     `json:"offerType"`
	TermOfOffer   string     `json:"termOfOffer"`
	Fees          []string   `json:"fees"`
	RecLabel      string     `json:"recLabel"`
	StandardOffer bool       `json:"standardOffer"`
	Rate          any        `json:"rate"`
	BlendedRate   any        `json:"blendedRate"`
	ContentURL    string     `json:"contentUrl"`
	OfferLink     *OfferLink `json:"offerLink"`
}

// OfferLink carries the enrollment link object.
type OfferLink struct {
	URI string `json:"uri"`
}

// DecodeDocument parses a feed payload. Numbers are kept as json.Number so
// blendedRate values survive with full precision.
func DecodeDocument(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode feed document: %w", err)
	}
	return doc, nil
}

// Records concatenates results and compareResults, preserving feed order.
func (d Document) Records() []Record {
	merged := make([]Record, 0, len(d.Results)+len(d.CompareResults))
	merged = append(merged, d.Results...)
	merged = append(merged, d.CompareResults...)
	return merged
}

// Normalize converts raw feed records into canonical offers, silently
// dropping any record without a parseable rate in [0, 1). origin is the
// marketplace base used to absolutize relative content paths.
func Normalize(records []Record, origin string) []Offer {
	out := make([]Offer, 0, len(records))
	for _, r := range records {
		raw := r.Rate
		if raw == nil {
			raw = r.BlendedRate
		}
		rate, ok := rates.ParseOfferRate(raw)
		if !ok {
			continue
		}

		offer := Offer{
			ID:            stringifyID(r.ID),
			Supplier:      firstNonEmpty(r.Supplier, r.Title, fallbackSupplier),
			Title:         firstNonEmpty(r.Title, r.Supplier, fallbackTitle),
			OfferType:     firstNonEmpty(r.OfferType, fallbackType),
			TermOfOffer:   firstNonEmpty(r.TermOfOffer, fallbackTerm),
			Fees:          r.Fees,
			RecLabel:      r.RecLabel,
			StandardOffer: r.StandardOffer,
			RateDecimal:   rate,
			RateDisplay:   rates.Display(rate),
		}
		if offer.Fees == nil {
			offer.Fees = []string{}
		}
		if strings.HasPrefix(r.ContentURL, "/") {
			offer.ProviderURL = origin + r.ContentURL
		}
		if r.OfferLink != nil {
			offer.EnrollURL = r.OfferLink.URI
		}

		out = append(out, offer)
	}
	return out
}

func stringifyID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
