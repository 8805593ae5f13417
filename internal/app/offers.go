package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	chart "github.com/wcharczuk/go-chart/v2"

	"ratewatcher/internal/offers"
)

// OffersOptions configure the offers inspection command.
type OffersOptions struct {
	CSVPath string
	PNGPath string
	Limit   int
}

// Offers fetches the live feed once and prints the ranked offer table,
// optionally exporting it as CSV and/or a rate bar chart.
func (a *App) Offers(ctx context.Context, opts OffersOptions) error {
	feed := a.newFeed()
	defer feed.Close()

	ranked, err := feed.FetchOffers(ctx)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Fprintln(os.Stdout, "no offers returned")
		return nil
	}
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	printOffersTable(ranked)

	if opts.CSVPath != "" {
		if err := writeOffersCSV(opts.CSVPath, ranked); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeOffersPNG(opts.PNGPath, ranked); err != nil {
			return err
		}
	}

	return nil
}

func printOffersTable(ranked []offers.Offer) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Rate ($/kWh)\tSupplier\tType\tTerm\tStd\tFees")

	for _, o := range ranked {
		std := ""
		if o.StandardOffer {
			std = "yes"
		}
		fees := strings.Join(o.Fees, "; ")
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.RateDisplay, sanitizeInline(o.Supplier), o.OfferType, o.TermOfOffer, std, sanitizeInline(fees))
	}

	writer.Flush()
}

func writeOffersCSV(path string, ranked []offers.Offer) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"id", "rate", "supplier", "title", "offer_type", "term", "standard_offer", "rec_label", "fees", "provider_url", "enroll_url"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range ranked {
		record := []string{
			o.ID,
			o.RateDisplay,
			o.Supplier,
			o.Title,
			o.OfferType,
			o.TermOfOffer,
			fmt.Sprintf("%t", o.StandardOffer),
			o.RecLabel,
			strings.Join(o.Fees, "; "),
			o.ProviderURL,
			o.EnrollURL,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeOffersPNG(path string, ranked []offers.Offer) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, len(ranked))
	for i, o := range ranked {
		bars[i] = chart.Value{
			Value: o.RateDecimal.InexactFloat64(),
			Label: o.RateDisplay,
		}
	}

	graph := chart.BarChart{
		Title:    "Current supplier offers ($/kWh)",
		Width:    1280,
		Height:   720,
		BarWidth: 24,
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.5f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
