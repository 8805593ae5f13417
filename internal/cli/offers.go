package cli

import (
	"github.com/spf13/cobra"

	"ratewatcher/internal/app"
)

var (
	offersCSV   string
	offersPNG   string
	offersLimit int
)

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Fetch and display the current ranked supplier offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.OffersOptions{
			CSVPath: offersCSV,
			PNGPath: offersPNG,
			Limit:   offersLimit,
		}

		return getApp().Offers(cmd.Context(), opts)
	},
}

func init() {
	offersCmd.Flags().StringVar(&offersCSV, "csv", "", "Write offers to a CSV file")
	offersCmd.Flags().StringVar(&offersPNG, "png", "", "Render offer rates to a PNG bar chart")
	offersCmd.Flags().IntVar(&offersLimit, "limit", 0, "Show only the N cheapest offers (0 = all)")
}
