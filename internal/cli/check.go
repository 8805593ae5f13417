package cli

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one evaluation pass immediately",
	Long: "Fetches the offers feed once, notifies every subscriber with a cheaper " +
		"offer not yet reported, and persists the updated state. Same semantics " +
		"as the scheduled daily pass.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckOnce(cmd.Context())
	},
}
