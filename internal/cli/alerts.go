package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"oddsguard/internal/app"
)

var (
	alertsSeverity string
	alertsLimit    int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List open and acknowledged alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.AlertsOptions{
			Severity: alertsSeverity,
			Limit:    alertsLimit,
		}

		return getApp().Alerts(cmd.Context(), opts)
	},
}

func init() {
	alertsCmd.Flags().StringVar(&alertsSeverity, "severity", "", "Filter by severity (critical, warning, info)")
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Number of alerts to display")
}
