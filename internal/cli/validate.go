package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"oddsguard/internal/app"
)

var (
	validateTicker     string
	validateAwayName   string
	validateAwayPrice  float64
	validateAwayRecord string
	validateHomeName   string
	validateHomePrice  float64
	validateHomeRecord string
	validateUpdatedAt  string
	validateProcess    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the rule catalog against a single quote",
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateAwayPrice <= 0 || validateHomePrice <= 0 {
			return errors.New("--away-price and --home-price must be greater than 0")
		}

		opts := app.ValidateOptions{
			Ticker:     validateTicker,
			AwayName:   validateAwayName,
			AwayPrice:  validateAwayPrice,
			AwayRecord: validateAwayRecord,
			HomeName:   validateHomeName,
			HomePrice:  validateHomePrice,
			HomeRecord: validateHomeRecord,
			Process:    validateProcess,
		}

		if validateUpdatedAt != "" {
			updated, err := time.Parse(time.RFC3339, validateUpdatedAt)
			if err != nil {
				return fmt.Errorf("invalid --last-updated value: %w", err)
			}
			opts.LastUpdated = &updated
		}

		return getApp().Validate(cmd.Context(), opts)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateTicker, "ticker", "", "Market ticker")
	validateCmd.Flags().StringVar(&validateAwayName, "away-name", "Away", "Away side name")
	validateCmd.Flags().Float64Var(&validateAwayPrice, "away-price", 0, "Away side price (implied probability)")
	validateCmd.Flags().StringVar(&validateAwayRecord, "away-record", "", "Away side record, e.g. 9-1")
	validateCmd.Flags().StringVar(&validateHomeName, "home-name", "Home", "Home side name")
	validateCmd.Flags().Float64Var(&validateHomePrice, "home-price", 0, "Home side price (implied probability)")
	validateCmd.Flags().StringVar(&validateHomeRecord, "home-record", "", "Home side record, e.g. 3-7")
	validateCmd.Flags().StringVar(&validateUpdatedAt, "last-updated", "", "Quote timestamp (RFC3339)")
	validateCmd.Flags().BoolVar(&validateProcess, "process", false, "Feed failing outcomes through the alert pipeline")
}
