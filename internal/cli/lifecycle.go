package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	ackActor     string
	ackNotes     string
	resolveNotes string
	resolveActor string
)

func parseAlertID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("exactly one alert id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("alert id must be a positive integer")
	}
	return id, nil
}

var ackCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an open alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAlertID(args)
		if err != nil {
			return err
		}
		if ackActor == "" {
			return errors.New("--by is required")
		}
		return getApp().Acknowledge(cmd.Context(), id, ackActor, ackNotes)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Resolve an alert with notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAlertID(args)
		if err != nil {
			return err
		}
		if resolveNotes == "" {
			return errors.New("--notes is required")
		}
		return getApp().Resolve(cmd.Context(), id, resolveNotes, resolveActor)
	},
}

var falsePositiveCmd = &cobra.Command{
	Use:   "false-positive <alert-id>",
	Short: "Dismiss an open alert as a false positive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAlertID(args)
		if err != nil {
			return err
		}
		return getApp().FalsePositive(cmd.Context(), id)
	},
}

func init() {
	ackCmd.Flags().StringVar(&ackActor, "by", "", "Name of the acknowledging operator")
	ackCmd.Flags().StringVar(&ackNotes, "notes", "", "Optional acknowledgement notes")

	resolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "Resolution notes")
	resolveCmd.Flags().StringVar(&resolveActor, "by", "", "Name of the resolving operator")
}
