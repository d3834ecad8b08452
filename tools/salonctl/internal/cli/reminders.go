package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/md-rashed-zaman/salonqueue/libs/config"
	"github.com/md-rashed-zaman/salonqueue/libs/internalapi"
	"github.com/spf13/cobra"
)

func NewRemindersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Reminder sweep operations",
	}
	cmd.AddCommand(newRemindersRunCommand(rootOpts))
	return cmd
}

func newRemindersRunCommand(rootOpts *RootOptions) *cobra.Command {
	var bookingURL, token string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send reminders for appointments starting in 23 to 25 hours",
		Long: `Trigger one reminder sweep on booking-service and print the counts.

Appointments already reminded are skipped by the service, so running the
sweep twice in a row is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token or REMINDER_TOKEN is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rootOpts.Timeout)
			defer cancel()

			res, err := internalapi.NewRemindersClient(bookingURL, token, rootOpts.Timeout).Run(ctx)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), rootOpts, res, func(w io.Writer) {
				fmt.Fprintf(w, "total=%d successful=%d failed=%d skipped=%d\n", res.Total, res.Successful, res.Failed, res.Skipped)
				for _, item := range res.Results {
					if item.Status == "failed" {
						fmt.Fprintf(w, "  %s failed: %s\n", item.AppointmentID, item.Error)
					}
				}
			})
		},
	}

	cmd.Flags().StringVar(&bookingURL, "booking-url", config.String("BOOKING_URL", "http://localhost:8083"), "booking-service base url")
	cmd.Flags().StringVar(&token, "token", config.String("REMINDER_TOKEN", ""), "reminder trigger token")
	return cmd
}
