package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type HealthResult struct {
	Addr    string `json:"addr"`
	Service string `json:"service"`
	Status  string `json:"status"`
}

func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "health <addr>",
		Short: "Check a service's gRPC health endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), rootOpts.Timeout)
			defer cancel()

			conn, err := grpcx.Dial(ctx, args[0], grpcx.DialOptions{})
			if err != nil {
				return fmt.Errorf("dial %s: %w", args[0], err)
			}
			defer conn.Close()

			status, err := grpcx.Check(ctx, conn, service)
			if err != nil {
				return err
			}
			res := HealthResult{Addr: args[0], Service: service, Status: status.String()}
			if err := output(cmd.OutOrStdout(), rootOpts, res, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", args[0], res.Status)
			}); err != nil {
				return err
			}
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", args[0], res.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "service name to check (empty checks the server as a whole)")
	return cmd
}
