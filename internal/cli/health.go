package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// healthChecker is implemented by transports that can check the server
type healthChecker interface {
	Health(ctx context.Context) error
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hc, ok := app.Transport.(healthChecker)
			if !ok {
				return errors.New("transport does not support health checks")
			}
			if err := hc.Health(cmd.Context()); err != nil {
				return err
			}

			out.Print(HealthResult{Status: "ok"})
			return nil
		},
	}
}
