package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/cardroom/internal/model"
)

func newUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Look up a user's display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.Directory.Lookup(cmd.Context(), model.UserID(args[0]))
			if err != nil {
				return err
			}
			out.Print(userView(user))
			return nil
		},
	}
}
