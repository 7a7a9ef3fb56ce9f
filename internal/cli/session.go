package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/cardroom/internal/model"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Start a new anonymous session",
		Long: `Ask the server for a new anonymous session and remember its token.
Any previous session is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := app.Session.Login(cmd.Context())
			if err != nil {
				return err
			}

			user := app.Session.State().User
			out.Print(LoginResult{
				User:  userView(*user),
				Token: string(token),
			})
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Session.Logout(cmd.Context())
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := app.Session.State()
			if !state.LoggedIn() {
				return model.ErrNotLoggedIn
			}
			out.Print(userView(*state.User))
			return nil
		},
	}
}

func userView(u model.User) UserView {
	return UserView{ID: string(u.ID), DisplayName: u.DisplayName}
}
