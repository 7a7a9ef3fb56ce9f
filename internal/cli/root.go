package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/cardroom/internal/config"
	"github.com/mcoot/cardroom/internal/factory"
)

var (
	cfg config.Config
	app *factory.Client
	out *Output
)

// flagValues holds the raw global flags; only flags the user set override the config
type flagValues struct {
	configPath string
	server     string
	store      string
	stateFile  string
	redisURL   string
	output     string
	verbose    bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	defaults := config.Default()
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:   "cardroom",
		Short: "CLI client for the cardroom game server",
		Long: `cardroom keeps an anonymous session with a cardroom game server and
lets you create, join and play in rooms from the terminal.

The session token and the names of players you have seen are kept in the
session store (a state file by default), so later commands reuse them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &loaded, flags)
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			out = NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())

			app, err = factory.NewClient(clientConfig(cfg, newLogger(cfg.Verbose, cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			app.Session.Start(cmd.Context())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApp()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (env: "+config.ConfigPathEnv+")")
	pf.StringVar(&flags.server, "server", defaults.ServerURL, "Server URL (env: CARDROOM_SERVER)")
	pf.StringVar(&flags.store, "store", defaults.Store, "Session store: memory, file, redis (env: CARDROOM_STORE)")
	pf.StringVar(&flags.stateFile, "state-file", "", "State file for the file store (env: CARDROOM_STATE_FILE)")
	pf.StringVar(&flags.redisURL, "redis-url", defaults.RedisURL, "Redis URL for the redis store (env: CARDROOM_REDIS_URL)")
	pf.StringVarP(&flags.output, "output", "o", defaults.Output, "Output format: text, json")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newDrawCmd())
	rootCmd.AddCommand(newEndCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// applyFlags overlays the flags set on the command line
func applyFlags(cmd *cobra.Command, c *config.Config, f flagValues) {
	changed := cmd.Flags().Changed
	if changed("server") {
		c.ServerURL = f.server
	}
	if changed("store") {
		c.Store = f.store
	}
	if changed("state-file") {
		c.StateFile = f.stateFile
	}
	if changed("redis-url") {
		c.RedisURL = f.redisURL
	}
	if changed("output") {
		c.Output = f.output
	}
	if changed("verbose") {
		c.Verbose = f.verbose
	}
}

func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func closeApp() error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

// Execute runs the root command
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		_ = closeApp()
		NewOutput(cfg.Output, os.Stdout, os.Stderr).PrintError(err)
		os.Exit(1)
	}
}
