package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/cardroom/internal/config"
	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/services/session"
)

func newWatchCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "watch <room>",
		Short: "Stream a room's state and notifications",
		Long: `Connect to a room and print every new state snapshot and notification
as it arrives. Watching does not join the room.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return watchRoom(ctx, model.RoomID(args[0]))
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop watching after this long (0 watches until interrupted)")

	return cmd
}

func watchRoom(ctx context.Context, roomID model.RoomID) error {
	changed := make(chan struct{}, 1)
	notes := make(chan model.Notification, 64)

	unsubscribeState := app.Session.Subscribe(func(session.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribeState()

	unsubscribeNotes := app.Notifier.Subscribe(func(n model.Notification) {
		select {
		case notes <- n:
		default:
		}
	})
	defer unsubscribeNotes()

	if err := app.Session.Connect(ctx, roomID); err != nil {
		return err
	}
	defer app.Session.Disconnect()

	if cfg.Output != config.OutputJSON {
		out.PrintMessage("Watching room " + string(roomID) + " (Ctrl+C to stop)")
	}

	lastSeq := int64(-1)
	for {
		select {
		case <-ctx.Done():
			if cfg.Output != config.OutputJSON {
				out.PrintMessage("Disconnected")
			}
			return nil

		case n := <-notes:
			out.PrintLine(NotificationView{Level: string(n.Level), Message: n.Message})

		case <-changed:
			st := app.Session.State()
			if st.ConnectionError != nil {
				return st.ConnectionError
			}
			if st.PlayerState != nil && st.PlayerState.Seq != lastSeq {
				lastSeq = st.PlayerState.Seq
				out.PrintLine(roomView(ctx, st.PlayerState))
			}
		}
	}
}
