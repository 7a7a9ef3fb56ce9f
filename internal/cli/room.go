package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/cardroom/internal/model"
	"github.com/mcoot/cardroom/internal/services/session"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a room with the default settings",
		Long:  `Create a room, logging in first if there is no session yet. Join it with "cardroom join".`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := app.Session.CreateGame(cmd.Context())
			if err != nil {
				return err
			}
			out.Print(RoomResult{RoomID: string(roomID)})
			return nil
		},
	}
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <room>",
		Short: "Join a room and show its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := roomContext(cmd)
			defer cancel()

			result, err := app.Session.JoinGame(ctx, model.RoomID(args[0]))
			if err != nil {
				return err
			}
			if !result.OK {
				return actionFailed(model.ActionJoin, result)
			}

			st, err := waitFor(ctx, app.Session, func(st session.State) bool {
				return st.PlayerState != nil && st.User != nil && st.PlayerState.HasPlayer(st.User.ID)
			})
			if err != nil {
				return err
			}
			out.Print(roomView(ctx, st.PlayerState))
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return newActionCmd("start <room>", "Deal the cards and start the game", model.ActionStartGame,
		func(ctx context.Context) model.Result { return app.Session.StartGame(ctx) })
}

func newDrawCmd() *cobra.Command {
	return newActionCmd("draw <room>", "Draw a card and end your turn", model.ActionDrawCard,
		func(ctx context.Context) model.Result { return app.Session.DrawCard(ctx) })
}

func newEndCmd() *cobra.Command {
	return newActionCmd("end <room>", "End the game", model.ActionEndGame,
		func(ctx context.Context) model.Result { return app.Session.EndGame(ctx) })
}

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <room> <suit> <rank>",
		Short: "Play a card from your hand",
		Long: `Play a card from your hand. Suits are S, H, D, C and ranks A, 2-10, J, Q, K.

Example:
  cardroom play ROOM01 H 10`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := parseCard(args[1], args[2])
			if err != nil {
				return err
			}
			return runAction(cmd, model.RoomID(args[0]), model.ActionPlayCard, func(ctx context.Context) model.Result {
				return app.Session.PlayCard(ctx, card)
			})
		},
	}
}

func newActionCmd(use, short string, name model.ActionName, act func(context.Context) model.Result) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, model.RoomID(args[0]), name, act)
		},
	}
}

// runAction connects to a room, waits for its state and dispatches one action
func runAction(cmd *cobra.Command, roomID model.RoomID, name model.ActionName, act func(context.Context) model.Result) error {
	if !app.Session.State().LoggedIn() {
		return fmt.Errorf("%w: run \"cardroom login\" or \"cardroom join\" first", model.ErrNotLoggedIn)
	}

	ctx, cancel := roomContext(cmd)
	defer cancel()

	if err := app.Session.Connect(ctx, roomID); err != nil {
		return err
	}
	if _, err := waitFor(ctx, app.Session, func(st session.State) bool {
		return st.PlayerState != nil
	}); err != nil {
		return err
	}

	result := act(ctx)
	out.Print(ActionResult{Action: string(name), OK: result.OK, Message: result.Message})
	if !result.OK {
		return actionFailed(name, result)
	}
	return nil
}

func actionFailed(name model.ActionName, result model.Result) error {
	return fmt.Errorf("%s rejected: %s", name, result.Message)
}

// roomContext bounds a connect plus one action
func roomContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.DialTimeout+cfg.ActionTimeout)
}

// waitFor blocks until cond holds for the session state, the connection fails or ctx ends
func waitFor(ctx context.Context, sess *session.Controller, cond func(session.State) bool) (session.State, error) {
	changed := make(chan struct{}, 1)
	unsubscribe := sess.Subscribe(func(session.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		st := sess.State()
		if cond(st) {
			return st, nil
		}
		if st.ConnectionError != nil {
			return st, st.ConnectionError
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return st, fmt.Errorf("waiting for room state: %w", ctx.Err())
		}
	}
}

func parseCard(suit, rank string) (model.Card, error) {
	card := model.Card{Suit: strings.ToUpper(suit), Rank: strings.ToUpper(rank)}
	for _, s := range model.Suits {
		if s != card.Suit {
			continue
		}
		for _, r := range model.Ranks {
			if r == card.Rank {
				return card, nil
			}
		}
		return model.Card{}, fmt.Errorf("invalid rank %q", rank)
	}
	return model.Card{}, fmt.Errorf("invalid suit %q", suit)
}

// roomView renders a snapshot, looking up any player names not yet known
func roomView(ctx context.Context, snap *model.StateSnapshot) RoomView {
	view := RoomView{
		RoomID:   string(snap.RoomID),
		Seq:      snap.Seq,
		Phase:    string(snap.Phase),
		Players:  make([]PlayerView, 0, len(snap.Players)),
		DrawPile: snap.DrawPile,
	}

	for _, p := range snap.Players {
		view.Players = append(view.Players, PlayerView{
			ID:          string(p.ID),
			DisplayName: displayName(ctx, p.ID),
			CardCount:   p.CardCount,
			IsTurn:      p.ID == snap.CurrentTurn,
		})
	}
	for _, c := range snap.Hand {
		view.Hand = append(view.Hand, c.String())
	}
	if snap.DiscardTop != nil {
		view.DiscardTop = snap.DiscardTop.String()
	}
	if snap.Winner != "" {
		view.Winner = displayName(ctx, snap.Winner)
	}
	return view
}

func displayName(ctx context.Context, id model.UserID) string {
	if u, err := app.Directory.Lookup(ctx, id); err == nil && u.DisplayName != "" {
		return u.DisplayName
	}
	return app.Session.GetUserName(id)
}
