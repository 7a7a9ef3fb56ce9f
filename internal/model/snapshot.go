package model

// Phase is the lifecycle stage of a room's game
type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// Card is a single playing card
type Card struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

func (c Card) String() string {
	return c.Rank + c.Suit
}

// PlayerState is the public view of one player in a room
type PlayerState struct {
	ID        UserID `json:"id"`
	CardCount int    `json:"card_count"`
}

// StateSnapshot is the full authoritative state pushed by the server.
// Each push replaces the previous snapshot wholesale.
type StateSnapshot struct {
	RoomID      RoomID        `json:"room_id"`
	Seq         int64         `json:"seq"`
	Phase       Phase         `json:"phase"`
	Players     []PlayerState `json:"players"`
	CurrentTurn UserID        `json:"current_turn,omitempty"`
	Hand        []Card        `json:"hand,omitempty"` // viewer's own hand
	DiscardTop  *Card         `json:"discard_top,omitempty"`
	DrawPile    int           `json:"draw_pile"`
	Winner      UserID        `json:"winner,omitempty"`
}

// HasPlayer reports whether the user is seated in the room
func (s *StateSnapshot) HasPlayer(id UserID) bool {
	for _, p := range s.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Suits and ranks of a standard deck
var (
	Suits = []string{"S", "H", "D", "C"}
	Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// NewDeck returns an ordered standard deck
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}
