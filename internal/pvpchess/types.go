package pvpchess

import (
	"time"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Status represents a game lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Result is set once a game is completed.
type Result string

const (
	ResultWhite Result = "white"
	ResultBlack Result = "black"
	ResultDraw  Result = "draw"
)

// Game is the persisted record of one match. Field names are the stored
// schema; new fields must stay optional.
type Game struct {
	ID            string    `json:"id"`
	ChallengerID  string    `json:"challengerId"`
	OpponentID    string    `json:"opponentId"`
	WhitePlayerID string    `json:"whitePlayerId"`
	BlackPlayerID string    `json:"blackPlayerId"`
	Status        Status    `json:"status"`
	FEN           string    `json:"fen"`
	Moves         []string  `json:"moves"`
	CurrentTurn   Color     `json:"currentTurn"`
	Result        Result    `json:"result,omitempty"`
	WinnerID      string    `json:"winnerId,omitempty"`
	MovesUCI      []string  `json:"movesUci,omitempty"`
	EndMethod     string    `json:"endMethod,omitempty"`
	Version       int64     `json:"version,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CompletedAt   time.Time `json:"completedAt,omitzero"`
}

// ColorOf returns the side userID plays, or "" for outsiders.
func (g *Game) ColorOf(userID string) Color {
	switch userID {
	case "":
		return ""
	case g.WhitePlayerID:
		return White
	case g.BlackPlayerID:
		return Black
	default:
		return ""
	}
}

// PlayerOf returns the user playing c.
func (g *Game) PlayerOf(c Color) string {
	if c == White {
		return g.WhitePlayerID
	}
	return g.BlackPlayerID
}

// OpponentOf returns the other participant, or "" for outsiders.
func (g *Game) OpponentOf(userID string) string {
	switch g.ColorOf(userID) {
	case White:
		return g.BlackPlayerID
	case Black:
		return g.WhitePlayerID
	default:
		return ""
	}
}

func (g *Game) IsParticipant(userID string) bool { return g.ColorOf(userID) != "" }

// Clone returns a deep copy safe to hand to another goroutine.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Moves = make([]string, len(g.Moves))
	copy(c.Moves, g.Moves)
	c.MovesUCI = append([]string(nil), g.MovesUCI...)
	return &c
}

// MoveRequest is one ply submitted by UserID.
type MoveRequest struct {
	GameID    string
	UserID    string
	From      string
	To        string
	Promotion string
}

// Snapshot is one delivery on a subscription. Game is nil once the record
// has been removed (declined challenge).
type Snapshot struct {
	GameID string `json:"gameId"`
	Game   *Game  `json:"game"`
}

func (s Snapshot) Removed() bool { return s.Game == nil }
