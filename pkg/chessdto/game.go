package chessdto

import "time"

// MoveHighlight marks the squares of the last ply.
type MoveHighlight struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GameState is a game as seen by one viewer.
type GameState struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	ChallengerID  string         `json:"challengerId"`
	OpponentID    string         `json:"opponentId"`
	WhitePlayerID string         `json:"whitePlayerId"`
	BlackPlayerID string         `json:"blackPlayerId"`
	FEN           string         `json:"fen"`
	MovesSAN      []string       `json:"moves"`
	MovesUCI      []string       `json:"movesUci"`
	MoveCount     int            `json:"moveCount"`
	TurnNumber    int            `json:"turnNumber"`
	CurrentTurn   string         `json:"currentTurn"`
	LastMove      *MoveHighlight `json:"lastMove,omitempty"`
	Result        string         `json:"result,omitempty"`
	WinnerID      string         `json:"winnerId,omitempty"`
	EndMethod     string         `json:"endMethod,omitempty"`
	Version       int64          `json:"version"`
	ViewerColor   string         `json:"viewerColor,omitempty"`
	ViewerToMove  bool           `json:"viewerToMove"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

// GameEvent is one frame on a game stream. Removed is set once a pending
// challenge has been declined and State is nil.
type GameEvent struct {
	GameID  string     `json:"gameId"`
	Removed bool       `json:"removed,omitempty"`
	State   *GameState `json:"state,omitempty"`
}
