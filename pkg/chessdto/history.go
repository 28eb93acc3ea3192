package chessdto

import "time"

// ArchivedGame is one finished game from the archive.
type ArchivedGame struct {
	GameID        string    `json:"gameId"`
	WhitePlayerID string    `json:"whitePlayerId"`
	BlackPlayerID string    `json:"blackPlayerId"`
	Result        string    `json:"result"`
	ResultMethod  string    `json:"endMethod,omitempty"`
	WinnerID      string    `json:"winnerId,omitempty"`
	PGN           string    `json:"pgn"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
}

type HistoryResponse struct {
	Games []ArchivedGame `json:"games"`
}
