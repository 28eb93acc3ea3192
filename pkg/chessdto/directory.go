package chessdto

import "time"

// DirectoryEntry is one game in a user's challenge directory.
type DirectoryEntry struct {
	GameID    string        `json:"gameId"`
	Status    string        `json:"status"`
	Opponent  PlayerProfile `json:"opponent"`
	Color     string        `json:"color"`
	MyTurn    bool          `json:"myTurn"`
	MoveCount int           `json:"moveCount"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Directory partitions a user's unfinished games.
type Directory struct {
	UserID   string           `json:"userId"`
	Incoming []DirectoryEntry `json:"incoming"`
	Outgoing []DirectoryEntry `json:"outgoing"`
	Active   []DirectoryEntry `json:"active"`
}
