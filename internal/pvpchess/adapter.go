package pvpchess

import (
	"github.com/park285/cheese-teamchess/pkg/chessdto"
)

// ToDTO renders g for viewerID. Outsiders get the same board without the
// viewer fields.
func ToDTO(g *Game, viewerID string) *chessdto.GameState {
	if g == nil {
		return nil
	}
	state := &chessdto.GameState{
		ID:            g.ID,
		Status:        string(g.Status),
		ChallengerID:  g.ChallengerID,
		OpponentID:    g.OpponentID,
		WhitePlayerID: g.WhitePlayerID,
		BlackPlayerID: g.BlackPlayerID,
		FEN:           g.FEN,
		MovesSAN:      append([]string{}, g.Moves...),
		MovesUCI:      append([]string{}, g.MovesUCI...),
		MoveCount:     len(g.Moves),
		TurnNumber:    len(g.Moves)/2 + 1,
		CurrentTurn:   string(g.CurrentTurn),
		LastMove:      lastHighlight(g),
		Result:        string(g.Result),
		WinnerID:      g.WinnerID,
		EndMethod:     g.EndMethod,
		Version:       g.Version,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
	if !g.CompletedAt.IsZero() {
		t := g.CompletedAt
		state.CompletedAt = &t
	}
	if c := g.ColorOf(viewerID); c != "" {
		state.ViewerColor = string(c)
		state.ViewerToMove = g.Status == StatusActive && c == g.CurrentTurn
	}
	return state
}

// EventDTO converts a subscription delivery.
func EventDTO(s Snapshot, viewerID string) chessdto.GameEvent {
	return chessdto.GameEvent{GameID: s.GameID, Removed: s.Removed(), State: ToDTO(s.Game, viewerID)}
}

// ArchivedDTO converts archive rows.
func ArchivedDTO(list []ArchivedGame) []chessdto.ArchivedGame {
	out := make([]chessdto.ArchivedGame, 0, len(list))
	for _, a := range list {
		out = append(out, chessdto.ArchivedGame{
			GameID:        a.GameID,
			WhitePlayerID: a.WhiteID,
			BlackPlayerID: a.BlackID,
			Result:        string(a.Result),
			ResultMethod:  a.Method,
			WinnerID:      a.WinnerID,
			PGN:           a.PGN,
			StartedAt:     a.StartedAt,
			EndedAt:       a.EndedAt,
		})
	}
	return out
}

func lastHighlight(g *Game) *chessdto.MoveHighlight {
	n := len(g.MovesUCI)
	if n == 0 || len(g.MovesUCI[n-1]) < 4 {
		return nil
	}
	uci := g.MovesUCI[n-1]
	return &chessdto.MoveHighlight{From: uci[0:2], To: uci[2:4]}
}
