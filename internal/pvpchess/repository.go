package pvpchess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres opens and pings DATABASE_URL. The pool is shared by the
// archive and the user directory.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Repository archives completed games.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chess_games (
  game_id       TEXT PRIMARY KEY,
  challenger_id TEXT NOT NULL,
  white_id      TEXT NOT NULL,
  black_id      TEXT NOT NULL,
  result        TEXT NOT NULL,
  result_method TEXT NOT NULL DEFAULT '',
  winner_id     TEXT NOT NULL DEFAULT '',
  moves_uci     JSONB NOT NULL,
  moves_san     JSONB NOT NULL,
  final_fen     TEXT NOT NULL,
  pgn           TEXT NOT NULL,
  started_at    TIMESTAMPTZ NOT NULL,
  ended_at      TIMESTAMPTZ NOT NULL,
  duration_ms   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS chess_games_white_idx ON chess_games (white_id, ended_at DESC);
CREATE INDEX IF NOT EXISTS chess_games_black_idx ON chess_games (black_id, ended_at DESC);
`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure chess_games schema: %w", err)
	}
	return nil
}

// SaveResult upserts a completed game.
func (r *Repository) SaveResult(ctx context.Context, g *Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	if g.Status != StatusCompleted {
		return fmt.Errorf("game %s is %s, not completed", g.ID, g.Status)
	}
	movesUCIRaw, err := json.Marshal(nonNil(g.MovesUCI))
	if err != nil {
		return err
	}
	movesSANRaw, err := json.Marshal(nonNil(g.Moves))
	if err != nil {
		return err
	}
	ended := g.CompletedAt
	if ended.IsZero() {
		ended = g.UpdatedAt
	}
	duration := ended.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO chess_games (
        game_id, challenger_id, white_id, black_id,
        result, result_method, winner_id, moves_uci, moves_san,
        final_fen, pgn, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        winner_id=EXCLUDED.winner_id,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        final_fen=EXCLUDED.final_fen,
        pgn=EXCLUDED.pgn,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		g.ID, g.ChallengerID, g.WhitePlayerID, g.BlackPlayerID,
		string(g.Result), g.EndMethod, g.WinnerID, string(movesUCIRaw), string(movesSANRaw),
		g.FEN, buildPGN(g), g.CreatedAt, ended, duration,
	)
	return err
}

// ArchivedGame is one row of a user's history.
type ArchivedGame struct {
	GameID    string    `json:"gameId"`
	WhiteID   string    `json:"whitePlayerId"`
	BlackID   string    `json:"blackPlayerId"`
	Result    Result    `json:"result"`
	Method    string    `json:"endMethod,omitempty"`
	WinnerID  string    `json:"winnerId,omitempty"`
	PGN       string    `json:"pgn"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// RecentGames returns up to limit archived games of userID, newest first.
func (r *Repository) RecentGames(ctx context.Context, userID string, limit int) ([]ArchivedGame, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT game_id, white_id, black_id, result, result_method, winner_id, pgn, started_at, ended_at
  FROM chess_games
 WHERE white_id = $1 OR black_id = $1
 ORDER BY ended_at DESC
 LIMIT $2`, strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ArchivedGame{}
	for rows.Next() {
		var a ArchivedGame
		var res string
		if err := rows.Scan(&a.GameID, &a.WhiteID, &a.BlackID, &res, &a.Method, &a.WinnerID, &a.PGN, &a.StartedAt, &a.EndedAt); err != nil {
			return nil, err
		}
		a.Result = Result(res)
		out = append(out, a)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func mapResultToPGN(result Result) string {
	switch result {
	case ResultWhite:
		return "1-0"
	case ResultBlack:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(g *Game) string {
	if g == nil {
		return ""
	}
	pgnResult := mapResultToPGN(g.Result)
	date := g.CompletedAt
	if date.IsZero() {
		date = g.UpdatedAt
	}
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"Team Chess\"]\n")
	fmt.Fprintf(&b, "[Site \"%s\"]\n", sanitizePGN(g.ID))
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitizePGN(g.WhitePlayerID))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitizePGN(g.BlackPlayerID))
	if strings.TrimSpace(g.EndMethod) != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(g.EndMethod))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", pgnResult)

	for i := 0; i < len(g.Moves); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", i/2+1, strings.TrimSpace(g.Moves[i]))
		if i+1 < len(g.Moves) {
			b.WriteString(strings.TrimSpace(g.Moves[i+1]))
			b.WriteString(" ")
		}
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
