package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-teamchess/internal/notify"
	"github.com/park285/cheese-teamchess/internal/obslog"
	"github.com/park285/cheese-teamchess/internal/rules"
	"github.com/park285/cheese-teamchess/internal/userdir"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRetries = 5

// Manager is the game controller. Every transition is one conditional write
// against the stored record, so it is safe to share across goroutines and
// across processes pointing at the same Redis.
type Manager struct {
	rdb      *redis.Client
	ownsRDB  bool
	repo     *Repository
	users    userdir.Directory
	notifier notify.Dispatcher

	gameTTL time.Duration
	retries int
	now     func() time.Time
}

type Option func(*Manager)

// WithGameTTL expires game records and user indexes after d. Zero keeps them.
func WithGameTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.gameTTL = d
		}
	}
}

// WithRetries bounds how often a write is re-evaluated after losing a race.
func WithRetries(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retries = n
		}
	}
}

// WithUserDirectory enables opponent existence checks and challenger names.
func WithUserDirectory(d userdir.Directory) Option {
	return func(m *Manager) { m.users = d }
}

func WithNotifier(n notify.Dispatcher) Option {
	return func(m *Manager) { m.notifier = n }
}

func withClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := OpenRedis(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	m := NewManagerWithClient(rdb, opts...)
	m.ownsRDB = true
	return m, nil
}

// NewManagerWithClient shares an existing client; Close leaves it open.
func NewManagerWithClient(rdb *redis.Client, opts ...Option) *Manager {
	m := &Manager{
		rdb:      rdb,
		notifier: notify.Nop(),
		retries:  defaultRetries,
		now:      defaultNow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil || !m.ownsRDB {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires the archive for completed games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// CreateChallenge stores a pending game with the challenger as white and
// notifies the opponent. Notification failures are logged only.
func (m *Manager) CreateChallenge(ctx context.Context, challengerID, opponentID string) (*Game, error) {
	challengerID = strings.TrimSpace(challengerID)
	opponentID = strings.TrimSpace(opponentID)
	if challengerID == "" || opponentID == "" {
		return nil, fmt.Errorf("%w: challenger and opponent are required", ErrInvalidChallenge)
	}
	if challengerID == opponentID {
		return nil, fmt.Errorf("%w: cannot challenge yourself", ErrInvalidChallenge)
	}

	challengerName := challengerID
	if m.users != nil {
		if _, err := m.users.Lookup(ctx, opponentID); err != nil {
			if errors.Is(err, userdir.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown opponent %s", ErrInvalidChallenge, opponentID)
			}
			return nil, storeErr("user directory", err)
		}
		if u, err := m.users.Lookup(ctx, challengerID); err == nil {
			challengerName = u.Name()
		}
	}

	id := uuid.NewString()
	g, err := m.commit(ctx, id, func(cur *Game) (*Game, error) {
		if cur != nil {
			return nil, fmt.Errorf("%w: game id %s already in use", ErrInvalidState, id)
		}
		return &Game{
			ChallengerID:  challengerID,
			OpponentID:    opponentID,
			WhitePlayerID: challengerID,
			BlackPlayerID: opponentID,
			Status:        StatusPending,
			FEN:           rules.StartFEN,
			Moves:         []string{},
			CurrentTurn:   White,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_challenge_create",
		zap.String("game_id", g.ID),
		zap.String("challenger_id", challengerID),
		zap.String("opponent_id", opponentID),
	)

	n := notify.Challenge{RecipientID: opponentID, TriggerName: challengerName, TriggerUserID: challengerID, GameID: g.ID}
	if err := m.notifier.SendChallenge(ctx, n); err != nil {
		obslog.L().Warn("pvp_challenge_notify_error", zap.String("game_id", g.ID), zap.String("opponent_id", opponentID), zap.Error(err))
	}
	return g, nil
}

// AcceptChallenge moves a pending game to active. Only the challenged user
// may accept.
func (m *Manager) AcceptChallenge(ctx context.Context, gameID, userID string) (*Game, error) {
	userID = strings.TrimSpace(userID)
	g, err := m.commit(ctx, gameID, func(cur *Game) (*Game, error) {
		if cur == nil {
			return nil, ErrGameNotFound
		}
		if !cur.IsParticipant(userID) {
			return nil, ErrNotParticipant
		}
		if cur.Status != StatusPending {
			return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, cur.Status)
		}
		if userID == cur.ChallengerID {
			return nil, fmt.Errorf("%w: only the challenged user can accept", ErrNotParticipant)
		}
		cur.Status = StatusActive
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_challenge_accept", zap.String("game_id", g.ID), zap.String("user_id", userID))
	return g, nil
}

// DeclineChallenge deletes a pending game. The challenger declining its own
// challenge withdraws it.
func (m *Manager) DeclineChallenge(ctx context.Context, gameID, userID string) error {
	userID = strings.TrimSpace(userID)
	_, err := m.commit(ctx, gameID, func(cur *Game) (*Game, error) {
		if cur == nil {
			return nil, ErrGameNotFound
		}
		if !cur.IsParticipant(userID) {
			return nil, ErrNotParticipant
		}
		if cur.Status != StatusPending {
			return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, cur.Status)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	obslog.L().Info("pvp_challenge_decline", zap.String("game_id", strings.TrimSpace(gameID)), zap.String("user_id", userID))
	return nil
}

// SubmitMove validates and applies one ply. The move, the turn flip and any
// terminal verdict land in the same write.
func (m *Manager) SubmitMove(ctx context.Context, req MoveRequest) (*Game, error) {
	userID := strings.TrimSpace(req.UserID)
	var applied rules.Applied
	g, err := m.commit(ctx, req.GameID, func(cur *Game) (*Game, error) {
		if cur == nil {
			return nil, ErrGameNotFound
		}
		color := cur.ColorOf(userID)
		if color == "" {
			return nil, ErrNotParticipant
		}
		if cur.Status != StatusActive {
			return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, cur.Status)
		}
		if color != cur.CurrentTurn {
			return nil, ErrNotYourTurn
		}

		pos, err := rules.Restore(cur.FEN, cur.MovesUCI)
		if err != nil {
			return nil, fmt.Errorf("restore game %s: %w", cur.ID, err)
		}
		mv, err := pos.Apply(req.From, req.To, req.Promotion)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
		}
		applied = mv

		cur.FEN = pos.FEN()
		cur.Moves = append(cur.Moves, mv.SAN)
		cur.MovesUCI = append(cur.MovesUCI, mv.UCI)
		cur.CurrentTurn = color.Other()
		finish(cur, pos, m.now())
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	obslog.L().Info("pvp_move",
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("san", applied.SAN),
		zap.String("uci", applied.UCI),
		zap.Int("ply", len(g.Moves)),
		zap.String("status", string(g.Status)),
		zap.String("result", string(g.Result)),
	)
	m.persistIfFinal(ctx, g)
	return g, nil
}

// finish records the verdict when pos is terminal.
func finish(g *Game, pos *rules.Position, now time.Time) {
	res, method := pos.Result()
	switch res {
	case rules.ResultWhite:
		g.Result, g.WinnerID = ResultWhite, g.WhitePlayerID
	case rules.ResultBlack:
		g.Result, g.WinnerID = ResultBlack, g.BlackPlayerID
	case rules.ResultDraw:
		g.Result, g.WinnerID = ResultDraw, ""
	default:
		return
	}
	g.Status = StatusCompleted
	g.EndMethod = method
	g.CompletedAt = now
}

// Resign ends an active game in favour of the other participant.
func (m *Manager) Resign(ctx context.Context, gameID, userID string) (*Game, error) {
	userID = strings.TrimSpace(userID)
	g, err := m.commit(ctx, gameID, func(cur *Game) (*Game, error) {
		if cur == nil {
			return nil, ErrGameNotFound
		}
		color := cur.ColorOf(userID)
		if color == "" {
			return nil, ErrNotParticipant
		}
		if cur.Status != StatusActive {
			return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, cur.Status)
		}
		winner := color.Other()
		cur.Status = StatusCompleted
		cur.Result = Result(winner)
		cur.WinnerID = cur.PlayerOf(winner)
		cur.EndMethod = "resignation"
		cur.CompletedAt = m.now()
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_resign",
		zap.String("game_id", g.ID),
		zap.String("resigner", userID),
		zap.String("winner", g.WinnerID),
	)
	m.persistIfFinal(ctx, g)
	return g, nil
}

// LegalMoves lists destinations from square in the stored position of an
// active game.
func (m *Manager) LegalMoves(ctx context.Context, gameID, square string) ([]string, error) {
	g, err := m.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusActive {
		return nil, fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	pos, err := rules.Restore(g.FEN, g.MovesUCI)
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", g.ID, err)
	}
	dests, err := pos.LegalMoves(square)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return dests, nil
}

// persistIfFinal archives a completed game. Archive failures never fail the
// transition that already committed.
func (m *Manager) persistIfFinal(ctx context.Context, g *Game) {
	if m.repo == nil || g == nil || g.Status != StatusCompleted {
		return
	}
	if err := m.repo.SaveResult(ctx, g); err != nil {
		obslog.L().Error("pvp_result_persist_error", zap.String("game_id", g.ID), zap.String("result", string(g.Result)), zap.Error(err))
		return
	}
	obslog.L().Info("pvp_result_persist", zap.String("game_id", g.ID), zap.String("result", string(g.Result)), zap.String("method", g.EndMethod))
}
