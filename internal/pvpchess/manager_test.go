package pvpchess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-teamchess/internal/notify"
	"github.com/park285/cheese-teamchess/internal/rules"
	"github.com/park285/cheese-teamchess/internal/userdir"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Challenge
	err error
}

func (r *recordingNotifier) SendChallenge(_ context.Context, c notify.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, c)
	return r.err
}

func (r *recordingNotifier) sent() []notify.Challenge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Challenge(nil), r.got...)
}

func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	url := fmt.Sprintf("redis://%s/0", mr.Addr())
	m, err := NewManager(url, append([]Option{withClock(tickingClock())}, opts...)...)
	if err != nil {
		t.Fatalf("pvpchess.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, mr
}

func newActiveGame(t *testing.T, m *Manager) *Game {
	t.Helper()
	ctx := context.Background()
	g, err := m.CreateChallenge(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	g, err = m.AcceptChallenge(ctx, g.ID, "bob")
	if err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}
	return g
}

// play submits UCI moves alternating between the two participants.
func play(t *testing.T, m *Manager, g *Game, moves ...string) *Game {
	t.Helper()
	for _, mv := range moves {
		user := g.PlayerOf(g.CurrentTurn)
		next, err := m.SubmitMove(context.Background(), MoveRequest{GameID: g.ID, UserID: user, From: mv[0:2], To: mv[2:4], Promotion: mv[4:]})
		if err != nil {
			t.Fatalf("SubmitMove(%s by %s): %v", mv, user, err)
		}
		g = next
	}
	return g
}

func rawGame(t *testing.T, mr *miniredis.Miniredis, id string) string {
	t.Helper()
	raw, err := mr.Get(gameKey(id))
	if err != nil {
		t.Fatalf("raw get %s: %v", id, err)
	}
	return raw
}

func TestCreateChallenge(t *testing.T) {
	n := &recordingNotifier{}
	users := userdir.NewMemory(userdir.User{ID: "alice", DisplayName: "Alice"}, userdir.User{ID: "bob"})
	m, mr := newTestManager(t, WithNotifier(n), WithUserDirectory(users))
	ctx := context.Background()

	g, err := m.CreateChallenge(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if g.Status != StatusPending || g.ChallengerID != "alice" || g.OpponentID != "bob" {
		t.Fatalf("unexpected game: %+v", g)
	}
	if g.WhitePlayerID != "alice" || g.BlackPlayerID != "bob" || g.CurrentTurn != White {
		t.Fatalf("unexpected colours: %+v", g)
	}
	if g.Moves == nil || len(g.Moves) != 0 || g.FEN != rules.StartFEN {
		t.Fatalf("expected empty moves at the start position: %+v", g)
	}
	if g.Version != 1 || g.CreatedAt.IsZero() {
		t.Fatalf("expected version 1 with timestamps: %+v", g)
	}
	if !strings.Contains(rawGame(t, mr, g.ID), `"moves":[]`) {
		t.Fatalf("moves should persist as an empty list")
	}
	for _, uid := range []string{"alice", "bob"} {
		if ok, _ := mr.SIsMember(idxUserKey(uid), g.ID); !ok {
			t.Fatalf("game not indexed for %s", uid)
		}
	}

	sent := n.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	want := notify.Challenge{RecipientID: "bob", TriggerName: "Alice", TriggerUserID: "alice", GameID: g.ID}
	if sent[0] != want {
		t.Fatalf("notification = %+v, want %+v", sent[0], want)
	}
}

func TestCreateChallengeRejectsInvalidParticipants(t *testing.T) {
	users := userdir.NewMemory(userdir.User{ID: "alice"})
	m, _ := newTestManager(t, WithUserDirectory(users))
	ctx := context.Background()

	for _, tc := range []struct{ challenger, opponent string }{
		{"alice", "alice"},
		{"", "bob"},
		{"alice", " "},
		{"alice", "ghost"},
	} {
		if _, err := m.CreateChallenge(ctx, tc.challenger, tc.opponent); !errors.Is(err, ErrInvalidChallenge) {
			t.Fatalf("CreateChallenge(%q,%q): expected ErrInvalidChallenge, got %v", tc.challenger, tc.opponent, err)
		}
	}
}

func TestNotificationFailureKeepsChallenge(t *testing.T) {
	n := &recordingNotifier{err: errors.New("dispatch down")}
	m, _ := newTestManager(t, WithNotifier(n))
	g, err := m.CreateChallenge(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if _, err := m.Game(context.Background(), g.ID); err != nil {
		t.Fatalf("challenge should survive notify failure: %v", err)
	}
}

func TestDeclineThenAcceptFails(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	g, err := m.CreateChallenge(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}

	if err := m.DeclineChallenge(ctx, g.ID, "carol"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider decline: expected ErrNotParticipant, got %v", err)
	}
	if err := m.DeclineChallenge(ctx, g.ID, "bob"); err != nil {
		t.Fatalf("DeclineChallenge: %v", err)
	}
	if mr.Exists(gameKey(g.ID)) {
		t.Fatalf("declined record should be removed")
	}
	if ok, _ := mr.SIsMember(idxUserKey("alice"), g.ID); ok {
		t.Fatalf("declined record should leave the index")
	}

	_, err = m.AcceptChallenge(ctx, g.ID, "bob")
	if !errors.Is(err, ErrInvalidState) || !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("accept after decline: expected ErrInvalidState, got %v", err)
	}
	if Code(err) != CodeGameNotFound {
		t.Fatalf("code = %s", Code(err))
	}
	if err := m.DeclineChallenge(ctx, g.ID, "bob"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("second decline: expected ErrGameNotFound, got %v", err)
	}
}

func TestChallengerCanWithdraw(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.CreateChallenge(ctx, "alice", "bob")
	if err := m.DeclineChallenge(ctx, g.ID, "alice"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := m.Game(ctx, g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected withdrawn game to be gone, got %v", err)
	}
}

func TestAcceptChallengeRules(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.CreateChallenge(ctx, "alice", "bob")

	if _, err := m.AcceptChallenge(ctx, g.ID, "carol"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider accept: expected ErrNotParticipant, got %v", err)
	}
	if _, err := m.AcceptChallenge(ctx, g.ID, "alice"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("challenger accept: expected ErrNotParticipant, got %v", err)
	}
	if _, err := m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "alice", From: "e2", To: "e4"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move on pending game: expected ErrInvalidState, got %v", err)
	}
	if _, err := m.Resign(ctx, g.ID, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("resign on pending game: expected ErrInvalidState, got %v", err)
	}

	acc, err := m.AcceptChallenge(ctx, g.ID, "bob")
	if err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}
	if acc.Status != StatusActive || acc.Version != 2 {
		t.Fatalf("unexpected accepted game: %+v", acc)
	}
	if _, err := m.AcceptChallenge(ctx, g.ID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second accept: expected ErrInvalidState, got %v", err)
	}
	if err := m.DeclineChallenge(ctx, g.ID, "bob"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("decline active: expected ErrInvalidState, got %v", err)
	}
}

func TestFirstMoveAndTurnGate(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	g := newActiveGame(t, m)

	g, err := m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "alice", From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if g.Status != StatusActive || g.CurrentTurn != Black {
		t.Fatalf("unexpected state after 1.e4: %+v", g)
	}
	if len(g.Moves) != 1 || g.Moves[0] != "e4" || len(g.MovesUCI) != 1 || g.MovesUCI[0] != "e2e4" {
		t.Fatalf("unexpected moves: %v %v", g.Moves, g.MovesUCI)
	}
	want, _ := rules.Replay([]string{"e2e4"})
	if g.FEN != want.FEN() || !strings.HasPrefix(g.FEN, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") {
		t.Fatalf("fen = %s", g.FEN)
	}

	before := rawGame(t, mr, g.ID)
	if _, err := m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "alice", From: "d2", To: "d4"}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if rawGame(t, mr, g.ID) != before {
		t.Fatalf("rejected move changed the record")
	}
}

func TestIllegalMoveLeavesRecordUnchanged(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	g := newActiveGame(t, m)
	before := rawGame(t, mr, g.ID)

	for _, req := range []MoveRequest{
		{From: "e2", To: "e5"},
		{From: "e7", To: "e5"},
		{From: "z9", To: "e4"},
		{From: "e2", To: "e4", Promotion: "q"},
		{From: "e2", To: "e4", Promotion: "king"},
	} {
		req.GameID, req.UserID = g.ID, "alice"
		if _, err := m.SubmitMove(ctx, req); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("SubmitMove(%+v): expected ErrIllegalMove, got %v", req, err)
		}
	}
	if rawGame(t, mr, g.ID) != before {
		t.Fatalf("illegal moves changed the record")
	}
}

func TestOutsiderAndMissingGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := newActiveGame(t, m)

	if _, err := m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "carol", From: "e2", To: "e4"}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := m.Resign(ctx, g.ID, "carol"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := m.SubmitMove(ctx, MoveRequest{GameID: "nope", UserID: "alice", From: "e2", To: "e4"}); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestParityMatchesTurn(t *testing.T) {
	m, _ := newTestManager(t)
	g := newActiveGame(t, m)
	for _, mv := range []string{"e2e4", "c7c5", "g1f3", "d7d6", "d2d4", "c5d4", "f3d4"} {
		g = play(t, m, g, mv)
		whiteToMove := len(g.Moves)%2 == 0
		if whiteToMove != (g.CurrentTurn == White) {
			t.Fatalf("parity broken after %s: %d moves, turn %s", mv, len(g.Moves), g.CurrentTurn)
		}
		if len(g.Moves) != len(g.MovesUCI) {
			t.Fatalf("SAN and UCI histories diverged")
		}
	}
	replayed, err := rules.Replay(g.MovesUCI)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if replayed.FEN() != g.FEN {
		t.Fatalf("stored fen does not match replay")
	}
}

func TestCheckmateCompletesGame(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := newActiveGame(t, m)
	g = play(t, m, g, "f2f3", "e7e5", "g2g4", "d8h4")

	if g.Status != StatusCompleted || g.Result != ResultBlack || g.WinnerID != "bob" {
		t.Fatalf("unexpected final state: %+v", g)
	}
	if g.EndMethod != "checkmate" || g.CompletedAt.IsZero() {
		t.Fatalf("unexpected end method %q", g.EndMethod)
	}
	if !strings.HasPrefix(g.Moves[3], "Qh4") {
		t.Fatalf("unexpected SAN %q", g.Moves[3])
	}
	if _, err := m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "alice", From: "a2", To: "a3"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move after mate: expected ErrInvalidState, got %v", err)
	}
	if _, err := m.Resign(ctx, g.ID, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("resign after mate: expected ErrInvalidState, got %v", err)
	}
	if _, err := m.LegalMoves(ctx, g.ID, "a2"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("legal moves after mate: expected ErrInvalidState, got %v", err)
	}
}

func TestStalemateIsDraw(t *testing.T) {
	m, _ := newTestManager(t)
	g := newActiveGame(t, m)
	g = play(t, m, g,
		"e2e3", "a7a5", "d1h5", "a8a6", "h5a5", "h7h5",
		"h2h4", "a6h6", "a5c7", "f7f6", "c7d7", "e8f7",
		"d7b7", "d8d3", "b7b8", "d3h7", "b8c8", "f7g6",
		"c8e6",
	)
	if g.Status != StatusCompleted || g.Result != ResultDraw || g.WinnerID != "" {
		t.Fatalf("unexpected final state: %+v", g)
	}
	if g.EndMethod != "stalemate" {
		t.Fatalf("end method = %q", g.EndMethod)
	}
}

func TestResignAwardsOpponent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	g := newActiveGame(t, m)
	g, err := m.Resign(ctx, g.ID, "alice")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if g.Status != StatusCompleted || g.Result != ResultBlack || g.WinnerID != "bob" || g.EndMethod != "resignation" {
		t.Fatalf("unexpected state: %+v", g)
	}

	// Resigning off-turn is allowed and ignores the position.
	g2 := play(t, m, newActiveGame(t, m), "e2e4")
	g2, err = m.Resign(ctx, g2.ID, "alice")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if g2.Result != ResultBlack || g2.WinnerID != "bob" {
		t.Fatalf("unexpected state: %+v", g2)
	}
	g3 := newActiveGame(t, m)
	g3, err = m.Resign(ctx, g3.ID, "bob")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if g3.Result != ResultWhite || g3.WinnerID != "alice" {
		t.Fatalf("unexpected state: %+v", g3)
	}
}

func TestPromotionChoice(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	for _, tc := range []struct{ promo, uci string }{{"", "a7a8q"}, {"knight", "a7a8n"}, {"r", "a7a8r"}} {
		id := "promo-" + tc.uci
		doc := fmt.Sprintf(`{"id":%q,"challengerId":"alice","opponentId":"bob","whitePlayerId":"alice","blackPlayerId":"bob","status":"active","fen":"8/P7/8/8/8/8/8/2k4K w - - 0 1","moves":[],"currentTurn":"white","version":1}`, id)
		if err := mr.Set(gameKey(id), doc); err != nil {
			t.Fatalf("seed: %v", err)
		}
		g, err := m.SubmitMove(ctx, MoveRequest{GameID: id, UserID: "alice", From: "a7", To: "a8", Promotion: tc.promo})
		if err != nil {
			t.Fatalf("SubmitMove(%q): %v", tc.promo, err)
		}
		if g.MovesUCI[0] != tc.uci {
			t.Fatalf("promotion %q played %s", tc.promo, g.MovesUCI[0])
		}
	}
}

func TestConcurrentMovesOnlyOneLands(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := newActiveGame(t, m)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, to := range []string{"e4", "d4"} {
		wg.Add(1)
		go func(i int, from, to string) {
			defer wg.Done()
			_, errs[i] = m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "alice", From: from, To: to})
		}(i, string(to[0])+"2", to)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotYourTurn):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one move to land, got %d (%v)", ok, errs)
	}
	cur, err := m.Game(ctx, g.ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if len(cur.Moves) != 1 || cur.CurrentTurn != Black {
		t.Fatalf("unexpected record: %+v", cur)
	}
}

func TestLegalMoves(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	pending, _ := m.CreateChallenge(ctx, "alice", "carol")
	if _, err := m.LegalMoves(ctx, pending.ID, "e2"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("pending: expected ErrInvalidState, got %v", err)
	}

	g := newActiveGame(t, m)
	got, err := m.LegalMoves(ctx, g.ID, "g1")
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if strings.Join(got, ",") != "f3,h3" {
		t.Fatalf("unexpected destinations %v", got)
	}
	if _, err := m.LegalMoves(ctx, g.ID, "j1"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("bad square: expected ErrIllegalMove, got %v", err)
	}
}

func TestGamesByUserNewestFirst(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	first, _ := m.CreateChallenge(ctx, "alice", "bob")
	second, _ := m.CreateChallenge(ctx, "carol", "alice")
	if _, err := m.AcceptChallenge(ctx, first.ID, "bob"); err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}

	list, err := m.GamesByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GamesByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("unexpected order: %v", list)
	}
	list, _ = m.GamesByUser(ctx, "bob")
	if len(list) != 1 {
		t.Fatalf("bob should see one game, got %d", len(list))
	}
}

func TestStoreUnavailableIsRetryable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	m, err := NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()
	mr.Close()

	_, err = m.CreateChallenge(context.Background(), "alice", "bob")
	if !errors.Is(err, ErrStoreUnavailable) || !Retryable(err) {
		t.Fatalf("expected retryable ErrStoreUnavailable, got %v", err)
	}
	if Code(err) != CodeStoreUnavailable {
		t.Fatalf("code = %s", Code(err))
	}
	if Retryable(ErrNotYourTurn) {
		t.Fatalf("domain errors are not retryable")
	}
}

func seedGame(t *testing.T, mr *miniredis.Miniredis, id, fen string) {
	t.Helper()
	doc := fmt.Sprintf(`{"id":%q,"challengerId":"alice","opponentId":"bob","whitePlayerId":"alice","blackPlayerId":"bob","status":"active","fen":%q,"moves":[],"currentTurn":"white","version":1}`, id, fen)
	if err := mr.Set(gameKey(id), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestInsufficientMaterialIsDraw(t *testing.T) {
	m, mr := newTestManager(t)
	seedGame(t, mr, "bare-kings", "8/8/8/8/8/8/1p6/K6k w - - 0 1")

	g, err := m.SubmitMove(context.Background(), MoveRequest{GameID: "bare-kings", UserID: "alice", From: "a1", To: "b2"})
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if g.Status != StatusCompleted || g.Result != ResultDraw || g.WinnerID != "" {
		t.Fatalf("unexpected final state: %+v", g)
	}
	if g.EndMethod != "insufficient_material" {
		t.Fatalf("end method = %q", g.EndMethod)
	}
	if _, err := m.SubmitMove(context.Background(), MoveRequest{GameID: "bare-kings", UserID: "bob", From: "h1", To: "g1"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("move after draw: expected ErrInvalidState, got %v", err)
	}
}

func TestUserIndexTTLFollowsWrites(t *testing.T) {
	m, mr := newTestManager(t, WithGameTTL(10*time.Second))
	ctx := context.Background()
	g := newActiveGame(t, m)

	mr.FastForward(6 * time.Second)
	play(t, m, g, "e2e4")
	mr.FastForward(6 * time.Second)

	if !mr.Exists(gameKey(g.ID)) {
		t.Fatalf("game record expired early")
	}
	for _, uid := range []string{"alice", "bob"} {
		list, err := m.GamesByUser(ctx, uid)
		if err != nil {
			t.Fatalf("GamesByUser(%s): %v", uid, err)
		}
		if len(list) != 1 || list[0].ID != g.ID {
			t.Fatalf("%s lost the live game from the index: %v", uid, list)
		}
	}

	mr.FastForward(5 * time.Second)
	if mr.Exists(gameKey(g.ID)) || mr.Exists(idxUserKey("alice")) {
		t.Fatalf("idle game and index should expire together")
	}
}

func TestCorruptRecordIsNotRetryable(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	if err := mr.Set(gameKey("broken"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := m.SubmitMove(ctx, MoveRequest{GameID: "broken", UserID: "alice", From: "e2", To: "e4"})
	if err == nil || Retryable(err) || Code(err) != CodeInternal {
		t.Fatalf("SubmitMove on corrupt record: err=%v code=%s", err, Code(err))
	}
	_, err = m.Game(ctx, "broken")
	if err == nil || Retryable(err) || Code(err) != CodeInternal {
		t.Fatalf("Game on corrupt record: err=%v code=%s", err, Code(err))
	}
}
