package pvpchess

import (
	"context"
	"errors"
	"testing"
	"time"
)

func nextSnapshot(t *testing.T, s *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-s.Updates():
		if !ok {
			t.Fatalf("subscription closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestWatchGameDeliversCommitsInOrder(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.CreateChallenge(ctx, "alice", "bob")

	sub, err := m.WatchGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("WatchGame: %v", err)
	}
	defer sub.Close()

	first := nextSnapshot(t, sub)
	if first.Removed() || first.Game.Status != StatusPending || first.Game.Version != 1 {
		t.Fatalf("unexpected initial snapshot: %+v", first.Game)
	}

	if _, err := m.AcceptChallenge(ctx, g.ID, "bob"); err != nil {
		t.Fatalf("AcceptChallenge: %v", err)
	}
	if _, err := m.SubmitMove(ctx, MoveRequest{GameID: g.ID, UserID: "alice", From: "e2", To: "e4"}); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}

	s := nextSnapshot(t, sub)
	if s.Game.Status != StatusActive || s.Game.Version != 2 {
		t.Fatalf("expected accepted snapshot, got %+v", s.Game)
	}
	s = nextSnapshot(t, sub)
	if len(s.Game.Moves) != 1 || s.Game.Moves[0] != "e4" || s.Game.CurrentTurn != Black {
		t.Fatalf("expected 1.e4 snapshot, got %+v", s.Game)
	}
}

func TestWatchGameTombstoneOnDecline(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.CreateChallenge(ctx, "alice", "bob")

	sub, err := m.WatchGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("WatchGame: %v", err)
	}
	defer sub.Close()
	nextSnapshot(t, sub)

	if err := m.DeclineChallenge(ctx, g.ID, "bob"); err != nil {
		t.Fatalf("DeclineChallenge: %v", err)
	}
	if s := nextSnapshot(t, sub); !s.Removed() || s.GameID != g.ID {
		t.Fatalf("expected tombstone, got %+v", s)
	}

	if _, err := m.WatchGame(ctx, g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("watching a removed game: expected ErrGameNotFound, got %v", err)
	}
}

func TestWatchUserSeesNewChallenges(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	old, _ := m.CreateChallenge(ctx, "carol", "bob")

	sub, err := m.WatchUser(ctx, "bob")
	if err != nil {
		t.Fatalf("WatchUser: %v", err)
	}
	if s := nextSnapshot(t, sub); s.GameID != old.ID {
		t.Fatalf("expected existing game first, got %s", s.GameID)
	}

	g, _ := m.CreateChallenge(ctx, "alice", "bob")
	s := nextSnapshot(t, sub)
	if s.GameID != g.ID || s.Game.ChallengerID != "alice" {
		t.Fatalf("unexpected snapshot %+v", s)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub.Updates(); ok {
		t.Fatalf("updates should be closed after Close")
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestStalledWatcherCatchesUp(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := newActiveGame(t, m)

	sub, err := m.WatchGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("WatchGame: %v", err)
	}
	defer sub.Close()

	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	var plies []string
	for range 3 {
		plies = append(plies, shuffle...)
	}
	play(t, m, g, plies...)

	var last int64
	for {
		s := nextSnapshot(t, sub)
		if s.Game.Version <= last {
			t.Fatalf("version went from %d to %d", last, s.Game.Version)
		}
		last = s.Game.Version
		if len(s.Game.Moves) == len(plies) {
			break
		}
	}
}
