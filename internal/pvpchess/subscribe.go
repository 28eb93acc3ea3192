package pvpchess

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-teamchess/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	subscriptionBuffer = 16

	// Redis-side buffer between the connection reader and pump.
	pubsubBuffer      = 1024
	pubsubSendTimeout = 5 * time.Second
)

// Subscription delivers snapshots in commit order until Close. Updates is
// closed when the subscription ends.
//
// Change events travel over Redis pub/sub, which has no replay. If the
// consumer stops reading for longer than pubsubSendTimeout while
// pubsubBuffer messages are already queued, go-redis drops the message it
// cannot hand over and a later snapshot is the next delivery. Snapshots
// carry the full record, so a consumer that misses one is still current
// after the next; one that needs every intermediate move re-reads the game.
type Subscription struct {
	initial int
	ps      *redis.PubSub
	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Initial is the number of snapshots delivered before the first change
// event: the records that existed when the subscription started.
func (s *Subscription) Initial() int { return s.initial }

// Close releases the underlying Redis subscription and waits for the
// delivery goroutine to exit.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
	})
	return err
}

// WatchGame delivers the current record, then every committed change to it.
// A declined challenge arrives as a snapshot with a nil Game.
func (m *Manager) WatchGame(ctx context.Context, gameID string) (*Subscription, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, ErrGameNotFound
	}
	ps, err := m.subscribe(ctx, gameChannel(gameID))
	if err != nil {
		return nil, err
	}
	// Loaded after SUBSCRIBE so no commit falls in between.
	g, err := m.Game(ctx, gameID)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}
	return m.startSubscription(ctx, ps, []Snapshot{{GameID: gameID, Game: g}}), nil
}

// WatchUser delivers every stored game of userID, then every committed
// change to any game the user takes part in.
func (m *Manager) WatchUser(ctx context.Context, userID string) (*Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNotParticipant
	}
	ps, err := m.subscribe(ctx, userChannel(userID))
	if err != nil {
		return nil, err
	}
	games, err := m.GamesByUser(ctx, userID)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}
	initial := make([]Snapshot, 0, len(games))
	for _, g := range games {
		initial = append(initial, Snapshot{GameID: g.ID, Game: g})
	}
	return m.startSubscription(ctx, ps, initial), nil
}

func (m *Manager) subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	ps := m.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, storeErr("subscribe "+channel, err)
	}
	return ps, nil
}

func (m *Manager) startSubscription(ctx context.Context, ps *redis.PubSub, initial []Snapshot) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		initial: len(initial),
		ps:      ps,
		updates: make(chan Snapshot, subscriptionBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.pump(ctx, initial)
	return s
}

// pump drops events older than what was already delivered for the same
// game; the initial load may be newer than messages still in flight.
func (s *Subscription) pump(ctx context.Context, initial []Snapshot) {
	defer close(s.done)
	defer close(s.updates)

	seen := make(map[string]int64)
	deliver := func(snap Snapshot) bool {
		if snap.Removed() {
			if seen[snap.GameID] == math.MaxInt64 {
				return true
			}
			seen[snap.GameID] = math.MaxInt64
		} else {
			if snap.Game.Version <= seen[snap.GameID] {
				return true
			}
			seen[snap.GameID] = snap.Game.Version
		}
		select {
		case s.updates <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, snap := range initial {
		if !deliver(snap) {
			return
		}
	}
	ch := s.ps.Channel(redis.WithChannelSize(pubsubBuffer), redis.WithChannelSendTimeout(pubsubSendTimeout))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snap Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil || snap.GameID == "" {
				obslog.L().Warn("pvp_event_decode_error", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if snap.Game != nil && snap.Game.Moves == nil {
				snap.Game.Moves = []string{}
			}
			if !deliver(snap) {
				return
			}
		}
	}
}
