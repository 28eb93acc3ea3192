package directory

import (
	"context"
	"errors"
	"sync"

	"github.com/park285/cheese-teamchess/internal/pvpchess"
	"github.com/park285/cheese-teamchess/internal/userdir"
	"go.uber.org/zap"
)

// Source is the part of the game controller the directory reads from.
type Source interface {
	GamesByUser(ctx context.Context, userID string) ([]*pvpchess.Game, error)
	WatchUser(ctx context.Context, userID string) (*pvpchess.Subscription, error)
}

type Service struct {
	games  Source
	users  userdir.Directory
	logger *zap.Logger
}

// NewService builds the directory service. users may be nil, in which case
// opponents are shown by id.
func NewService(games Source, users userdir.Directory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{games: games, users: users, logger: logger}
}

// Get computes the directory once.
func (s *Service) Get(ctx context.Context, userID string) (*Directory, error) {
	games, err := s.games.GamesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := Build(userID, games)
	newNameCache(s).enrich(ctx, d)
	return d, nil
}

// Live recomputes the directory after every change to the user's games.
// Views holds at most one pending directory; a slow reader skips straight
// to the newest one.
type Live struct {
	sub    *pvpchess.Subscription
	views  chan *Directory
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (l *Live) Views() <-chan *Directory { return l.views }

func (l *Live) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.sub.Close()
		<-l.done
	})
	return err
}

// Live subscribes to userID's games. The first view reflects every game that
// existed at subscription time.
func (s *Service) Live(ctx context.Context, userID string) (*Live, error) {
	sub, err := s.games.WatchUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Live{
		sub:    sub,
		views:  make(chan *Directory, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, l, userID)
	return l, nil
}

func (s *Service) run(ctx context.Context, l *Live, userID string) {
	defer close(l.done)
	defer close(l.views)

	games := make(map[string]*pvpchess.Game)
	names := newNameCache(s)
	apply := func(snap pvpchess.Snapshot) {
		if snap.Removed() {
			delete(games, snap.GameID)
			return
		}
		games[snap.GameID] = snap.Game
	}
	publish := func() {
		list := make([]*pvpchess.Game, 0, len(games))
		for _, g := range games {
			list = append(list, g)
		}
		d := Build(userID, list)
		names.enrich(ctx, d)
		// latest wins
		select {
		case <-l.views:
		default:
		}
		l.views <- d
	}

	updates := l.sub.Updates()
	for i := 0; i < l.sub.Initial(); i++ {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			apply(snap)
		}
	}
	publish()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			apply(snap)
			publish()
		}
	}
}

// nameCache resolves opponent profiles once per id.
type nameCache struct {
	s     *Service
	known map[string]userdir.User
}

func newNameCache(s *Service) *nameCache {
	return &nameCache{s: s, known: make(map[string]userdir.User)}
}

func (c *nameCache) enrich(ctx context.Context, d *Directory) {
	if c.s.users == nil {
		return
	}
	for _, list := range [][]Entry{d.Incoming, d.Outgoing, d.Active} {
		for i := range list {
			list[i].Opponent = c.lookup(ctx, list[i].Opponent.ID)
		}
	}
}

func (c *nameCache) lookup(ctx context.Context, id string) userdir.User {
	if u, ok := c.known[id]; ok {
		return u
	}
	u, err := c.s.users.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, userdir.ErrNotFound) {
			c.s.logger.Warn("directory_user_lookup_error", zap.String("user_id", id), zap.Error(err))
			return userdir.User{ID: id}
		}
		u = userdir.User{ID: id}
	}
	c.known[id] = u
	return u
}
