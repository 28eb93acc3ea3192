package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/park285/cheese-teamchess/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gameKey(id string) string         { return "pvp:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string  { return "pvp:index:user:" + strings.TrimSpace(userID) }
func gameChannel(id string) string     { return "pvp:events:game:" + strings.TrimSpace(id) }
func userChannel(userID string) string { return "pvp:events:user:" + strings.TrimSpace(userID) }

// OpenRedis dials REDIS_URL (redis:// or rediss://) and pings it.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game store")
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// mutateFunc receives a private copy of the stored record (nil when absent)
// and returns the record to write. Returning (nil, nil) removes the record.
type mutateFunc func(cur *Game) (*Game, error)

// commit is the only write path. The record key is WATCHed, fn evaluates
// its preconditions against the value read inside the watch, and the new
// value is written together with its change events in one MULTI. A
// concurrent writer aborts the EXEC and the whole read-check-write reruns.
func (m *Manager) commit(ctx context.Context, id string, fn mutateFunc) (*Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrGameNotFound
	}
	key := gameKey(id)
	var out *Game

	txf := func(tx *redis.Tx) error {
		cur, err := loadGame(ctx, tx, key)
		if err != nil {
			var bad *corruptRecord
			if errors.As(err, &bad) {
				return rejected{err}
			}
			return err
		}
		next, err := fn(cur.Clone())
		if err != nil {
			return rejected{err}
		}
		if next == nil && cur == nil {
			return rejected{ErrGameNotFound}
		}

		now := m.now()
		snap := Snapshot{GameID: id}
		var raw []byte
		if next != nil {
			next.ID = id
			next.UpdatedAt = now
			if next.CreatedAt.IsZero() {
				next.CreatedAt = now
			}
			if cur != nil {
				next.Version = cur.Version + 1
			} else {
				next.Version = 1
			}
			if raw, err = json.Marshal(next); err != nil {
				return rejected{fmt.Errorf("encode game %s: %w", id, err)}
			}
			snap.Game = next
		}
		ref := next
		if ref == nil {
			ref = cur
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			return rejected{fmt.Errorf("encode event %s: %w", id, err)}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, idxUserKey(cur.WhitePlayerID), id)
				pipe.SRem(ctx, idxUserKey(cur.BlackPlayerID), id)
			} else {
				pipe.Set(ctx, key, raw, m.gameTTL)
				// Indexes outlive every game they list.
				for _, uid := range []string{next.WhitePlayerID, next.BlackPlayerID} {
					if cur == nil {
						pipe.SAdd(ctx, idxUserKey(uid), id)
					}
					if m.gameTTL > 0 {
						pipe.Expire(ctx, idxUserKey(uid), m.gameTTL)
					}
				}
			}
			pipe.Publish(ctx, gameChannel(id), payload)
			pipe.Publish(ctx, userChannel(ref.WhitePlayerID), payload)
			pipe.Publish(ctx, userChannel(ref.BlackPlayerID), payload)
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}

	attempts := m.retries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		err := m.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		var rej rejected
		if errors.As(err, &rej) {
			return nil, rej.err
		}
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("pvp_commit_retry", zap.String("game_id", id), zap.Int("attempt", i+1))
			continue
		}
		return nil, storeErr("commit "+id, err)
	}
	return nil, storeErr("commit "+id, fmt.Errorf("write contention after %d attempts", attempts))
}

// rejected carries an error raised before EXEC so it is not mistaken for a
// transport failure.
type rejected struct{ err error }

func (r rejected) Error() string { return r.err.Error() }

// corruptRecord is a stored document that no longer decodes. Retrying
// cannot fix it, so it is never reported as a store outage.
type corruptRecord struct {
	key string
	err error
}

func (c *corruptRecord) Error() string { return "decode " + c.key + ": " + c.err.Error() }
func (c *corruptRecord) Unwrap() error { return c.err }

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadGame(ctx context.Context, r getter, key string) (*Game, error) {
	raw, err := r.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, &corruptRecord{key: key, err: err}
	}
	if g.Moves == nil {
		g.Moves = []string{}
	}
	return &g, nil
}

// Game returns the stored record.
func (m *Manager) Game(ctx context.Context, id string) (*Game, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrGameNotFound
	}
	g, err := loadGame(ctx, m.rdb, gameKey(id))
	if err != nil {
		var bad *corruptRecord
		if errors.As(err, &bad) {
			return nil, err
		}
		return nil, storeErr("load "+id, err)
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// GamesByUser returns every stored game userID takes part in, most recently
// updated first. Expired index entries are skipped.
func (m *Manager) GamesByUser(ctx context.Context, userID string) ([]*Game, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, storeErr("index "+userID, err)
	}
	if len(ids) == 0 {
		return []*Game{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(id)
	}
	vals, err := m.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr("mget "+userID, err)
	}
	list := make([]*Game, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var g Game
		if err := json.Unmarshal([]byte(s), &g); err != nil {
			obslog.L().Warn("pvp_game_decode_error", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		if g.Moves == nil {
			g.Moves = []string{}
		}
		list = append(list, &g)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func defaultNow() time.Time { return time.Now().UTC() }

// Ping checks the store connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.rdb.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
