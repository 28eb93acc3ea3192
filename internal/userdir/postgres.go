package userdir

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// Postgres reads the shared users table:
//
//	users(id text primary key, display_name text, avatar_url text)
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Lookup(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if p == nil || p.db == nil || userID == "" {
		return User{}, ErrNotFound
	}
	var (
		u      User
		name   sql.NullString
		avatar sql.NullString
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, display_name, avatar_url FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &name, &avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	u.DisplayName = name.String
	u.AvatarURL = avatar.String
	return u, nil
}
