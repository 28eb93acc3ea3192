// Package directory projects a user's games into incoming challenges,
// outgoing challenges and active games.
package directory

import (
	"sort"
	"strings"

	"github.com/park285/cheese-teamchess/internal/pvpchess"
	"github.com/park285/cheese-teamchess/internal/userdir"
	"github.com/park285/cheese-teamchess/pkg/chessdto"
)

// Entry is one unfinished game from the owner's point of view.
type Entry struct {
	Game     *pvpchess.Game
	Color    pvpchess.Color
	Opponent userdir.User
	MyTurn   bool
}

// Directory partitions the owner's unfinished games. Every pending or active
// game the owner takes part in appears in exactly one list.
type Directory struct {
	UserID   string
	Incoming []Entry
	Outgoing []Entry
	Active   []Entry
}

// Build partitions games for userID. Completed games and games the user is
// not part of are skipped. Each list is ordered newest update first.
func Build(userID string, games []*pvpchess.Game) *Directory {
	userID = strings.TrimSpace(userID)
	d := &Directory{UserID: userID, Incoming: []Entry{}, Outgoing: []Entry{}, Active: []Entry{}}
	for _, g := range games {
		if g == nil || !g.IsParticipant(userID) {
			continue
		}
		e := Entry{
			Game:     g,
			Color:    g.ColorOf(userID),
			Opponent: userdir.User{ID: g.OpponentOf(userID)},
		}
		switch g.Status {
		case pvpchess.StatusPending:
			if g.ChallengerID == userID {
				d.Outgoing = append(d.Outgoing, e)
			} else {
				d.Incoming = append(d.Incoming, e)
			}
		case pvpchess.StatusActive:
			e.MyTurn = g.CurrentTurn == e.Color
			d.Active = append(d.Active, e)
		}
	}
	for _, list := range [][]Entry{d.Incoming, d.Outgoing, d.Active} {
		sortNewestFirst(list)
	}
	return d
}

func sortNewestFirst(list []Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Game, list[j].Game
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}

// Len counts all entries.
func (d *Directory) Len() int { return len(d.Incoming) + len(d.Outgoing) + len(d.Active) }

// DTO converts the directory for the wire.
func (d *Directory) DTO() chessdto.Directory {
	return chessdto.Directory{
		UserID:   d.UserID,
		Incoming: entriesDTO(d.Incoming),
		Outgoing: entriesDTO(d.Outgoing),
		Active:   entriesDTO(d.Active),
	}
}

func entriesDTO(list []Entry) []chessdto.DirectoryEntry {
	out := make([]chessdto.DirectoryEntry, 0, len(list))
	for _, e := range list {
		out = append(out, chessdto.DirectoryEntry{
			GameID: e.Game.ID,
			Status: string(e.Game.Status),
			Opponent: chessdto.PlayerProfile{
				ID:          e.Opponent.ID,
				DisplayName: e.Opponent.Name(),
				AvatarURL:   e.Opponent.AvatarURL,
			},
			Color:     string(e.Color),
			MyTurn:    e.MyTurn,
			MoveCount: len(e.Game.Moves),
			UpdatedAt: e.Game.UpdatedAt,
		})
	}
	return out
}
