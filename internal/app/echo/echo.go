/*
Package echo stores chat markers left at room cells.

Each cell holds at most one echo; writing a cell replaces whatever was there.
An echo left by an admin can only be replaced or cleared by another admin.
*/
package echo

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"zone/internal/app/user"
	"zone/internal/pkg/errs"
)

// TextLimit is the maximum echo length in runes.
const TextLimit = 256

// Echo is a snapshot of its author at write time plus the text.
type Echo struct {
	UserID   string        `json:"userId"`
	Name     string        `json:"name,omitempty"`
	Avatar   string        `json:"avatar,omitempty"`
	Emotes   []string      `json:"emotes,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
	Position user.Position `json:"position"`
	Text     string        `json:"text"`
}

// AdminAuthored reports whether the echo's author was an admin when writing.
func (e Echo) AdminAuthored() bool {
	return slices.Contains(e.Tags, user.TagAdmin)
}

// Change is the outcome of a write, in the shape of the "echoes" message.
type Change struct {
	Added   []Echo          `json:"added"`
	Removed []user.Position `json:"removed"`
}

// Empty reports whether the write changed nothing.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Store is the echo grid. It is not safe for concurrent use.
type Store struct {
	cells map[user.Position]Echo
}

// NewStore returns an empty grid.
func NewStore() *Store {
	return &Store{cells: make(map[user.Position]Echo)}
}

// Write places text at pos on behalf of author. Empty text clears the cell.
func (s *Store) Write(author user.User, pos user.Position, text string) (Change, error) {
	if !pos.InBounds() {
		return Change{}, errs.Validation(fmt.Sprintf("position %v is outside the room", pos))
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > TextLimit {
		return Change{}, errs.Validation(fmt.Sprintf("echo is longer than %d characters", TextLimit))
	}

	existing, occupied := s.cells[pos]
	if occupied && existing.AdminAuthored() && !author.IsAdmin() {
		return Change{}, errs.NewError(errs.ErrForbidden, "overwrite an admin echo")
	}

	if text == "" {
		if !occupied {
			return Change{}, nil
		}
		delete(s.cells, pos)
		return Change{Added: []Echo{}, Removed: []user.Position{pos}}, nil
	}

	snapshot := author.Clone()
	e := Echo{
		UserID:   snapshot.ID,
		Name:     snapshot.Name,
		Avatar:   snapshot.Avatar,
		Emotes:   snapshot.Emotes,
		Tags:     snapshot.Tags,
		Position: pos,
		Text:     text,
	}
	s.cells[pos] = e
	return Change{Added: []Echo{e}, Removed: []user.Position{}}, nil
}

// At returns the echo at pos.
func (s *Store) At(pos user.Position) (Echo, bool) {
	e, ok := s.cells[pos]
	return e, ok
}

// Len returns the number of occupied cells.
func (s *Store) Len() int { return len(s.cells) }

// List returns every echo ordered by position.
func (s *Store) List() []Echo {
	list := make([]Echo, 0, len(s.cells))
	for _, e := range s.cells {
		list = append(list, e)
	}
	slices.SortFunc(list, func(a, b Echo) int {
		for i := range a.Position {
			if c := cmp.Compare(a.Position[i], b.Position[i]); c != 0 {
				return c
			}
		}
		return 0
	})
	return list
}

// Restore replaces the grid. Later entries for the same cell win.
func (s *Store) Restore(list []Echo) {
	s.cells = make(map[user.Position]Echo, len(list))
	for _, e := range list {
		s.cells[e.Position] = e
	}
}
