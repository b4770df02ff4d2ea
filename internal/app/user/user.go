/*
Package user defines the presence record of a zone participant and the single
validated path through which it may change.

A User is created when a ticket is redeemed and destroyed when its connection
goes away. Clients never write a User directly; they send a partial update
that ParseUpdate validates into a Patch.
*/
package user

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Room bounds. Positions are grid cells inside [0,Width) x [0,Height) x [0,Depth).
const (
	RoomWidth  = 16
	RoomHeight = 8
	RoomDepth  = 16
)

const (
	// NameLimit is the maximum display name length in runes.
	NameLimit = 16

	// AvatarLimit is the maximum encoded avatar size in bytes.
	AvatarLimit = 1024
)

// Role tags.
const (
	TagAdmin = "admin"
	TagDJ    = "dj"
)

// Emotes is the fixed set of emotes a user may display.
var Emotes = []string{"wiggle", "shake", "spin", "shout", "rot", "dance"}

// Tags is the fixed set of role tags.
var Tags = []string{TagAdmin, TagDJ}

// Position is a grid cell: x, y (height), z.
type Position [3]int

// UnmarshalJSON accepts exactly three integers.
func (p *Position) UnmarshalJSON(data []byte) error {
	var coords []int
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != 3 {
		return fmt.Errorf("position needs 3 coordinates, got %d", len(coords))
	}
	copy(p[:], coords)
	return nil
}

// InBounds reports whether p lies inside the room.
func (p Position) InBounds() bool {
	return p[0] >= 0 && p[0] < RoomWidth &&
		p[1] >= 0 && p[1] < RoomHeight &&
		p[2] >= 0 && p[2] < RoomDepth
}

// User is the presence record of one connected participant.
type User struct {
	// ID is assigned by the ticket broker and never reused.
	ID string `json:"userId"`

	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`

	// Position is nil while the user is not spawned.
	Position *Position `json:"position,omitempty"`

	Emotes []string `json:"emotes,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// HasTag reports whether u carries tag.
func (u User) HasTag(tag string) bool {
	return slices.Contains(u.Tags, tag)
}

// IsAdmin reports whether u carries the admin tag.
func (u User) IsAdmin() bool { return u.HasTag(TagAdmin) }

// IsDJ reports whether u carries the dj tag.
func (u User) IsDJ() bool { return u.HasTag(TagDJ) }

// Spawned reports whether u has a position.
func (u User) Spawned() bool { return u.Position != nil }

// Clone returns a deep copy safe to hand outside the zone loop.
func (u User) Clone() User {
	c := u
	if u.Position != nil {
		p := *u.Position
		c.Position = &p
	}
	c.Emotes = slices.Clone(u.Emotes)
	c.Tags = slices.Clone(u.Tags)
	return c
}

// AddTag adds tag if missing and reports whether the set changed.
func (u *User) AddTag(tag string) bool {
	if u.HasTag(tag) {
		return false
	}
	u.Tags = append(u.Tags, tag)
	slices.Sort(u.Tags)
	return true
}

// RemoveTag removes tag and reports whether the set changed.
func (u *User) RemoveTag(tag string) bool {
	i := slices.Index(u.Tags, tag)
	if i < 0 {
		return false
	}
	u.Tags = slices.Delete(u.Tags, i, i+1)
	return true
}

// ValidTag reports whether tag is a known role tag.
func ValidTag(tag string) bool {
	return slices.Contains(Tags, tag)
}
