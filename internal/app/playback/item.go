package playback

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"zone/internal/pkg/errs"
)

const (
	// TitleLimit is the maximum title length in runes.
	TitleLimit = 128

	// MaxDuration rejects media that would monopolise the zone.
	MaxDuration = 6 * time.Hour
)

// Media describes something playable. Duration is in milliseconds on the wire.
type Media struct {
	Title    string `json:"title"`
	Duration int64  `json:"duration"`
	Src      string `json:"src"`
}

// Length returns the media duration.
func (m Media) Length() time.Duration {
	return time.Duration(m.Duration) * time.Millisecond
}

// Validate checks the fields the scheduler relies on.
func (m Media) Validate() error {
	switch {
	case strings.TrimSpace(m.Src) == "":
		return errs.NewError(errs.ErrInvalidMedia, "missing source")
	case strings.TrimSpace(m.Title) == "":
		return errs.NewError(errs.ErrInvalidMedia, "missing title")
	case utf8.RuneCountInString(m.Title) > TitleLimit:
		return errs.NewError(errs.ErrInvalidMedia, fmt.Sprintf("title longer than %d characters", TitleLimit))
	case m.Duration <= 0:
		return errs.NewError(errs.ErrInvalidMedia, "duration must be positive")
	case m.Length() > MaxDuration:
		return errs.NewError(errs.ErrInvalidMedia, fmt.Sprintf("longer than %s", MaxDuration))
	}
	return nil
}

// Info records who queued an item.
type Info struct {
	UserID string `json:"userId,omitempty"`
	IP     string `json:"ip,omitempty"`

	// Banger marks an item drawn at random from the library's tagged subset.
	Banger bool `json:"banger,omitempty"`
}

// QueueItem is one entry of the shared queue.
type QueueItem struct {
	ItemID int64 `json:"itemId"`
	Media  Media `json:"media"`
	Info   Info  `json:"info"`
}

// Public returns a copy without the submitter's network identity.
func (q QueueItem) Public() QueueItem {
	q.Info.IP = ""
	return q
}

// Actor is whoever asks the scheduler to do something.
type Actor struct {
	UserID string
	IP     string
	Admin  bool
	DJ     bool

	// Override is set when the caller presented the moderation secret.
	Override bool
}
