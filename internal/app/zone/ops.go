package zone

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"zone/internal/app/echo"
	"zone/internal/app/moderation"
	"zone/internal/app/playback"
	"zone/internal/app/user"
	"zone/internal/pkg/errs"
)

// Timeline is the read-only view of playback served over REST.
type Timeline struct {
	Current    *playback.QueueItem  `json:"current,omitempty"`
	Time       int64                `json:"time"`
	Queue      []playback.QueueItem `json:"queue"`
	Restricted bool                 `json:"restricted"`
	Votes      int                  `json:"votes"`
}

func (z *Zone) lookup(userID string) (*member, error) {
	m, ok := z.members[userID]
	if !ok {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}
	return m, nil
}

func actorOf(m *member, override bool) playback.Actor {
	return playback.Actor{
		UserID:   m.user.ID,
		IP:       m.ip,
		Admin:    m.user.IsAdmin(),
		DJ:       m.user.IsDJ(),
		Override: override,
	}
}

// checkPassword verifies the shared admin secret. It runs outside the loop.
func (z *Zone) checkPassword(password string) error {
	if len(z.cfg.AdminPasswordHash) == 0 {
		return errs.NewError(errs.ErrForbidden, "use an admin password on this zone")
	}
	if err := bcrypt.CompareHashAndPassword(z.cfg.AdminPasswordHash, []byte(password)); err != nil {
		return errs.NewError(errs.ErrWrongPassword)
	}
	return nil
}

// UserForToken resolves a live token to its user id.
func (z *Zone) UserForToken(ctx context.Context, token string) (string, bool) {
	id, err := call(ctx, z, func() (string, error) {
		id, ok := z.tokens[token]
		if !ok {
			return "", errs.NewError(errs.ErrUnauthorized)
		}
		return id, nil
	})
	return id, err == nil
}

// Enqueue submits media on behalf of userID.
func (z *Zone) Enqueue(ctx context.Context, userID string, media playback.Media, banger bool) (playback.QueueItem, error) {
	return call(ctx, z, func() (playback.QueueItem, error) {
		m, err := z.lookup(userID)
		if err != nil {
			return playback.QueueItem{}, err
		}
		item, err := z.sched.Enqueue(media, actorOf(m, false), banger)
		if err != nil {
			return playback.QueueItem{}, err
		}
		return item.Public(), nil
	})
}

// Skip asks to skip itemID. A non-empty password must be the admin secret
// and turns the request into an override.
func (z *Zone) Skip(ctx context.Context, userID string, itemID int64, password string) (playback.SkipResult, error) {
	override := false
	if password != "" {
		if err := z.checkPassword(password); err != nil {
			return playback.SkipResult{}, err
		}
		override = true
	}

	return call(ctx, z, func() (playback.SkipResult, error) {
		m, err := z.lookup(userID)
		if err != nil {
			return playback.SkipResult{}, err
		}
		result, err := z.sched.Skip(itemID, actorOf(m, override), len(z.members))
		if err != nil {
			return playback.SkipResult{}, err
		}
		if !result.Skipped {
			z.broadcast(StatusMessage{
				Type: TypeStatus,
				Text: fmt.Sprintf("%d/%d votes to skip", result.Votes, result.Needed),
			})
		}
		return result, nil
	})
}

// Unqueue removes a queued item on behalf of userID.
func (z *Zone) Unqueue(ctx context.Context, userID string, itemID int64) error {
	_, err := call(ctx, z, func() (struct{}, error) {
		m, err := z.lookup(userID)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, z.sched.Remove(itemID, actorOf(m, false))
	})
	return err
}

// WriteEcho writes text at pos, or at the user's own cell when pos is nil.
func (z *Zone) WriteEcho(ctx context.Context, userID string, pos *user.Position, text string) (echo.Change, error) {
	return call(ctx, z, func() (echo.Change, error) {
		m, err := z.lookup(userID)
		if err != nil {
			return echo.Change{}, err
		}

		var target user.Position
		switch {
		case pos != nil:
			target = *pos
		case m.user.Position != nil:
			target = *m.user.Position
		default:
			return echo.Change{}, errs.NewError(errs.ErrNotSpawned)
		}

		change, err := z.echoes.Write(m.user, target, text)
		if err != nil {
			return echo.Change{}, err
		}
		if !change.Empty() {
			z.broadcast(EchoesMessage{Type: TypeEchoes, Added: change.Added, Removed: change.Removed})
		}
		return change, nil
	})
}

// Authorize grants the admin tag to userID when password is the admin secret.
func (z *Zone) Authorize(ctx context.Context, userID, password string) error {
	if err := z.checkPassword(password); err != nil {
		return err
	}

	_, err := call(ctx, z, func() (struct{}, error) {
		m, err := z.lookup(userID)
		if err != nil {
			return struct{}{}, err
		}
		if m.user.AddTag(user.TagAdmin) {
			z.logger.Info().Str("user_id", userID).Msg("User authorized as admin.")
			z.broadcastTags(m)
		}
		z.sendTo(m.client, StatusMessage{Type: TypeStatus, Text: "You are now an admin."})
		return struct{}{}, nil
	})
	return err
}

// Command runs an admin command as userID. Permission is checked against
// the user's tags at the moment the command runs.
func (z *Zone) Command(ctx context.Context, userID string, cmd moderation.Command) error {
	_, err := call(ctx, z, func() (struct{}, error) {
		m, err := z.lookup(userID)
		if err != nil {
			return struct{}{}, err
		}
		if err := moderation.Permit(m.user.Tags, cmd); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, z.execute(m, cmd)
	})
	return err
}

// Users returns the presence snapshot.
func (z *Zone) Users(ctx context.Context) ([]user.User, error) {
	return call(ctx, z, func() ([]user.User, error) {
		return z.userList(), nil
	})
}

// Timeline returns the playback snapshot with elapsed time computed now.
func (z *Zone) Timeline(ctx context.Context) (Timeline, error) {
	return call(ctx, z, func() (Timeline, error) {
		current, elapsed := z.sched.Current()
		view := Timeline{
			Time:       elapsed.Milliseconds(),
			Queue:      publicItems(z.sched.Queue()),
			Restricted: z.sched.Restricted(),
			Votes:      z.sched.Votes(),
		}
		if current != nil {
			public := current.Public()
			view.Current = &public
		}
		return view, nil
	})
}

// Echoes returns every echo.
func (z *Zone) Echoes(ctx context.Context) ([]echo.Echo, error) {
	return call(ctx, z, func() ([]echo.Echo, error) {
		return z.echoes.List(), nil
	})
}

// IsBanned reports whether ip is banned.
func (z *Zone) IsBanned(ctx context.Context, ip string) (bool, error) {
	return call(ctx, z, func() (bool, error) {
		return z.bans.IsBanned(ip), nil
	})
}
