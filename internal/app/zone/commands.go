package zone

import (
	"context"
	"fmt"

	"zone/internal/app/moderation"
	"zone/internal/app/user"
	"zone/internal/pkg/errs"
)

// execute applies a permitted admin command. It runs on the loop.
func (z *Zone) execute(actor *member, cmd moderation.Command) error {
	logger := z.logger.With().
		Str("actor_id", actor.user.ID).
		Str("command", string(cmd.Name)).
		Logger()

	switch cmd.Name {
	case moderation.CmdBan:
		target, ok := z.members[cmd.UserID]
		if !ok {
			return errs.NewError(errs.ErrUserNotFound)
		}
		if target == actor {
			return errs.Validation("you cannot ban yourself")
		}
		z.bans.Ban(moderation.Ban{
			IP:     target.ip,
			Bannee: target.user.ID,
			Banner: actor.user.ID,
			Reason: cmd.Reason,
			Date:   z.clock.Now().UTC(),
		})
		n := z.dropIP(target.ip, CloseBanned, "banned")
		logger.Info().Str("target_id", cmd.UserID).Int("sessions", n).Msg("IP banned.")

	case moderation.CmdUnban:
		if !z.bans.Unban(cmd.IP) {
			return errs.Validation(fmt.Sprintf("%s is not banned", cmd.IP))
		}
		logger.Info().Msg("IP unbanned.")

	case moderation.CmdGrant, moderation.CmdRevoke:
		target, ok := z.members[cmd.UserID]
		if !ok {
			return errs.NewError(errs.ErrUserNotFound)
		}
		var changed bool
		if cmd.Name == moderation.CmdGrant {
			changed = target.user.AddTag(cmd.Tag)
		} else {
			changed = target.user.RemoveTag(cmd.Tag)
		}
		if changed {
			logger.Info().Str("target_id", cmd.UserID).Str("tag", cmd.Tag).Msg("Tags changed.")
			z.broadcastTags(target)
		}

	case moderation.CmdMode:
		restricted := *cmd.Restricted
		z.sched.SetRestricted(restricted)
		text := "Restricted mode is off."
		if restricted {
			text = "Restricted mode is on. Only DJs can queue and skip."
		}
		logger.Info().Bool("restricted", restricted).Msg("Mode changed.")
		z.broadcast(StatusMessage{Type: TypeStatus, Text: text})

	case moderation.CmdDespawn:
		target, ok := z.members[cmd.UserID]
		if !ok {
			return errs.NewError(errs.ErrUserNotFound)
		}
		if !target.user.Spawned() {
			return nil
		}
		patch := user.Patch{Despawn: true}
		patch.Apply(&target.user)
		z.broadcast(userDelta(target.user.ID, patch.Fields()))
		z.sendTo(target.client, StatusMessage{Type: TypeStatus, Text: "You were despawned by a moderator."})

	case moderation.CmdKill:
		target, ok := z.members[cmd.UserID]
		if !ok {
			return errs.NewError(errs.ErrUserNotFound)
		}
		logger.Info().Str("target_id", cmd.UserID).Msg("Killing session.")
		z.disconnect(target.client, CloseKilled, "removed by a moderator")

	case moderation.CmdSave:
		if z.cfg.Store == nil {
			return errs.NewError(errs.ErrPersistence)
		}
		snap := z.snapshot()
		go func() {
			if err := z.persist(context.Background(), snap); err != nil {
				z.logger.Error().Err(err).Msg("Requested save failed.")
				return
			}
			z.logger.Info().Msg("Requested save finished.")
		}()
		z.sendTo(actor.client, StatusMessage{Type: TypeStatus, Text: "Saving zone state."})

	default:
		return errs.Validation(fmt.Sprintf("unknown command %q", cmd.Name))
	}
	return nil
}

// dropIP tears down every live session from ip and returns how many there were.
func (z *Zone) dropIP(ip string, code int, reason string) int {
	var victims []*Client
	for _, m := range z.members {
		if m.ip == ip {
			victims = append(victims, m.client)
		}
	}
	for _, c := range victims {
		z.disconnect(c, code, reason)
	}
	return len(victims)
}

func (z *Zone) broadcastTags(m *member) {
	tags := emptyIfNil(m.user.Tags)
	patch := user.Patch{Tags: &tags}
	z.broadcast(userDelta(m.user.ID, patch.Fields()))
}
