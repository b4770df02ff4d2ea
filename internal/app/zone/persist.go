package zone

import (
	"context"
	"time"

	"zone/internal/app/echo"
	"zone/internal/app/moderation"
	"zone/internal/app/playback"
	"zone/internal/app/storage"
	"zone/internal/pkg/errs"
)

// Record keys. Each is loaded and saved wholesale.
const (
	KeyPlayback = "playback"
	KeyBans     = "bans"
	KeyEchoes   = "echoes"
)

// Snapshot is a copy of all persisted zone state.
type Snapshot struct {
	Playback playback.State
	Bans     []moderation.Ban
	Echoes   []echo.Echo
}

func (z *Zone) snapshot() Snapshot {
	return Snapshot{
		Playback: z.sched.Snapshot(),
		Bans:     z.bans.List(),
		Echoes:   z.echoes.List(),
	}
}

// Snapshot copies the persisted state on the loop.
func (z *Zone) Snapshot(ctx context.Context) (Snapshot, error) {
	return call(ctx, z, func() (Snapshot, error) {
		return z.snapshot(), nil
	})
}

// Restore replaces the persisted state and resumes the timeline. It must be
// called before Run.
func (z *Zone) Restore(snap Snapshot) {
	z.sched.Restore(snap.Playback)
	z.bans.Restore(snap.Bans)
	z.echoes.Restore(snap.Echoes)
	z.sched.Resume()
}

// Load reads every record from b and restores it. Missing records leave
// their part of the zone empty. It must be called before Run.
func (z *Zone) Load(ctx context.Context, b storage.Backend) error {
	var snap Snapshot

	if _, err := storage.LoadJSON(ctx, b, KeyPlayback, &snap.Playback); err != nil {
		return err
	}
	if _, err := storage.LoadJSON(ctx, b, KeyBans, &snap.Bans); err != nil {
		return err
	}
	if _, err := storage.LoadJSON(ctx, b, KeyEchoes, &snap.Echoes); err != nil {
		return err
	}

	z.Restore(snap)
	z.logger.Info().
		Int("queued", len(snap.Playback.Queue)).
		Int("bans", len(snap.Bans)).
		Int("echoes", len(snap.Echoes)).
		Msg("Zone state loaded.")
	return nil
}

// Save snapshots the zone and writes it to the configured store.
func (z *Zone) Save(ctx context.Context) error {
	if z.cfg.Store == nil {
		return errs.NewError(errs.ErrPersistence)
	}
	snap, err := z.Snapshot(ctx)
	if err != nil {
		return err
	}
	return z.persist(ctx, snap)
}

// persist writes snap outside the loop.
func (z *Zone) persist(ctx context.Context, snap Snapshot) error {
	z.saving.Lock()
	defer z.saving.Unlock()

	if snap.Bans == nil {
		snap.Bans = []moderation.Ban{}
	}
	if snap.Echoes == nil {
		snap.Echoes = []echo.Echo{}
	}

	if err := storage.SaveJSON(ctx, z.cfg.Store, KeyPlayback, snap.Playback); err != nil {
		return err
	}
	if err := storage.SaveJSON(ctx, z.cfg.Store, KeyBans, snap.Bans); err != nil {
		return err
	}
	return storage.SaveJSON(ctx, z.cfg.Store, KeyEchoes, snap.Echoes)
}

// Autosave saves every interval until ctx is cancelled or the zone stops.
func (z *Zone) Autosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 || z.cfg.Store == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := z.Save(ctx); err != nil {
				z.logger.Error().Err(err).Msg("Autosave failed.")
			} else {
				z.logger.Debug().Msg("Autosave finished.")
			}
		case <-ctx.Done():
			return
		case <-z.done:
			return
		}
	}
}
