package app

import (
	"context"
	"fmt"

	"github.com/ayusman/hearttree/internal/config"
	"github.com/ayusman/hearttree/internal/log"
	"github.com/ayusman/hearttree/internal/scene"
	"github.com/ayusman/hearttree/internal/store"
)

// Toggle flips the scene between gathered and scattered and clears focus.
func (a *App) Toggle(ctx context.Context) (scene.Snapshot, error) {
	var snap scene.Snapshot
	err := a.do(ctx, func() error {
		logTransition("toggle", a.machine.Toggle())
		snap = a.machine.Snapshot()
		return nil
	})
	return snap, err
}

// SetState moves the scene to s and clears focus.
func (a *App) SetState(ctx context.Context, s scene.State) (scene.Snapshot, error) {
	var snap scene.Snapshot
	err := a.do(ctx, func() error {
		logTransition("set", a.machine.SetState(s))
		snap = a.machine.Snapshot()
		return nil
	})
	return snap, err
}

// ClickSelect focuses the photo at index, or clears focus if it is already
// focused. It fails with scene.ErrSelectNotAllowed while gestures are on or
// the scene is gathered.
func (a *App) ClickSelect(ctx context.Context, index int) (scene.Snapshot, error) {
	var snap scene.Snapshot
	err := a.do(ctx, func() error {
		t, err := a.machine.ClickSelect(index, len(a.photos))
		if err != nil {
			return err
		}
		logTransition("click", t)
		snap = a.machine.Snapshot()
		return nil
	})
	return snap, err
}

// AddPhoto appends p to the gallery. p.ID must be set.
func (a *App) AddPhoto(ctx context.Context, p *store.Photo) error {
	return a.do(ctx, func() error {
		if err := a.config.Store.Photos().Create(p); err != nil {
			return fmt.Errorf("create photo: %w", err)
		}
		if err := a.reloadPhotos(); err != nil {
			return err
		}
		log.Info("photo added", "id", p.ID, "index", p.Position, "count", len(a.photos))
		return nil
	})
}

// RemovePhoto deletes the photo with id. Focus on it is cleared; focus on a
// later photo follows it to its new index.
func (a *App) RemovePhoto(ctx context.Context, id string) error {
	return a.do(ctx, func() error {
		index, err := a.config.Store.Photos().Delete(id)
		if err != nil {
			return fmt.Errorf("delete photo %s: %w", id, err)
		}
		logTransition("photo-removed", a.machine.PhotoRemoved(index))
		if err := a.reloadPhotos(); err != nil {
			return err
		}
		log.Info("photo removed", "id", id, "index", index, "count", len(a.photos))
		return nil
	})
}

// Photos returns the gallery in scene order.
func (a *App) Photos() ([]*store.Photo, error) {
	return a.config.Store.Photos().List()
}

// SetParticleCount regenerates the particle layout for n particles and
// persists the choice.
func (a *App) SetParticleCount(ctx context.Context, n int) error {
	if err := config.ValidateParticleCount(n); err != nil {
		return fmt.Errorf("particle count: %w", err)
	}
	return a.do(ctx, func() error {
		if n == a.engine.Count() {
			return nil
		}
		if err := a.config.Store.Settings().SetInt(store.SettingParticleCount, n); err != nil {
			return fmt.Errorf("save particle count: %w", err)
		}
		a.engine.Reset(n)
		log.Info("particle layout regenerated", "count", n)
		return nil
	})
}

// SetGesturesEnabled turns gesture input on or off and returns the new
// status. Enabling opens the camera; when that is impossible the status
// becomes unavailable and the error wraps ErrGesturesUnavailable.
// Disabling closes the camera before returning, and any inference still in
// flight is discarded.
func (a *App) SetGesturesEnabled(ctx context.Context, enabled bool) (GestureStatus, error) {
	var status GestureStatus
	err := a.do(ctx, func() error {
		var err error
		if enabled {
			err = a.enableGestures()
		} else if a.gestures == StatusActive {
			a.disableGestures(StatusOff, nil)
		} else if a.gestures == StatusUnavailable {
			a.gestures = StatusOff
			a.gestureErr = nil
		}
		status = a.gestures
		return err
	})
	return status, err
}
