package app

import (
	"go.uber.org/multierr"

	"procterm/internal/instance"
	"procterm/internal/process"
	"procterm/internal/registry"
)

// prune forgets registry entries whose process is gone and removes locks
// left behind by crashed invocations.
func (a *App) prune() error {
	var errs error
	err := a.withRegistry(func(store *registry.Store) error {
		entries, err := store.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !instance.Finished(e.Status) && process.IsAlive(e.PID) {
				continue
			}
			if err := store.RemoveByName(e.Name); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			a.pruneLog.Infof("removed %s (pid %d, %s)", e.Name, e.PID, e.Status)
		}
		return nil
	})
	if err != nil {
		return err
	}

	removed, err := instance.PruneLocks(a.lockDir(), process.IsAlive)
	errs = multierr.Append(errs, err)
	for _, path := range removed {
		a.pruneLog.Infof("removed stale lock %s", path)
	}
	return errs
}
