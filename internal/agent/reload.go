package agent

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
)

const defaultReloadDebounce = 250 * time.Millisecond

// AgentFactory builds a fresh agent version, typically from a re-read config file.
type AgentFactory func(ctx context.Context) (*interceptor.Dispatcher, error)

// Reloader installs a new agent version whenever the watched file changes.
// A version that fails to build or install is discarded and the active one
// keeps serving.
type Reloader struct {
	path         string
	registration *Registration
	factory      AgentFactory
	metadataSink metadata.MetadataSink
	debounce     time.Duration
}

func NewReloader(
	path string,
	registration *Registration,
	factory AgentFactory,
	metadataSink metadata.MetadataSink,
) *Reloader {
	return &Reloader{
		path:         filepath.Clean(path),
		registration: registration,
		factory:      factory,
		metadataSink: metadataSink,
		debounce:     defaultReloadDebounce,
	}
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file, so replacing the file by rename is seen too.
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			timerC = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.recordError("Reloader.Run", err)
		case <-timerC:
			timerC = nil
			_ = r.Reload(ctx)
		}
	}
}

// Reload builds and installs a new version once.
func (r *Reloader) Reload(ctx context.Context) error {
	agent, err := r.factory(ctx)
	if err != nil {
		r.recordError("Reloader.Reload", err)
		return err
	}
	if err := r.registration.Update(ctx, agent); err != nil {
		r.recordError("Reloader.Reload", err)
		return err
	}
	return nil
}

func (r *Reloader) recordError(action string, err error) {
	r.metadataSink.RecordError(
		time.Now(),
		"agent",
		action,
		metadata.CauseUnknown,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrMessage, r.path)},
	)
}
