package specstore

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// reloadDebounce coalesces the burst of filesystem events an editor or
// atomic-rename deploy produces into a single reload.
const reloadDebounce = 200 * time.Millisecond

// Store owns the currently active Bundle and swaps in new ones atomically.
// Readers always see a complete, validated bundle: a reload that fails to
// compile is logged and discarded while the previous bundle stays active.
type Store struct {
	path    string
	logger  logging.Logger
	current atomic.Pointer[Bundle]
	onSwap  func(*Bundle)
}

// Open loads the bundle at path.  Opening fails if the file is missing or
// does not compile; a process should not start without a working spec.
func Open(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Store{path: path, logger: logger.Named("specstore")}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active bundle.  The returned bundle is immutable and
// remains valid even after a subsequent reload swaps in a newer one.
func (s *Store) Current() *Bundle {
	return s.current.Load()
}

// OnSwap registers a callback invoked after each successful swap, for cache
// invalidation and metrics.  Must be called before Watch.
func (s *Store) OnSwap(fn func(*Bundle)) {
	s.onSwap = fn
}

// Reload re-reads and re-compiles the bundle file, swapping it in on
// success.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(err, errors.CodeSpecBundleNotFound, "spec bundle %s", s.path)
		}
		return errors.Wrapf(err, errors.CodeSpecBundleInvalid, "read spec bundle %s", s.path)
	}
	bundle, err := Compile(data)
	if err != nil {
		return err
	}
	s.current.Store(bundle)
	s.logger.Info("spec bundle loaded",
		logging.String("path", s.path),
		logging.String("version", bundle.Version),
		logging.Int("features", len(bundle.Scoring.Features)),
		logging.Int("templates", len(bundle.Report.Templates)))
	if s.onSwap != nil {
		s.onSwap(bundle)
	}
	return nil
}

// Watch blocks until ctx is done, reloading the bundle whenever its file
// changes on disk.  The parent directory is watched rather than the file
// itself so atomic renames (write temp, rename over) are picked up.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create spec bundle watcher")
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "watch %s", dir)
	}
	s.logger.Info("watching spec bundle", logging.String("path", s.path))

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}
		case <-timerC:
			if err := s.Reload(); err != nil {
				// Keep serving the previous bundle; a broken deploy
				// must not take down evaluation.
				s.logger.Error("spec bundle reload failed, keeping previous version",
					logging.String("path", s.path),
					logging.Err(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("spec bundle watcher error", logging.Err(err))
		}
	}
}
