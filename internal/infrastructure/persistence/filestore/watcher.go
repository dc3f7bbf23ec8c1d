package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/credicefi/crediface/pkg/logger"
)

// Watcher invalidates TenantRepo snapshots when files change on disk.
type Watcher struct {
	repo    *TenantRepo
	watcher *fsnotify.Watcher
	logger  logger.Logger

	mu        sync.Mutex
	listeners []func(tenantID string)
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a watcher for the directories of repo.
func NewWatcher(repo *TenantRepo, log logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		repo:    repo,
		watcher: fw,
		logger:  log.WithComponent("filestore-watcher"),
		done:    make(chan struct{}),
	}, nil
}

// OnChange registers fn to be called with the tenant id of every change, after
// the repository snapshot has been dropped.
func (w *Watcher) OnChange(fn func(tenantID string)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

// Start begins watching. Missing directories are created so tenants added
// later are still picked up.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range []string{w.repo.ConfigDir(), w.repo.DataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(w.repo.DataDir())
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.watcher.Add(filepath.Join(w.repo.DataDir(), e.Name())); err != nil {
				w.logger.Warn(ctx, "Failed to watch tenant data directory",
					logger.String("dir", e.Name()), logger.Err(err))
			}
		}
	}

	go w.loop(ctx)
	w.logger.Info(ctx, "Watching tenant files",
		logger.String("config_dir", w.repo.ConfigDir()),
		logger.String("data_dir", w.repo.DataDir()),
	)
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "File watcher error", logger.Err(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}

	// new tenant data directories need their own watch
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.repo.DataDir()) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
		}
	}

	tenantID, ok := w.tenantOf(event.Name)
	if !ok {
		return
	}

	w.repo.Invalidate(tenantID)
	w.logger.Debug(ctx, "Tenant files changed",
		logger.String("tenant_id", tenantID),
		logger.String("op", event.Op.String()),
	)

	w.mu.Lock()
	listeners := append([]func(string){}, w.listeners...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(tenantID)
	}
}

// tenantOf maps a changed path to the tenant it belongs to.
func (w *Watcher) tenantOf(path string) (string, bool) {
	path = filepath.Clean(path)
	if filepath.Dir(path) == filepath.Clean(w.repo.ConfigDir()) {
		name := filepath.Base(path)
		if filepath.Ext(name) != ".json" {
			return "", false
		}
		return strings.TrimSuffix(name, ".json"), true
	}

	rel, err := filepath.Rel(filepath.Clean(w.repo.DataDir()), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return strings.SplitN(filepath.ToSlash(rel), "/", 2)[0], true
}
