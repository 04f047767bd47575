// Package hotreload reapplies configuration when its file changes on disk.
package hotreload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reloadable represents a component that can be reloaded
type Reloadable interface {
	Reload(ctx context.Context) error
	Name() string
}

// Manager watches files and reloads the registered components once a burst
// of changes has settled for the debounce period.
type Manager struct {
	watcher     *Watcher
	logger      *zap.Logger
	debounce    time.Duration
	reloadables map[string]Reloadable
	files       map[string]struct{}

	mu      sync.RWMutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// NewManager creates a new hot reload manager
func NewManager(logger *zap.Logger, debounce time.Duration) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := NewWatcher(logger)
	if err != nil {
		return nil, err
	}

	return &Manager{
		watcher:     watcher,
		logger:      logger,
		debounce:    debounce,
		reloadables: make(map[string]Reloadable),
		files:       make(map[string]struct{}),
	}, nil
}

// WatchFile watches a single file. Its directory is watched so that editors
// replacing the file by rename are still noticed.
func (m *Manager) WatchFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	m.mu.Lock()
	dirWatched := m.watchedDir(filepath.Dir(absPath))
	m.files[absPath] = struct{}{}
	m.mu.Unlock()

	if dirWatched {
		return nil
	}
	return m.watcher.Add(filepath.Dir(absPath))
}

func (m *Manager) watchedDir(dir string) bool {
	for f := range m.files {
		if filepath.Dir(f) == dir {
			return true
		}
	}
	return false
}

// Register adds a reloadable component
func (m *Manager) Register(reloadable Reloadable) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := reloadable.Name()
	if _, exists := m.reloadables[name]; exists {
		return fmt.Errorf("reloadable %s already registered", name)
	}

	m.reloadables[name] = reloadable
	m.logger.Info("Registered reloadable component", zap.String("name", name))
	return nil
}

// Start starts watching. Reloads run with ctx until Stop is called or ctx
// is done.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New("hot reload already running")
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	m.watcher.Start()

	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("Hot reload system started", zap.Duration("debounce", m.debounce))
	return nil
}

// Stop stops watching and waits for an in-progress reload to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		m.watcher.Stop()
		return
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.watcher.Stop()
	m.wg.Wait()
	m.logger.Info("Hot reload system stopped")
}

// IsRunning returns whether the manager is running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *Manager) interested(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	_, ok := m.files[absPath]
	return ok
}

// run collects events and reloads once no event arrived for the debounce
// period.
func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-m.watcher.Events():
			if !ok {
				return
			}
			if !m.interested(event.Path) {
				continue
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(m.debounce)
			} else {
				timer.Reset(m.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if pending > 0 {
				m.reload(ctx, pending)
				pending = 0
			}
		}
	}
}

// reload runs every registered component concurrently
func (m *Manager) reload(ctx context.Context, events int) {
	m.mu.RLock()
	reloadables := make([]Reloadable, 0, len(m.reloadables))
	for _, r := range m.reloadables {
		reloadables = append(reloadables, r)
	}
	m.mu.RUnlock()

	if len(reloadables) == 0 {
		return
	}

	m.logger.Info("Triggering hot reload", zap.Int("events", events))

	var g errgroup.Group
	for _, r := range reloadables {
		g.Go(func() error {
			if err := r.Reload(ctx); err != nil {
				m.logger.Error("Reload error", zap.String("name", r.Name()), zap.Error(err))
				return fmt.Errorf("failed to reload %s: %w", r.Name(), err)
			}
			m.logger.Info("Successfully reloaded component", zap.String("name", r.Name()))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.logger.Error("Hot reload completed with errors", zap.Error(err))
		return
	}
	m.logger.Info("Hot reload completed successfully")
}
