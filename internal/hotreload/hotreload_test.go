package hotreload

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leslieo2/dota-analytics/internal/constants"
	"github.com/leslieo2/dota-analytics/internal/observability"
)

type countingReloadable struct {
	name        string
	err         error
	reloadCount atomic.Int32
}

func (c *countingReloadable) Reload(ctx context.Context) error {
	c.reloadCount.Add(1)
	return c.err
}

func (c *countingReloadable) Name() string {
	return c.name
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestManager_StartStop(t *testing.T) {
	m, err := NewManager(zap.NewNop(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}

	if m.IsRunning() {
		t.Fatal("Manager should not be running before Start()")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("Expected error on second Start()")
	}
	if !m.IsRunning() {
		t.Fatal("Manager should be running after Start()")
	}

	m.Stop()
	m.Stop()
	if m.IsRunning() {
		t.Fatal("Manager should not be running after Stop()")
	}
}

func TestManager_RegisterDuplicate(t *testing.T) {
	m, err := NewManager(zap.NewNop(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	defer m.Stop()

	if err := m.Register(&countingReloadable{name: "config"}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := m.Register(&countingReloadable{name: "config"}); err == nil {
		t.Error("Expected error registering the same name twice")
	}
}

func TestManager_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "configuration.yaml")
	other := filepath.Join(dir, "other.yaml")
	for _, f := range []string{watched, other} {
		if err := os.WriteFile(f, []byte("a: 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m, err := NewManager(zap.NewNop(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	defer m.Stop()

	reloadable := &countingReloadable{name: "config"}
	failing := &countingReloadable{name: "failing", err: errors.New("boom")}
	if err := m.Register(reloadable); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(failing); err != nil {
		t.Fatal(err)
	}
	if err := m.WatchFile(watched); err != nil {
		t.Fatalf("WatchFile() failed: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("a: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(watched, []byte("a: 3\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, 3*time.Second, func() bool { return reloadable.reloadCount.Load() > 0 })
	time.Sleep(400 * time.Millisecond)

	if got := reloadable.reloadCount.Load(); got != 1 {
		t.Errorf("Expected a single reload for a burst of writes, got %d", got)
	}
	if got := failing.reloadCount.Load(); got != 1 {
		t.Errorf("Expected failing component to be tried once, got %d", got)
	}
}

type recordingLevel struct {
	mu     sync.Mutex
	levels []string
}

func (r *recordingLevel) SetLevel(level string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, level)
	return nil
}

func TestConfigReloader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configuration.yaml")
	if err := os.WriteFile(path, []byte("observability:\n  logging:\n    level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	level := &recordingLevel{}
	r := NewConfigReloader(path, nil, nil, level)

	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if len(level.levels) != 1 || level.levels[0] != "debug" {
		t.Errorf("Expected level debug to be applied, got %v", level.levels)
	}
	if r.Current() == nil || r.Current().Observability.Logging.Level != "debug" {
		t.Errorf("Expected current config to be updated")
	}

	if err := os.WriteFile(path, []byte("observability:\n  logging:\n    level: shouting\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("Expected invalid configuration to be rejected")
	}
	if len(level.levels) != 1 {
		t.Errorf("Invalid configuration must not change the level, got %v", level.levels)
	}
	if r.Current().Observability.Logging.Level != "debug" {
		t.Errorf("Invalid configuration must not replace the current one")
	}
}

func TestConfigReloader_KeepsEnvironmentLogFilter(t *testing.T) {
	t.Setenv(constants.EnvLogFilter, "warn")

	var out bytes.Buffer
	sub, err := observability.NewSubscriber("reload", "info", zapcore.AddSync(&out))
	if err != nil {
		t.Fatalf("NewSubscriber() failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "configuration.yaml")
	if err := os.WriteFile(path, []byte("observability:\n  logging:\n    level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewConfigReloader(path, nil, nil, sub)
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	sub.Logger().Info("after reload")
	if strings.Contains(out.String(), "after reload") {
		t.Errorf("Expected DOTA_ANALYTICS_LOG=warn to survive the reload, got %s", out.String())
	}
	if got := sub.Filter().Level(); got != zapcore.WarnLevel {
		t.Errorf("Expected level warn, got %s", got)
	}
}
