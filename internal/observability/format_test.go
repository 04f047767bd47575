package observability

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormattingCore_BunyanRecord(t *testing.T) {
	sub, buf := newTestSubscriber(t, "debug")

	sub.Logger().Named("server").Warn("disk almost full")

	rec := buf.byMessage(t, "disk almost full")
	hostname, _ := os.Hostname()

	assert.EqualValues(t, 0, rec["v"])
	assert.Equal(t, "test", rec["name"])
	assert.EqualValues(t, 40, rec["level"])
	assert.Equal(t, "server", rec["target"])
	assert.Equal(t, hostname, rec["hostname"])
	assert.EqualValues(t, os.Getpid(), rec["pid"])
	assert.NotEmpty(t, rec["time"])
	assert.Contains(t, rec["caller"], "format_test.go")
}

func TestBunyanLevels(t *testing.T) {
	sub, buf := newTestSubscriber(t, "debug")
	log := sub.Logger()

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	want := map[string]float64{"d": 20, "i": 30, "w": 40, "e": 50}
	for msg, level := range want {
		assert.Equal(t, level, buf.byMessage(t, msg)["level"], msg)
	}
}

func TestFormattingCore_Development(t *testing.T) {
	sub, buf := newTestSubscriber(t, "info", WithDevelopment(true), WithColor(true))

	sub.Logger().Named("server").Info("console line")

	buf.mu.Lock()
	out := buf.buf.String()
	buf.mu.Unlock()

	assert.Contains(t, out, "console line")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "server")
}
