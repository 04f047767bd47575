package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type recordBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *recordBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *recordBuffer) Sync() error { return nil }

func (b *recordBuffer) records(t *testing.T) []map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for scanner.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec), "line: %s", scanner.Text())
		out = append(out, rec)
	}
	return out
}

func (b *recordBuffer) byMessage(t *testing.T, msg string) map[string]interface{} {
	t.Helper()
	for _, rec := range b.records(t) {
		if rec["msg"] == msg {
			return rec
		}
	}
	t.Fatalf("no record with msg %q", msg)
	return nil
}

var _ zapcore.WriteSyncer = (*recordBuffer)(nil)

func newTestSubscriber(t *testing.T, filter string, opts ...SubscriberOption) (*Subscriber, *recordBuffer) {
	t.Helper()
	buf := &recordBuffer{}
	opts = append([]SubscriberOption{withLookupEnv(noEnv)}, opts...)
	sub, err := NewSubscriber("test", filter, buf, opts...)
	require.NoError(t, err)
	return sub, buf
}
