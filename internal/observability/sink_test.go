package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "discard"} {
		t.Run(output, func(t *testing.T) {
			sink, err := Sink(output)
			require.NoError(t, err)
			assert.NotNil(t, sink)
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, err := Sink("")
		assert.Error(t, err)
	})
}

func TestSink_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	sink, err := Sink(path)
	require.NoError(t, err)

	sub, err := NewSubscriber("file", "info", sink, withLookupEnv(noEnv))
	require.NoError(t, err)
	sub.Logger().Info("written to file")
	require.NoError(t, sub.Logger().Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal("discard"))
	assert.False(t, IsTerminal(filepath.Join(t.TempDir(), "x.log")))
}
