package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Run("empty defaults to info", func(t *testing.T) {
		level, err := ParseLevel("")
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, level)
	})

	t.Run("case insensitive", func(t *testing.T) {
		level, err := ParseLevel(" DEBUG ")
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, level)
	})

	t.Run("unknown level fails", func(t *testing.T) {
		_, err := ParseLevel("loud")
		assert.Error(t, err)
	})
}

func TestNewZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf), "movectl-server", zerolog.InfoLevel)

	t.Run("writes fields and service", func(t *testing.T) {
		buf.Reset()
		l.Info("client registered", Field{Key: "client", Value: "bot"})

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "client registered", entry["message"])
		assert.Equal(t, "bot", entry["client"])
		assert.Equal(t, "movectl-server", entry["service"])
		assert.Equal(t, "info", entry["level"])
	})

	t.Run("filters below level", func(t *testing.T) {
		buf.Reset()
		l.Debug("hidden")
		assert.Zero(t, buf.Len())
	})

	t.Run("with adds fields without changing parent", func(t *testing.T) {
		buf.Reset()
		child := l.With(Field{Key: "session", Value: "abc"})
		child.Warn("slow ack")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "abc", entry["session"])

		buf.Reset()
		l.Error("plain")
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		_, ok := entry["session"]
		assert.False(t, ok)
	})
}

func TestNew(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := New(Config{Service: "svc", Level: "nope"})
		assert.Error(t, err)
	})

	t.Run("writes to log dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		l, err := New(Config{Service: "svc", Level: "info", Format: "json", Dir: dir})
		require.NoError(t, err)

		l.Info("hello file")
		require.NoError(t, l.Close())
		require.NoError(t, l.Close())

		name := filepath.Join(dir, "svc_"+time.Now().Format(dateLayout)+".log")
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello file")
	})
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored")
	assert.NotNil(t, l.With(Field{Key: "k", Value: 1}))
	assert.NoError(t, l.Close())
}

func TestDailyFileWriter(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	clock := func() time.Time { return day }

	w, err := newDailyFileWriter("svc", dir, clock)
	require.NoError(t, err)
	defer w.Close()

	t.Run("names file by date", func(t *testing.T) {
		assert.Equal(t, filepath.Join(dir, "svc_2026-03-01.log"), w.CurrentLogFile())
		_, err := w.Write([]byte("first\n"))
		require.NoError(t, err)
	})

	t.Run("rotates when the date changes", func(t *testing.T) {
		day = day.Add(2 * time.Minute)
		_, err := w.Write([]byte("second\n"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "svc_2026-03-02.log"), w.CurrentLogFile())

		first, err := os.ReadFile(filepath.Join(dir, "svc_2026-03-01.log"))
		require.NoError(t, err)
		assert.Equal(t, "first\n", string(first))

		second, err := os.ReadFile(filepath.Join(dir, "svc_2026-03-02.log"))
		require.NoError(t, err)
		assert.Equal(t, "second\n", string(second))
	})

	t.Run("write after close fails", func(t *testing.T) {
		require.NoError(t, w.Close())
		_, err := w.Write([]byte("late"))
		assert.Error(t, err)
		assert.Equal(t, "", w.CurrentLogFile())
	})
}
