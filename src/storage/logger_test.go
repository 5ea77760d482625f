package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("dataset loaded")
	logger.Logf(ERROR, "load failed: %s", "missing column")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INFO: dataset loaded")
	assert.Contains(t, lines[1], "ERROR: load failed: missing column")
}

func TestLoggerSubscribe(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	sub := logger.Subscribe()
	logger.Warning("slow render")

	select {
	case msg := <-sub:
		assert.Contains(t, msg, "WARNING: slow render")
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}

	logger.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok, "通道应已关闭")

	// 取消订阅后写日志不会阻塞或panic
	logger.Info("after unsubscribe")
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	for i := 0; i < 10; i++ {
		logger.Info("padding padding padding")
	}
	require.NoError(t, logger.CheckRotate("2 * 8"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	// 未超过上限时不轮转
	require.NoError(t, logger.CheckRotate("1024 * 1024"))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoggerReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, os.Remove(path))
	require.NoError(t, logger.Reopen())
	logger.Info("reopened")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reopened")
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(512), eval("512"))
	assert.Zero(t, eval(""))
	assert.Zero(t, eval("ten * 2"))
}
