package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"play-llm-server/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, extra map[string]string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	vars := map[string]string{
		"DB_DRIVER":      "sqlite",
		"DB_SQLITE_PATH": filepath.Join(dir, "play_llm.db"),
		"UPLOAD_DIR":     filepath.Join(dir, "uploads"),
		"HTTP_ADDR":      "127.0.0.1:0",
	}
	for k, v := range extra {
		vars[k] = v
	}
	cfg, err := config.FromMap(vars)
	require.NoError(t, err)
	return cfg
}

func TestNewMigrateAndServeHealth(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, nil))
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	assert.Nil(t, a.Queue)
	assert.Nil(t, a.Inference)
	require.NoError(t, a.Migrate())

	resp, err := a.HTTP.Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = a.HTTP.Test(httptest.NewRequest("GET", "/games", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewWithBroker(t *testing.T) {
	mini := miniredis.RunT(t)

	a, err := New(context.Background(), testConfig(t, map[string]string{
		"CELERY_REDIS_IP":    mini.Host(),
		"CELERY_REDIS_PORT":  mini.Port(),
		"OLLAMA_SERVER_IP":   "127.0.0.1",
		"OLLAMA_SERVER_PORT": strconv.Itoa(11434),
	}))
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	require.NotNil(t, a.Queue)
	require.NotNil(t, a.Inference)
	assert.Equal(t, "http://127.0.0.1:11434", a.Inference.BaseURL)

	_, err = a.Queue.Enqueue(context.Background(), "noop", nil)
	require.NoError(t, err)
	n, err := a.Queue.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewFailsOnUnreachableBroker(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, map[string]string{
		"CELERY_REDIS_IP":   "127.0.0.1",
		"CELERY_REDIS_PORT": "1",
	}))
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, nil))
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()
	require.NoError(t, a.Migrate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
