package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postgresVars() map[string]string {
	return map[string]string{
		"DB_HOST": "db.internal",
		"DB_USER": "play",
		"DB_PWD":  "secret",
		"DB_NAME": "play_llm",
		"DB_PORT": "5432",
	}
}

func TestFromMapDefaults(t *testing.T) {
	cfg, err := FromMap(postgresVars())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, ":5200", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.WorkerPoolSize)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Broker.Enabled())
	assert.False(t, cfg.Inference.Enabled())
	assert.False(t, cfg.Storage.R2Enabled())
	assert.Equal(t,
		"host=db.internal user=play password=secret dbname=play_llm port=5432 sslmode=disable TimeZone=UTC",
		cfg.Database.DSN())
}

func TestFromMapMySQL(t *testing.T) {
	vars := postgresVars()
	vars["DB_DRIVER"] = DriverMySQL
	vars["DB_PORT"] = "3306"

	cfg, err := FromMap(vars)
	require.NoError(t, err)
	assert.Equal(t, "play:secret@tcp(db.internal:3306)/play_llm?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.DSN())
}

func TestFromMapBrokerAndInference(t *testing.T) {
	vars := postgresVars()
	vars["CELERY_REDIS_IP"] = "10.0.0.7"
	vars["CELERY_REDIS_PORT"] = "6380"
	vars["OLLAMA_SERVER_IP"] = "10.0.0.8"
	vars["OLLAMA_SERVER_PORT"] = "11435"

	cfg, err := FromMap(vars)
	require.NoError(t, err)
	assert.True(t, cfg.Broker.Enabled())
	assert.Equal(t, "redis://10.0.0.7:6380/0", cfg.Broker.URL())
	assert.Equal(t, "http://10.0.0.8:11435", cfg.Inference.URL())
}

func TestFromMapValidation(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "missing host", vars: map[string]string{"DB_USER": "u", "DB_NAME": "n", "DB_PORT": "5432"}},
		{name: "missing port", vars: map[string]string{"DB_HOST": "h", "DB_USER": "u", "DB_NAME": "n"}},
		{name: "unknown driver", vars: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "empty pool", vars: map[string]string{"DB_DRIVER": "sqlite", "WORKER_POOL_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestFromMapSQLite(t *testing.T) {
	cfg, err := FromMap(map[string]string{"DB_DRIVER": "sqlite", "DB_SQLITE_PATH": "/tmp/x.db"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.Database.DSN())
}
