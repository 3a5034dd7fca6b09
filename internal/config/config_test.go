package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "batch" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
		{"unknown storage", func(c *Config) { c.Storage = "sqlite" }},
		{"empty postgres host", func(c *Config) { c.Postgres.Host = "" }},
		{"postgres port out of range", func(c *Config) { c.Postgres.Port = 70000 }},
		{"pool min above max", func(c *Config) { c.Postgres.PoolMinConns = 20 }},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"server port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"rate limit without window", func(c *Config) { c.Server.RateWindow = duration{} }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true; c.S3.Bucket = "" }},
		{"zero monitor interval", func(c *Config) { c.Risk.MonitorInterval = duration{} }},
		{"zero price max age", func(c *Config) { c.PriceFeed.MaxAge = duration{} }},
		{"bad admin address", func(c *Config) { c.Access.Admins = []string{"not-an-address"} }},
		{"bad assessor address", func(c *Config) { c.Access.Assessors = []string{"0x123"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateMemoryStorageSkipsPostgres(t *testing.T) {
	cfg := Defaults()
	cfg.Storage = "memory"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	require.NoError(t, cfg.Validate())
}

func TestValidateDSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://u:p@db:5432/chainvault"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAINVAULT_MODE", "monitor")
	t.Setenv("CHAINVAULT_STORAGE", "memory")
	t.Setenv("CHAINVAULT_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CHAINVAULT_SERVER_PORT", "9100")
	t.Setenv("CHAINVAULT_SERVER_RATE_WINDOW", "30s")
	t.Setenv("CHAINVAULT_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("CHAINVAULT_ACCESS_ADMINS", "0x00000000000000000000000000000000000000a1, 0x00000000000000000000000000000000000000a2")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal(t, "monitor", cfg.Mode)
	require.Equal(t, "memory", cfg.Storage)
	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.RateWindow.Duration)
	require.False(t, cfg.Postgres.RunMigrations)
	require.Len(t, cfg.Access.Admins, 2)
	require.Equal(t, "0x00000000000000000000000000000000000000a2", cfg.Access.Admins[1])

	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.AdminAddresses(), 2)
}

func TestEnvOverridesIgnoreMalformed(t *testing.T) {
	t.Setenv("CHAINVAULT_SERVER_PORT", "not-a-number")
	t.Setenv("CHAINVAULT_ARCHIVE_INTERVAL", "soon")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal(t, Defaults().Server.Port, cfg.Server.Port)
	require.Equal(t, Defaults().Archive.Interval, cfg.Archive.Interval)
}
