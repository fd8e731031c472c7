package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{"ALLOW_COMMANDS", "ALLOWED_COMMANDS", "PROCESS_RETENTION_SECONDS", "DEFAULT_ENCODING", "COMSPEC", "SHELL", "DASHBOARD_ADDR", "DASHBOARD_TOKEN"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Empty(t, cfg.AllowCommands)
	assert.Equal(t, 300*time.Second, cfg.Retention)
	assert.Equal(t, "utf-8", cfg.DefaultEncoding)
	assert.Equal(t, "127.0.0.1:8080", cfg.DashboardAddr)
	assert.Empty(t, cfg.DashboardToken)
}

func TestLoadUnionsAndDedupesAllowCommands(t *testing.T) {
	t.Setenv("ALLOW_COMMANDS", "echo, ls,  echo")
	t.Setenv("ALLOWED_COMMANDS", "cat,ls")
	cfg := Load()
	assert.Equal(t, []string{"echo", "ls", "cat"}, cfg.AllowCommands)
}

func TestLoadParsesRetentionSeconds(t *testing.T) {
	t.Setenv("PROCESS_RETENTION_SECONDS", "60")
	cfg := Load()
	assert.Equal(t, 60*time.Second, cfg.Retention)
}

func TestLoadFallsBackOnInvalidRetention(t *testing.T) {
	t.Setenv("PROCESS_RETENTION_SECONDS", "not-a-number")
	cfg := Load()
	assert.Equal(t, 300*time.Second, cfg.Retention)
}

func TestLoadHonorsExplicitEncoding(t *testing.T) {
	t.Setenv("DEFAULT_ENCODING", "iso-8859-1")
	cfg := Load()
	assert.Equal(t, "iso-8859-1", cfg.DefaultEncoding)
}

func TestLoadHonorsDashboardAddr(t *testing.T) {
	t.Setenv("DASHBOARD_ADDR", "0.0.0.0:9090")
	cfg := Load()
	assert.Equal(t, "0.0.0.0:9090", cfg.DashboardAddr)
}
