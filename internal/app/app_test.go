package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/config"
)

func testConfig() *config.Config {
	cfg, _ := config.Load("")
	cfg.Database.Type = "memory"
	return cfg
}

func TestNewLoggerDefaultsToInfoOnBadLevel(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "not-a-level"

	logger := newLogger(cfg)
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
}

func TestNewLoggerUsesJSONFormatterWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.LogFormat = "json"

	logger := newLogger(cfg)
	_, ok := logger.Formatter.(*log.JSONFormatter)
	assert.True(t, ok)
}

func TestNewGatewayReturnsMemoryStoreForMemoryType(t *testing.T) {
	cfg := testConfig()
	logger := log.New()

	gw, err := newGateway(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, gw)
}

func TestServerConfigCarriesEnvironmentAndTimeouts(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 9090
	cfg.Server.ReadTimeout = 15

	sc := serverConfig(cfg)
	assert.Equal(t, 9090, sc.Port)
	assert.Equal(t, "development", sc.Environment)
	assert.EqualValues(t, 15, sc.ReadTimeout.Seconds())
}

func TestNewWiresAppAgainstMemoryStore(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0

	a := New(cfg)
	require.NotNil(t, a)
	require.NotNil(t, a.server)
	require.NotNil(t, a.engine)
	require.NotNil(t, a.core)
}
