package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/rewardflow/types"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Each sub-config should be non-zero
	assert.NotZero(t, cfg.Run)
	assert.NotEqual(t, BrowserConfig{}, cfg.Browser)
	assert.NotZero(t, cfg.Profiles)
	assert.NotZero(t, cfg.Accounts)
	assert.NotEqual(t, WordsConfig{}, cfg.Words)
	assert.NotEqual(t, RedisConfig{}, cfg.Redis)
	assert.NotEqual(t, DatabaseConfig{}, cfg.Database)
	assert.NotZero(t, cfg.Log)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()
	assert.Equal(t, []string{"primary", "secondary"}, cfg.Profiles)
	assert.Equal(t, 10, cfg.WorkUnitSize)
	assert.Equal(t, 5*time.Second, cfg.ActionDelay)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 3, cfg.SecondaryMaxAttempts)
	assert.Zero(t, cfg.MaxConcurrent)
}

func TestDefaultBrowserConfig(t *testing.T) {
	cfg := DefaultBrowserConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 10, cfg.RetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.RetryBackoff)
}

func TestDefaultProfiles_AreValid(t *testing.T) {
	for _, p := range []types.SiteProfile{DefaultPrimaryProfile(), DefaultSecondaryProfile()} {
		t.Run(string(p.Name), func(t *testing.T) {
			assert.NoError(t, p.Validate())
		})
	}
}

func TestDefaultPrimaryProfile(t *testing.T) {
	p := DefaultPrimaryProfile()
	assert.Equal(t, types.ProfilePrimary, p.Name)
	assert.Empty(t, p.UserAgent)
	assert.True(t, p.RequiresPreForm())
	require.NotNil(t, p.StatsFrame)
	assert.Equal(t, types.ByID("bepfm"), p.StatsFrame.Frame)
	assert.True(t, p.DeviceProgress.IsComposite())
	assert.Len(t, p.SignOutSteps, 2)
	assert.Zero(t, p.OfferLinksTrim)
}

func TestDefaultSecondaryProfile(t *testing.T) {
	p := DefaultSecondaryProfile()
	assert.Equal(t, types.ProfileSecondary, p.Name)
	assert.Equal(t, MobileUserAgent, p.UserAgent)
	assert.Contains(t, p.UserAgent, "Android")
	assert.True(t, p.ProgressOnDashboard)
	assert.False(t, p.DeviceProgress.IsComposite())
	assert.Equal(t, 3, p.OfferLinksTrim)
	assert.Equal(t, "https://www.bing.com/rewards/dashboard?showOffers=1", p.OffersURL)
	assert.Empty(t, p.SignOutSteps)
	assert.Nil(t, p.StatsFrame)
}

func TestDefaultWordsConfig(t *testing.T) {
	cfg := DefaultWordsConfig()
	assert.Equal(t, 2, cfg.MinLength)
	assert.Equal(t, 10, cfg.MaxLength)
	assert.NotEmpty(t, cfg.DictionaryURL)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	cfg := DefaultDatabaseConfig()
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "rewardflow.db", cfg.DSN())
	assert.LessOrEqual(t, cfg.MaxIdleConns, cfg.MaxOpenConns)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "rewardflow", cfg.ServiceName)
	assert.Equal(t, 0.1, cfg.SampleRate)
}

// --- 转换 ---

func TestConfig_ManagerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.MaxConcurrent = 4
	m := cfg.ManagerConfig()

	assert.Equal(t, 4, m.MaxConcurrent)
	assert.Equal(t, cfg.Run.LaunchInterval, m.LaunchInterval)
	assert.Equal(t, cfg.Run.WorkUnitSize, m.Task.Quota.WorkUnitSize)
	assert.Equal(t, cfg.Run.SecondaryMaxAttempts, m.Task.Quota.SecondaryMaxAttempts)
	assert.Equal(t, cfg.Run.ActionDelay, m.Task.Session.ActionDelay)
	assert.Equal(t, time.Hour, m.Task.Timeout)
	assert.Equal(t, 10, m.Task.Interactor.Retry.MaxAttempts)
	assert.Equal(t, 60*time.Second, m.Task.Interactor.Retry.Delay(2))
}

func TestConfig_DatabaseConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.MaxOpenConns = 1
	cfg.Database.MaxIdleConns = 5

	db := cfg.DatabaseConfig()
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, "rewardflow.db", db.DSN)
	assert.NoError(t, db.Pool.Validate(), "idle connections are clamped to the open limit")
}

func TestConfig_CacheConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.Addr = "redis:6379"
	c := cfg.CacheConfig()
	assert.Equal(t, "redis:6379", c.Addr)
	assert.Equal(t, "rewardflow:", c.KeyPrefix)
	assert.Equal(t, cfg.Words.CacheTTL, c.DefaultTTL)
	assert.False(t, c.TLS)

	cfg.Redis.TLS = true
	assert.True(t, cfg.CacheConfig().TLS)
}

func TestConfig_StatusServerConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9091", cfg.StatusServerConfig().Addr)

	cfg.Metrics.Addr = "127.0.0.1:9200"
	s := cfg.StatusServerConfig()
	assert.Equal(t, "127.0.0.1:9200", s.Addr)
	assert.Positive(t, s.ShutdownTimeout)
}
