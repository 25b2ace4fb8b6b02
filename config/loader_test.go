// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/rewardflow/types"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 10, cfg.Run.WorkUnitSize)
	assert.Equal(t, types.ProfilePrimary, cfg.Profiles.Primary.Name)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
run:
  profiles: [mobile]
  work_unit_size: 4
  action_delay: 1s
  max_concurrent: 3

browser:
  headless: false
  wait_timeout: 10s

profiles:
  secondary:
    search_url: "https://search.example.test/"
    search_box: "css=input#sb"
    offer_links_trim: 2

accounts:
  files: ["a.json", "b.json"]

redis:
  enabled: true
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

log:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// YAML 值覆盖默认值
	assert.Equal(t, []string{"mobile"}, cfg.Run.Profiles)
	assert.Equal(t, 4, cfg.Run.WorkUnitSize)
	assert.Equal(t, time.Second, cfg.Run.ActionDelay)
	assert.Equal(t, 3, cfg.Run.MaxConcurrent)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Browser.WaitTimeout)
	assert.Equal(t, []string{"a.json", "b.json"}, cfg.Accounts.Files)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 档案记录只覆盖出现的字段
	sec := cfg.Profiles.Secondary
	assert.Equal(t, "https://search.example.test/", sec.SearchURL)
	assert.Equal(t, types.ByCSS("input#sb"), sec.SearchBox)
	assert.Equal(t, 2, sec.OfferLinksTrim)
	assert.Equal(t, DefaultSecondaryProfile().DashboardURL, sec.DashboardURL)
	assert.Equal(t, MobileUserAgent, sec.UserAgent)

	// 未出现的值保持默认
	assert.Equal(t, 5, cfg.Run.MaxAttempts)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("REWARDFLOW_RUN_WORK_UNIT_SIZE", "7")
	t.Setenv("REWARDFLOW_RUN_PROFILES", "primary, mobile")
	t.Setenv("REWARDFLOW_RUN_LAUNCH_INTERVAL", "250ms")
	t.Setenv("REWARDFLOW_RUN_TASK_TIMEOUT", "45m")
	t.Setenv("REWARDFLOW_BROWSER_HEADLESS", "false")
	t.Setenv("REWARDFLOW_BROWSER_REMOTE_URL", "ws://chrome:9222")
	t.Setenv("REWARDFLOW_ACCOUNTS_USE_DATABASE", "true")
	t.Setenv("REWARDFLOW_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("REWARDFLOW_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Run.WorkUnitSize)
	assert.Equal(t, []string{"primary", "mobile"}, cfg.Run.Profiles)
	assert.Equal(t, 250*time.Millisecond, cfg.Run.LaunchInterval)
	assert.Equal(t, 45*time.Minute, cfg.Run.TaskTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "ws://chrome:9222", cfg.Browser.RemoteURL)
	assert.True(t, cfg.Accounts.UseDatabase)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
run:
  work_unit_size: 4
  max_attempts: 8
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	// 环境变量应该覆盖 YAML
	t.Setenv("REWARDFLOW_RUN_WORK_UNIT_SIZE", "12")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Run.WorkUnitSize)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, 8, cfg.Run.MaxAttempts)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_RUN_WORK_UNIT_SIZE", "6")
	t.Setenv("MYAPP_DATABASE_DRIVER", "postgres")

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Run.WorkUnitSize)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("REWARDFLOW_RUN_ACTION_DELAY", "soon")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("REWARDFLOW_RUN_WORK_UNIT_SIZE", "0")

	_, err := NewLoader().
		WithValidator((*Config).Validate).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), cfg.Run)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	invalidYAML := `
run:
  work_unit_size: [invalid
  this is not valid yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

func TestLoader_InvalidQueryInProfile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
profiles:
  primary:
    search_box: "nonsense"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"zero work unit size", func(c *Config) { c.Run.WorkUnitSize = 0 }, true},
		{"zero max attempts", func(c *Config) { c.Run.MaxAttempts = 0 }, true},
		{"zero secondary attempts", func(c *Config) { c.Run.SecondaryMaxAttempts = 0 }, true},
		{"negative concurrency", func(c *Config) { c.Run.MaxConcurrent = -1 }, true},
		{"negative delay", func(c *Config) { c.Run.ActionDelay = -time.Second }, true},
		{"negative task timeout", func(c *Config) { c.Run.TaskTimeout = -time.Minute }, true},
		{"unbounded task", func(c *Config) { c.Run.TaskTimeout = 0 }, false},
		{"no profiles", func(c *Config) { c.Run.Profiles = nil }, true},
		{"unknown profile", func(c *Config) { c.Run.Profiles = []string{"tablet"} }, true},
		{"broken profile", func(c *Config) { c.Profiles.Primary.SearchURL = "" }, true},
		{"unused broken profile", func(c *Config) {
			c.Run.Profiles = []string{"secondary"}
			c.Profiles.Primary.SearchURL = ""
		}, false},
		{"zero viewport", func(c *Config) { c.Browser.ViewportWidth = 0 }, true},
		{"zero viewport with remote browser", func(c *Config) {
			c.Browser.ViewportWidth = 0
			c.Browser.RemoteURL = "ws://chrome:9222"
		}, false},
		{"zero wait timeout", func(c *Config) { c.Browser.WaitTimeout = 0 }, true},
		{"word bounds reversed", func(c *Config) { c.Words.MinLength, c.Words.MaxLength = 5, 3 }, true},
		{"no account source", func(c *Config) { c.Accounts.Files = nil }, true},
		{"database accounts with bad driver", func(c *Config) {
			c.Accounts.UseDatabase = true
			c.Database.Driver = "oracle"
		}, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, true},
		{"sample rate too high", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Profile(t *testing.T) {
	cfg := DefaultConfig()

	p, err := cfg.Profile("desktop")
	require.NoError(t, err)
	assert.Equal(t, types.ProfilePrimary, p.Name)

	p, err = cfg.Profile("mobile")
	require.NoError(t, err)
	assert.Equal(t, types.ProfileSecondary, p.Name)

	_, err = cfg.Profile("watch")
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres DSN",
			config: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=user password=pass dbname=dbname sslmode=disable",
		},
		{
			name: "mysql DSN",
			config: DatabaseConfig{
				Driver:   "mysql",
				Host:     "localhost",
				Port:     3306,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
			},
			expected: "user:pass@tcp(localhost:3306)/dbname?parseTime=true",
		},
		{
			name:     "sqlite DSN",
			config:   DatabaseConfig{Driver: "sqlite", Name: "/path/to/db.sqlite"},
			expected: "/path/to/db.sqlite",
		},
		{
			name:     "unknown driver",
			config:   DatabaseConfig{Driver: "unknown"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("run:\n  work_unit_size: 3\n"), 0644))

	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 3, cfg.Run.WorkUnitSize)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: [yaml"), 0644))

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	t.Setenv("REWARDFLOW_WORDS_PREFIX", "ab")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "ab", cfg.Words.Prefix)
}
