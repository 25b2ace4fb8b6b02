package config

import (
	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/internal/cache"
	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/internal/server"
	"github.com/BaSui01/rewardflow/quota"
	"github.com/BaSui01/rewardflow/session"
	"github.com/BaSui01/rewardflow/task"
	"github.com/BaSui01/rewardflow/words"
)

// =============================================================================
// 🔁 配置到组件参数的转换
// =============================================================================

// ManagerConfig 任务池参数
func (c *Config) ManagerConfig() task.ManagerConfig {
	return task.ManagerConfig{
		MaxConcurrent:  c.Run.MaxConcurrent,
		LaunchInterval: c.Run.LaunchInterval,
		Task: task.Options{
			Quota: quota.Config{
				WorkUnitSize:         c.Run.WorkUnitSize,
				MaxAttempts:          c.Run.MaxAttempts,
				SecondaryMaxAttempts: c.Run.SecondaryMaxAttempts,
			},
			Timeout: c.Run.TaskTimeout,
			Session: session.Options{
				ActionDelay:  c.Run.ActionDelay,
				ActionJitter: c.Run.ActionJitter,
				StepPause:    c.Run.StepPause,
			},
			Interactor: c.InteractorConfig(),
		},
	}
}

// InteractorConfig 元素定位参数
func (c *Config) InteractorConfig() browser.InteractorConfig {
	return browser.InteractorConfig{
		WaitTimeout:  c.Browser.WaitTimeout,
		ProbeTimeout: c.Browser.ProbeTimeout,
		Retry: browser.RetryPolicy{
			MaxAttempts: c.Browser.RetryAttempts,
			Backoff:     browser.LinearBackoff(c.Browser.RetryBackoff),
		},
	}
}

// LaunchConfig 浏览器启动参数；UA 由档案记录决定
func (c *Config) LaunchConfig() browser.BrowserConfig {
	return browser.BrowserConfig{
		Headless:       c.Browser.Headless,
		ExecPath:       c.Browser.ExecPath,
		RemoteURL:      c.Browser.RemoteURL,
		ProxyURL:       c.Browser.ProxyURL,
		ViewportWidth:  c.Browser.ViewportWidth,
		ViewportHeight: c.Browser.ViewportHeight,
		StartTimeout:   c.Browser.StartTimeout,
	}
}

// DictionaryConfig 词表参数
func (c *Config) DictionaryConfig() words.DictionaryConfig {
	return words.DictionaryConfig{
		URL:        c.Words.DictionaryURL,
		Prefix:     c.Words.Prefix,
		Suffix:     c.Words.Suffix,
		Contains:   c.Words.Contains,
		Timeout:    c.Words.Timeout,
		CacheTTL:   c.Words.CacheTTL,
		RetryAfter: c.Words.RetryAfter,
	}
}

// CacheConfig Redis 缓存参数
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Addr = c.Redis.Addr
	cfg.Password = c.Redis.Password
	cfg.DB = c.Redis.DB
	cfg.TLS = c.Redis.TLS
	if c.Redis.KeyPrefix != "" {
		cfg.KeyPrefix = c.Redis.KeyPrefix
	}
	if c.Redis.PoolSize > 0 {
		cfg.PoolSize = c.Redis.PoolSize
	}
	if c.Words.CacheTTL > 0 {
		cfg.DefaultTTL = c.Words.CacheTTL
	}
	return cfg
}

// DatabaseConfig 数据库打开参数
func (c *Config) DatabaseConfig() database.Config {
	pool := database.DefaultPoolConfig()
	if c.Database.MaxOpenConns > 0 {
		pool.MaxOpenConns = c.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns > 0 {
		pool.MaxIdleConns = c.Database.MaxIdleConns
	}
	if pool.MaxIdleConns > pool.MaxOpenConns {
		pool.MaxIdleConns = pool.MaxOpenConns
	}
	if c.Database.ConnMaxLifetime > 0 {
		pool.ConnMaxLifetime = c.Database.ConnMaxLifetime
	}
	return database.Config{
		Driver: c.Database.Driver,
		DSN:    c.Database.DSN(),
		Pool:   pool,
	}
}

// StatusServerConfig 状态服务监听参数
func (c *Config) StatusServerConfig() server.Config {
	cfg := server.DefaultConfig()
	if c.Metrics.Addr != "" {
		cfg.Addr = c.Metrics.Addr
	}
	return cfg
}
