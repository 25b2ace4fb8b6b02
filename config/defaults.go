// =============================================================================
// 📦 RewardFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值，档案记录默认指向 Bing Rewards
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/rewardflow/types"
)

// 移动档案默认伪装成 Android 浏览器
const (
	MobileUserAgent = "Mozilla/5.0 (Linux; U; Android 4.0.3; ko-kr; LG-L160L Build/IML74K) " +
		"AppleWebkit/534.30 (KHTML, like Gecko) Version/4.0 Mobile Safari/534.30"
	TabletUserAgent = "Mozilla/5.0(iPad; U; CPU iPhone OS 3_2 like Mac OS X; en-us) " +
		"AppleWebKit/531.21.10 (KHTML, like Gecko) Version/4.0.4 Mobile/7B314 Safari/531.21.10"
)

const (
	bingSignInURL    = "https://www.bing.com/rewards/signin"
	bingDashboardURL = "https://www.bing.com/rewards/dashboard"
	bingSearchURL    = "http://www.bing.com"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Run:       DefaultRunConfig(),
		Browser:   DefaultBrowserConfig(),
		Profiles:  DefaultProfilesConfig(),
		Accounts:  DefaultAccountsConfig(),
		Words:     DefaultWordsConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultRunConfig 返回默认运行参数
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Profiles:             []string{string(types.ProfilePrimary), string(types.ProfileSecondary)},
		WorkUnitSize:         10,
		ActionDelay:          5 * time.Second,
		ActionJitter:         2 * time.Second,
		StepPause:            5 * time.Second,
		MaxAttempts:          5,
		SecondaryMaxAttempts: 3,
		MaxConcurrent:        0,
		LaunchInterval:       2 * time.Second,
		TaskTimeout:          time.Hour,
		ProgressInterval:     30 * time.Second,
	}
}

// DefaultBrowserConfig 返回默认浏览器配置
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		StartTimeout:   60 * time.Second,
		WaitTimeout:    30 * time.Second,
		ProbeTimeout:   3 * time.Second,
		RetryAttempts:  10,
		RetryBackoff:   30 * time.Second,
	}
}

// DefaultProfilesConfig 返回 Bing 的两个档案
func DefaultProfilesConfig() ProfilesConfig {
	return ProfilesConfig{
		Primary:   DefaultPrimaryProfile(),
		Secondary: DefaultSecondaryProfile(),
	}
}

// DefaultPrimaryProfile 桌面档案：登录前需要两次点击，计数在统计浮层的 frame 里
func DefaultPrimaryProfile() types.SiteProfile {
	return types.SiteProfile{
		Name:          types.ProfilePrimary,
		SignInURL:     bingSignInURL,
		DashboardURL:  bingDashboardURL,
		SearchURL:     bingSearchURL,
		LoginField:    types.ByName("loginfmt"),
		PasswordField: types.ByName("passwd"),
		SignInError:   types.ByID("idTd_Tile_ErrorMsg_Login"),
		PreForm:       []types.AttributeQuery{types.ByID("id_s"), types.ByClassName("id_link_text")},
		StatsFrame: &types.StatsFrame{
			Opener: types.ByID("id_rc"),
			Frame:  types.ByID("bepfm"),
		},
		DeviceProgress: types.ProgressQuery{Composite: types.ByXPath(`//div[@id="credits"]/div[2]/span[2]/span`)},
		OfferProgress:  types.ProgressQuery{Composite: types.ByXPath(`//*[@id="credits"]/div[2]/span[1]/span`)},
		TotalPoints:    types.ByID("id_rc"),
		OfferLinks:     types.ByXPath(`//*[@id="dashboard_wrapper"]/div[1]/div[1]/ul//a`),
		OfferLinksAttr: "href",
		SearchBox:      types.ByName("q"),
		SignOutSteps: []types.AttributeQuery{
			types.ByID("id_n"),
			types.ByXPath(`//*[@id="b_idProviders"]/li/a/span[2]`),
		},
		SignOutCheck: types.ByID("id_n"),
	}
}

// DefaultSecondaryProfile 移动档案：计数在仪表盘上分开读取，活动链接去掉末尾三个
func DefaultSecondaryProfile() types.SiteProfile {
	return types.SiteProfile{
		Name:                types.ProfileSecondary,
		UserAgent:           MobileUserAgent,
		SignInURL:           bingSignInURL,
		DashboardURL:        bingDashboardURL,
		SearchURL:           bingSearchURL,
		OffersURL:           bingDashboardURL + "?showOffers=1",
		LoginField:          types.ByName("loginfmt"),
		PasswordField:       types.ByName("passwd"),
		SignInError:         types.ByID("idTd_Tile_ErrorMsg_Login"),
		ProgressOnDashboard: true,
		DeviceProgress: types.ProgressQuery{
			Current: types.ByXPath(`//*[@id="credit-progress"]/div[5]/span[1]`),
			Maximum: types.ByXPath(`//*[@id="credit-progress"]/div[5]/span[2]`),
		},
		OfferProgress: types.ProgressQuery{
			Current: types.ByXPath(`//*[@id="credit-progress"]/div[3]/span[1]`),
			Maximum: types.ByXPath(`//*[@id="credit-progress"]/div[3]/span[2]`),
		},
		TotalPoints:            types.ByXPath(`//*[@id="status-bar"]/span`),
		TotalPointsOnDashboard: true,
		OfferLinks:             types.ByXPath(`//*[@id="activities"]/div[2]/div[1]//a`),
		OfferLinksAttr:         "href",
		OfferLinksTrim:         3,
		SearchBox:              types.ByName("q"),
	}
}

// DefaultAccountsConfig 返回默认账号来源
func DefaultAccountsConfig() AccountsConfig {
	return AccountsConfig{
		Files: []string{"accounts.json"},
	}
}

// DefaultWordsConfig 返回默认搜索词配置
func DefaultWordsConfig() WordsConfig {
	return WordsConfig{
		DictionaryURL: "http://svnweb.freebsd.org/csrg/share/dict/words?view=co",
		MinLength:     2,
		MaxLength:     10,
		Timeout:       30 * time.Second,
		CacheTTL:      7 * 24 * time.Hour,
		RetryAfter:    10 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:   false,
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		KeyPrefix: "rewardflow:",
		PoolSize:  10,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "rewardflow",
		Password:        "",
		Name:            "rewardflow.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "rewardflow",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "rewardflow",
		SampleRate:   0.1,
	}
}
