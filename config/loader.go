// =============================================================================
// 📦 RewardFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("rewardflow.yaml").
//	    WithEnvPrefix("REWARDFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/rewardflow/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 RewardFlow 的完整配置结构
type Config struct {
	// Run 运行参数：工作单元、节奏、重试与并发
	Run RunConfig `yaml:"run" env:"RUN"`

	// Browser 浏览器启动与元素定位配置
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Profiles 主/次档案的站点配置记录，只从 YAML 读取
	Profiles ProfilesConfig `yaml:"profiles" env:"-"`

	// Accounts 账号来源
	Accounts AccountsConfig `yaml:"accounts" env:"ACCOUNTS"`

	// Words 搜索词来源
	Words WordsConfig `yaml:"words" env:"WORDS"`

	// Redis 词表缓存
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 凭据数据库
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics Prometheus 指标
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// RunConfig 运行参数
type RunConfig struct {
	// 要运行的档案: primary, secondary
	Profiles []string `yaml:"profiles" env:"PROFILES"`
	// 每个工作单元的搜索次数
	WorkUnitSize int `yaml:"work_unit_size" env:"WORK_UNIT_SIZE"`
	// 两次模拟操作之间的间隔
	ActionDelay time.Duration `yaml:"action_delay" env:"ACTION_DELAY"`
	// 间隔上的随机抖动
	ActionJitter time.Duration `yaml:"action_jitter" env:"ACTION_JITTER"`
	// 登录/登出多步点击之间的停顿
	StepPause time.Duration `yaml:"step_pause" env:"STEP_PAUSE"`
	// 读数失败的最大重试次数
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 活动链接最多访问几轮
	SecondaryMaxAttempts int `yaml:"secondary_max_attempts" env:"SECONDARY_MAX_ATTEMPTS"`
	// 同时运行的任务上限，0 表示不限制
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	// 相邻任务启动间隔
	LaunchInterval time.Duration `yaml:"launch_interval" env:"LAUNCH_INTERVAL"`
	// 进度日志间隔
	ProgressInterval time.Duration `yaml:"progress_interval" env:"PROGRESS_INTERVAL"`
	// 单个任务的最长运行时间，0 表示不限制
	TaskTimeout time.Duration `yaml:"task_timeout" env:"TASK_TIMEOUT"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	// 无头模式
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// Chrome 可执行文件路径
	ExecPath string `yaml:"exec_path" env:"EXEC_PATH"`
	// 远程 DevTools 地址，非空时不在本地启动浏览器
	RemoteURL string `yaml:"remote_url" env:"REMOTE_URL"`
	// 代理
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`
	// 视口
	ViewportWidth  int `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight int `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	// 启动超时
	StartTimeout time.Duration `yaml:"start_timeout" env:"START_TIMEOUT"`
	// 单次元素定位等待上限
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"WAIT_TIMEOUT"`
	// 存在性探测等待上限
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
	// 元素定位的重试次数（首次之外）
	RetryAttempts int `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	// 线性退避步长：第 n 次重试前等待 n*RetryBackoff
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`
}

// ProfilesConfig 两个档案的站点配置记录
type ProfilesConfig struct {
	Primary   types.SiteProfile `yaml:"primary"`
	Secondary types.SiteProfile `yaml:"secondary"`
}

// AccountsConfig 账号来源
type AccountsConfig struct {
	// JSON 凭据文件
	Files []string `yaml:"files" env:"FILES"`
	// 同时从数据库加载
	UseDatabase bool `yaml:"use_database" env:"USE_DATABASE"`
}

// WordsConfig 搜索词配置
type WordsConfig struct {
	// 词表下载地址
	DictionaryURL string `yaml:"dictionary_url" env:"DICTIONARY_URL"`
	// 过滤条件
	Prefix   string `yaml:"prefix" env:"PREFIX"`
	Suffix   string `yaml:"suffix" env:"SUFFIX"`
	Contains string `yaml:"contains" env:"CONTAINS"`
	// 备用随机词长度范围
	MinLength int `yaml:"min_length" env:"MIN_LENGTH"`
	MaxLength int `yaml:"max_length" env:"MAX_LENGTH"`
	// 下载超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 词表缓存时间（需要 Redis）
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// 下载失败后多久再重试
	RetryAfter time.Duration `yaml:"retry_after" env:"RETRY_AFTER"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 使用 TLS 连接
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 为文件路径
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig Prometheus 配置
type MetricsConfig struct {
	// 是否暴露 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "REWARDFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，汇总所有错误
func (c *Config) Validate() error {
	var errs []string

	// 运行参数
	if c.Run.WorkUnitSize <= 0 {
		errs = append(errs, "run.work_unit_size must be positive")
	}
	if c.Run.MaxAttempts <= 0 {
		errs = append(errs, "run.max_attempts must be positive")
	}
	if c.Run.SecondaryMaxAttempts <= 0 {
		errs = append(errs, "run.secondary_max_attempts must be positive")
	}
	if c.Run.MaxConcurrent < 0 {
		errs = append(errs, "run.max_concurrent must not be negative")
	}
	if c.Run.ActionDelay < 0 || c.Run.ActionJitter < 0 || c.Run.StepPause < 0 || c.Run.LaunchInterval < 0 || c.Run.TaskTimeout < 0 {
		errs = append(errs, "run delays must not be negative")
	}
	if len(c.Run.Profiles) == 0 {
		errs = append(errs, "run.profiles must name at least one profile")
	}
	for _, name := range c.Run.Profiles {
		p, err := c.Profile(name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("profiles.%s: %v", p.Name, err))
		}
	}

	// 浏览器
	if c.Browser.RemoteURL == "" && (c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0) {
		errs = append(errs, "browser viewport must be positive")
	}
	if c.Browser.WaitTimeout <= 0 || c.Browser.ProbeTimeout <= 0 {
		errs = append(errs, "browser wait/probe timeouts must be positive")
	}
	if c.Browser.RetryAttempts < 0 || c.Browser.RetryBackoff < 0 {
		errs = append(errs, "browser retry settings must not be negative")
	}

	// 搜索词
	if c.Words.MinLength < 1 || c.Words.MaxLength < c.Words.MinLength {
		errs = append(errs, "words length bounds must satisfy 1 <= min_length <= max_length")
	}

	// 账号
	if len(c.Accounts.Files) == 0 && !c.Accounts.UseDatabase {
		errs = append(errs, "accounts: configure files or use_database")
	}
	if c.Accounts.UseDatabase && c.Database.DSN() == "" {
		errs = append(errs, fmt.Sprintf("database: unsupported driver %q", c.Database.Driver))
	}

	// 日志
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Profile 按名称返回档案记录，接受 primary/desktop 与 secondary/mobile
func (c *Config) Profile(name string) (types.SiteProfile, error) {
	p, err := types.ParseProfile(name)
	if err != nil {
		return types.SiteProfile{}, err
	}
	if p == types.ProfileSecondary {
		return c.Profiles.Secondary, nil
	}
	return c.Profiles.Primary, nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
