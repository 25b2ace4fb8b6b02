// =============================================================================
// RewardFlow 主入口
// =============================================================================
// 多账号浏览器自动化：每个账号一个独立浏览器，并发完成每日配额
//
// 使用方法:
//
//	rewardflow run                                  # 使用默认配置运行全部档案
//	rewardflow run --config config.yaml             # 指定配置文件
//	rewardflow run --profiles secondary             # 只运行次档案
//	rewardflow accounts import --emails a@x.com,b@x.com --passwords p1,p2
//	rewardflow accounts list                        # 列出已配置账号
//	rewardflow migrate up                           # 迁移凭据数据库
//	rewardflow version                              # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/rewardflow/config"
	"github.com/BaSui01/rewardflow/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "accounts":
		os.Exit(runAccounts(os.Args[2:]))
	case "migrate":
		os.Exit(runMigrate(os.Args[2:]))
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func version() string {
	if Version != "dev" {
		return Version
	}
	return telemetry.BuildVersion()
}

func printVersion() {
	fmt.Printf("RewardFlow %s\n", version())
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`RewardFlow - multi-account rewards automation

Usage:
  rewardflow <command> [options]

Commands:
  run        Run every configured account against the selected profiles
  accounts   Manage stored credentials
  migrate    Credential database migrations (see 'rewardflow migrate help')
  version    Show version information
  help       Show this help message

Options for 'run':
  --config <path>     Path to configuration file (YAML)
  --profiles <list>   Comma-separated profiles to run (primary, secondary)
  --accounts <path>   Credential file, replaces accounts.files

Accounts subcommands:
  accounts import     Add credentials from delimited lists
  accounts list       List configured accounts (masked)

Options for 'accounts import':
  --emails <list>     Delimited email addresses
  --passwords <list>  Delimited passwords, same order as --emails
  --delimiter <sep>   List delimiter (default ",")
  --file <path>       Credential file to append to (default: first accounts.files)
  --db                Store in the credential database instead of a file
  --profile <name>    Profile to bind database records to (default: all)

Examples:
  rewardflow run
  rewardflow run --config /etc/rewardflow/config.yaml --profiles primary
  rewardflow accounts import --emails a@example.com --passwords secret
  rewardflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
