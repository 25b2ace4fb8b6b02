package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/internal/migration"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

func runMigrate(args []string) int {
	if len(args) < 1 {
		printMigrateUsage()
		return 1
	}

	sub := args[0]
	fs := flag.NewFlagSet("migrate "+sub, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	_ = fs.Parse(args[1:])

	var steps int
	switch sub {
	case "up", "down", "status", "version":
	case "steps":
		n, err := strconv.Atoi(fs.Arg(0))
		if err != nil || n == 0 {
			fmt.Fprintln(os.Stderr, "Usage: rewardflow migrate steps [options] -- <n>")
			return 1
		}
		steps = n
	case "help", "-h", "--help":
		printMigrateUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", sub)
		printMigrateUsage()
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *dbType != "" {
		cfg.Database.Driver = *dbType
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	pool, err := database.Open(cfg.DatabaseConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer pool.Close()

	migrator, err := migration.NewMigratorFromPool(pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		return 1
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	ctx := context.Background()
	switch sub {
	case "up":
		err = cli.RunUp(ctx)
	case "down":
		err = cli.RunDown(ctx)
	case "status":
		err = cli.RunStatus(ctx)
	case "version":
		err = cli.RunVersion(ctx)
	case "steps":
		err = cli.RunSteps(ctx, steps)
	}
	if err != nil {
		logger.Error("migration command failed", zap.String("command", sub), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}
	return 0
}

func printMigrateUsage() {
	fmt.Println(`Credential Database Migration Commands

Usage:
  rewardflow migrate <subcommand> [options]

Subcommands:
  up          Apply all pending migrations
  down        Rollback the last migration
  steps <n>   Apply n migrations, or rollback when n is negative
  status      Show migration status
  version     Show current migration version
  help        Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)

Examples:
  rewardflow migrate up
  rewardflow migrate status --config /etc/rewardflow/config.yaml
  rewardflow migrate steps -- -1`)
}
