package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/config"
	"github.com/BaSui01/rewardflow/credentials"
	"github.com/BaSui01/rewardflow/internal/cache"
	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/internal/metrics"
	"github.com/BaSui01/rewardflow/internal/server"
	"github.com/BaSui01/rewardflow/internal/telemetry"
	"github.com/BaSui01/rewardflow/internal/tlsutil"
	"github.com/BaSui01/rewardflow/task"
	"github.com/BaSui01/rewardflow/types"
	"github.com/BaSui01/rewardflow/words"
)

// =============================================================================
// ▶️ run 命令
// =============================================================================

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	profiles := fs.String("profiles", "", "Comma-separated profiles to run")
	accounts := fs.String("accounts", "", "Credential file, replaces accounts.files")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *profiles != "" {
		cfg.Run.Profiles = splitList(*profiles)
	}
	if *accounts != "" {
		cfg.Accounts.Files = []string{*accounts}
	}
	// 命令行覆盖之后再校验一次
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting RewardFlow",
		zap.String("version", version()),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.Strings("profiles", cfg.Run.Profiles),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer r.close()

	return r.run(ctx)
}

// runner 持有一次运行所需的全部组件
type runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	otel      *telemetry.Providers
	collector *metrics.Collector
	cache     *cache.Manager
	pool      *database.PoolManager
	store     *credentials.Store
	launcher  *browser.Launcher
	words     words.Generator
	manager   *task.Manager
	status    *server.Manager
}

func newRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *runner, err error) {
	r := &runner{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			r.close()
		}
	}()

	// OpenTelemetry
	r.otel, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		err = nil
	}

	r.collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)

	if cfg.Redis.Enabled {
		c, cerr := cache.NewManager(cfg.CacheConfig(), logger)
		if cerr != nil {
			// 缓存只是加速，连不上时直接下载
			logger.Warn("redis unavailable, word list will not be cached", zap.Error(cerr))
		} else {
			r.cache = c
		}
	}
	r.words, err = buildWords(cfg, r.cache, logger, r.collector)
	if err != nil {
		return nil, err
	}

	if cfg.Accounts.UseDatabase {
		r.pool, err = database.Open(cfg.DatabaseConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("open credential database: %w", err)
		}
		r.store, err = credentials.NewStore(ctx, r.pool, logger)
		if err != nil {
			return nil, err
		}
	}

	r.launcher = browser.NewLauncher(cfg.LaunchConfig(), logger)
	r.manager = task.NewManager(cfg.ManagerConfig(), task.Deps{
		Factory: r.launcher,
		Words:   r.words,
		Logger:  logger,
		Metrics: r.collector,
	})
	return r, nil
}

func (r *runner) run(ctx context.Context) int {
	submitted := 0
	for _, name := range r.cfg.Run.Profiles {
		profile, err := r.cfg.Profile(name)
		if err != nil {
			r.logger.Error("invalid profile", zap.String("profile", name), zap.Error(err))
			return 1
		}
		creds, err := credentialSource(r.cfg.Accounts, r.store, profile.Name).LoadCredentials(ctx)
		if err != nil {
			r.logger.Error("failed to load credentials", zap.String("profile", name), zap.Error(err))
			return 1
		}
		tasks, err := r.manager.Submit(creds, profile)
		if err != nil {
			r.logger.Error("failed to submit tasks", zap.String("profile", name), zap.Error(err))
			return 1
		}
		submitted += len(tasks)
		r.logger.Info("submitted accounts", zap.String("profile", name), zap.Int("tasks", len(tasks)))
	}
	if submitted == 0 {
		r.logger.Warn("no accounts to run")
		return 0
	}

	if r.cfg.Metrics.Enabled {
		r.status = server.NewManager(server.NewHandler(nil, func() server.Status {
			return statusSnapshot(r.manager)
		}), r.cfg.StatusServerConfig(), r.logger)
		if err := r.status.Start(); err != nil {
			r.logger.Warn("status server not started", zap.Error(err))
			r.status = nil
		}
	}

	if err := r.manager.Start(ctx); err != nil {
		r.logger.Error("failed to start task pool", zap.Error(err))
		return 1
	}

	progressDone := make(chan struct{})
	go r.reportProgress(progressDone)
	_ = r.manager.Wait()
	close(progressDone)

	results := r.manager.Results()
	logResults(r.logger, results)
	return exitCode(results)
}

// reportProgress 周期性记录完成比例
func (r *runner) reportProgress(done <-chan struct{}) {
	interval := r.cfg.Run.ProgressInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.logger.Info("progress", zap.String("completed", fmt.Sprintf("%.0f%%", r.manager.CompletedFraction()*100)))
		}
	}
}

func (r *runner) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if r.status != nil {
		_ = r.status.Shutdown(ctx)
	}
	if r.launcher != nil {
		_ = r.launcher.Close()
	}
	if r.pool != nil {
		if err := r.pool.Close(); err != nil {
			r.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			r.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if r.otel != nil {
		if err := r.otel.Shutdown(ctx); err != nil {
			r.logger.Warn("failed to shutdown telemetry", zap.Error(err))
		}
	}
}

// =============================================================================
// 🔧 组装辅助
// =============================================================================

// buildWords 词表优先，失败时退回随机词
func buildWords(cfg *config.Config, c *cache.Manager, logger *zap.Logger, collector *metrics.Collector) (words.Generator, error) {
	var listCache words.ListCache
	if c != nil {
		listCache = c
	}
	client, err := tlsutil.ProxyHTTPClient(cfg.Words.Timeout, cfg.Browser.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("dictionary client: %w", err)
	}
	dict := words.NewDictionary(cfg.DictionaryConfig(), client, listCache, logger, collector)
	random, err := words.NewRandom(cfg.Words.MinLength, cfg.Words.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("random words: %w", err)
	}
	return words.NewFallback(dict, random, logger), nil
}

// credentialSource 合并 JSON 文件与数据库，按邮箱去重
func credentialSource(accounts config.AccountsConfig, store *credentials.Store, profile types.Profile) credentials.Source {
	sources := make([]credentials.Source, 0, len(accounts.Files)+1)
	for _, path := range accounts.Files {
		var src credentials.Source = credentials.NewJSONFile(path)
		if store != nil {
			// 使用数据库时文件可以不存在
			src = credentials.IgnoreMissing(src)
		}
		sources = append(sources, src)
	}
	if store != nil {
		sources = append(sources, store.ForProfile(profile))
	}
	return credentials.Merge(sources...)
}

func statusSnapshot(m *task.Manager) server.Status {
	tasks := m.Tasks()
	out := server.Status{
		CompletedFraction: m.CompletedFraction(),
		Tasks:             make([]server.TaskStatus, 0, len(tasks)),
	}
	for _, t := range tasks {
		res := t.Result()
		out.Tasks = append(out.Tasks, server.TaskStatus{
			ID:      t.ID(),
			Account: t.Credential().Masked(),
			Profile: string(res.Profile),
			State:   string(t.State()),
			Outcome: string(res.Outcome),
			Done:    t.Done(),
		})
	}
	return out
}

func logResults(logger *zap.Logger, results []task.Result) {
	counts := make(map[task.Outcome]int)
	for _, res := range results {
		counts[res.Outcome]++
		fields := []zap.Field{
			zap.String("account", types.Credential{Identifier: res.Account}.Masked()),
			zap.String("profile", string(res.Profile)),
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("duration", res.Duration()),
		}
		if res.Summary != nil {
			fields = append(fields, zap.Int("points", res.Summary.TotalPoints))
		}
		if res.Err != nil {
			fields = append(fields, zap.Error(res.Err))
		}
		logger.Info("account finished", fields...)
	}
	logger.Info("RewardFlow finished",
		zap.Int("tasks", len(results)),
		zap.Int("converged", counts[task.OutcomeConverged]),
		zap.Int("retry_exhausted", counts[task.OutcomeRetryExhausted]),
		zap.Int("sign_in_failed", counts[task.OutcomeSignInFailed]),
		zap.Int("fatal", counts[task.OutcomeFatal]),
		zap.Int("cancelled", counts[task.OutcomeCancelled]),
	)
}

// exitCode 有任务致命失败时返回 1，被取消时返回 130
func exitCode(results []task.Result) int {
	code := 0
	for _, res := range results {
		switch {
		case res.Outcome == task.OutcomeFatal:
			return 1
		case res.Outcome == task.OutcomeCancelled, errors.Is(res.Err, context.Canceled):
			code = 130
		}
	}
	return code
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
