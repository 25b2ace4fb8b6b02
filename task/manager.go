package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/rewardflow/types"
)

// ManagerConfig 任务池配置
type ManagerConfig struct {
	MaxConcurrent  int           `yaml:"max_concurrent" json:"max_concurrent"`   // 0 表示不限制
	LaunchInterval time.Duration `yaml:"launch_interval" json:"launch_interval"` // 相邻任务启动的最小间隔
	Task           Options       `yaml:"task" json:"task"`
}

// Manager 任务池：每个账号一个任务，并发启动，结构化等待。
// Start 之后成员固定；管理器不会重试任何任务。
type Manager struct {
	config ManagerConfig
	deps   Deps
	logger *zap.Logger

	mu    sync.Mutex
	tasks []*Task

	started    atomic.Bool
	group      errgroup.Group
	launchDone chan struct{}
}

// NewManager 创建任务池
func NewManager(config ManagerConfig, deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		config:     config,
		deps:       deps,
		logger:     logger.With(zap.String("component", "task_manager")),
		launchDone: make(chan struct{}),
	}
}

// Submit 为每个凭据创建一个使用 profile 的任务
func (m *Manager) Submit(creds []types.Credential, profile types.SiteProfile) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.Load() {
		return nil, ErrPoolStarted
	}

	created := make([]*Task, 0, len(creds))
	for i, cred := range creds {
		t, err := New(cred, profile, m.config.Task, m.deps)
		if err != nil {
			return nil, fmt.Errorf("credential %d: %w", i, err)
		}
		created = append(created, t)
	}
	m.tasks = append(m.tasks, created...)
	return created, nil
}

// Start 启动全部任务后立即返回。MaxConcurrent 限制同时运行的任务数，
// LaunchInterval 错开启动时间。ctx 取消会传递给每个任务。
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if !m.started.CompareAndSwap(false, true) {
		m.mu.Unlock()
		return ErrPoolStarted
	}
	tasks := append([]*Task(nil), m.tasks...)
	m.mu.Unlock()

	if m.config.MaxConcurrent > 0 {
		m.group.SetLimit(m.config.MaxConcurrent)
	}
	var limiter *rate.Limiter
	if m.config.LaunchInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(m.config.LaunchInterval), 1)
	}

	m.logger.Info("starting task pool",
		zap.Int("tasks", len(tasks)),
		zap.Int("max_concurrent", m.config.MaxConcurrent),
		zap.Duration("launch_interval", m.config.LaunchInterval))
	m.deps.Metrics.SetCompletedFraction(m.CompletedFraction())

	go func() {
		defer close(m.launchDone)
		for _, t := range tasks {
			if limiter != nil {
				// 取消后不再等待，任务会立即以 cancelled 结束
				_ = limiter.Wait(ctx)
			}
			m.group.Go(func() error {
				if err := t.Run(ctx); err != nil {
					m.logger.Debug("task ended with error", zap.String("task_id", t.ID()), zap.Error(err))
				}
				m.deps.Metrics.SetCompletedFraction(m.CompletedFraction())
				// 单个任务失败不影响其他任务
				return nil
			})
		}
	}()
	return nil
}

// Wait 阻塞直到所有任务结束
func (m *Manager) Wait() error {
	if !m.started.Load() {
		return ErrPoolNotStarted
	}
	<-m.launchDone
	_ = m.group.Wait()
	m.logger.Info("task pool finished", zap.Int("tasks", len(m.Tasks())))
	return nil
}

// Run Start + Wait
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	return m.Wait()
}

// CompletedFraction 已完成任务占比。空池为 1；Start 之后单调不减。
func (m *Manager) CompletedFraction() float64 {
	tasks := m.Tasks()
	if len(tasks) == 0 {
		return 1
	}
	done := 0
	for _, t := range tasks {
		if t.Done() {
			done++
		}
	}
	return float64(done) / float64(len(tasks))
}

// Tasks 任务列表副本
func (m *Manager) Tasks() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Task(nil), m.tasks...)
}

// Results 每个任务的结果快照
func (m *Manager) Results() []Result {
	tasks := m.Tasks()
	out := make([]Result, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Result())
	}
	return out
}
