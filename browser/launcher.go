package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/types"
)

// Launcher 按站点配置启动浏览器，并跟踪尚未关闭的实例。
// 每个会话独占一个实例，不做复用。
type Launcher struct {
	config BrowserConfig
	logger *zap.Logger

	mu       sync.Mutex
	active   map[*launchedDriver]struct{}
	launched int
	released int
	closed   bool
}

// NewLauncher 创建启动器
func NewLauncher(config BrowserConfig, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		config: config,
		logger: logger.With(zap.String("component", "browser_launcher")),
		active: make(map[*launchedDriver]struct{}),
	}
}

// NewDriver 为站点配置启动一个新浏览器，UA 取自配置记录
func (l *Launcher) NewDriver(ctx context.Context, profile types.SiteProfile) (Driver, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, fmt.Errorf("browser launcher is closed")
	}
	l.mu.Unlock()

	cfg := l.config
	if profile.UserAgent != "" {
		cfg.UserAgent = profile.UserAgent
	}

	driver, err := NewChromeDPDriver(ctx, cfg, l.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s browser: %w", profile.Name, err)
	}

	ld := &launchedDriver{ChromeDPDriver: driver, launcher: l}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = driver.Quit()
		return nil, fmt.Errorf("browser launcher is closed")
	}
	l.active[ld] = struct{}{}
	l.launched++
	l.mu.Unlock()

	l.logger.Debug("launched browser", zap.String("profile", string(profile.Name)))
	return ld, nil
}

// Close 关闭所有仍在运行的浏览器
func (l *Launcher) Close() error {
	l.mu.Lock()
	l.closed = true
	pending := make([]*launchedDriver, 0, len(l.active))
	for d := range l.active {
		pending = append(pending, d)
	}
	l.mu.Unlock()

	for _, d := range pending {
		_ = d.Quit()
	}

	l.logger.Info("browser launcher closed", zap.Int("force_closed", len(pending)))
	return nil
}

// Stats 返回启动器统计信息
func (l *Launcher) Stats() (active, launched, released int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active), l.launched, l.released
}

func (l *Launcher) release(d *launchedDriver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.active[d]; ok {
		delete(l.active, d)
		l.released++
	}
}

// launchedDriver 在 Quit 时向启动器注销
type launchedDriver struct {
	*ChromeDPDriver
	launcher *Launcher
	once     sync.Once
}

func (d *launchedDriver) Quit() error {
	err := d.ChromeDPDriver.Quit()
	d.once.Do(func() { d.launcher.release(d) })
	return err
}

