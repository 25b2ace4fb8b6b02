package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/types"
)

// BrowserConfig 浏览器启动配置
type BrowserConfig struct {
	Headless       bool          `json:"headless"`
	ExecPath       string        `json:"exec_path,omitempty"`
	RemoteURL      string        `json:"remote_url,omitempty"` // 非空时连接已有 Chrome 的 DevTools 端点
	UserAgent      string        `json:"user_agent,omitempty"`
	ProxyURL       string        `json:"proxy_url,omitempty"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	StartTimeout   time.Duration `json:"start_timeout"`
}

// DefaultBrowserConfig 默认浏览器配置
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		StartTimeout:   60 * time.Second,
	}
}

// ChromeDPDriver 基于 chromedp 的 Driver 实现。一个实例对应一个标签页，
// 只被单个会话使用。
type ChromeDPDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      BrowserConfig
	logger      *zap.Logger

	mu     sync.Mutex
	frame  *cdp.Node
	closed bool
	once   sync.Once
}

var _ Driver = (*ChromeDPDriver)(nil)

// NewChromeDPDriver 创建并启动 chromedp 驱动。浏览器生命周期由 Quit 控制，
// ctx 只约束启动过程。
func NewChromeDPDriver(ctx context.Context, config BrowserConfig, logger *zap.Logger) (*ChromeDPDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if config.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", config.Headless),
			chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if config.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(config.ExecPath))
		}
		if config.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(config.UserAgent))
		}
		if config.ProxyURL != "" {
			opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	driver := &ChromeDPDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      cancel,
		config:      config,
		logger:      logger.With(zap.String("component", "chromedp_driver")),
	}

	// 首次 Run 必须使用 NewContext 返回的 ctx，否则超时取消会关闭浏览器
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	var timer *time.Timer
	if config.StartTimeout > 0 {
		timer = time.AfterFunc(config.StartTimeout, cancel)
	}
	err := chromedp.Run(tabCtx)
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		cancel()
		allocCancel()
		return nil, types.NewError(types.ErrDriverUnavailable, "failed to start browser").WithCause(err)
	}

	// 远程浏览器无法通过启动参数设置 UA，改用 CDP 覆盖
	if config.RemoteURL != "" && config.UserAgent != "" {
		if err := chromedp.Run(tabCtx, emulateUserAgent(config.UserAgent)); err != nil {
			driver.logger.Warn("failed to override user agent", zap.Error(err))
		}
	}

	driver.logger.Info("chromedp browser started",
		zap.Bool("headless", config.Headless),
		zap.Bool("remote", config.RemoteURL != ""),
		zap.Int("viewport_w", config.ViewportWidth),
		zap.Int("viewport_h", config.ViewportHeight))

	return driver, nil
}

func emulateUserAgent(ua string) chromedp.Action {
	return emulation.SetUserAgentOverride(ua)
}

// run 在标签页上执行动作，调用方 ctx 的截止时间与取消都会传递下去
func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return SessionLost(errors.New("driver closed"))
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dlCancel context.CancelFunc
		runCtx, dlCancel = context.WithDeadline(runCtx, deadline)
		defer dlCancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return d.classify(ctx, chromedp.Run(runCtx, actions...))
}

// classify 区分致命错误、调用方取消和普通失败
func (d *ChromeDPDriver) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if d.ctx.Err() != nil ||
		errors.Is(err, chromedp.ErrInvalidContext) ||
		errors.Is(err, chromedp.ErrInvalidTarget) ||
		errors.Is(err, chromedp.ErrChannelClosed) {
		return SessionLost(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Open 导航到 URL
func (d *ChromeDPDriver) Open(ctx context.Context, url string) error {
	d.logger.Debug("navigating", zap.String("url", url))
	d.setFrame(nil)
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		if IsFatal(err) || ctx.Err() != nil {
			return err
		}
		return types.NewError(types.ErrNavigationFailed, "navigate "+url).WithCause(err).WithRetryable(true)
	}
	return nil
}

// Reload 整页刷新
func (d *ChromeDPDriver) Reload(ctx context.Context) error {
	d.setFrame(nil)
	return d.run(ctx, chromedp.Reload())
}

// CurrentURL 获取当前 URL
func (d *ChromeDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get URL: %w", err)
	}
	return url, nil
}

// FindElement 查找首个元素
func (d *ChromeDPDriver) FindElement(ctx context.Context, q types.AttributeQuery, cond Condition) (Element, error) {
	nodes, err := d.nodes(ctx, q, cond, false)
	if err != nil {
		return nil, err
	}
	return &chromeElement{driver: d, node: nodes[0]}, nil
}

// FindElements 查找全部元素
func (d *ChromeDPDriver) FindElements(ctx context.Context, q types.AttributeQuery, cond Condition) ([]Element, error) {
	nodes, err := d.nodes(ctx, q, cond, true)
	if err != nil {
		return nil, err
	}
	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &chromeElement{driver: d, node: n})
	}
	return elems, nil
}

func (d *ChromeDPDriver) nodes(ctx context.Context, q types.AttributeQuery, cond Condition, all bool) ([]*cdp.Node, error) {
	sel, opts, err := selectorFor(q, all)
	if err != nil {
		return nil, err
	}
	opts = append(opts, waitOption(cond))
	if frame := d.currentFrame(); frame != nil {
		opts = append(opts, chromedp.FromNode(frame))
	}

	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		if IsFatal(err) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NotFound(q, err)
		}
		return nil, err
	}

	if cond == ConditionClickable {
		enabled := nodes[:0]
		for _, n := range nodes {
			if _, disabled := n.Attribute("disabled"); !disabled {
				enabled = append(enabled, n)
			}
		}
		nodes = enabled
	}
	if len(nodes) == 0 {
		return nil, NotFound(q, nil)
	}
	return nodes, nil
}

// SwitchToFrame 进入 iframe
func (d *ChromeDPDriver) SwitchToFrame(ctx context.Context, frame Element) error {
	el, ok := frame.(*chromeElement)
	if !ok || el.driver != d {
		return errors.New("frame element does not belong to this driver")
	}
	name := strings.ToUpper(el.node.NodeName)
	if name != "IFRAME" && name != "FRAME" {
		return fmt.Errorf("element %s is not a frame", el.node.NodeName)
	}
	d.setFrame(el.node)
	return nil
}

// SwitchToDefault 回到顶层文档
func (d *ChromeDPDriver) SwitchToDefault(ctx context.Context) error {
	d.setFrame(nil)
	return nil
}

func (d *ChromeDPDriver) currentFrame() *cdp.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

func (d *ChromeDPDriver) setFrame(n *cdp.Node) {
	d.mu.Lock()
	d.frame = n
	d.mu.Unlock()
}

// Quit 关闭浏览器
func (d *ChromeDPDriver) Quit() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.frame = nil
		d.mu.Unlock()

		d.logger.Info("closing chromedp browser")
		d.cancel()
		d.allocCancel()
	})
	return nil
}

// chromeElement 以 NodeID 引用的远程元素
type chromeElement struct {
	driver *ChromeDPDriver
	node   *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *chromeElement) Clear(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	return e.driver.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *chromeElement) Submit(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.Submit(e.ids(), chromedp.ByNodeID))
}

// Text 读取 innerText，不要求元素可见
func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.driver.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(`function() { return this.innerText || this.textContent || ""; }`).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return json.Unmarshal([]byte(res.Value), &text)
	}))
	return strings.TrimSpace(text), err
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var attrs []string
	err := e.driver.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, err
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true, nil
		}
	}
	return "", false, nil
}
