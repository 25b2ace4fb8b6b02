package browser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/internal/metrics"
	"github.com/BaSui01/rewardflow/types"
)

// InteractorConfig 交互层配置
type InteractorConfig struct {
	WaitTimeout  time.Duration // 单次定位的等待上限
	ProbeTimeout time.Duration // Exists 探测的等待上限
	Retry        RetryPolicy
	Profile      string // 指标标签
}

// DefaultInteractorConfig 默认交互层配置
func DefaultInteractorConfig() InteractorConfig {
	return InteractorConfig{
		WaitTimeout:  30 * time.Second,
		ProbeTimeout: 3 * time.Second,
		Retry:        DefaultRetryPolicy(),
	}
}

// FormField 表单字段
type FormField struct {
	Query types.AttributeQuery
	Text  string
}

// Interactor 在不稳定的远程页面上定位和操作元素。
//
// 元素缺失永远不会以错误返回，而是 ok=false；error 只在句柄失效
// (ErrSessionLost) 或 ctx 取消时非空。Interactor 归单个会话所有，
// 不支持并发调用。
type Interactor struct {
	driver  Driver
	config  InteractorConfig
	logger  *zap.Logger
	metrics *metrics.Collector
	frame   *types.AttributeQuery
}

// NewInteractor 创建交互层
func NewInteractor(driver Driver, config InteractorConfig, logger *zap.Logger, collector *metrics.Collector) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = 30 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = config.WaitTimeout
	}
	return &Interactor{
		driver:  driver,
		config:  config,
		logger:  logger.With(zap.String("component", "interactor")),
		metrics: collector,
	}
}

// Driver 返回底层驱动
func (in *Interactor) Driver() Driver {
	return in.driver
}

// =============================================================================
// 🔍 定位
// =============================================================================

// Locate 定位元素。首次失败后按策略等待、整页刷新并重试，
// 总尝试次数最多 Retry.MaxAttempts+1。
func (in *Interactor) Locate(ctx context.Context, q types.AttributeQuery, cond Condition) (Element, bool, error) {
	policy := in.config.Retry
	for attempt := 0; attempt <= policy.Attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if attempt > 0 {
			in.logger.Debug("retrying locate",
				zap.Stringer("query", q),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.Attempts()))
			if err := Sleep(ctx, policy.Delay(attempt)); err != nil {
				return nil, false, err
			}
			if err := in.reload(ctx); err != nil {
				return nil, false, err
			}
		}

		el, err := in.find(ctx, q, cond, in.config.WaitTimeout)
		if err != nil {
			return nil, false, err
		}
		in.metrics.RecordLocateAttempt(in.config.Profile, el != nil)
		if el != nil {
			return el, true, nil
		}
	}

	in.logger.Debug("element not found",
		zap.Stringer("query", q),
		zap.Stringer("condition", cond),
		zap.Int("attempts", policy.Attempts()+1))
	return nil, false, nil
}

// Exists 单次短等待探测，不刷新页面
func (in *Interactor) Exists(ctx context.Context, q types.AttributeQuery) (bool, error) {
	el, err := in.find(ctx, q, ConditionPresent, in.config.ProbeTimeout)
	if err != nil {
		return false, err
	}
	return el != nil, nil
}

func (in *Interactor) find(ctx context.Context, q types.AttributeQuery, cond Condition, timeout time.Duration) (Element, error) {
	attemptCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	el, err := in.driver.FindElement(attemptCtx, q, cond)
	if err != nil {
		return nil, in.filter(ctx, err)
	}
	return el, nil
}

// filter 只保留致命错误与调用方取消，其余视为瞬态失败
func (in *Interactor) filter(ctx context.Context, err error) error {
	if IsFatal(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return nil
}

// reload 整页刷新；若处于 frame 内则重新进入同一 frame
func (in *Interactor) reload(ctx context.Context) error {
	in.metrics.RecordReload(in.config.Profile)

	reloadCtx, cancel := withTimeout(ctx, in.config.WaitTimeout)
	err := in.driver.Reload(reloadCtx)
	cancel()
	if err != nil {
		if fatal := in.filter(ctx, err); fatal != nil {
			return fatal
		}
		in.logger.Debug("reload failed", zap.Error(err))
	}

	if in.frame == nil {
		return nil
	}
	frameEl, err := in.find(ctx, *in.frame, ConditionPresent, in.config.WaitTimeout)
	if err != nil {
		return err
	}
	if frameEl == nil {
		in.logger.Debug("frame not found after reload", zap.Stringer("frame", *in.frame))
		return nil
	}
	if err := in.driver.SwitchToFrame(ctx, frameEl); err != nil {
		if fatal := in.filter(ctx, err); fatal != nil {
			return fatal
		}
		in.logger.Debug("failed to re-enter frame after reload", zap.Error(err))
	}
	return nil
}

// =============================================================================
// 🖱️ 元素操作
// =============================================================================

// Click 定位可点击元素并点击
func (in *Interactor) Click(ctx context.Context, q types.AttributeQuery) (bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionClickable)
	if !ok || err != nil {
		return false, err
	}
	return in.act(ctx, "click", q, el.Click)
}

// Clear 清空输入框
func (in *Interactor) Clear(ctx context.Context, q types.AttributeQuery) (bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return false, err
	}
	return in.act(ctx, "clear", q, el.Clear)
}

// TypeText 向元素输入文本
func (in *Interactor) TypeText(ctx context.Context, q types.AttributeQuery, text string) (bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return false, err
	}
	return in.act(ctx, "type", q, func(ctx context.Context) error {
		return el.SendKeys(ctx, text)
	})
}

// Submit 提交元素所在表单
func (in *Interactor) Submit(ctx context.Context, q types.AttributeQuery) (bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return false, err
	}
	return in.act(ctx, "submit", q, el.Submit)
}

// TypeAndSubmit 输入并提交；clearAfter 为 true 时提交后重新定位并清空输入框
func (in *Interactor) TypeAndSubmit(ctx context.Context, q types.AttributeQuery, text string, clearAfter bool) (bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return false, err
	}
	if ok, err := in.act(ctx, "type", q, func(ctx context.Context) error { return el.SendKeys(ctx, text) }); !ok || err != nil {
		return false, err
	}
	if ok, err := in.act(ctx, "submit", q, el.Submit); !ok || err != nil {
		return false, err
	}
	if clearAfter {
		if _, err := in.Clear(ctx, q); err != nil {
			return true, err
		}
	}
	return true, nil
}

// FillForm 依次填写字段并提交最后一个字段
func (in *Interactor) FillForm(ctx context.Context, fields ...FormField) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	for _, f := range fields {
		if ok, err := in.TypeText(ctx, f.Query, f.Text); !ok || err != nil {
			return false, err
		}
	}
	return in.Submit(ctx, fields[len(fields)-1].Query)
}

// ReadText 读取元素文本
func (in *Interactor) ReadText(ctx context.Context, q types.AttributeQuery) (string, bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return "", false, err
	}
	var text string
	ok, err = in.act(ctx, "text", q, func(ctx context.Context) error {
		var err error
		text, err = el.Text(ctx)
		return err
	})
	return text, ok, err
}

// ReadAttribute 读取元素属性
func (in *Interactor) ReadAttribute(ctx context.Context, q types.AttributeQuery, name string) (string, bool, error) {
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return "", false, err
	}
	var (
		value  string
		exists bool
	)
	ok, err = in.act(ctx, "attribute", q, func(ctx context.Context) error {
		var err error
		value, exists, err = el.Attribute(ctx, name)
		return err
	})
	return value, ok && exists, err
}

// ReadAllAttributes 读取全部匹配元素的属性，缺失属性的元素被跳过
func (in *Interactor) ReadAllAttributes(ctx context.Context, q types.AttributeQuery, name string) ([]string, error) {
	if _, ok, err := in.Locate(ctx, q, ConditionPresent); !ok || err != nil {
		return nil, err
	}

	findCtx, cancel := withTimeout(ctx, in.config.WaitTimeout)
	elems, err := in.driver.FindElements(findCtx, q, ConditionPresent)
	cancel()
	if err != nil {
		return nil, in.filter(ctx, err)
	}

	values := make([]string, 0, len(elems))
	for _, el := range elems {
		var (
			value  string
			exists bool
		)
		ok, err := in.act(ctx, "attribute", q, func(ctx context.Context) error {
			var err error
			value, exists, err = el.Attribute(ctx, name)
			return err
		})
		if err != nil {
			return values, err
		}
		if ok && exists {
			values = append(values, value)
		}
	}
	return values, nil
}

func (in *Interactor) act(ctx context.Context, op string, q types.AttributeQuery, fn func(context.Context) error) (bool, error) {
	actCtx, cancel := withTimeout(ctx, in.config.WaitTimeout)
	defer cancel()
	if err := fn(actCtx); err != nil {
		if fatal := in.filter(ctx, err); fatal != nil {
			return false, fatal
		}
		in.logger.Debug("element action failed",
			zap.String("op", op),
			zap.Stringer("query", q),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

// =============================================================================
// 🧭 导航
// =============================================================================

// Navigate 打开 URL
func (in *Interactor) Navigate(ctx context.Context, url string) (bool, error) {
	navCtx, cancel := withTimeout(ctx, in.config.WaitTimeout)
	defer cancel()
	in.frame = nil
	if err := in.driver.Open(navCtx, url); err != nil {
		if fatal := in.filter(ctx, err); fatal != nil {
			return false, fatal
		}
		in.logger.Debug("navigation failed", zap.String("url", url), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// CurrentURL 返回当前地址
func (in *Interactor) CurrentURL(ctx context.Context) (string, bool, error) {
	urlCtx, cancel := withTimeout(ctx, in.config.WaitTimeout)
	defer cancel()
	u, err := in.driver.CurrentURL(urlCtx)
	if err != nil {
		return "", false, in.filter(ctx, err)
	}
	return u, true, nil
}

// Pause 可取消的固定等待
func (in *Interactor) Pause(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// =============================================================================
// 🪟 Frame
// =============================================================================

// EnterFrame 进入 frame。失败时上下文不变并返回 false；
// 已在 frame 内时不支持嵌套。
func (in *Interactor) EnterFrame(ctx context.Context, q types.AttributeQuery) (bool, error) {
	if in.frame != nil {
		in.logger.Debug("nested frame not supported", zap.Stringer("frame", q))
		return false, nil
	}
	el, ok, err := in.Locate(ctx, q, ConditionPresent)
	if !ok || err != nil {
		return false, err
	}
	if err := in.driver.SwitchToFrame(ctx, el); err != nil {
		if fatal := in.filter(ctx, err); fatal != nil {
			return false, fatal
		}
		in.logger.Debug("switch to frame failed", zap.Stringer("frame", q), zap.Error(err))
		return false, nil
	}
	frame := q
	in.frame = &frame
	return true, nil
}

// ExitFrame 回到顶层文档，必须与成功的 EnterFrame 成对调用
func (in *Interactor) ExitFrame(ctx context.Context) error {
	in.frame = nil
	if err := in.driver.SwitchToDefault(ctx); err != nil {
		return in.filter(ctx, err)
	}
	return nil
}

// InFrame 是否处于 frame 内
func (in *Interactor) InFrame() bool {
	return in.frame != nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
