package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/internal/metrics"
	"github.com/BaSui01/rewardflow/types"
	"github.com/BaSui01/rewardflow/words"
)

// Options 会话节奏配置
type Options struct {
	ActionDelay  time.Duration `yaml:"action_delay" json:"action_delay"`   // 两次模拟操作之间的固定间隔
	ActionJitter time.Duration `yaml:"action_jitter" json:"action_jitter"` // 额外的随机等待上限
	StepPause    time.Duration `yaml:"step_pause" json:"step_pause"`       // 预表单/登出步骤之间的停顿
}

// DefaultOptions 默认节奏：搜索间隔 5s，步骤停顿 5s
func DefaultOptions() Options {
	return Options{
		ActionDelay: 5 * time.Second,
		StepPause:   5 * time.Second,
	}
}

// Session 单个账号的站点会话，归一个任务独占
type Session struct {
	ui      *browser.Interactor
	cred    types.Credential
	profile types.SiteProfile
	words   words.Generator
	opts    Options
	pacer   *rate.Limiter
	rng     *rand.Rand
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New 创建会话。档案或凭据无效时返回 INVALID_PROFILE / INVALID_CREDENTIAL。
func New(ui *browser.Interactor, cred types.Credential, profile types.SiteProfile, gen words.Generator, opts Options, logger *zap.Logger, collector *metrics.Collector) (*Session, error) {
	if ui == nil {
		return nil, errors.New("session: interactor is required")
	}
	if gen == nil {
		return nil, errors.New("session: word generator is required")
	}
	if err := profile.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidProfile, "invalid site profile").
			WithProfile(profile.Name).
			WithCause(err)
	}
	if !cred.Valid() {
		return nil, types.NewError(types.ErrInvalidCredential, "credential requires identifier and secret").
			WithProfile(profile.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.ActionDelay > 0 {
		limit = rate.Every(opts.ActionDelay)
	}

	return &Session{
		ui:      ui,
		cred:    cred,
		profile: profile,
		words:   gen,
		opts:    opts,
		pacer:   rate.NewLimiter(limit, 1),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: logger.With(
			zap.String("component", "session"),
			zap.String("profile", string(profile.Name)),
			zap.String("account", cred.Masked()),
		),
		metrics: collector,
	}, nil
}

// Credential 会话凭据
func (s *Session) Credential() types.Credential { return s.cred }

// Profile 会话档案
func (s *Session) Profile() types.SiteProfile { return s.profile }

// Interactor 底层交互层
func (s *Session) Interactor() *browser.Interactor { return s.ui }

// =============================================================================
// 🔐 登录 / 登出
// =============================================================================

// SignIn 打开登录页、必要时点击预表单步骤、填写并提交表单。
// 提交后未出现错误提示即视为成功。
func (s *Session) SignIn(ctx context.Context) (bool, error) {
	if ok, err := s.ui.Navigate(ctx, s.profile.SignInURL); err != nil {
		return false, err
	} else if !ok {
		s.logger.Warn("sign-in page did not load")
	}

	if s.profile.RequiresPreForm() {
		present, err := s.ui.Exists(ctx, s.profile.LoginField)
		if err != nil {
			return false, err
		}
		if !present {
			if err := s.clickSteps(ctx, s.profile.PreForm); err != nil {
				return false, err
			}
		}
	}

	ok, err := s.ui.FillForm(ctx,
		browser.FormField{Query: s.profile.LoginField, Text: s.cred.Identifier},
		browser.FormField{Query: s.profile.PasswordField, Text: s.cred.Secret},
	)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Warn("sign-in form could not be submitted")
		return false, nil
	}

	rejected, err := s.ui.Exists(ctx, s.profile.SignInError)
	if err != nil {
		return false, err
	}
	if rejected {
		s.logger.Warn("sign-in rejected")
		return false, nil
	}
	s.logger.Info("signed in")
	return true, nil
}

// SignOut 依次点击登出步骤，检查元素文本非空即视为成功。没有登出步骤的档案直接返回 true。
func (s *Session) SignOut(ctx context.Context) (bool, error) {
	if len(s.profile.SignOutSteps) == 0 {
		return true, nil
	}
	if err := s.clickSteps(ctx, s.profile.SignOutSteps); err != nil {
		return false, err
	}
	if s.profile.SignOutCheck.IsZero() {
		return true, nil
	}
	text, ok, err := s.ui.ReadText(ctx, s.profile.SignOutCheck)
	if err != nil {
		return false, err
	}
	return ok && strings.TrimSpace(text) != "", nil
}

func (s *Session) clickSteps(ctx context.Context, steps []types.AttributeQuery) error {
	for _, step := range steps {
		ok, err := s.ui.Click(ctx, step)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Debug("step not clickable", zap.Stringer("step", step))
		}
		if err := s.ui.Pause(ctx, s.opts.StepPause); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// 🧭 页面
// =============================================================================

// OpenDashboard 打开仪表盘（循环结束后的停靠位置）
func (s *Session) OpenDashboard(ctx context.Context) error {
	_, err := s.ui.Navigate(ctx, s.profile.DashboardURL)
	return err
}

// OpenSearch 打开搜索页
func (s *Session) OpenSearch(ctx context.Context) error {
	_, err := s.ui.Navigate(ctx, s.profile.SearchURL)
	return err
}

// =============================================================================
// ⚙️ 工作单元
// =============================================================================

// PerformWorkUnit 生成 size 个搜索词，打开搜索页后逐个输入并提交。
// 生成失败或为空时不执行任何操作。返回成功提交的次数。
func (s *Session) PerformWorkUnit(ctx context.Context, size int) (int, error) {
	if size <= 0 {
		return 0, nil
	}

	payloads, err := s.words.Generate(ctx, size)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		s.logger.Warn("payload generation failed, skipping work unit", zap.Error(err))
		return 0, nil
	}
	if len(payloads) == 0 {
		s.logger.Warn("payload generator returned nothing, skipping work unit")
		return 0, nil
	}

	if err := s.OpenSearch(ctx); err != nil {
		return 0, err
	}

	actions := 0
	for _, payload := range payloads {
		if err := s.pace(ctx); err != nil {
			return actions, err
		}
		ok, err := s.ui.TypeAndSubmit(ctx, s.profile.SearchBox, payload, true)
		if err != nil {
			return actions, err
		}
		if ok {
			actions++
		}
	}

	s.metrics.RecordWorkUnit(string(s.profile.Name), string(types.ProgressDevice))
	s.metrics.RecordWorkActions(string(s.profile.Name), actions)
	s.logger.Debug("work unit done", zap.Int("requested", size), zap.Int("actions", actions))
	return actions, nil
}

// pace 等待节流器放行，再叠加 [0, ActionJitter) 的随机等待
func (s *Session) pace(ctx context.Context) error {
	r := s.pacer.Reserve()
	if err := browser.Sleep(ctx, r.Delay()); err != nil {
		r.Cancel()
		return err
	}
	if s.opts.ActionJitter <= 0 {
		return nil
	}
	return browser.Sleep(ctx, time.Duration(s.rng.Int64N(int64(s.opts.ActionJitter))))
}
