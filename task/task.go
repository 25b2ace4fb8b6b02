package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/internal/ctxkeys"
	"github.com/BaSui01/rewardflow/internal/metrics"
	"github.com/BaSui01/rewardflow/quota"
	"github.com/BaSui01/rewardflow/session"
	"github.com/BaSui01/rewardflow/types"
	"github.com/BaSui01/rewardflow/words"
)

const instrumentationName = "github.com/BaSui01/rewardflow/task"

var (
	// ErrAlreadyStarted Run 被调用了不止一次
	ErrAlreadyStarted = errors.New("task already started")
	// ErrPoolStarted Start 之后不能再提交或再次启动
	ErrPoolStarted = errors.New("task pool already started")
	// ErrPoolNotStarted Wait 在 Start 之前调用
	ErrPoolNotStarted = errors.New("task pool not started")
)

// DriverFactory 为每个任务创建独占的浏览器驱动。browser.Launcher 实现了该接口。
type DriverFactory interface {
	NewDriver(ctx context.Context, profile types.SiteProfile) (browser.Driver, error)
}

// Options 单个任务的运行参数
type Options struct {
	Quota      quota.Config             `yaml:"quota" json:"quota"`
	Session    session.Options          `yaml:"session" json:"session"`
	Timeout    time.Duration            `yaml:"timeout" json:"timeout"` // 单任务最长运行时间，0 表示不限制
	Interactor browser.InteractorConfig `yaml:"-" json:"-"`
}

// DefaultOptions 默认任务参数
func DefaultOptions() Options {
	return Options{
		Quota:      quota.DefaultConfig(),
		Session:    session.DefaultOptions(),
		Interactor: browser.DefaultInteractorConfig(),
	}
}

// Deps 任务共享的依赖，全部只读
type Deps struct {
	Factory DriverFactory
	Words   words.Generator
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// State 任务生命周期阶段
type State string

const (
	StateCreated       State = "created"
	StateInitializing  State = "initializing"
	StateSigningIn     State = "signing_in"
	StatePrimaryLoop   State = "primary_loop"
	StateSecondaryLoop State = "secondary_loop"
	StateSigningOut    State = "signing_out"
	StateReleased      State = "released"
)

// Outcome 任务最终结果
type Outcome string

const (
	OutcomePending        Outcome = "pending"
	OutcomeConverged      Outcome = "converged"
	OutcomeRetryExhausted Outcome = "retry_exhausted"
	OutcomeSignInFailed   Outcome = "sign_in_failed"
	OutcomeFatal          Outcome = "fatal"
	OutcomeCancelled      Outcome = "cancelled"
)

// Result 任务结果快照
type Result struct {
	TaskID    string
	Account   string
	Profile   types.Profile
	Outcome   Outcome
	Primary   quota.Outcome
	Secondary quota.Outcome
	Summary   *session.Summary
	SignedOut bool
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration 运行耗时
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Task 一个账号在一个档案下的完整会话：初始化、登录、主循环、次循环、登出、释放。
// 任何致命错误或 panic 都跳到释放阶段；done 只在释放之后置为 true。
type Task struct {
	id      string
	cred    types.Credential
	profile types.SiteProfile
	opts    Options
	deps    Deps
	logger  *zap.Logger
	tracer  trace.Tracer

	started atomic.Bool
	done    atomic.Bool

	mu     sync.Mutex
	state  State
	result Result
	driver browser.Driver
}

// New 创建任务，不打开任何资源
func New(cred types.Credential, profile types.SiteProfile, opts Options, deps Deps) (*Task, error) {
	if deps.Factory == nil {
		return nil, errors.New("task: driver factory is required")
	}
	if deps.Words == nil {
		return nil, errors.New("task: word generator is required")
	}
	if opts.Quota.WorkUnitSize <= 0 {
		return nil, fmt.Errorf("task: work unit size must be > 0, got %d", opts.Quota.WorkUnitSize)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	return &Task{
		id:      id,
		cred:    cred,
		profile: profile,
		opts:    opts,
		deps:    deps,
		logger: logger.With(
			zap.String("task_id", id),
			zap.String("profile", string(profile.Name)),
			zap.String("account", cred.Masked()),
		),
		tracer: otel.Tracer(instrumentationName),
		state:  StateCreated,
		result: Result{
			TaskID:  id,
			Account: cred.Identifier,
			Profile: profile.Name,
			Outcome: OutcomePending,
		},
	}, nil
}

// ID 任务 ID
func (t *Task) ID() string { return t.id }

// Credential 任务凭据
func (t *Task) Credential() types.Credential { return t.cred }

// Profile 任务档案
func (t *Task) Profile() types.SiteProfile { return t.profile }

// Done 资源已释放且任务结束
func (t *Task) Done() bool { return t.done.Load() }

// State 当前阶段
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result 结果快照，任务未结束时 Outcome 为 pending
func (t *Task) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	prev := t.state
	t.state = s
	t.mu.Unlock()

	t.deps.Metrics.RecordTaskState(string(t.profile.Name), string(s))
	t.logger.Debug("task state changed", zap.String("from", string(prev)), zap.String("to", string(s)))
}

// =============================================================================
// ▶️ 执行
// =============================================================================

// Run 同步执行任务，只能调用一次。返回致命错误、取消、超时或 panic；
// 达不到配额不算错误，见 Result().Outcome。Options.Timeout 到期视为预算耗尽，
// Outcome 为 retry_exhausted。
func (t *Task) Run(ctx context.Context) (err error) {
	if !t.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, span := t.tracer.Start(ctx, "task.run",
		trace.WithAttributes(
			attribute.String("task.id", t.id),
			attribute.String("task.profile", string(t.profile.Name)),
		))
	defer span.End()
	ctx = ctxkeys.WithTaskID(ctx, t.id)
	ctx = ctxkeys.WithAccount(ctx, t.cred.Masked())
	ctx = ctxkeys.WithProfile(ctx, string(t.profile.Name))

	res := Result{
		TaskID:    t.id,
		Account:   t.cred.Identifier,
		Profile:   t.profile.Name,
		Outcome:   OutcomePending,
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			err = types.NewError(types.ErrTaskPanicked, fmt.Sprintf("task panicked: %v", r)).
				WithProfile(t.profile.Name)
			res.Outcome = OutcomeFatal
			t.logger.Error("task panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}

		t.release()
		t.setState(StateReleased)

		res.Err = err
		res.EndedAt = time.Now()
		if res.Outcome == OutcomePending {
			res.Outcome = OutcomeFatal
		}
		t.mu.Lock()
		t.result = res
		t.mu.Unlock()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("task.outcome", string(res.Outcome)))
		t.deps.Metrics.RecordTaskOutcome(string(t.profile.Name), string(res.Outcome), res.Duration())
		recordOutcome(ctx, t.profile.Name, res.Outcome)

		t.logger.Info("task finished",
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("duration", res.Duration()),
			zap.Error(err))

		// 释放之后才标记完成
		t.done.Store(true)
	}()

	runCtx := ctx
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	err = t.run(runCtx, &res)
	if err != nil {
		res.Outcome = classify(ctx, runCtx)
		if res.Outcome == OutcomeRetryExhausted {
			err = types.NewError(types.ErrTaskTimeout, fmt.Sprintf("task exceeded %s", t.opts.Timeout)).
				WithCause(err).
				WithProfile(t.profile.Name)
		}
	}
	return err
}

func (t *Task) run(ctx context.Context, res *Result) error {
	t.setState(StateInitializing)
	sess, loop, err := t.initialize(ctx)
	if err != nil {
		return err
	}

	t.setState(StateSigningIn)
	signedIn, err := sess.SignIn(ctx)
	if err != nil {
		return err
	}
	if !signedIn {
		t.logger.Warn("sign-in failed, continuing",
			zap.Error(types.NewError(types.ErrSignInFailed, "sign-in rejected").WithProfile(t.profile.Name)))
	}

	t.setState(StatePrimaryLoop)
	primary, err := loop.Run(ctx)
	res.Primary = primary
	if err != nil {
		return err
	}

	t.setState(StateSecondaryLoop)
	secondary, err := loop.RunSecondary(ctx)
	res.Secondary = secondary
	if err != nil {
		return err
	}

	summary, err := sess.Summary(ctx)
	if err != nil {
		return err
	}
	res.Summary = &summary
	t.logger.Info("account summary\n" + summary.String())

	t.setState(StateSigningOut)
	signedOut, err := sess.SignOut(ctx)
	if err != nil {
		return err
	}
	res.SignedOut = signedOut
	if !signedOut {
		t.logger.Warn("sign-out could not be confirmed")
	}

	switch {
	case !signedIn:
		res.Outcome = OutcomeSignInFailed
	case primary.State == quota.StateConverged:
		res.Outcome = OutcomeConverged
	default:
		res.Outcome = OutcomeRetryExhausted
	}
	return nil
}

func (t *Task) initialize(ctx context.Context) (*session.Session, *quota.Loop, error) {
	driver, err := t.deps.Factory.NewDriver(ctx, t.profile)
	if err != nil {
		return nil, nil, fmt.Errorf("open driver: %w", err)
	}
	t.mu.Lock()
	t.driver = driver
	t.mu.Unlock()

	icfg := t.opts.Interactor
	icfg.Profile = string(t.profile.Name)
	ui := browser.NewInteractor(driver, icfg, t.logger, t.deps.Metrics)

	sess, err := session.New(ui, t.cred, t.profile, t.deps.Words, t.opts.Session, t.logger, t.deps.Metrics)
	if err != nil {
		return nil, nil, err
	}
	loop, err := quota.NewLoop(sess, t.opts.Quota, t.logger)
	if err != nil {
		return nil, nil, err
	}
	return sess, loop, nil
}

// release 关闭驱动，可重复调用
func (t *Task) release() {
	t.mu.Lock()
	driver := t.driver
	t.driver = nil
	t.mu.Unlock()

	if driver == nil {
		return
	}
	if err := driver.Quit(); err != nil {
		t.logger.Warn("failed to quit driver", zap.Error(err))
	}
}

// classify 区分调用方取消、任务自身超时和致命错误
func classify(parent, runCtx context.Context) Outcome {
	switch {
	case parent.Err() != nil:
		return OutcomeCancelled
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return OutcomeRetryExhausted
	default:
		return OutcomeFatal
	}
}

// =============================================================================
// 📈 OpenTelemetry 指标
// =============================================================================

var (
	outcomeOnce    sync.Once
	outcomeCounter metric.Int64Counter
)

func recordOutcome(ctx context.Context, profile types.Profile, outcome Outcome) {
	outcomeOnce.Do(func() {
		c, err := otel.Meter(instrumentationName).Int64Counter("rewardflow.task.outcomes",
			metric.WithDescription("Finished tasks by outcome"),
			metric.WithUnit("{task}"))
		if err == nil {
			outcomeCounter = c
		}
	})
	if outcomeCounter == nil {
		return
	}
	outcomeCounter.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("profile", string(profile)),
		attribute.String("outcome", string(outcome)),
	))
}
