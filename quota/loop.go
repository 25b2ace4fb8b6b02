// Package quota drives a session toward its daily counters: perform a work
// unit, re-measure under partial observability, and decide whether to keep
// going.
package quota

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/types"
)

const instrumentationName = "github.com/BaSui01/rewardflow/quota"

// Target is the session surface the loop needs.
type Target interface {
	ReadProgress(ctx context.Context, kind types.ProgressKind) (types.ProgressMeasurement, error)
	PerformWorkUnit(ctx context.Context, size int) (int, error)
	VisitOffers(ctx context.Context) (int, error)
	OpenDashboard(ctx context.Context) error
}

// Config bounds the loop.
type Config struct {
	WorkUnitSize         int `yaml:"work_unit_size" json:"work_unit_size"`
	MaxAttempts          int `yaml:"max_attempts" json:"max_attempts"`
	SecondaryMaxAttempts int `yaml:"secondary_max_attempts" json:"secondary_max_attempts"`
}

// DefaultConfig returns five measurement attempts and three offer rounds.
func DefaultConfig() Config {
	return Config{
		WorkUnitSize:         10,
		MaxAttempts:          5,
		SecondaryMaxAttempts: 3,
	}
}

// State is a loop phase.
type State string

const (
	StateMeasuring      State = "measuring"
	StateWorking        State = "working"
	StateConverged      State = "converged"
	StateRetryExhausted State = "retry_exhausted"
	StateCancelled      State = "cancelled"
	StateFailed         State = "failed"
)

// Outcome is the terminal result of Run or RunSecondary.
type Outcome struct {
	State     State
	Final     types.ProgressMeasurement
	WorkUnits int
	Retries   int
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s (%s after %d units, %d retries)", o.State, o.Final, o.WorkUnits, o.Retries)
}

// Loop is owned by a single task.
type Loop struct {
	target Target
	config Config
	logger *zap.Logger
	tracer trace.Tracer
}

// NewLoop normalises non-positive limits to the defaults.
func NewLoop(target Target, config Config, logger *zap.Logger) (*Loop, error) {
	if target == nil {
		return nil, errors.New("quota: target is required")
	}
	if config.WorkUnitSize <= 0 {
		return nil, fmt.Errorf("quota: work unit size must be > 0, got %d", config.WorkUnitSize)
	}
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.SecondaryMaxAttempts <= 0 {
		config.SecondaryMaxAttempts = defaults.SecondaryMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		target: target,
		config: config,
		logger: logger.With(zap.String("component", "quota")),
		tracer: otel.Tracer(instrumentationName),
	}, nil
}

// Config returns the normalised configuration.
func (l *Loop) Config() Config {
	return l.config
}

// TryMeasure reads progress up to MaxAttempts times and returns as soon as
// both values are readable. Otherwise it keeps the readable parts of every
// round, and when the maximum was never seen it assumes current plus half a
// work unit. The result is only a function of what the target reports.
func (l *Loop) TryMeasure(ctx context.Context, kind types.ProgressKind) (types.ProgressMeasurement, error) {
	m, _, err := l.measure(ctx, kind)
	return m, err
}

// measure is TryMeasure that also reports whether the maximum was estimated.
func (l *Loop) measure(ctx context.Context, kind types.ProgressKind) (types.ProgressMeasurement, bool, error) {
	current, maximum := types.Unreadable, types.Unreadable

	for round := 0; round < l.config.MaxAttempts; round++ {
		if err := ctx.Err(); err != nil {
			return types.UnreadableMeasurement(), false, err
		}
		m, err := l.target.ReadProgress(ctx, kind)
		if err != nil {
			return types.UnreadableMeasurement(), false, err
		}
		if m.BothReadable() {
			return m, false, nil
		}
		if !m.CurrentUnreadable() {
			current = m.Current
		}
		if !m.MaximumUnreadable() {
			maximum = m.Maximum
		}
	}

	if maximum == types.Unreadable {
		return types.NewMeasurement(current, current+l.config.WorkUnitSize/2), true, nil
	}
	return types.NewMeasurement(current, maximum), false, nil
}

// Run is the primary loop. While current < maximum and the retry budget is
// not spent it performs one work unit and re-measures; a retry is charged
// only when current stays unreadable and is never refunded. An estimated
// maximum is fixed at the first estimate taken from a readable current, so
// the goal cannot move up with every unit. The session is parked on the
// dashboard afterwards.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	ctx, span := l.tracer.Start(ctx, "quota.primary",
		trace.WithAttributes(
			attribute.Int("quota.work_unit_size", l.config.WorkUnitSize),
			attribute.Int("quota.max_attempts", l.config.MaxAttempts),
		))
	defer span.End()

	out := Outcome{State: StateMeasuring}
	estimate := types.Unreadable
	device := func() (types.ProgressMeasurement, error) {
		m, estimated, err := l.measure(ctx, types.ProgressDevice)
		if err != nil || !estimated || m.CurrentUnreadable() {
			return m, err
		}
		if estimate == types.Unreadable {
			estimate = m.Maximum
			l.logger.Debug("maximum unreadable, using estimate", zap.Int("maximum", estimate))
		}
		return types.NewMeasurement(m.Current, estimate), nil
	}

	stats, err := device()
	if err != nil {
		return l.abort(ctx, span, out, err)
	}
	out.Final = stats
	l.logger.Debug("initial progress", zap.Stringer("progress", stats))

	for stats.Current < stats.Maximum && out.Retries < l.config.MaxAttempts {
		out.State = StateWorking
		if _, err := l.target.PerformWorkUnit(ctx, l.config.WorkUnitSize); err != nil {
			return l.abort(ctx, span, out, err)
		}
		out.WorkUnits++

		out.State = StateMeasuring
		stats, err = device()
		if err != nil {
			return l.abort(ctx, span, out, err)
		}
		out.Final = stats
		if stats.CurrentUnreadable() {
			out.Retries++
			l.logger.Debug("progress unreadable after work unit",
				zap.Int("retries", out.Retries),
				zap.Int("max_attempts", l.config.MaxAttempts))
		}
	}

	out.State = terminalState(stats)
	if err := l.target.OpenDashboard(ctx); err != nil {
		return l.abort(ctx, span, out, err)
	}

	span.SetAttributes(
		attribute.String("quota.state", string(out.State)),
		attribute.Int("quota.work_units", out.WorkUnits),
		attribute.Int("quota.retries", out.Retries),
	)
	l.logger.Info("primary loop finished",
		zap.String("state", string(out.State)),
		zap.Stringer("progress", out.Final),
		zap.Int("work_units", out.WorkUnits),
		zap.Int("retries", out.Retries))
	return out, nil
}

// RunSecondary visits offer links while the offer counter is below its
// maximum, at most SecondaryMaxAttempts rounds, re-measuring after each.
func (l *Loop) RunSecondary(ctx context.Context) (Outcome, error) {
	ctx, span := l.tracer.Start(ctx, "quota.secondary",
		trace.WithAttributes(attribute.Int("quota.max_attempts", l.config.SecondaryMaxAttempts)))
	defer span.End()

	out := Outcome{State: StateMeasuring}
	stats, err := l.TryMeasure(ctx, types.ProgressOffer)
	if err != nil {
		return l.abort(ctx, span, out, err)
	}
	out.Final = stats

	for stats.Current < stats.Maximum && out.Retries < l.config.SecondaryMaxAttempts {
		out.State = StateWorking
		if _, err := l.target.VisitOffers(ctx); err != nil {
			return l.abort(ctx, span, out, err)
		}
		out.WorkUnits++
		out.Retries++

		out.State = StateMeasuring
		stats, err = l.TryMeasure(ctx, types.ProgressOffer)
		if err != nil {
			return l.abort(ctx, span, out, err)
		}
		out.Final = stats
	}

	out.State = terminalState(stats)
	span.SetAttributes(attribute.String("quota.state", string(out.State)))
	l.logger.Info("secondary loop finished",
		zap.String("state", string(out.State)),
		zap.Stringer("progress", out.Final),
		zap.Int("rounds", out.WorkUnits))
	return out, nil
}

func terminalState(m types.ProgressMeasurement) State {
	if !m.CurrentUnreadable() && m.Current >= m.Maximum {
		return StateConverged
	}
	return StateRetryExhausted
}

func (l *Loop) abort(ctx context.Context, span trace.Span, out Outcome, err error) (Outcome, error) {
	if ctx.Err() != nil {
		out.State = StateCancelled
	} else {
		out.State = StateFailed
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.logger.Warn("quota loop aborted", zap.String("state", string(out.State)), zap.Error(err))
	return out, err
}
