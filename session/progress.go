package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/types"
)

// ReadProgress 读取设备或活动计数。档案决定是否先往返仪表盘、是否经过统计浮层与 frame、
// 以及读取组合文本还是分开的两个元素。无法解析的值为 -1。
func (s *Session) ReadProgress(ctx context.Context, kind types.ProgressKind) (types.ProgressMeasurement, error) {
	q, err := s.progressQuery(kind)
	if err != nil {
		return types.UnreadableMeasurement(), err
	}

	read := browser.Op[types.ProgressMeasurement](func(ctx context.Context) (types.ProgressMeasurement, error) {
		return s.readPair(ctx, q)
	})
	if s.profile.StatsFrame != nil {
		read = s.inStatsFrame(read)
	}
	if s.profile.ProgressOnDashboard {
		read = browser.WithReturnNavigation(read, s.ui, s.profile.DashboardURL)
	}

	m, err := read(ctx)
	if err != nil {
		return types.UnreadableMeasurement(), err
	}
	s.metrics.RecordMeasurement(string(s.profile.Name), string(kind), !m.CurrentUnreadable(), !m.MaximumUnreadable())
	s.logger.Debug("progress read", zap.String("kind", string(kind)), zap.Stringer("progress", m))
	return m, nil
}

func (s *Session) progressQuery(kind types.ProgressKind) (types.ProgressQuery, error) {
	switch kind {
	case types.ProgressDevice:
		return s.profile.DeviceProgress, nil
	case types.ProgressOffer:
		return s.profile.OfferProgress, nil
	}
	return types.ProgressQuery{}, fmt.Errorf("session: unknown progress kind %q", kind)
}

// inStatsFrame 点击浮层开关，在统计 frame 内执行 op；frame 缺失时读数为不可读
func (s *Session) inStatsFrame(op browser.Op[types.ProgressMeasurement]) browser.Op[types.ProgressMeasurement] {
	frame := s.profile.StatsFrame
	return func(ctx context.Context) (types.ProgressMeasurement, error) {
		if !frame.Opener.IsZero() {
			if _, err := s.ui.Click(ctx, frame.Opener); err != nil {
				return types.UnreadableMeasurement(), err
			}
		}
		m, ok, err := browser.WithinFrame(ctx, s.ui, frame.Frame, op)
		if err != nil {
			return types.UnreadableMeasurement(), err
		}
		if !ok {
			s.logger.Debug("stats frame unavailable")
			return types.UnreadableMeasurement(), nil
		}
		return m, nil
	}
}

func (s *Session) readPair(ctx context.Context, q types.ProgressQuery) (types.ProgressMeasurement, error) {
	if q.IsComposite() {
		text, ok, err := s.ui.ReadText(ctx, q.Composite)
		if err != nil || !ok {
			return types.UnreadableMeasurement(), err
		}
		return types.ParseComposite(text), nil
	}

	current, err := s.readCount(ctx, q.Current)
	if err != nil {
		return types.UnreadableMeasurement(), err
	}
	maximum, err := s.readCount(ctx, q.Maximum)
	if err != nil {
		return types.UnreadableMeasurement(), err
	}
	return types.NewMeasurement(current, maximum), nil
}

func (s *Session) readCount(ctx context.Context, q types.AttributeQuery) (int, error) {
	if q.IsZero() {
		return types.Unreadable, nil
	}
	text, ok, err := s.ui.ReadText(ctx, q)
	if err != nil || !ok {
		return types.Unreadable, err
	}
	return types.ParseCount(text), nil
}

// TotalPoints 读取账号总积分，读不到时为 -1
func (s *Session) TotalPoints(ctx context.Context) (int, error) {
	if s.profile.TotalPoints.IsZero() {
		return types.Unreadable, nil
	}
	read := browser.Op[int](func(ctx context.Context) (int, error) {
		return s.readCount(ctx, s.profile.TotalPoints)
	})
	if s.profile.TotalPointsOnDashboard {
		read = browser.WithReturnNavigation(read, s.ui, s.profile.DashboardURL)
	}
	return read(ctx)
}

// =============================================================================
// 📋 账号报告
// =============================================================================

// Summary 账号报告
type Summary struct {
	Account     string
	Profile     types.Profile
	TotalPoints int
	Device      types.ProgressMeasurement
	Offer       types.ProgressMeasurement
}

// DeviceClass 报告中使用的设备类别名
func (s Summary) DeviceClass() string {
	if s.Profile == types.ProfileSecondary {
		return "Mobile"
	}
	return "PC"
}

// String 形如:
//
//	someone@example.com - 2200 points
//	Daily Point Breakdown:
//		Daily PC Points = 15/15
//		Daily Offer Points = 5/5
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %d points\n", s.Account, s.TotalPoints)
	b.WriteString("Daily Point Breakdown:\n")
	fmt.Fprintf(&b, "\tDaily %s Points = %s\n", s.DeviceClass(), s.Device)
	fmt.Fprintf(&b, "\tDaily Offer Points = %s\n", s.Offer)
	return b.String()
}

// Summary 收集总积分与两类计数
func (s *Session) Summary(ctx context.Context) (Summary, error) {
	out := Summary{
		Account: s.cred.Identifier,
		Profile: s.profile.Name,
		Device:  types.UnreadableMeasurement(),
		Offer:   types.UnreadableMeasurement(),
	}
	var err error
	if out.TotalPoints, err = s.TotalPoints(ctx); err != nil {
		return out, err
	}
	if out.Device, err = s.ReadProgress(ctx, types.ProgressDevice); err != nil {
		return out, err
	}
	if out.Offer, err = s.ReadProgress(ctx, types.ProgressOffer); err != nil {
		return out, err
	}
	return out, nil
}
