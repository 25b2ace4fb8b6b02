package browser

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy 元素定位的重试策略。MaxAttempts 是首次尝试之后的额外次数，
// 总尝试次数最多 MaxAttempts+1。
type RetryPolicy struct {
	MaxAttempts int                             // 最大重试次数（0 表示不重试）
	Backoff     func(attempt int) time.Duration // 第 attempt 次重试前的等待时间，attempt 从 1 开始
}

// DefaultRetryPolicy 默认策略：重试 10 次，第 n 次等待 n*30s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		Backoff:     LinearBackoff(30 * time.Second),
	}
}

// NoRetry 只尝试一次
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// Attempts 返回规范化后的重试次数
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 0 {
		return 0
	}
	return p.MaxAttempts
}

// Delay 返回第 attempt 次重试前的等待时间
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff == nil || attempt <= 0 {
		return 0
	}
	if d := p.Backoff(attempt); d > 0 {
		return d
	}
	return 0
}

// LinearBackoff delay = attempt * step
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// ConstantBackoff 固定间隔
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff 指数退避 + 可选的随机抖动（±25%），上限 max
func ExponentialBackoff(initial, max time.Duration, multiplier float64, jitter bool) func(int) time.Duration {
	if multiplier < 1.0 {
		multiplier = 2.0
	}
	return func(attempt int) time.Duration {
		// 指数退避：delay = initial * multiplier^(attempt-1)
		delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		if max > 0 && delay > float64(max) {
			delay = float64(max)
		}
		if jitter {
			spread := delay * 0.25
			delay = delay + (rand.Float64()*2-1)*spread
		}
		if delay < float64(initial) {
			delay = float64(initial)
		}
		return time.Duration(delay)
	}
}

// Op 可组合的会话操作。error 只表示致命错误或取消。
type Op[T any] func(ctx context.Context) (T, error)

// WithRetry 在 accept 返回 false 时按策略重试 op，错误立即返回不重试。
// 最多执行 policy.Attempts()+1 次，返回最后一次结果。
func WithRetry[T any](op Op[T], policy RetryPolicy, accept func(T) bool) Op[T] {
	return func(ctx context.Context) (T, error) {
		var result T
		for attempt := 0; attempt <= policy.Attempts(); attempt++ {
			if attempt > 0 {
				if err := Sleep(ctx, policy.Delay(attempt)); err != nil {
					return result, err
				}
			}
			var err error
			result, err = op(ctx)
			if err != nil {
				return result, err
			}
			if accept == nil || accept(result) {
				return result, nil
			}
		}
		return result, nil
	}
}

// Sleep 可被 ctx 取消的等待
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait cancelled: %w", err)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
