package browser

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/types"
)

// NavigateAndReturn 记录当前地址，必要时打开 dest 执行 op，然后无论 op
// 成功与否都回到原地址。当前地址已是 dest 时不发生任何导航。
// ctx 已取消时不再尝试返回。
func NavigateAndReturn[T any](ctx context.Context, in *Interactor, dest string, op Op[T]) (T, error) {
	var zero T

	origin, known, err := in.CurrentURL(ctx)
	if err != nil {
		return zero, err
	}
	moved := !known || !SameLocation(origin, dest)
	if moved {
		if _, err := in.Navigate(ctx, dest); err != nil {
			return zero, err
		}
	}

	result, opErr := op(ctx)

	if !moved {
		return result, opErr
	}
	if !known {
		in.logger.Warn("origin unknown, staying on destination", zap.String("dest", dest))
		return result, opErr
	}
	if ctx.Err() != nil {
		return result, opErr
	}
	if _, err := in.Navigate(ctx, origin); err != nil && opErr == nil {
		return result, err
	}
	return result, opErr
}

// WithReturnNavigation 将 op 包装为 NavigateAndReturn(dest, op)
func WithReturnNavigation[T any](op Op[T], in *Interactor, dest string) Op[T] {
	return func(ctx context.Context) (T, error) {
		return NavigateAndReturn(ctx, in, dest, op)
	}
}

// WithinFrame 进入 frame 执行 op 后退出。进入失败时返回 ok=false 且不执行 op。
func WithinFrame[T any](ctx context.Context, in *Interactor, q types.AttributeQuery, op Op[T]) (T, bool, error) {
	var zero T
	ok, err := in.EnterFrame(ctx, q)
	if !ok || err != nil {
		return zero, false, err
	}

	result, opErr := op(ctx)
	if err := in.ExitFrame(ctx); err != nil && opErr == nil {
		return result, true, err
	}
	return result, true, opErr
}

// SameLocation 比较两个地址，忽略末尾斜杠与 fragment
func SameLocation(a, b string) bool {
	return normalizeLocation(a) == normalizeLocation(b)
}

func normalizeLocation(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}
