package browser

import (
	"context"
	"errors"

	"github.com/BaSui01/rewardflow/types"
)

// Condition 元素等待条件
type Condition int

const (
	// ConditionPresent 元素存在于 DOM 中
	ConditionPresent Condition = iota
	// ConditionVisible 元素可见
	ConditionVisible
	// ConditionClickable 元素可见且未禁用
	ConditionClickable
)

func (c Condition) String() string {
	switch c {
	case ConditionVisible:
		return "visible"
	case ConditionClickable:
		return "clickable"
	default:
		return "present"
	}
}

var (
	// ErrElementNotFound 等待期内元素未满足条件。属于瞬态失败，不会离开本包。
	ErrElementNotFound = types.NewError(types.ErrElementNotFound, "")

	// ErrSessionLost 浏览器句柄已失效，属于致命错误。
	ErrSessionLost = types.NewError(types.ErrSessionLost, "")
)

// SessionLost 包装底层错误为致命的会话丢失错误
func SessionLost(cause error) error {
	return types.NewError(types.ErrSessionLost, "browser session lost").WithCause(cause)
}

// NotFound 包装底层错误为元素未找到错误
func NotFound(q types.AttributeQuery, cause error) error {
	return types.NewError(types.ErrElementNotFound, "element not found: "+q.String()).
		WithCause(cause).
		WithRetryable(true)
}

// IsFatal 判断错误是否应终止整个会话
func IsFatal(err error) bool {
	return errors.Is(err, ErrSessionLost)
}

// Driver 远程渲染器接口。实现负责在 ctx 截止前等待元素满足条件；
// 元素缺失返回 ErrElementNotFound，句柄失效返回 ErrSessionLost。
type Driver interface {
	// Open 导航到 URL
	Open(ctx context.Context, url string) error
	// Reload 强制整页刷新，会重置 frame 上下文
	Reload(ctx context.Context) error
	// CurrentURL 返回当前地址
	CurrentURL(ctx context.Context) (string, error)
	// FindElement 查找首个满足条件的元素
	FindElement(ctx context.Context, q types.AttributeQuery, cond Condition) (Element, error)
	// FindElements 查找全部匹配元素
	FindElements(ctx context.Context, q types.AttributeQuery, cond Condition) ([]Element, error)
	// SwitchToFrame 将后续查找限定在 frame 元素的文档内
	SwitchToFrame(ctx context.Context, frame Element) error
	// SwitchToDefault 回到顶层文档
	SwitchToDefault(ctx context.Context) error
	// Quit 释放句柄，可重复调用
	Quit() error
}

// Element 已定位的远程元素句柄
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	// Attribute 返回属性值及是否存在
	Attribute(ctx context.Context, name string) (string, bool, error)
}
