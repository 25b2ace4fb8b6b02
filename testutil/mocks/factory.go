package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/types"
)

// =============================================================================
// 🏭 FakeFactory - 统计打开/关闭次数的驱动工厂
// =============================================================================

// FakeFactory 实现 task.DriverFactory
type FakeFactory struct {
	// Build 为每个会话构造驱动，为空时返回停在 about:blank 的空驱动
	Build func(profile types.SiteProfile) *FakeDriver
	// Err 非空时 NewDriver 直接失败
	Err error
	// Panic 非空时 NewDriver panic
	Panic any

	opened atomic.Int64
	closed atomic.Int64

	mu      sync.Mutex
	drivers []*FakeDriver
}

// NewFakeFactory 创建工厂
func NewFakeFactory(build func(profile types.SiteProfile) *FakeDriver) *FakeFactory {
	return &FakeFactory{Build: build}
}

func (f *FakeFactory) NewDriver(ctx context.Context, profile types.SiteProfile) (browser.Driver, error) {
	if f.Panic != nil {
		panic(f.Panic)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var d *FakeDriver
	if f.Build != nil {
		d = f.Build(profile)
	} else {
		d = NewFakeDriver("about:blank")
	}

	prev := d.OnQuit
	d.OnQuit = func() {
		f.closed.Add(1)
		if prev != nil {
			prev()
		}
	}
	f.opened.Add(1)

	f.mu.Lock()
	f.drivers = append(f.drivers, d)
	f.mu.Unlock()
	return d, nil
}

// Opened 成功创建的驱动数
func (f *FakeFactory) Opened() int64 { return f.opened.Load() }

// Closed 已释放的驱动数
func (f *FakeFactory) Closed() int64 { return f.closed.Load() }

// Drivers 已创建的驱动
func (f *FakeFactory) Drivers() []*FakeDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeDriver(nil), f.drivers...)
}
