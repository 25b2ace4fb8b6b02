package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/types"
)

// =============================================================================
// 🎭 FakeDriver - 脚本化的内存渲染器
// =============================================================================

// FakeElement 页面上的一个元素
type FakeElement struct {
	Text     string
	TextFunc func() string
	Attrs    map[string]string
	Frame    string // 非空时该元素是 iframe，值为 FramePage 的名字
	Disabled bool
	Fail     error // 每个动作都返回该错误

	OnClick  func(d *FakeDriver)
	OnSubmit func(d *FakeDriver)
}

// FakePage 一个 URL 或 frame 对应的文档
type FakePage struct {
	mu          sync.Mutex
	elements    map[types.AttributeQuery][]*FakeElement
	appearAfter map[types.AttributeQuery]int
}

func newFakePage() *FakePage {
	return &FakePage{
		elements:    make(map[types.AttributeQuery][]*FakeElement),
		appearAfter: make(map[types.AttributeQuery]int),
	}
}

// Add 添加元素（同一查询可多次添加）
func (p *FakePage) Add(q types.AttributeQuery, els ...*FakeElement) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[q] = append(p.elements[q], els...)
	return p
}

// Remove 删除查询对应的全部元素
func (p *FakePage) Remove(q types.AttributeQuery) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, q)
	return p
}

// AppearAfter 前 n 次查找该查询时元素不可见
func (p *FakePage) AppearAfter(q types.AttributeQuery, n int) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appearAfter[q] = n
	return p
}

func (p *FakePage) lookup(q types.AttributeQuery, seen int) []*FakeElement {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if seen <= p.appearAfter[q] {
		return nil
	}
	return p.elements[q]
}

// FakeDriver 实现 browser.Driver。查找立即返回，不等待。
type FakeDriver struct {
	mu       sync.Mutex
	pages    map[string]*FakePage
	frames   map[string]*FakePage
	url      string
	frame    string
	visits   []string
	lookups  map[types.AttributeQuery]int
	reloads  int
	typed    []string
	clicks   []types.AttributeQuery
	submits  int
	clears   int
	quits    int
	lost     bool
	failOpen map[string]bool

	// OnOpen 在每次 Open 成功后调用（锁外）
	OnOpen func(d *FakeDriver, url string)
	// OnReload 在每次 Reload 后调用（锁外）
	OnReload func(d *FakeDriver)
	// OnQuit 只在第一次 Quit 时调用
	OnQuit func()
}

var _ browser.Driver = (*FakeDriver)(nil)

// NewFakeDriver 创建停在 start 的驱动
func NewFakeDriver(start string) *FakeDriver {
	return &FakeDriver{
		pages:    make(map[string]*FakePage),
		frames:   make(map[string]*FakePage),
		url:      start,
		lookups:  make(map[types.AttributeQuery]int),
		failOpen: make(map[string]bool),
	}
}

// Page 获取或创建 URL 对应的页面
func (d *FakeDriver) Page(url string) *FakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pages[url]
	if !ok {
		p = newFakePage()
		d.pages[url] = p
	}
	return p
}

// FramePage 获取或创建 frame 文档
func (d *FakeDriver) FramePage(name string) *FakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.frames[name]
	if !ok {
		p = newFakePage()
		d.frames[name] = p
	}
	return p
}

// LoseSession 之后所有调用返回 ErrSessionLost
func (d *FakeDriver) LoseSession() {
	d.mu.Lock()
	d.lost = true
	d.mu.Unlock()
}

// FailOpen 让打开 url 返回非致命错误
func (d *FakeDriver) FailOpen(url string) {
	d.mu.Lock()
	d.failOpen[url] = true
	d.mu.Unlock()
}

func (d *FakeDriver) check(ctx context.Context) error {
	if d.lost || d.quits > 0 {
		return browser.SessionLost(errors.New("fake session lost"))
	}
	return ctx.Err()
}

func (d *FakeDriver) Open(ctx context.Context, url string) error {
	d.mu.Lock()
	if err := d.check(ctx); err != nil {
		d.mu.Unlock()
		return err
	}
	if d.failOpen[url] {
		d.mu.Unlock()
		return types.NewError(types.ErrNavigationFailed, "navigate "+url)
	}
	d.url = url
	d.frame = ""
	d.visits = append(d.visits, url)
	hook := d.OnOpen
	d.mu.Unlock()

	if hook != nil {
		hook(d, url)
	}
	return nil
}

func (d *FakeDriver) Reload(ctx context.Context) error {
	d.mu.Lock()
	if err := d.check(ctx); err != nil {
		d.mu.Unlock()
		return err
	}
	d.reloads++
	d.frame = ""
	hook := d.OnReload
	d.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return nil
}

func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.url, nil
}

func (d *FakeDriver) FindElement(ctx context.Context, q types.AttributeQuery, cond browser.Condition) (browser.Element, error) {
	els, err := d.find(ctx, q, cond)
	if err != nil {
		return nil, err
	}
	return &fakeHandle{driver: d, query: q, el: els[0]}, nil
}

func (d *FakeDriver) FindElements(ctx context.Context, q types.AttributeQuery, cond browser.Condition) ([]browser.Element, error) {
	els, err := d.find(ctx, q, cond)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &fakeHandle{driver: d, query: q, el: el})
	}
	return out, nil
}

func (d *FakeDriver) find(ctx context.Context, q types.AttributeQuery, cond browser.Condition) ([]*FakeElement, error) {
	d.mu.Lock()
	if err := d.check(ctx); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.lookups[q]++
	seen := d.lookups[q]
	page := d.pages[d.url]
	if d.frame != "" {
		page = d.frames[d.frame]
	}
	d.mu.Unlock()

	var els []*FakeElement
	for _, el := range page.lookup(q, seen) {
		if cond == browser.ConditionClickable && el.Disabled {
			continue
		}
		els = append(els, el)
	}
	if len(els) == 0 {
		return nil, browser.NotFound(q, nil)
	}
	return els, nil
}

func (d *FakeDriver) SwitchToFrame(ctx context.Context, frame browser.Element) error {
	h, ok := frame.(*fakeHandle)
	if !ok || h.el.Frame == "" {
		return errors.New("element is not a frame")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return err
	}
	d.frame = h.el.Frame
	return nil
}

func (d *FakeDriver) SwitchToDefault(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost || d.quits > 0 {
		return browser.SessionLost(errors.New("fake session lost"))
	}
	d.frame = ""
	return nil
}

func (d *FakeDriver) Quit() error {
	d.mu.Lock()
	d.quits++
	first := d.quits == 1
	hook := d.OnQuit
	d.mu.Unlock()

	if first && hook != nil {
		hook()
	}
	return nil
}

// =============================================================================
// 🔍 观测方法
// =============================================================================

// URL 当前地址
func (d *FakeDriver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Frame 当前 frame 名字，顶层文档为空
func (d *FakeDriver) Frame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Visits 所有 Open 过的地址
func (d *FakeDriver) Visits() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visits...)
}

// Lookups 查询被查找的次数
func (d *FakeDriver) Lookups(q types.AttributeQuery) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups[q]
}

// Reloads 刷新次数
func (d *FakeDriver) Reloads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloads
}

// Typed 所有输入过的文本
func (d *FakeDriver) Typed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.typed...)
}

// Clicks 所有点击过的查询
func (d *FakeDriver) Clicks() []types.AttributeQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]types.AttributeQuery(nil), d.clicks...)
}

// Submits 提交次数
func (d *FakeDriver) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

// Clears 清空次数
func (d *FakeDriver) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

// QuitCount Quit 调用次数
func (d *FakeDriver) QuitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

// =============================================================================
// 🧩 fakeHandle
// =============================================================================

type fakeHandle struct {
	driver *FakeDriver
	query  types.AttributeQuery
	el     *FakeElement
}

func (h *fakeHandle) begin(ctx context.Context) error {
	h.driver.mu.Lock()
	defer h.driver.mu.Unlock()
	if err := h.driver.check(ctx); err != nil {
		return err
	}
	return h.el.Fail
}

func (h *fakeHandle) Click(ctx context.Context) error {
	if err := h.begin(ctx); err != nil {
		return err
	}
	h.driver.mu.Lock()
	h.driver.clicks = append(h.driver.clicks, h.query)
	h.driver.mu.Unlock()
	if h.el.OnClick != nil {
		h.el.OnClick(h.driver)
	}
	return nil
}

func (h *fakeHandle) Clear(ctx context.Context) error {
	if err := h.begin(ctx); err != nil {
		return err
	}
	h.driver.mu.Lock()
	h.driver.clears++
	h.driver.mu.Unlock()
	return nil
}

func (h *fakeHandle) SendKeys(ctx context.Context, text string) error {
	if err := h.begin(ctx); err != nil {
		return err
	}
	h.driver.mu.Lock()
	h.driver.typed = append(h.driver.typed, text)
	h.driver.mu.Unlock()
	return nil
}

func (h *fakeHandle) Submit(ctx context.Context) error {
	if err := h.begin(ctx); err != nil {
		return err
	}
	h.driver.mu.Lock()
	h.driver.submits++
	h.driver.mu.Unlock()
	if h.el.OnSubmit != nil {
		h.el.OnSubmit(h.driver)
	}
	return nil
}

func (h *fakeHandle) Text(ctx context.Context) (string, error) {
	if err := h.begin(ctx); err != nil {
		return "", err
	}
	if h.el.TextFunc != nil {
		return h.el.TextFunc(), nil
	}
	return h.el.Text, nil
}

func (h *fakeHandle) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := h.begin(ctx); err != nil {
		return "", false, err
	}
	v, ok := h.el.Attrs[name]
	return v, ok, nil
}
