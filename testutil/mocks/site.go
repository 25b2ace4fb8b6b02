package mocks

import (
	"strconv"
	"sync"

	"github.com/BaSui01/rewardflow/types"
)

// =============================================================================
// 🌐 RewardsSite - 按 SiteProfile 搭建的脚本化奖励站点
// =============================================================================

const statsFrameName = "stats"

// DesktopProfile 测试用主档案：预表单、统计浮层 + frame、组合计数
func DesktopProfile() types.SiteProfile {
	return types.SiteProfile{
		Name:          types.ProfilePrimary,
		UserAgent:     "fake-desktop",
		SignInURL:     "https://rewards.example.test/signin",
		DashboardURL:  "https://rewards.example.test/dashboard",
		SearchURL:     "https://search.example.test/",
		OffersURL:     "https://rewards.example.test/dashboard",
		LoginField:    types.ByName("loginfmt"),
		PasswordField: types.ByName("passwd"),
		SignInError:   types.ByID("idTd_Tile_ErrorMsg_Login"),
		PreForm:       []types.AttributeQuery{types.ByID("id_s"), types.ByClassName("id_link_text")},
		StatsFrame: &types.StatsFrame{
			Opener: types.ByID("id_rc"),
			Frame:  types.ByID("bepfm"),
		},
		DeviceProgress: types.ProgressQuery{Composite: types.ByXPath(`//div[@id="credits"]/div[2]/span[2]/span`)},
		OfferProgress:  types.ProgressQuery{Composite: types.ByXPath(`//*[@id="credits"]/div[2]/span[1]/span`)},
		TotalPoints:    types.ByID("id_rc"),
		OfferLinks:     types.ByXPath(`//*[@id="dashboard_wrapper"]/div[1]/div[1]/ul//a`),
		OfferLinksAttr: "href",
		SearchBox:      types.ByName("q"),
		SignOutSteps:   []types.AttributeQuery{types.ByID("id_n"), types.ByXPath(`//*[@id="b_idProviders"]/li/a/span[2]`)},
		SignOutCheck:   types.ByID("id_n"),
	}
}

// MobileProfile 测试用次档案：仪表盘上分开读取、去掉末尾三个活动链接
func MobileProfile() types.SiteProfile {
	return types.SiteProfile{
		Name:                types.ProfileSecondary,
		UserAgent:           "fake-mobile",
		SignInURL:           "https://rewards.example.test/signin",
		DashboardURL:        "https://rewards.example.test/dashboard",
		SearchURL:           "https://search.example.test/",
		OffersURL:           "https://rewards.example.test/dashboard?showOffers=1",
		LoginField:          types.ByName("loginfmt"),
		PasswordField:       types.ByName("passwd"),
		SignInError:         types.ByID("idTd_Tile_ErrorMsg_Login"),
		ProgressOnDashboard: true,
		DeviceProgress: types.ProgressQuery{
			Current: types.ByXPath(`//*[@id="credit-progress"]/div[5]/span[1]`),
			Maximum: types.ByXPath(`//*[@id="credit-progress"]/div[5]/span[2]`),
		},
		OfferProgress: types.ProgressQuery{
			Current: types.ByXPath(`//*[@id="credit-progress"]/div[3]/span[1]`),
			Maximum: types.ByXPath(`//*[@id="credit-progress"]/div[3]/span[2]`),
		},
		TotalPoints:            types.ByXPath(`//*[@id="status-bar"]/span`),
		TotalPointsOnDashboard: true,
		OfferLinks:             types.ByXPath(`//*[@id="activities"]/div[2]/div[1]//a`),
		OfferLinksAttr:         "href",
		OfferLinksTrim:         3,
		SearchBox:              types.ByName("q"),
	}
}

type counter struct {
	cur, max  int
	broken    bool
	hiddenMax bool
}

func (c *counter) bump(n int) {
	c.cur += n
	if c.cur > c.max {
		c.cur = c.max
	}
}

// RewardsSite 模拟奖励站点的状态机：搜索与访问活动链接会增加计数
type RewardsSite struct {
	Profile types.SiteProfile

	// PointsPerSearch 每次搜索增加的设备积分，默认 1
	PointsPerSearch int
	// PointsPerOffer 每次访问活动链接增加的活动积分，默认 1
	PointsPerOffer int
	// RejectSignIn 为 true 时提交密码后显示错误提示
	RejectSignIn bool

	mu        sync.Mutex
	device    counter
	offer     counter
	total     int
	offers    []string
	searches  int
	signedIn  bool
	signedOut bool
}

// NewRewardsSite 创建站点，初始设备 0/max，活动 0/offerMax
func NewRewardsSite(profile types.SiteProfile, deviceMax, offerMax int) *RewardsSite {
	return &RewardsSite{
		Profile:         profile,
		PointsPerSearch: 1,
		PointsPerOffer:  1,
		device:          counter{max: deviceMax},
		offer:           counter{max: offerMax},
	}
}

// SetOfferLinks 设置活动页上的链接，须在 Install 之前调用
func (s *RewardsSite) SetOfferLinks(links ...string) *RewardsSite {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = append([]string(nil), links...)
	return s
}

// SetDevice 设置设备计数
func (s *RewardsSite) SetDevice(cur, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device.cur, s.device.max = cur, max
}

// BreakDevice 让设备计数文本不可解析
func (s *RewardsSite) BreakDevice(broken bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device.broken = broken
}

// HideDeviceMaximum 设备计数只显示当前值，上限不可解析
func (s *RewardsSite) HideDeviceMaximum(hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device.hiddenMax = hidden
}

// Device 当前设备计数
func (s *RewardsSite) Device() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.cur, s.device.max
}

// Offer 当前活动计数
func (s *RewardsSite) Offer() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offer.cur, s.offer.max
}

// Total 总积分
func (s *RewardsSite) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Searches 搜索提交次数
func (s *RewardsSite) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

// SignedIn 是否成功登录
func (s *RewardsSite) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn
}

// SignedOut 是否已登出
func (s *RewardsSite) SignedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedOut
}

// NewDriver 创建已安装本站点的驱动
func (s *RewardsSite) NewDriver() *FakeDriver {
	d := NewFakeDriver("about:blank")
	s.Install(d)
	return d
}

// Install 在驱动上搭建所有页面
func (s *RewardsSite) Install(d *FakeDriver) {
	p := s.Profile

	s.installSignIn(d)

	statsPages := []string{p.SearchURL, p.DashboardURL}
	if p.ProgressOnDashboard {
		statsPages = []string{p.DashboardURL}
	}
	openerIsTotal := p.StatsFrame != nil && p.StatsFrame.Opener == p.TotalPoints
	for _, url := range statsPages {
		page := d.Page(url)
		if p.StatsFrame == nil {
			s.addProgress(page)
			continue
		}
		if !p.StatsFrame.Opener.IsZero() {
			page.Add(p.StatsFrame.Opener, &FakeElement{TextFunc: s.totalText})
		}
		page.Add(p.StatsFrame.Frame, &FakeElement{Frame: statsFrameName})
	}
	if p.StatsFrame != nil {
		s.addProgress(d.FramePage(statsFrameName))
	}

	if !p.TotalPoints.IsZero() && !openerIsTotal {
		pages := []string{p.SearchURL, p.DashboardURL}
		if p.TotalPointsOnDashboard {
			pages = []string{p.DashboardURL}
		}
		for _, url := range pages {
			d.Page(url).Add(p.TotalPoints, &FakeElement{TextFunc: s.totalText})
		}
	}

	d.Page(p.SearchURL).Add(p.SearchBox, &FakeElement{OnSubmit: func(*FakeDriver) { s.search() }})

	offersURL := p.OffersURL
	if offersURL == "" {
		offersURL = p.DashboardURL
	}
	attr := p.OfferLinksAttr
	if attr == "" {
		attr = "href"
	}
	s.mu.Lock()
	links := append([]string(nil), s.offers...)
	s.mu.Unlock()
	for _, link := range links {
		d.Page(offersURL).Add(p.OfferLinks, &FakeElement{Attrs: map[string]string{attr: link}})
	}
	d.OnOpen = func(_ *FakeDriver, url string) { s.visit(url) }

	if len(p.SignOutSteps) > 0 {
		for _, url := range []string{p.SearchURL, p.DashboardURL} {
			page := d.Page(url)
			for i, step := range p.SignOutSteps {
				el := &FakeElement{}
				if i == len(p.SignOutSteps)-1 {
					el.OnClick = func(*FakeDriver) { s.signOut() }
				}
				if step == p.SignOutCheck {
					el.TextFunc = s.checkText
				}
				page.Add(step, el)
			}
			if !p.SignOutCheck.IsZero() && !containsQuery(p.SignOutSteps, p.SignOutCheck) {
				page.Add(p.SignOutCheck, &FakeElement{TextFunc: s.checkText})
			}
		}
	}
}

func (s *RewardsSite) installSignIn(d *FakeDriver) {
	p := s.Profile
	page := d.Page(p.SignInURL)

	fields := func() {
		page.Add(p.LoginField, &FakeElement{})
		page.Add(p.PasswordField, &FakeElement{OnSubmit: func(*FakeDriver) { s.submitSignIn(page) }})
	}
	if !p.RequiresPreForm() {
		fields()
		return
	}
	for i, step := range p.PreForm {
		el := &FakeElement{}
		if i == len(p.PreForm)-1 {
			el.OnClick = func(*FakeDriver) { fields() }
		}
		page.Add(step, el)
	}
}

func (s *RewardsSite) submitSignIn(page *FakePage) {
	s.mu.Lock()
	reject := s.RejectSignIn
	if !reject {
		s.signedIn = true
	}
	s.mu.Unlock()
	if reject {
		page.Add(s.Profile.SignInError, &FakeElement{Text: "That password is incorrect."})
	}
}

func (s *RewardsSite) addProgress(page *FakePage) {
	add := func(q types.ProgressQuery, c func() *counter) {
		if q.IsComposite() {
			page.Add(q.Composite, &FakeElement{TextFunc: func() string {
				cur, max := s.read(c)
				return cur + "/" + max
			}})
			return
		}
		page.Add(q.Current, &FakeElement{TextFunc: func() string {
			cur, _ := s.read(c)
			return cur
		}})
		page.Add(q.Maximum, &FakeElement{TextFunc: func() string {
			_, max := s.read(c)
			return "/" + max
		}})
	}
	add(s.Profile.DeviceProgress, func() *counter { return &s.device })
	add(s.Profile.OfferProgress, func() *counter { return &s.offer })
}

func (s *RewardsSite) read(c func() *counter) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := c()
	if v.broken {
		return "--", "--"
	}
	if v.hiddenMax {
		return strconv.Itoa(v.cur), "--"
	}
	return strconv.Itoa(v.cur), strconv.Itoa(v.max)
}

func (s *RewardsSite) totalText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.Itoa(s.total)
}

func (s *RewardsSite) checkText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signedOut {
		return "Sign in"
	}
	return ""
}

func (s *RewardsSite) search() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	before := s.device.cur
	s.device.bump(s.PointsPerSearch)
	s.total += s.device.cur - before
}

func (s *RewardsSite) visit(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.offers {
		if link == url {
			before := s.offer.cur
			s.offer.bump(s.PointsPerOffer)
			s.total += s.offer.cur - before
			return
		}
	}
}

func (s *RewardsSite) signOut() {
	s.mu.Lock()
	s.signedOut = true
	s.mu.Unlock()
}

func containsQuery(qs []types.AttributeQuery, q types.AttributeQuery) bool {
	for _, v := range qs {
		if v == q {
			return true
		}
	}
	return false
}
