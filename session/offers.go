package session

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/browser"
	"github.com/BaSui01/rewardflow/types"
)

// OfferLinks 读取活动链接。相对地址按活动页解析为绝对地址，末尾 OfferLinksTrim 个被丢弃。
func (s *Session) OfferLinks(ctx context.Context) ([]string, error) {
	if s.profile.OfferLinks.IsZero() {
		return nil, nil
	}
	attr := s.profile.OfferLinksAttr
	if attr == "" {
		attr = "href"
	}

	read := browser.Op[[]string](func(ctx context.Context) ([]string, error) {
		return s.ui.ReadAllAttributes(ctx, s.profile.OfferLinks, attr)
	})
	page := s.profile.OffersURL
	if page == "" {
		page = s.profile.DashboardURL
	}
	raw, err := browser.WithReturnNavigation(read, s.ui, page)(ctx)
	if err != nil {
		return nil, err
	}

	if trim := s.profile.OfferLinksTrim; trim > 0 {
		if trim >= len(raw) {
			raw = nil
		} else {
			raw = raw[:len(raw)-trim]
		}
	}
	return resolveLinks(page, raw), nil
}

func resolveLinks(base string, links []string) []string {
	baseURL, err := url.Parse(base)
	out := make([]string, 0, len(links))
	for _, link := range links {
		ref, perr := url.Parse(link)
		if err != nil || perr != nil {
			out = append(out, link)
			continue
		}
		out = append(out, baseURL.ResolveReference(ref).String())
	}
	return out
}

// VisitOffers 次级工作单元：依次打开每个活动链接，最后回到起始页。返回成功打开的数量。
func (s *Session) VisitOffers(ctx context.Context) (int, error) {
	links, err := s.OfferLinks(ctx)
	if err != nil {
		return 0, err
	}
	base, known, err := s.ui.CurrentURL(ctx)
	if err != nil {
		return 0, err
	}

	visited := 0
	for _, link := range links {
		ok, err := s.ui.Navigate(ctx, link)
		if err != nil {
			return visited, err
		}
		if ok {
			visited++
		}
	}

	if known && len(links) > 0 {
		current, ok, err := s.ui.CurrentURL(ctx)
		if err != nil {
			return visited, err
		}
		if !ok || !browser.SameLocation(current, base) {
			if _, err := s.ui.Navigate(ctx, base); err != nil {
				return visited, err
			}
		}
	}

	s.metrics.RecordWorkUnit(string(s.profile.Name), string(types.ProgressOffer))
	s.metrics.RecordWorkActions(string(s.profile.Name), visited)
	s.logger.Debug("offers visited", zap.Int("links", len(links)), zap.Int("visited", visited))
	return visited, nil
}
