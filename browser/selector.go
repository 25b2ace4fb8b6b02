package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/BaSui01/rewardflow/types"
)

// selectorFor 将 AttributeQuery 翻译为 chromedp 选择器与查询选项。
// id/name/class 统一走属性选择器，避免 CSS 标识符转义问题。
func selectorFor(q types.AttributeQuery, all bool) (string, []chromedp.QueryOption, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	byCSS := chromedp.ByQuery
	if all {
		byCSS = chromedp.ByQueryAll
	}

	switch q.Kind {
	case types.QueryID:
		return "[id=" + cssString(q.Value) + "]", []chromedp.QueryOption{byCSS}, nil
	case types.QueryName:
		return "[name=" + cssString(q.Value) + "]", []chromedp.QueryOption{byCSS}, nil
	case types.QueryClassName:
		return "[class~=" + cssString(q.Value) + "]", []chromedp.QueryOption{byCSS}, nil
	case types.QueryTagName, types.QueryCSSSelector:
		return q.Value, []chromedp.QueryOption{byCSS}, nil
	case types.QueryXPath:
		return q.Value, []chromedp.QueryOption{byXPath(q.Value, all)}, nil
	case types.QueryLinkText:
		sel := "//a[normalize-space(.)=" + xpathString(strings.TrimSpace(q.Value)) + "]"
		return sel, []chromedp.QueryOption{byXPath(sel, all)}, nil
	}
	return "", nil, fmt.Errorf("unsupported query kind %q", q.Kind)
}

// byXPath 在查询根节点所属的文档里执行 document.evaluate。
// chromedp.BySearch 走 DOM.performSearch，会忽略 FromNode 并搜索所有 iframe，
// 所以 XPath 不能用它。根节点是 iframe 时使用其 contentDocument。
func byXPath(expr string, all bool) chromedp.QueryOption {
	script := xpathScript(expr, all)
	return chromedp.ByFunc(func(ctx context.Context, n *cdp.Node) ([]cdp.NodeID, error) {
		resolve := dom.ResolveNode()
		if n.NodeID != 0 {
			resolve = resolve.WithNodeID(n.NodeID)
		} else {
			resolve = resolve.WithBackendNodeID(n.BackendNodeID)
		}
		root, err := resolve.Do(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { _ = runtime.ReleaseObject(root.ObjectID).Do(ctx) }()

		arr, exc, err := runtime.CallFunctionOn(script).WithObjectID(root.ObjectID).Do(ctx)
		if err != nil {
			return nil, err
		}
		if exc != nil {
			return nil, exc
		}
		defer func() { _ = runtime.ReleaseObject(arr.ObjectID).Do(ctx) }()

		props, _, _, exc, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return nil, err
		}
		if exc != nil {
			return nil, exc
		}

		ids := make([]cdp.NodeID, len(props))
		found := 0
		for _, p := range props {
			idx, err := strconv.Atoi(p.Name)
			if err != nil || idx < 0 || idx >= len(ids) || p.Value == nil || p.Value.ObjectID == "" {
				continue
			}
			id, err := dom.RequestNode(p.Value.ObjectID).Do(ctx)
			if err != nil {
				return nil, err
			}
			ids[idx] = id
			found++
		}
		out := make([]cdp.NodeID, 0, found)
		for _, id := range ids {
			if id != 0 {
				out = append(out, id)
			}
		}
		return out, nil
	})
}

// xpathScript 生成在 this 所属文档上求值 XPath 的函数，只返回元素节点
func xpathScript(expr string, all bool) string {
	quoted, _ := json.Marshal(expr)
	return fmt.Sprintf(`function() {
	const doc = this.nodeType === 9 ? this : (this.contentDocument || this.ownerDocument);
	const res = doc.evaluate(%s, doc, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < res.snapshotLength; i++) {
		const node = res.snapshotItem(i);
		if (node.nodeType !== 1) continue;
		out.push(node);
		if (!%t) break;
	}
	return out;
}`, quoted, all)
}

// waitOption 将等待条件映射到 chromedp 的节点等待函数
func waitOption(cond Condition) chromedp.QueryOption {
	switch cond {
	case ConditionVisible, ConditionClickable:
		return chromedp.NodeVisible
	default:
		return chromedp.NodeReady
	}
}

// cssString 生成带引号的 CSS 字符串字面量
func cssString(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// xpathString 生成 XPath 字符串字面量，同时含两种引号时使用 concat()
func xpathString(v string) string {
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, `'`) {
		return `'` + v + `'`
	}
	parts := strings.Split(v, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}
