package dirscan

import (
	"net/url"
	"strings"

	"multiscan/pkg/utils/shared"

	"github.com/PuerkitoBio/goquery"
)

// parseDocument 解析HTML，失败返回 nil
func parseDocument(body string) *goquery.Document {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	return doc
}

// ExtractScriptURLs 提取 <script src> 中以 .js 结尾且与 host 同主机的脚本地址，保持页面顺序
func ExtractScriptURLs(doc *goquery.Document, pageURL, host string) []string {
	if doc == nil {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || !strings.HasSuffix(strings.ToLower(src), ".js") {
			return
		}
		full := shared.ResolveReference(pageURL, src)
		if full == "" || shared.HostOf(full) != host {
			return
		}
		if _, ok := seen[full]; ok {
			return
		}
		seen[full] = struct{}{}
		out = append(out, full)
	})
	return out
}

// ExtractAnchors 提取 <a href> 并解析为同主机的 http/https 绝对地址，去掉片段，保持页面顺序
func ExtractAnchors(doc *goquery.Document, pageURL, host string) []string {
	if doc == nil {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		full := shared.ResolveReference(pageURL, href)
		if full == "" {
			return
		}
		u, err := url.Parse(full)
		if err != nil || !shared.IsHTTPScheme(u.Scheme) || strings.ToLower(u.Host) != host {
			return
		}
		u.Fragment = ""
		u.RawFragment = ""
		link := u.String()
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out
}
