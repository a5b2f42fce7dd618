package redirect

import (
	"context"
	"net/url"
	"strings"

	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
)

// HopFetcher 执行单次请求（不跟随跳转）
type HopFetcher interface {
	FetchOnce(ctx context.Context, rawURL string) (*types.HTTPResponse, error)
}

// Config 跳转跟随配置
type Config struct {
	MaxRedirects   int  // 最大跳转次数
	FollowRedirect bool // 是否跟随跳转
	SameHostOnly   bool // 是否限制同域名/子域名跳转

	// Blocked 返回 true 的跳转目标不再请求，直接返回当前3xx响应
	Blocked func(nextURL string) bool
}

// DefaultConfig 默认配置：与常见浏览器会话一致，跨主机跳转同样跟随
func DefaultConfig() *Config {
	return &Config{
		MaxRedirects:   10,
		FollowRedirect: true,
		SameHostOnly:   false,
	}
}

// IsRedirectStatus 是否为需要跟随的3xx状态码
func IsRedirectStatus(code int) bool {
	return code >= 301 && code <= 308 && code != 304 && code != 305 && code != 306
}

// Execute 执行请求并处理HTTP跳转
// 返回的响应 URL 为最初请求地址，FinalURL 为最后一跳地址
func Execute(ctx context.Context, rawURL string, fetcher HopFetcher, config *Config) (*types.HTTPResponse, error) {
	if config == nil {
		config = DefaultConfig()
	}

	currentURL := rawURL
	redirectCount := 0
	seen := make(map[string]struct{}, config.MaxRedirects+1)

	for {
		seen[normalizeRedirectKey(currentURL)] = struct{}{}

		response, err := fetcher.FetchOnce(ctx, currentURL)
		if err != nil {
			return nil, err
		}
		response.URL = rawURL
		response.FinalURL = currentURL

		if !config.FollowRedirect || !IsRedirectStatus(response.StatusCode) {
			return response, nil
		}

		if redirectCount >= config.MaxRedirects {
			logger.Warnf("超过最大重定向次数(%d): %s", config.MaxRedirects, currentURL)
			return response, nil
		}

		nextURL := ResolveRedirectURL(currentURL, response.Header("Location"))
		if nextURL == "" || nextURL == currentURL {
			return response, nil
		}
		if _, ok := seen[normalizeRedirectKey(nextURL)]; ok {
			logger.Debugf("检测到循环重定向，停止跟随: %s -> %s", currentURL, nextURL)
			return response, nil
		}
		if config.Blocked != nil && config.Blocked(nextURL) {
			logger.Debugf("重定向目标已排除，停止跟随: %s -> %s", currentURL, nextURL)
			return response, nil
		}
		if config.SameHostOnly && !ShouldFollowRedirect(currentURL, nextURL) {
			logger.Debugf("放弃跨主机重定向: %s -> %s", currentURL, nextURL)
			return response, nil
		}

		logger.Debugf("跟随HTTP重定向 %d: %s -> %s", response.StatusCode, currentURL, nextURL)
		redirectCount++
		currentURL = nextURL
	}
}

// ResolveRedirectURL 将相对/协议相对URL解析为绝对地址
func ResolveRedirectURL(baseRaw, ref string) string {
	ref = strings.TrimSpace(ref)
	if baseRaw == "" || ref == "" {
		return ""
	}

	lowerRef := strings.ToLower(ref)
	if strings.HasPrefix(lowerRef, "javascript:") || strings.HasPrefix(lowerRef, "data:") {
		return ""
	}
	if strings.HasPrefix(lowerRef, "http://") || strings.HasPrefix(lowerRef, "https://") {
		return ref
	}

	base, err := url.Parse(baseRaw)
	if err != nil {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func normalizeRedirectKey(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	return u.String()
}

// ShouldFollowRedirect 判断是否应该跟随重定向（同主机/子域名检查）
func ShouldFollowRedirect(currentURL, nextURL string) bool {
	u1, err := url.Parse(currentURL)
	if err != nil {
		return false
	}
	u2, err := url.Parse(nextURL)
	if err != nil {
		return false
	}

	h1 := strings.ToLower(u1.Hostname())
	h2 := strings.ToLower(u2.Hostname())
	if h1 == h2 {
		return true
	}
	return strings.HasSuffix(h2, "."+h1) || strings.HasSuffix(h1, "."+h2)
}
