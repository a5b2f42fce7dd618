package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/redirect"
	"multiscan/pkg/utils/shared"
	"multiscan/pkg/utils/useragent"

	"github.com/valyala/fasthttp"
	"golang.org/x/net/publicsuffix"
)

// Config HTTP客户端配置结构
type Config struct {
	Timeout        time.Duration     // 请求超时时间
	FollowRedirect bool              // 是否跟随重定向
	MaxRedirects   int               // 最大重定向次数
	UserAgent      string            // User-Agent
	SkipTLSVerify  bool              // 跳过TLS证书验证
	ProxyURL       string            // 代理URL（socks5/socks5h/http）
	CustomHeaders  map[string]string // 自定义HTTP头部
	SameHostOnly   bool              // 重定向仅限同主机
	MaxBodySize    int               // 最大响应体大小(字节)
	MaxConcurrent  int               // 每主机最大连接数
}

// DefaultConfig 获取默认HTTP客户端配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		FollowRedirect: true,
		MaxRedirects:   10,
		UserAgent:      useragent.Primary(),
		SkipTLSVerify:  true,
		MaxBodySize:    10 * 1024 * 1024,
		MaxConcurrent:  256,
	}
}

// Client 基于 fasthttp 的HTTP客户端，自带会话Cookie
type Client struct {
	client         *fasthttp.Client
	jar            http.CookieJar
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	userAgent      string
	customHeaders  map[string]string
	sameHostOnly   bool
	redirectFilter func(string) bool
}

// New 创建配置化的HTTP客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.UserAgent == "" {
		config.UserAgent = useragent.Primary()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("创建Cookie容器失败: %w", err)
	}

	fastClient := &fasthttp.Client{
		Name:                config.UserAgent,
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxConnsPerHost:     config.MaxConcurrent,
		MaxIdleConnDuration: 30 * time.Second,
		MaxResponseBodySize: config.MaxBodySize,
		ReadBufferSize:      16384,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
			Renegotiation:      tls.RenegotiateOnceAsClient,
		},
		DisablePathNormalizing:        true,
		DisableHeaderNamesNormalizing: true,
		NoDefaultUserAgentHeader:      true,
	}

	if config.ProxyURL != "" {
		dialFunc, err := FasthttpDialerFactory(config.ProxyURL, 10*time.Second)
		if err != nil {
			return nil, err
		}
		fastClient.Dial = dialFunc
	}

	return &Client{
		client:         fastClient,
		jar:            jar,
		timeout:        config.Timeout,
		followRedirect: config.FollowRedirect,
		maxRedirects:   config.MaxRedirects,
		userAgent:      config.UserAgent,
		customHeaders:  config.CustomHeaders,
		sameHostOnly:   config.SameHostOnly,
	}, nil
}

// SetSessionCookies 将 "a=1; b=2" 形式的会话Cookie写入容器，返回写入数量
func (c *Client) SetSessionCookies(targetURL, cookieString string) int {
	cookies := ParseCookieString(cookieString)
	if len(cookies) == 0 {
		return 0
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		logger.Warnf("会话Cookie目标地址无效: %s", targetURL)
		return 0
	}
	c.jar.SetCookies(u, cookies)
	return len(cookies)
}

// Cookies 返回容器中对该URL可见的Cookie
func (c *Client) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// ParseCookieString 按 ';' 拆分、首个 '=' 切分，缺少 '=' 或名称为空的片段被忽略
func ParseCookieString(cookieString string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(cookieString, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			logger.Warnf("忽略格式错误的Cookie片段: %q", part)
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: strings.TrimSpace(value)})
	}
	return cookies
}

// SetRedirectFilter 设置跳转过滤，blocked 返回 true 的目标不再跟随
// 需在发起请求前调用
func (c *Client) SetRedirectFilter(blocked func(string) bool) {
	c.redirectFilter = blocked
}

// Get 发起GET请求并按配置跟随重定向
// timeout<=0 时使用客户端默认超时
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*types.HTTPResponse, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	hop := &hopFetcher{client: c, headers: headers, timeout: timeout}
	cfg := &redirect.Config{
		MaxRedirects:   c.maxRedirects,
		FollowRedirect: c.followRedirect,
		SameHostOnly:   c.sameHostOnly,
		Blocked:        c.redirectFilter,
	}
	return redirect.Execute(ctx, rawURL, hop, cfg)
}

// hopFetcher 适配 redirect.HopFetcher
type hopFetcher struct {
	client  *Client
	headers map[string]string
	timeout time.Duration
}

func (h *hopFetcher) FetchOnce(ctx context.Context, rawURL string) (*types.HTTPResponse, error) {
	return h.client.doRequestInternal(ctx, rawURL, h.headers, h.timeout)
}

// doRequestInternal 执行单次请求
func (c *Client) doRequestInternal(ctx context.Context, rawURL string, customHeaders map[string]string, timeout time.Duration) (*types.HTTPResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("无效的URL %s: %w", rawURL, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for k, v := range c.customHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range customHeaders {
		if key := strings.TrimSpace(k); key != "" {
			req.Header.Set(key, v)
		}
	}

	if cookies := c.jar.Cookies(u); len(cookies) > 0 {
		pairs := make([]string, 0, len(cookies))
		for _, ck := range cookies {
			pairs = append(pairs, ck.Name+"="+ck.Value)
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, c.handleRequestError(err)
	}

	headers := make(map[string][]string)
	var setCookies []*http.Cookie
	resp.Header.VisitAll(func(key, value []byte) {
		k := string(key)
		v := string(value)
		headers[k] = append(headers[k], v)
		if strings.EqualFold(k, "Set-Cookie") {
			if ck, err := http.ParseSetCookie(v); err == nil {
				setCookies = append(setCookies, ck)
			}
		}
	})
	if len(setCookies) > 0 {
		c.jar.SetCookies(u, setCookies)
	}

	contentType := string(resp.Header.ContentType())
	body := append([]byte(nil), resp.Body()...)
	if enc := string(resp.Header.Peek("Content-Encoding")); enc != "" {
		body = shared.DecompressByEncoding(body, enc)
	}

	result := &types.HTTPResponse{
		URL:           rawURL,
		FinalURL:      rawURL,
		StatusCode:    resp.StatusCode(),
		Headers:       headers,
		Cookies:       setCookies,
		Body:          body,
		Text:          string(shared.DecodeCharset(body, contentType)),
		ContentType:   contentType,
		ContentLength: len(body),
		Duration:      time.Since(start),
	}

	logger.Debugf("请求完成: %s [%d] Size: %d", rawURL, result.StatusCode, result.ContentLength)
	return result, nil
}

// handleRequestError 处理请求错误（统一TLS错误处理）
func (c *Client) handleRequestError(err error) error {
	errStr := err.Error()
	if strings.Contains(errStr, "tls:") || strings.Contains(errStr, "x509:") {
		return fmt.Errorf("TLS连接失败 (可能需要跳过证书验证): %w", err)
	}
	return fmt.Errorf("请求失败: %w", err)
}
