package fingerprint

import (
	"net/http"
	"strings"
	"sync"

	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
)

// frameworkRule 框架推断规则，按顺序首个命中生效
type frameworkRule struct {
	hint  string
	match func(server, poweredBy string, cookies []*http.Cookie) bool
}

var frameworkRules = []frameworkRule{
	{"ASP.NET", func(server, poweredBy string, _ []*http.Cookie) bool {
		return strings.Contains(server, "ASP.NET") || strings.Contains(poweredBy, "ASP.NET")
	}},
	{"PHP", func(_, poweredBy string, _ []*http.Cookie) bool {
		return strings.Contains(poweredBy, "PHP")
	}},
	{"PHP (Session)", func(_, _ string, cookies []*http.Cookie) bool {
		return hasCookie(cookies, "PHPSESSID", true)
	}},
	{"Express.js (Node.js)", func(_, poweredBy string, _ []*http.Cookie) bool {
		return strings.Contains(poweredBy, "Express")
	}},
	{"Django (Python)", func(server, _ string, cookies []*http.Cookie) bool {
		return strings.Contains(server, "Django") || hasCookie(cookies, "csrftoken", false)
	}},
	{"Ruby on Rails", func(server, poweredBy string, _ []*http.Cookie) bool {
		return strings.Contains(server, "Ruby") || strings.Contains(poweredBy, "Rails")
	}},
	{"Java (JSP/Servlets)", func(_, _ string, cookies []*http.Cookie) bool {
		return hasCookie(cookies, "JSESSIONID", true)
	}},
}

func hasCookie(cookies []*http.Cookie, name string, foldCase bool) bool {
	for _, c := range cookies {
		if c == nil {
			continue
		}
		if c.Name == name || (foldCase && strings.EqualFold(c.Name, name)) {
			return true
		}
	}
	return false
}

// InferFramework 按固定规则推断框架，无命中返回 Unknown
func InferFramework(server, poweredBy string, cookies []*http.Cookie) string {
	for _, rule := range frameworkRules {
		if rule.match(server, poweredBy, cookies) {
			return rule.hint
		}
	}
	return types.UnknownValue
}

// ServerFingerprinter 记录目标首个成功响应的服务器信息
// 仅第一次 Observe 生效，之后的调用不会覆盖
type ServerFingerprinter struct {
	mu       sync.Mutex
	observed bool
	info     types.ServerInfo
	tech     TechnologyDetector
}

// NewServerFingerprinter 创建指纹记录器，tech 为 nil 时不做技术栈识别
func NewServerFingerprinter(tech TechnologyDetector) *ServerFingerprinter {
	return &ServerFingerprinter{
		info: types.DefaultServerInfo(),
		tech: tech,
	}
}

// Observe 分析响应头部与Cookie
func (f *ServerFingerprinter) Observe(resp *types.HTTPResponse) {
	if resp == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.observed {
		return
	}
	f.observed = true

	server := resp.Header("Server")
	poweredBy := resp.Header("X-Powered-By")
	if server != "" {
		f.info.Server = server
	}
	if poweredBy != "" {
		f.info.XPoweredBy = poweredBy
	}
	f.info.FrameworkHint = InferFramework(server, poweredBy, resp.Cookies)

	if f.tech != nil {
		f.info.Technologies = f.tech.Detect(resp.Headers, resp.Body)
	}

	logger.Infof("服务器信息 %s: Server=%s, X-Powered-By=%s, Framework=%s",
		resp.URL, f.info.Server, f.info.XPoweredBy, f.info.FrameworkHint)
}

// Observed 是否已记录
func (f *ServerFingerprinter) Observed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observed
}

// Info 返回当前服务器信息副本
func (f *ServerFingerprinter) Info() types.ServerInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.info
	info.Technologies = append([]string(nil), f.info.Technologies...)
	return info
}
