package dirscan

import (
	"context"
	"errors"
	"time"

	"multiscan/pkg/fingerprint"
	"multiscan/pkg/types"

	"go.uber.org/atomic"
)

// ===========================================
// 核心类型定义
// ===========================================

var (
	// ErrExcluded URL命中排除规则或robots.txt，未发出请求
	ErrExcluded = errors.New("url excluded by configuration or robots.txt")
	// ErrInvalidTarget 目标URL不是合法的 http/https 地址
	ErrInvalidTarget = errors.New("invalid target url")
	// ErrInvalidMode 未知扫描模式
	ErrInvalidMode = errors.New("invalid scan mode")
)

// 扫描模式
const (
	ModeNormal  = "normal"
	ModeDarkweb = "darkweb"
)

// 默认参数
const (
	DefaultWorkers        = 10
	DefaultMaxDepth       = 2
	DefaultNormalTimeout  = 10 * time.Second
	DefaultDarkwebTimeout = 30 * time.Second
)

// Transport 发起GET请求并跟随重定向；传输层失败返回 error
type Transport interface {
	Get(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*types.HTTPResponse, error)
}

// cookieSetter 支持会话Cookie注入的传输层
type cookieSetter interface {
	SetSessionCookies(targetURL, cookieString string) int
}

// redirectFilterSetter 支持按排除规则拦截跳转的传输层
type redirectFilterSetter interface {
	SetRedirectFilter(blocked func(string) bool)
}

// Options 引擎配置
type Options struct {
	TargetURL      string            // 扫描目标
	Wordlist       []string          // 通用字典（调用方负责去重）
	Mode           string            // normal | darkweb
	Exclusions     []string          // 排除项：完整URL、主机、以/开头的路径前缀
	IgnoreRobots   bool              // 不解析 robots.txt
	SessionCookies string            // "a=1; b=2" 形式的会话Cookie
	Workers        int               // 单批字典扫描并发数
	Timeout        time.Duration     // 单次请求超时，0 按模式取默认值
	ProxyURL       string            // normal 模式上游代理
	TorProxyURL    string            // darkweb 模式 Tor 代理
	Headers        map[string]string // 额外请求头
	RateLimit      float64           // 每秒请求数上限，0 不限速

	// Transport 为空时按配置创建 fasthttp 客户端
	Transport Transport
	// TechDetector 技术栈识别，为空时只做固定规则推断
	TechDetector fingerprint.TechnologyDetector
	// Extractor JS接口提取器，为空时使用正则实现
	Extractor EndpointExtractor
}

// engineStats 运行统计，字典扫描的worker会并发更新
type engineStats struct {
	totalRequests    *atomic.Int64
	failedRequests   *atomic.Int64
	excludedURLs     *atomic.Int64
	crawledPages     *atomic.Int64
	scriptsProcessed *atomic.Int64
	apiBasesFound    *atomic.Int64
}

func newEngineStats() *engineStats {
	return &engineStats{
		totalRequests:    atomic.NewInt64(0),
		failedRequests:   atomic.NewInt64(0),
		excludedURLs:     atomic.NewInt64(0),
		crawledPages:     atomic.NewInt64(0),
		scriptsProcessed: atomic.NewInt64(0),
		apiBasesFound:    atomic.NewInt64(0),
	}
}

func (s *engineStats) snapshot() types.Statistics {
	return types.Statistics{
		TotalRequests:    s.totalRequests.Load(),
		FailedRequests:   s.failedRequests.Load(),
		ExcludedURLs:     s.excludedURLs.Load(),
		CrawledPages:     s.crawledPages.Load(),
		ScriptsProcessed: s.scriptsProcessed.Load(),
		APIBasesFound:    s.apiBasesFound.Load(),
	}
}

// scanState 单次 Run 的可变状态，仅由控制协程读写
type scanState struct {
	findings         map[string]types.FindingRecord
	visited          map[string]struct{}
	scannedBases     map[string]struct{}
	processedScripts map[string]struct{}
	discoveredAPIs   map[string]struct{}
}

func newScanState() *scanState {
	return &scanState{
		findings:         make(map[string]types.FindingRecord),
		visited:          make(map[string]struct{}),
		scannedBases:     make(map[string]struct{}),
		processedScripts: make(map[string]struct{}),
		discoveredAPIs:   make(map[string]struct{}),
	}
}
