package dirscan

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"multiscan/pkg/fingerprint"
	"multiscan/pkg/metrics"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/httpclient"
	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/shared"
	"multiscan/pkg/utils/useragent"

	"golang.org/x/time/rate"
)

// Engine 单目标扫描引擎：初始字典扫描、递归爬取与JS接口挖掘
// 状态归引擎所有，Run 不可并发调用；多目标请为每个目标创建独立引擎
type Engine struct {
	target   string
	host     string
	mode     string
	wordlist []string
	timeout  time.Duration

	transport   Transport
	policy      *ExclusionPolicy
	fetcher     *Fetcher
	scanner     *DictionaryScanner
	listing     *DirectoryListingAnalyzer
	extractor   EndpointExtractor
	fingerprint *fingerprint.ServerFingerprinter
	stats       *engineStats
	state       *scanState
}

// NewEngine 校验目标并完成引擎装配；未忽略 robots 时在此加载 robots.txt
func NewEngine(ctx context.Context, opts *Options) (*Engine, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: 缺少扫描配置", ErrInvalidTarget)
	}

	target := strings.TrimRight(strings.TrimSpace(opts.TargetURL), "/")
	if !shared.NewURLValidator().IsValidURL(target) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, opts.TargetURL)
	}
	u, _ := url.Parse(target)
	host := strings.ToLower(u.Host)

	mode, err := resolveMode(opts.Mode, u.Hostname())
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultNormalTimeout
		if mode == ModeDarkweb {
			timeout = DefaultDarkwebTimeout
		}
	}

	profile := useragent.ForMode(mode)
	headers := make(map[string]string, len(profile.Headers)+len(opts.Headers)+1)
	headers["User-Agent"] = profile.UserAgent
	for k, v := range profile.Headers {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	transport := opts.Transport
	ownTransport := transport == nil
	if ownTransport {
		transport, err = newDefaultTransport(opts, mode, profile.UserAgent, timeout)
		if err != nil {
			return nil, err
		}
	}

	if opts.SessionCookies != "" {
		if setter, ok := transport.(cookieSetter); ok {
			n := setter.SetSessionCookies(target, opts.SessionCookies)
			logger.Infof("已设置 %d 个会话Cookie", n)
		} else {
			logger.Warn("当前传输层不支持会话Cookie，已忽略")
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = NewRegexEndpointExtractor(target)
	}

	policy := NewExclusionPolicy(opts.Exclusions)
	if !opts.IgnoreRobots {
		policy.LoadRobots(ctx, transport, target, headers, profile.UserAgent, timeout)
	}
	// 跳转过滤只挂在自建客户端上，注入的传输层可能跨目标共用
	if setter, ok := transport.(redirectFilterSetter); ok && ownTransport {
		setter.SetRedirectFilter(policy.IsExcluded)
	}

	stats := newEngineStats()
	fp := fingerprint.NewServerFingerprinter(opts.TechDetector)
	listing := NewDirectoryListingAnalyzer()
	fetcher := newFetcher(transport, policy, limiter, headers, timeout, host, fp, stats)

	e := &Engine{
		target:      target,
		host:        host,
		mode:        mode,
		wordlist:    append([]string(nil), opts.Wordlist...),
		timeout:     timeout,
		transport:   transport,
		policy:      policy,
		fetcher:     fetcher,
		scanner:     NewDictionaryScanner(fetcher, listing, opts.Workers),
		listing:     listing,
		extractor:   extractor,
		fingerprint: fp,
		stats:       stats,
		state:       newScanState(),
	}

	logger.Debugf("扫描引擎初始化完成: %s (模式: %s, 超时: %s, 字典: %d)", target, mode, timeout, len(e.wordlist))
	return e, nil
}

// resolveMode 规范化扫描模式，.onion 主机强制使用 darkweb
func resolveMode(mode, hostname string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		mode = ModeNormal
	case ModeNormal, ModeDarkweb:
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	if mode == ModeNormal && strings.HasSuffix(strings.ToLower(hostname), ".onion") {
		logger.Warnf(".onion 目标自动切换为 darkweb 模式: %s", hostname)
		mode = ModeDarkweb
	}
	return mode, nil
}

func newDefaultTransport(opts *Options, mode, userAgent string, timeout time.Duration) (Transport, error) {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	cfg.UserAgent = userAgent
	cfg.ProxyURL = opts.ProxyURL
	if mode == ModeDarkweb {
		cfg.ProxyURL = opts.TorProxyURL
		if cfg.ProxyURL == "" {
			cfg.ProxyURL = httpclient.DefaultTorProxy
		}
	}
	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP客户端失败: %w", err)
	}
	return client, nil
}

// Target 规范化后的目标地址
func (e *Engine) Target() string { return e.target }

// Mode 生效的扫描模式
func (e *Engine) Mode() string { return e.mode }

// Run 执行完整扫描：目标根地址、初始字典扫描、从深度0开始的递归爬取
func (e *Engine) Run(ctx context.Context, maxDepth int) (*types.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	e.state = newScanState()
	start := time.Now()
	logger.Infof("开始扫描: %s (模式: %s, 最大深度: %d)", e.target, e.mode, maxDepth)

	resp, err := e.fetcher.Fetch(ctx, e.target)
	if err == nil {
		if _, ok := e.state.findings[e.target]; !ok {
			listing := e.listing.IsListing(resp)
			e.state.findings[e.target] = types.FindingRecord{
				Status:           types.HTTPStatus(resp.StatusCode),
				ContentLength:    resp.ContentLength,
				DirectoryListing: listing,
				Note:             TargetNote(resp.StatusCode, listing),
				Source:           types.SourceTargetBase,
			}
			metrics.ObserveFinding(string(types.SourceTargetBase), listing)
		}
		e.fingerprint.Observe(resp)
	} else {
		logger.Warnf("目标根地址请求失败: %v", err)
	}

	e.scanBase(ctx, e.target, e.wordlist, types.SourceInitial)

	logger.Infof("开始递归爬取: %s", e.target)
	e.crawl(ctx, e.target, maxDepth)

	end := time.Now()
	result := &types.ScanResult{
		Target:     e.target,
		Mode:       e.mode,
		Findings:   e.state.findings,
		ServerInfo: e.fingerprint.Info(),
		Stats:      e.stats.snapshot(),
		StartTime:  start,
		EndTime:    end,
		Duration:   end.Sub(start),
	}
	metrics.ObserveScan(result.Duration.Seconds())
	logger.Infof("扫描完成: %s, 记录 %d 条, 耗时 %s", e.target, len(result.Findings), result.Duration.Round(time.Millisecond))
	return result, nil
}

// scanBase 调用字典扫描并在池排空后合并结果
// initial/crawl 来源按基地址去重，js_api 不去重
func (e *Engine) scanBase(ctx context.Context, base string, words []string, source types.Source) map[string]types.FindingRecord {
	if source.IsPage() {
		if _, ok := e.state.scannedBases[base]; ok {
			logger.Debugf("基地址已扫描，跳过: %s", base)
			return nil
		}
	}
	if len(words) == 0 {
		logger.Warnf("字典为空，跳过 %s 扫描: %s", source, base)
		return nil
	}

	batch := e.scanner.Scan(ctx, base, words, source)
	for u, rec := range batch {
		e.state.findings[u] = rec
	}
	if source.IsPage() {
		e.state.scannedBases[base] = struct{}{}
	}
	return batch
}
