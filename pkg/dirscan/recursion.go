package dirscan

import (
	"context"

	"multiscan/pkg/metrics"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
)

// crawlFrame 待访问的 (url, depth)
type crawlFrame struct {
	url   string
	depth int
}

// crawl 深度优先爬取站内链接，使用显式栈代替递归，访问顺序与页面链接顺序一致
func (e *Engine) crawl(ctx context.Context, start string, maxDepth int) {
	stack := []crawlFrame{{url: start, depth: 0}}

	for len(stack) > 0 {
		// 检查Context取消
		select {
		case <-ctx.Done():
			logger.Warn("递归爬取被取消")
			return
		default:
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := e.visit(ctx, frame.url, frame.depth, maxDepth)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, crawlFrame{url: children[i], depth: frame.depth + 1})
		}
	}
}

// visit 处理单个页面并返回下一层候选链接
func (e *Engine) visit(ctx context.Context, pageURL string, depth, maxDepth int) []string {
	if depth > maxDepth {
		logger.Debugf("达到最大深度: %s (Depth: %d)", pageURL, depth)
		return nil
	}
	if _, ok := e.state.visited[pageURL]; ok {
		return nil
	}
	if e.policy.IsExcluded(pageURL) {
		logger.Debugf("爬取跳过已排除URL: %s", pageURL)
		return nil
	}

	logger.Infof("爬取 (Depth: %d): %s", depth, pageURL)
	e.state.visited[pageURL] = struct{}{}
	e.stats.crawledPages.Inc()

	resp, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil
	}

	if _, ok := e.state.findings[pageURL]; !ok {
		listing := e.listing.IsListing(resp)
		e.state.findings[pageURL] = types.FindingRecord{
			Status:           types.HTTPStatus(resp.StatusCode),
			ContentLength:    resp.ContentLength,
			DirectoryListing: listing,
			Note:             CrawlNote(resp.StatusCode, listing),
			Source:           types.SourceCrawl,
		}
		metrics.ObserveFinding(string(types.SourceCrawl), listing)
	}

	e.scanBase(ctx, pageURL, e.wordlist, types.SourceCrawl)

	doc := parseDocument(resp.BodyText())
	if doc == nil {
		return nil
	}

	if resp.IsHTML() {
		for _, scriptURL := range ExtractScriptURLs(doc, pageURL, e.host) {
			e.processScript(ctx, scriptURL)
		}
	}

	var next []string
	for _, link := range ExtractAnchors(doc, pageURL, e.host) {
		if _, ok := e.state.visited[link]; ok {
			continue
		}
		if e.policy.IsExcluded(link) {
			continue
		}
		next = append(next, link)
	}
	return next
}

// processScript 每个脚本只拉取一次，先标记再请求
func (e *Engine) processScript(ctx context.Context, scriptURL string) {
	if _, ok := e.state.processedScripts[scriptURL]; ok {
		return
	}
	e.state.processedScripts[scriptURL] = struct{}{}
	e.stats.scriptsProcessed.Inc()

	resp, err := e.fetcher.Fetch(ctx, scriptURL)
	if err != nil || resp.BodyText() == "" {
		logger.Debugf("JS文件内容获取失败: %s", scriptURL)
		return
	}
	e.evaluateAPIBases(ctx, resp.BodyText(), scriptURL)
}

// evaluateAPIBases 对JS中挖掘出的候选接口逐个确认并做API字典扫描
func (e *Engine) evaluateAPIBases(ctx context.Context, scriptBody, scriptURL string) {
	for _, candidate := range e.extractor.Extract(scriptBody, scriptURL) {
		if _, ok := e.state.discoveredAPIs[candidate]; ok {
			continue
		}
		e.state.discoveredAPIs[candidate] = struct{}{}
		if e.policy.IsExcluded(candidate) {
			logger.Debugf("JS接口已排除: %s", candidate)
			continue
		}

		logger.Infof("JS中发现接口，确认并扫描: %s", candidate)
		e.stats.apiBasesFound.Inc()

		resp, err := e.fetcher.Fetch(ctx, candidate)
		if err == nil {
			if _, ok := recordableAPIBaseStatus[resp.StatusCode]; ok {
				listing := e.listing.IsListing(resp)
				e.state.findings[candidate] = types.FindingRecord{
					Status:           types.HTTPStatus(resp.StatusCode),
					ContentLength:    resp.ContentLength,
					DirectoryListing: listing,
					Note:             APIBaseNote(resp.StatusCode),
					Source:           types.SourceJSAPIBase,
				}
				metrics.ObserveFinding(string(types.SourceJSAPIBase), listing)
			}
		}

		e.scanBase(ctx, candidate, APIWordlist, types.SourceJSAPI)
	}
}
