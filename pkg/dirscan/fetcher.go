package dirscan

import (
	"context"
	"fmt"
	"time"

	"multiscan/pkg/fingerprint"
	"multiscan/pkg/metrics"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/shared"

	"golang.org/x/time/rate"
)

// Fetcher 在排除策略之后发起请求，并在目标主机首个响应上记录服务器指纹
type Fetcher struct {
	transport   Transport
	policy      *ExclusionPolicy
	limiter     *rate.Limiter
	headers     map[string]string
	timeout     time.Duration
	targetHost  string
	fingerprint *fingerprint.ServerFingerprinter
	stats       *engineStats
}

// newFetcher limiter 为 nil 时不限速
func newFetcher(transport Transport, policy *ExclusionPolicy, limiter *rate.Limiter, headers map[string]string,
	timeout time.Duration, targetHost string, fp *fingerprint.ServerFingerprinter, stats *engineStats) *Fetcher {
	return &Fetcher{
		transport:   transport,
		policy:      policy,
		limiter:     limiter,
		headers:     headers,
		timeout:     timeout,
		targetHost:  targetHost,
		fingerprint: fp,
		stats:       stats,
	}
}

// Fetch 获取URL；命中排除规则时返回 ErrExcluded 且不产生网络请求
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*types.HTTPResponse, error) {
	if f.policy.IsExcluded(rawURL) {
		f.stats.excludedURLs.Inc()
		metrics.ObserveRequest(metrics.OutcomeExcluded)
		logger.Debugf("已排除: %s", rawURL)
		return nil, ErrExcluded
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	f.stats.totalRequests.Inc()
	resp, err := f.transport.Get(ctx, rawURL, f.headers, f.timeout)
	if err != nil {
		f.stats.failedRequests.Inc()
		metrics.ObserveRequest(metrics.OutcomeError)
		logger.Debugf("请求失败 %s: %v", rawURL, err)
		return nil, fmt.Errorf("请求 %s 失败: %w", rawURL, err)
	}
	if resp == nil {
		f.stats.failedRequests.Inc()
		metrics.ObserveRequest(metrics.OutcomeError)
		return nil, fmt.Errorf("请求 %s 未返回响应", rawURL)
	}
	metrics.ObserveRequest(metrics.OutcomeSuccess)

	if f.fingerprint != nil && shared.HostOf(rawURL) == f.targetHost {
		f.fingerprint.Observe(resp)
	}
	return resp, nil
}
