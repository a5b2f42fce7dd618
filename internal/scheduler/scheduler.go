package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"multiscan/pkg/dirscan"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/shared"
)

// ErrHostRejected 目标主机被 hosts 过滤规则拒绝
var ErrHostRejected = errors.New("target host rejected by host filter")

// TargetResult 单个目标的扫描结果
type TargetResult struct {
	Index  int
	Target string
	Result *types.ScanResult
	Err    error
}

// Outcome 多目标扫描汇总
type Outcome struct {
	Targets    []string
	Findings   map[string]types.FindingRecord
	ServerInfo map[string]types.ServerInfo
	Results    []TargetResult
	StartTime  time.Time
	EndTime    time.Time
}

// Duration 总耗时
func (o *Outcome) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// TargetScheduler 目标调度器，每个目标使用独立的扫描引擎
type TargetScheduler struct {
	targets          []string
	maxTargetWorkers int
	maxDepth         int
	baseOptions      dirscan.Options
	hostFilter       func(host string) bool
	resultCallback   func(TargetResult)
}

// NewTargetScheduler 创建目标调度器，base 为除目标地址外的公共引擎配置
func NewTargetScheduler(targets []string, base dirscan.Options, maxDepth, maxTargetWorkers int) *TargetScheduler {
	normalized := normalizeTargets(targets)
	return &TargetScheduler{
		targets:          normalized,
		maxTargetWorkers: calculateTargetWorkers(len(normalized), maxTargetWorkers),
		maxDepth:         maxDepth,
		baseOptions:      base,
	}
}

// SetHostFilter 设置目标主机过滤函数，返回 false 的目标不扫描
func (ts *TargetScheduler) SetHostFilter(fn func(host string) bool) {
	ts.hostFilter = fn
}

// SetResultCallback 每个目标完成后回调，可能被多个协程并发调用
func (ts *TargetScheduler) SetResultCallback(fn func(TargetResult)) {
	ts.resultCallback = fn
}

// Targets 去重后的目标列表
func (ts *TargetScheduler) Targets() []string {
	return ts.targets
}

// Execute 并发扫描全部目标并合并结果
// 等待所有目标协程退出后返回，上下文取消时返回已完成部分和 ctx.Err()
func (ts *TargetScheduler) Execute(ctx context.Context) (*Outcome, error) {
	if len(ts.targets) == 0 {
		return nil, fmt.Errorf("没有可扫描的目标")
	}

	outcome := &Outcome{
		Targets:    ts.targets,
		Findings:   make(map[string]types.FindingRecord),
		ServerInfo: make(map[string]types.ServerInfo),
		Results:    make([]TargetResult, len(ts.targets)),
		StartTime:  time.Now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	// 创建目标工作器信号量
	targetSem := make(chan struct{}, ts.maxTargetWorkers)

	for i, target := range ts.targets {
		wg.Add(1)
		go func(index int, targetURL string) {
			res := TargetResult{Index: index, Target: targetURL}
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("目标处理panic恢复: %v, 目标: %s", r, targetURL)
					res.Err = fmt.Errorf("目标 %s 处理异常: %v", targetURL, r)
				}
				ts.collect(outcome, &mu, res)
				wg.Done()
			}()

			// 阻塞等待信号量，除非扫描上下文被取消
			select {
			case targetSem <- struct{}{}:
				defer func() {
					<-targetSem
				}()
			case <-ctx.Done():
				logger.Debugf("目标 %s: 扫描被取消", targetURL)
				res.Err = ctx.Err()
				return
			}

			res.Result, res.Err = ts.processTarget(ctx, index, targetURL)
		}(i, target)
	}

	wg.Wait()
	outcome.EndTime = time.Now()

	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (ts *TargetScheduler) processTarget(ctx context.Context, index int, target string) (*types.ScanResult, error) {
	startTime := time.Now()
	logger.Debugf("开始处理目标 [%d/%d]: %s", index+1, len(ts.targets), target)

	if ts.hostFilter != nil && !ts.hostFilter(shared.HostOf(target)) {
		logger.Warnf("目标主机被过滤规则拒绝，跳过: %s", target)
		return nil, ErrHostRejected
	}

	opts := ts.baseOptions
	opts.TargetURL = target
	engine, err := dirscan.NewEngine(ctx, &opts)
	if err != nil {
		logger.Errorf("创建扫描引擎失败: %s, %v", target, err)
		return nil, err
	}

	result, err := engine.Run(ctx, ts.maxDepth)
	if err != nil {
		return nil, err
	}
	logger.Debugf("目标 %s 处理完成，耗时: %v", target, time.Since(startTime))
	return result, nil
}

// collect 合并单个目标结果，后完成的目标覆盖相同URL的记录
func (ts *TargetScheduler) collect(outcome *Outcome, mu *sync.Mutex, res TargetResult) {
	mu.Lock()
	outcome.Results[res.Index] = res
	if res.Result != nil {
		for u, rec := range res.Result.Findings {
			outcome.Findings[u] = rec
		}
		outcome.ServerInfo[res.Result.Target] = res.Result.ServerInfo
	}
	mu.Unlock()

	if ts.resultCallback != nil {
		ts.resultCallback(res)
	}
}

// calculateTargetWorkers 目标并发数限制在 [1, 目标数]
func calculateTargetWorkers(targetCount, requested int) int {
	if requested <= 0 {
		requested = 1
	}
	if targetCount > 0 && requested > targetCount {
		return targetCount
	}
	return requested
}

// normalizeTargets 去掉空白、末尾斜杠并去重，保持输入顺序
func normalizeTargets(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimRight(strings.TrimSpace(t), "/")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
