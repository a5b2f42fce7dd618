package stats

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"multiscan/pkg/types"

	"go.uber.org/atomic"
)

// ScanStats 多目标扫描累计统计
type ScanStats struct {
	StartTime        time.Time
	TotalHosts       *atomic.Int64 // 总目标数
	CompletedHosts   *atomic.Int64 // 已完成目标数
	FailedHosts      *atomic.Int64 // 失败目标数
	TotalRequests    *atomic.Int64
	FailedRequests   *atomic.Int64
	ExcludedURLs     *atomic.Int64
	CrawledPages     *atomic.Int64
	ScriptsProcessed *atomic.Int64
	APIBasesFound    *atomic.Int64
}

func newScanStats() *ScanStats {
	return &ScanStats{
		StartTime:        time.Now(),
		TotalHosts:       atomic.NewInt64(0),
		CompletedHosts:   atomic.NewInt64(0),
		FailedHosts:      atomic.NewInt64(0),
		TotalRequests:    atomic.NewInt64(0),
		FailedRequests:   atomic.NewInt64(0),
		ExcludedURLs:     atomic.NewInt64(0),
		CrawledPages:     atomic.NewInt64(0),
		ScriptsProcessed: atomic.NewInt64(0),
		APIBasesFound:    atomic.NewInt64(0),
	}
}

// StatsDisplay 统计显示器，启用后按固定间隔刷新进度行
type StatsDisplay struct {
	stats    *ScanStats
	out      io.Writer
	interval time.Duration
	enabled  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.Mutex
}

// NewStatsDisplay 创建新的统计显示器
func NewStatsDisplay() *StatsDisplay {
	return &StatsDisplay{
		stats:    newScanStats(),
		out:      os.Stdout,
		interval: 5 * time.Second,
	}
}

// SetOutput 替换输出目标
func (sd *StatsDisplay) SetOutput(w io.Writer) {
	sd.mu.Lock()
	sd.out = w
	sd.mu.Unlock()
}

// Enable 启用统计显示
func (sd *StatsDisplay) Enable() {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	if sd.enabled {
		return
	}
	sd.enabled = true
	sd.stats.StartTime = time.Now()
	sd.stopChan = make(chan struct{})
	sd.doneChan = make(chan struct{})

	go sd.displayLoop(sd.stopChan, sd.doneChan)
}

// Disable 停止刷新，等待刷新协程退出
func (sd *StatsDisplay) Disable() {
	sd.mu.Lock()
	if !sd.enabled {
		sd.mu.Unlock()
		return
	}
	sd.enabled = false
	stop, done := sd.stopChan, sd.doneChan
	sd.mu.Unlock()

	close(stop)
	<-done
}

// IsEnabled 检查是否启用
func (sd *StatsDisplay) IsEnabled() bool {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.enabled
}

// SetTotalHosts 设置总目标数
func (sd *StatsDisplay) SetTotalHosts(count int64) {
	sd.stats.TotalHosts.Store(count)
}

// RecordTarget 记录一个目标完成；result 为空表示失败
func (sd *StatsDisplay) RecordTarget(result *types.ScanResult) {
	sd.stats.CompletedHosts.Inc()
	if result == nil {
		sd.stats.FailedHosts.Inc()
		return
	}
	s := result.Stats
	sd.stats.TotalRequests.Add(s.TotalRequests)
	sd.stats.FailedRequests.Add(s.FailedRequests)
	sd.stats.ExcludedURLs.Add(s.ExcludedURLs)
	sd.stats.CrawledPages.Add(s.CrawledPages)
	sd.stats.ScriptsProcessed.Add(s.ScriptsProcessed)
	sd.stats.APIBasesFound.Add(s.APIBasesFound)
}

// GetStats 获取当前统计信息
func (sd *StatsDisplay) GetStats() *ScanStats {
	return sd.stats
}

// Totals 汇总为引擎统计结构
func (sd *StatsDisplay) Totals() types.Statistics {
	return types.Statistics{
		TotalRequests:    sd.stats.TotalRequests.Load(),
		FailedRequests:   sd.stats.FailedRequests.Load(),
		ExcludedURLs:     sd.stats.ExcludedURLs.Load(),
		CrawledPages:     sd.stats.CrawledPages.Load(),
		ScriptsProcessed: sd.stats.ScriptsProcessed.Load(),
		APIBasesFound:    sd.stats.APIBasesFound.Load(),
	}
}

// displayLoop 显示循环
func (sd *StatsDisplay) displayLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(sd.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sd.displayStats()
		}
	}
}

// displayStats 刷新单行进度
func (sd *StatsDisplay) displayStats() {
	elapsed := time.Since(sd.stats.StartTime)
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60

	timeStr := fmt.Sprintf("[%d:%02d:%02d]", hours, minutes, seconds)
	line := fmt.Sprintf("%s Hosts: %d/%d | Requests: %d | Crawled: %d | API: %d ",
		timeStr,
		sd.stats.CompletedHosts.Load(), sd.stats.TotalHosts.Load(),
		sd.stats.TotalRequests.Load(), sd.stats.CrawledPages.Load(), sd.stats.APIBasesFound.Load())

	sd.mu.Lock()
	fmt.Fprintf(sd.out, "\r\033[K%s", line)
	sd.mu.Unlock()
}

// ShowFinalStats 显示最终统计信息
func (sd *StatsDisplay) ShowFinalStats() {
	totalHosts := sd.stats.TotalHosts.Load()
	completedHosts := sd.stats.CompletedHosts.Load()
	if completedHosts > totalHosts {
		completedHosts = totalHosts
	}

	elapsedSeconds := int(time.Since(sd.stats.StartTime).Seconds())
	sd.mu.Lock()
	fmt.Fprintf(sd.out, "\r\033[K\n[INF] Times: %dS | Host: %d/%d (失败 %d) | Request: %d (失败 %d, 排除 %d) | Crawled: %d | Scripts: %d | API: %d\n",
		elapsedSeconds, completedHosts, totalHosts, sd.stats.FailedHosts.Load(),
		sd.stats.TotalRequests.Load(), sd.stats.FailedRequests.Load(), sd.stats.ExcludedURLs.Load(),
		sd.stats.CrawledPages.Load(), sd.stats.ScriptsProcessed.Load(), sd.stats.APIBasesFound.Load())
	sd.mu.Unlock()
}
