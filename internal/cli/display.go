package cli

import (
	"fmt"
	"strings"

	"multiscan/internal/core/config"
	"multiscan/internal/scheduler"
	report "multiscan/pkg/reporter"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/formatter"
	"multiscan/pkg/utils/logger"
)

func displayStartupInfo(cfg *config.Config, args *scanArgs) {
	fmt.Print(`
		multiscan
`)
	logger.Debug("扫描配置:")
	logger.Debugf("目标: %d, 模式: %s, 深度: %d, 超时: %s", len(args.Targets), cfg.Scan.Mode, cfg.Scan.Depth, scanTimeout(cfg))
	logger.Debugf("遵守robots: %s, 会话Cookie: %s", getStatus(cfg.Scan.RespectRobotsEnabled()), getStatus(args.Cookie != ""))
}

func getStatus(enabled bool) string {
	if enabled {
		return "[√]"
	}
	return "[X]"
}

// printTargetResult 单个目标完成后输出其发现
func printTargetResult(res scheduler.TargetResult, quiet bool) {
	if res.Err != nil {
		logger.Errorf("目标扫描失败: %s, %v", res.Target, res.Err)
		return
	}
	if res.Result == nil {
		return
	}

	info := res.Result.ServerInfo
	logger.Infof("%s Server: %s, X-Powered-By: %s, 框架: %s",
		formatter.FormatFullURL(res.Target), info.Server, info.XPoweredBy, formatter.FormatFramework(info.FrameworkHint))
	if len(info.Technologies) > 0 {
		logger.Infof("  技术栈: %s", strings.Join(info.Technologies, ", "))
	}
	if quiet {
		return
	}

	for _, u := range report.SortedURLs(res.Result.Findings) {
		rec := res.Result.Findings[u]
		if !report.IsSuccessful(rec) && !rec.DirectoryListing {
			continue
		}
		logger.Info(formatFindingLine(u, rec))
	}
}

// formatFindingLine 单条发现的控制台展示
func formatFindingLine(u string, rec types.FindingRecord) string {
	var b strings.Builder
	b.WriteString(formatter.FormatURL(u))
	b.WriteString(" ")
	if rec.Status.IsHTTP() {
		b.WriteString(formatter.FormatStatusCode(rec.Status.Code))
	} else {
		b.WriteString(formatter.FormatStatusLabel(rec.Status.Label))
	}
	b.WriteString(" ")
	b.WriteString(formatter.FormatContentLength(rec.ContentLength))
	b.WriteString(" ")
	b.WriteString(formatter.FormatSource(string(rec.Source)))
	if rec.DirectoryListing {
		b.WriteString(" ")
		b.WriteString(formatter.FormatListing())
	}
	if rec.Note != "" {
		b.WriteString(" ")
		b.WriteString(formatter.FormatNote(rec.Note))
	}
	return b.String()
}

func printSummary(s report.Summary) {
	logger.Info(formatter.FormatBold("扫描汇总"))
	logger.Infof("  目标数: %s", formatter.FormatNumber(s.Targets))
	logger.Infof("  检查路径: %s", formatter.FormatNumber(s.TotalPaths))
	logger.Infof("  发现目录(200/403): %s", formatter.FormatNumber(s.SuccessfulPaths))
	logger.Infof("  目录列表: %s", formatter.FormatNumber(s.DirectoryListings))
	logger.Infof("  耗时: %.2fs", s.DurationSeconds)
}
