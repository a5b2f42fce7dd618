package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"multiscan/internal/core/config"
	"multiscan/internal/scheduler"
	"multiscan/pkg/dirscan"
	report "multiscan/pkg/reporter"
	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/stats"

	"github.com/spf13/cobra"
)

// scanArgs scan 子命令参数
type scanArgs struct {
	Targets     []string // 目标URL (-u，可重复)
	TargetFile  string   // 目标文件，每行一个 (-l)
	Wordlists   []string // 字典文件 (-w，可重复)
	Mode        string   // normal | darkweb (--mode)
	Depth       int      // 递归深度 (--depth)
	Exclusions  []string // 排除项 (-x，可重复)
	NoRobots    bool     // 忽略 robots.txt (--no-robots)
	Cookie      string   // 会话Cookie "a=1; b=2" (--cookie)
	Workers     int      // 字典扫描并发 (-t)
	Concurrency int      // 目标并发 (--target-concurrency)
	Timeout     int      // 请求超时秒数 (--timeout)
	Proxy       string   // 上游代理 (--proxy)
	TorProxy    string   // Tor 代理 (--tor-proxy)
	Rate        float64  // 每秒请求数 (--rate)
	Headers     []string // 自定义请求头 (-H "Name: Value")
	Output      string   // 报告输出路径 (-o)
	Quiet       bool     // 只输出汇总 (-q)
	Stats       bool     // 实时进度统计 (--stats)
}

func newScanCommand() *cobra.Command {
	args := &scanArgs{}
	cmd := &cobra.Command{
		Use:   "scan -u <url> [flags]",
		Short: "扫描一个或多个目标",
		Example: `  multiscan scan -u http://testphp.vulnweb.com
  multiscan scan -u http://a.com -u http://b.com --depth 1 -o report.xlsx
  multiscan scan -u http://example.onion --tor-proxy socks5h://127.0.0.1:9150
  multiscan scan -l targets.txt -w dict.txt -x /logout -x http://a.com/admin --no-robots`,
		RunE: func(cmd *cobra.Command, positional []string) error {
			args.Targets = append(args.Targets, positional...)
			if args.TargetFile != "" {
				fromFile, err := dirscan.LoadWordlistFiles([]string{args.TargetFile})
				if err != nil {
					return fmt.Errorf("读取目标文件失败: %w", err)
				}
				args.Targets = append(args.Targets, fromFile...)
			}
			if len(args.Targets) == 0 {
				_ = cmd.Help()
				return fmt.Errorf("缺少扫描目标: 使用 -u 或 -l 指定")
			}

			overrides, err := args.overrides(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(overrides)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			displayStartupInfo(cfg, args)
			_, err = runScan(ctx, cfg, args, nil)
			return err
		},
	}

	bindScanFlags(cmd, args)
	return cmd
}

func bindScanFlags(cmd *cobra.Command, args *scanArgs) {
	f := cmd.Flags()
	f.StringArrayVarP(&args.Targets, "url", "u", nil, "目标URL，可重复指定")
	f.StringVarP(&args.TargetFile, "list", "l", "", "目标文件路径，每行一个目标")
	f.StringArrayVarP(&args.Wordlists, "wordlist", "w", nil, "字典文件路径，可重复指定 (默认: 内置通用字典)")
	f.StringVar(&args.Mode, "mode", "", "扫描模式: normal | darkweb (.onion 目标自动使用 darkweb)")
	f.IntVar(&args.Depth, "depth", dirscan.DefaultMaxDepth, "递归爬取最大深度")
	f.StringArrayVarP(&args.Exclusions, "exclude", "x", nil, "排除项: 完整URL、主机名或以/开头的路径前缀，可重复指定")
	f.BoolVar(&args.NoRobots, "no-robots", false, "不遵守 robots.txt 的 Disallow 规则")
	f.StringVar(&args.Cookie, "cookie", "", "会话Cookie，例如 \"session=abc; token=xyz\"")
	f.IntVarP(&args.Workers, "threads", "t", dirscan.DefaultWorkers, "字典扫描并发数")
	f.IntVar(&args.Concurrency, "target-concurrency", 2, "同时扫描的目标数")
	f.IntVar(&args.Timeout, "timeout", 0, "单次请求超时(秒) (默认: normal 10, darkweb 30)")
	f.StringVar(&args.Proxy, "proxy", "", "normal 模式上游代理 (例如: http://127.0.0.1:8080 或 socks5://127.0.0.1:1080)")
	f.StringVar(&args.TorProxy, "tor-proxy", "", "darkweb 模式 Tor 代理 (默认: socks5h://127.0.0.1:9050)")
	f.Float64Var(&args.Rate, "rate", 0, "每秒请求数上限 (0 不限速)")
	f.StringArrayVarP(&args.Headers, "header", "H", nil, "自定义请求头 \"Name: Value\"，可重复指定")
	f.StringVarP(&args.Output, "output", "o", "", "报告输出路径 (.json / .xlsx / .csv)")
	f.BoolVarP(&args.Quiet, "quiet", "q", false, "只输出汇总信息")
	f.BoolVar(&args.Stats, "stats", false, "启用实时扫描进度统计显示")
}

// overrides 只覆盖命令行中显式指定的参数
func (a *scanArgs) overrides(cmd *cobra.Command) (*config.CLIOverrides, error) {
	headers, err := parseHeaders(a.Headers)
	if err != nil {
		return nil, err
	}
	o := &config.CLIOverrides{
		Mode:       a.Mode,
		NoRobots:   a.NoRobots,
		Exclusions: a.Exclusions,
		Wordlists:  a.Wordlists,
		Proxy:      a.Proxy,
		TorProxy:   a.TorProxy,
		Headers:    headers,
	}
	flags := cmd.Flags()
	if flags.Changed("depth") {
		o.Depth = &a.Depth
	}
	if flags.Changed("threads") {
		o.Workers = &a.Workers
	}
	if flags.Changed("target-concurrency") {
		o.TargetConcurrency = &a.Concurrency
	}
	if flags.Changed("timeout") {
		o.Timeout = &a.Timeout
	}
	if flags.Changed("rate") {
		o.RateLimit = &a.Rate
	}
	return o, nil
}

// parseHeaders 解析 "Name: Value" 形式的请求头
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("请求头格式无效: %q (应为 \"Name: Value\")", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// runScan 执行多目标扫描、输出结果并按需写报告
// transport 为空时每个引擎自行创建 fasthttp 客户端
func runScan(ctx context.Context, cfg *config.Config, args *scanArgs, transport dirscan.Transport) (*scheduler.Outcome, error) {
	wordlist, err := cfg.Scan.BaseWordlist()
	if err != nil {
		return nil, err
	}

	opts := cfg.Scan.EngineOptions()
	opts.Wordlist = wordlist
	opts.SessionCookies = strings.TrimSpace(args.Cookie)
	opts.Transport = transport

	ts := scheduler.NewTargetScheduler(args.Targets, opts, cfg.Scan.Depth, cfg.Scan.TargetConcurrency)
	ts.SetHostFilter(cfg.Hosts.IsHostAllowed)
	display := stats.NewStatsDisplay()
	display.SetTotalHosts(int64(len(ts.Targets())))
	ts.SetResultCallback(func(res scheduler.TargetResult) {
		display.RecordTarget(res.Result)
		printTargetResult(res, args.Quiet)
	})

	if args.Stats {
		display.Enable()
	}
	outcome, err := ts.Execute(ctx)
	if args.Stats {
		display.Disable()
		display.ShowFinalStats()
	}
	if outcome == nil {
		return nil, err
	}
	if err != nil {
		logger.Warnf("扫描被中断，输出已完成部分: %v", err)
	}

	summary := report.Summarize(outcome.Findings, len(outcome.Targets), outcome.Duration())
	printSummary(summary)

	if out := strings.TrimSpace(args.Output); out != "" {
		rep := report.BuildReport(outcome.Findings, outcome.ServerInfo, report.Metadata{
			Targets:              outcome.Targets,
			MaxDepth:             cfg.Scan.Depth,
			RespectRobots:        cfg.Scan.RespectRobotsEnabled(),
			CredentialsProvided:  opts.SessionCookies != "",
			Exclusions:           cfg.Scan.Exclusions,
			UseDefaultDictionary: len(cfg.Scan.Wordlists) == 0,
			StartTime:            outcome.StartTime,
			EndTime:              outcome.EndTime,
		})
		if _, statErr := os.Stat(out); statErr == nil {
			logger.Infof("覆盖已有报告文件: %s", out)
		}
		path, werr := report.Write(rep, out)
		if werr != nil {
			return outcome, fmt.Errorf("报告生成失败: %w", werr)
		}
		logger.Infof("报告输出成功: %s", path)
	}

	return outcome, err
}

// scanTimeout 用于日志展示的生效超时
func scanTimeout(cfg *config.Config) time.Duration {
	if d := cfg.Scan.TimeoutDuration(); d > 0 {
		return d
	}
	if strings.EqualFold(cfg.Scan.Mode, dirscan.ModeDarkweb) {
		return dirscan.DefaultDarkwebTimeout
	}
	return dirscan.DefaultNormalTimeout
}
