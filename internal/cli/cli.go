package cli

import (
	"fmt"
	"os"
	"strings"

	"multiscan/internal/core/config"
	"multiscan/pkg/utils/formatter"
	"multiscan/pkg/utils/logger"

	"github.com/spf13/cobra"
)

// BuildInfo 构建信息，由 main 注入
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

var buildInfo = BuildInfo{Version: "dev"}

// globalArgs 所有子命令共享的参数
type globalArgs struct {
	ConfigPath string // 配置文件路径 (--config)
	Debug      bool   // 调试模式 (--debug)
	NoColor    bool   // 禁用彩色输出 (--no-color)
}

var global globalArgs

var rootCmd = &cobra.Command{
	Use:   "multiscan",
	Short: "Web 目录扫描、递归爬取与 JS 接口挖掘工具",
	Long: `multiscan 对目标站点执行字典目录扫描、同站递归爬取、JS 接口挖掘、
目录列表检测与服务器指纹识别，支持 normal 与 darkweb (Tor) 两种模式。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&global.ConfigPath, "config", "", "配置文件路径 (默认依次查找 $MULTISCAN_CONFIG_PATH、./config/config.yaml、./config.yaml)")
	pf.BoolVar(&global.Debug, "debug", false, "启用调试模式，显示详细日志")
	pf.BoolVar(&global.NoColor, "no-color", false, "禁用彩色输出")

	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newServeCommand())
}

// Execute CLI入口
func Execute(info BuildInfo) {
	if info.Version != "" {
		buildInfo = info
	}
	rootCmd.Version = fmt.Sprintf("%s (build: %s, commit: %s)", buildInfo.Version, buildInfo.BuildTime, buildInfo.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// loadConfig 加载配置文件并应用CLI覆盖，随后按配置初始化日志
func loadConfig(overrides *config.CLIOverrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := strings.TrimSpace(global.ConfigPath); path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.InitConfig()
	}
	if err != nil {
		return nil, err
	}

	if overrides == nil {
		overrides = &config.CLIOverrides{}
	}
	if global.Debug {
		overrides.LogLevel = "debug"
	}
	overrides.NoColor = overrides.NoColor || global.NoColor
	if err := cfg.ApplyCLIOverrides(overrides); err != nil {
		return nil, err
	}

	initLogging(cfg)
	return cfg, nil
}

// initLogging 按配置设置日志级别与颜色
func initLogging(cfg *config.Config) {
	colorEnabled := cfg.Log.ColorEnabled()
	formatter.SetColorEnabled(colorEnabled)

	loggerConfig := &logger.LogConfig{
		Level:       cfg.Log.Level,
		ColorOutput: colorEnabled,
	}
	if err := logger.InitializeLogger(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		logger.InitializeLogger(nil)
	}
}
