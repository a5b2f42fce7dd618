package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"multiscan/pkg/utils/formatter"

	"github.com/projectdiscovery/gologger"
	gformatter "github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
)

// multiscan 日志系统
// 对外保留 Info/Debug/Warn/Error/Fatal 等包级函数，底层输出交给 gologger

// StandardLogFilter 过滤标准库 log 输出的特定噪声消息
type StandardLogFilter struct{}

func (f *StandardLogFilter) Write(p []byte) (n int, err error) {
	msg := string(p)
	if strings.Contains(msg, "Deprecated newline only separator found in header") {
		return len(p), nil
	}
	return os.Stderr.Write(p)
}

type LogConfig struct {
	Level       string `yaml:"level"`
	ColorOutput bool   `yaml:"color_output"`
}

var (
	globalMu     sync.RWMutex
	globalConfig = getDefaultLogConfig()
)

func init() {
	applyConfig(globalConfig)
}

// InitializeLogger 初始化日志系统
func InitializeLogger(config *LogConfig) error {
	if config == nil {
		config = getDefaultLogConfig()
	}

	globalMu.Lock()
	globalConfig = config
	applyConfig(config)
	globalMu.Unlock()

	log.SetOutput(&StandardLogFilter{})
	return nil
}

func getDefaultLogConfig() *LogConfig {
	return &LogConfig{Level: "info", ColorOutput: true}
}

func applyConfig(config *LogConfig) {
	gologger.DefaultLogger.SetMaxLevel(parseLogLevel(config.Level))
	noColor := !config.ColorOutput || !formatter.ColorsEnabled()
	gologger.DefaultLogger.SetFormatter(gformatter.NewCLI(noColor))
}

func parseLogLevel(levelStr string) levels.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return levels.LevelDebug
	case "info", "":
		return levels.LevelInfo
	case "warn", "warning":
		return levels.LevelWarning
	case "error":
		return levels.LevelError
	case "fatal", "panic":
		return levels.LevelFatal
	case "silent":
		return levels.LevelSilent
	default:
		return levels.LevelInfo
	}
}

// SetLogLevel 设置日志级别
func SetLogLevel(levelStr string) {
	globalMu.Lock()
	globalConfig.Level = strings.ToLower(strings.TrimSpace(levelStr))
	applyConfig(globalConfig)
	globalMu.Unlock()
}

// SetColorOutput 设置日志颜色输出开关
func SetColorOutput(enabled bool) {
	globalMu.Lock()
	globalConfig.ColorOutput = enabled
	applyConfig(globalConfig)
	globalMu.Unlock()
}

// 全局日志函数
func Debug(args ...interface{})                 { gologger.Debug().Msg(fmt.Sprint(args...)) }
func Debugf(format string, args ...interface{}) { gologger.Debug().Msgf(format, args...) }
func Info(args ...interface{})                  { gologger.Info().Msg(fmt.Sprint(args...)) }
func Infof(format string, args ...interface{})  { gologger.Info().Msgf(format, args...) }
func Warn(args ...interface{})                  { gologger.Warning().Msg(fmt.Sprint(args...)) }
func Warnf(format string, args ...interface{})  { gologger.Warning().Msgf(format, args...) }
func Error(args ...interface{})                 { gologger.Error().Msg(fmt.Sprint(args...)) }
func Errorf(format string, args ...interface{}) { gologger.Error().Msgf(format, args...) }
func Fatal(args ...interface{})                 { gologger.Fatal().Msg(fmt.Sprint(args...)) }
func Fatalf(format string, args ...interface{}) { gologger.Fatal().Msgf(format, args...) }
