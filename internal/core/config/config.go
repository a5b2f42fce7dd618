package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"multiscan/pkg/dirscan"
	"multiscan/pkg/fingerprint"
	"multiscan/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

// Config 全局配置结构体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Scan   ScanConfig   `yaml:"scan"`
	Hosts  HostsConfig  `yaml:"hosts"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig API服务配置
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// ScanConfig 扫描配置
type ScanConfig struct {
	Mode               string            `yaml:"mode"`
	Depth              int               `yaml:"depth"`               // 递归爬取深度
	Workers            int               `yaml:"workers"`             // 单批字典扫描并发数
	TargetConcurrency  int               `yaml:"target_concurrency"`  // 同时扫描的目标数
	Timeout            int               `yaml:"timeout"`             // 单次请求超时（秒），0 按模式取默认值
	RespectRobots      *bool             `yaml:"respect_robots"`      // 默认遵守 robots.txt
	RateLimit          float64           `yaml:"rate_limit"`          // 每秒请求数，0 不限速
	Exclusions         []string          `yaml:"exclusions"`
	Wordlists          []string          `yaml:"wordlists"`           // 字典文件，为空时使用内置字典
	Proxy              string            `yaml:"proxy"`               // normal 模式上游代理
	TorProxy           string            `yaml:"tor_proxy"`           // darkweb 模式 Tor 代理
	Headers            map[string]string `yaml:"headers"`
	DetectTechnologies *bool             `yaml:"detect_technologies"` // wappalyzer 技术栈识别
}

// HostsConfig 目标主机过滤配置
type HostsConfig struct {
	Allow  []string `yaml:"allow"`
	Reject []string `yaml:"reject"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
	Color *bool  `yaml:"color"`
}

// 全局配置实例
var GlobalConfig *Config

// DefaultConfig 未提供配置文件时使用的默认值
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8000"},
		Scan: ScanConfig{
			Mode:              dirscan.ModeNormal,
			Depth:             dirscan.DefaultMaxDepth,
			Workers:           dirscan.DefaultWorkers,
			TargetConcurrency: 2,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig 加载配置文件，未出现的字段保留默认值
func LoadConfig(configPath string) (*Config, error) {
	logger.Debug("开始加载配置文件: ", configPath)

	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	// 设置全局配置
	GlobalConfig = config

	logger.Debug("配置文件加载成功")
	logConfigSummary(config)

	return config, nil
}

// validateConfig 验证配置文件
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Server.Listen) == "" {
		return fmt.Errorf("服务器监听地址不能为空")
	}

	scan := &config.Scan
	switch strings.ToLower(strings.TrimSpace(scan.Mode)) {
	case "", dirscan.ModeNormal, dirscan.ModeDarkweb:
	default:
		return fmt.Errorf("未知的扫描模式: %s", scan.Mode)
	}
	if scan.Depth < 0 {
		return fmt.Errorf("爬取深度不能为负数: %d", scan.Depth)
	}
	if scan.Workers <= 0 {
		return fmt.Errorf("并发数必须大于0")
	}
	if scan.TargetConcurrency <= 0 {
		return fmt.Errorf("目标并发数必须大于0")
	}
	if scan.Timeout < 0 {
		return fmt.Errorf("超时时间不能为负数: %d", scan.Timeout)
	}
	if scan.RateLimit < 0 {
		return fmt.Errorf("限速不能为负数: %v", scan.RateLimit)
	}
	for _, p := range []string{scan.Proxy, scan.TorProxy} {
		if err := validateProxyURL(p); err != nil {
			return err
		}
	}
	return nil
}

func validateProxyURL(proxyURL string) error {
	if proxyURL == "" {
		return nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("代理地址无效: %s", proxyURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
		return nil
	}
	return fmt.Errorf("不支持的代理协议: %s", u.Scheme)
}

// logConfigSummary 打印配置摘要
func logConfigSummary(config *Config) {
	logger.Debug("配置摘要:")
	logger.Debugf("  模式: %s, 深度: %d, 并发: %d, 目标并发: %d",
		config.Scan.Mode, config.Scan.Depth, config.Scan.Workers, config.Scan.TargetConcurrency)
	logger.Debugf("  排除项: %d, 字典文件: %d, 遵守robots: %v",
		len(config.Scan.Exclusions), len(config.Scan.Wordlists), config.Scan.RespectRobotsEnabled())
}

// InitConfig 初始化配置（自动查找配置文件），均不存在时使用默认配置
func InitConfig() (*Config, error) {
	if customPath := os.Getenv("MULTISCAN_CONFIG_PATH"); customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			cfg, err := LoadConfig(customPath)
			if err != nil {
				return nil, fmt.Errorf("加载配置文件 %s 失败: %w", customPath, err)
			}
			return cfg, nil
		}
	}
	// 尝试多个可能的配置文件路径
	configPaths := []string{
		"./config/config.yaml",
		"./config.yaml",
	}

	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return nil, fmt.Errorf("加载配置文件 %s 失败: %w", configPath, err)
			}
			return cfg, nil
		}
	}

	logger.Debugf("未找到配置文件 %v，使用默认配置", configPaths)
	GlobalConfig = DefaultConfig()
	return GlobalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if GlobalConfig == nil {
		if _, err := InitConfig(); err != nil {
			logger.Fatal("配置未初始化且自动初始化失败: ", err)
		}
	}
	return GlobalConfig
}

// RespectRobotsEnabled 未配置时默认遵守
func (s *ScanConfig) RespectRobotsEnabled() bool {
	return s.RespectRobots == nil || *s.RespectRobots
}

// DetectTechnologiesEnabled 未配置时默认开启
func (s *ScanConfig) DetectTechnologiesEnabled() bool {
	return s.DetectTechnologies == nil || *s.DetectTechnologies
}

// TimeoutDuration 0 表示按模式取默认值
func (s *ScanConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// EngineOptions 转换为扫描引擎公共配置，目标地址与字典由调用方填充
func (s *ScanConfig) EngineOptions() dirscan.Options {
	opts := dirscan.Options{
		Mode:         s.Mode,
		Exclusions:   append([]string(nil), s.Exclusions...),
		IgnoreRobots: !s.RespectRobotsEnabled(),
		Workers:      s.Workers,
		Timeout:      s.TimeoutDuration(),
		ProxyURL:     s.Proxy,
		TorProxyURL:  s.TorProxy,
		Headers:      s.Headers,
		RateLimit:    s.RateLimit,
	}
	if s.DetectTechnologiesEnabled() {
		opts.TechDetector = fingerprint.DefaultTechnologyDetector()
	}
	return opts
}

// BaseWordlist 配置了字典文件时加载文件，否则使用内置通用字典
func (s *ScanConfig) BaseWordlist() ([]string, error) {
	if len(s.Wordlists) == 0 {
		return append([]string(nil), dirscan.DefaultGeneralWordlist...), nil
	}
	return dirscan.LoadWordlistFiles(s.Wordlists)
}

// ColorEnabled 未配置时默认开启彩色输出
func (l *LogConfig) ColorEnabled() bool {
	return l.Color == nil || *l.Color
}

// ===========================================
// 目标主机过滤
// ===========================================

// IsHostAllowed 检查主机是否被允许
func (h *HostsConfig) IsHostAllowed(host string) bool {
	hostLower, hostWithoutPort := normalizeHostKey(host)

	// 检查拒绝列表
	for _, reject := range h.Reject {
		pattern := strings.ToLower(strings.TrimSpace(reject))
		if pattern == "" {
			continue
		}
		if matchPattern(hostLower, pattern) || (hostWithoutPort != hostLower && matchPattern(hostWithoutPort, pattern)) {
			return false
		}
	}

	// 检查允许列表
	if len(h.Allow) == 0 {
		return true
	}

	for _, allow := range h.Allow {
		pattern := strings.ToLower(strings.TrimSpace(allow))
		if pattern == "" {
			continue
		}
		if matchPattern(hostLower, pattern) || (hostWithoutPort != hostLower && matchPattern(hostWithoutPort, pattern)) {
			return true
		}
	}

	return false
}

func normalizeHostKey(host string) (string, string) {
	hostLower := strings.ToLower(strings.TrimSpace(host))
	if hostLower == "" {
		return "", ""
	}
	hostWithoutPort := hostLower

	if strings.HasPrefix(hostLower, "[") {
		if h, _, err := net.SplitHostPort(hostLower); err == nil {
			hostWithoutPort = strings.ToLower(strings.TrimSpace(h))
		} else if strings.HasSuffix(hostLower, "]") {
			hostWithoutPort = strings.TrimSpace(hostLower[1 : len(hostLower)-1])
		}
	} else {
		if h, _, err := net.SplitHostPort(hostLower); err == nil {
			hostWithoutPort = strings.ToLower(strings.TrimSpace(h))
		} else if idx := strings.LastIndex(hostLower, ":"); idx > -1 && idx < len(hostLower)-1 {
			if _, err := strconv.Atoi(hostLower[idx+1:]); err == nil {
				hostWithoutPort = strings.TrimSpace(hostLower[:idx])
			}
		}
	}

	if hostWithoutPort == "" {
		hostWithoutPort = hostLower
	}
	return hostLower, hostWithoutPort
}

// matchPattern 简单的模式匹配（支持通配符*）
func matchPattern(text, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return text == pattern
	}

	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(text, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(text, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(text, pattern[:len(pattern)-1])
	}
	return text == pattern
}

// ============================================================================
// CLI参数覆盖
// ============================================================================

// CLIOverrides CLI参数覆盖结构体，指针字段区分零值和未设置
type CLIOverrides struct {
	Mode              string
	Depth             *int
	Workers           *int
	TargetConcurrency *int
	Timeout           *int
	RateLimit         *float64
	NoRobots          bool
	Exclusions        []string
	Wordlists         []string
	Proxy             string
	TorProxy          string
	Headers           map[string]string
	Listen            string
	LogLevel          string
	NoColor           bool
}

// ApplyCLIOverrides 应用CLI参数覆盖
// 优先级: CLI参数 > config.yaml配置文件
func (c *Config) ApplyCLIOverrides(o *CLIOverrides) error {
	if o == nil {
		logger.Debug("没有CLI覆盖参数")
		return nil
	}

	if o.Mode != "" {
		c.Scan.Mode = o.Mode
	}
	if o.Depth != nil {
		c.Scan.Depth = *o.Depth
	}
	if o.Workers != nil {
		c.Scan.Workers = *o.Workers
	}
	if o.TargetConcurrency != nil {
		c.Scan.TargetConcurrency = *o.TargetConcurrency
	}
	if o.Timeout != nil {
		c.Scan.Timeout = *o.Timeout
	}
	if o.RateLimit != nil {
		c.Scan.RateLimit = *o.RateLimit
	}
	if o.NoRobots {
		respect := false
		c.Scan.RespectRobots = &respect
	}
	if len(o.Exclusions) > 0 {
		c.Scan.Exclusions = append(c.Scan.Exclusions, o.Exclusions...)
	}
	if len(o.Wordlists) > 0 {
		c.Scan.Wordlists = append([]string(nil), o.Wordlists...)
	}
	if o.Proxy != "" {
		c.Scan.Proxy = o.Proxy
	}
	if o.TorProxy != "" {
		c.Scan.TorProxy = o.TorProxy
	}
	if len(o.Headers) > 0 {
		if c.Scan.Headers == nil {
			c.Scan.Headers = make(map[string]string, len(o.Headers))
		}
		for k, v := range o.Headers {
			c.Scan.Headers[k] = v
		}
	}
	if o.Listen != "" {
		c.Server.Listen = o.Listen
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.NoColor {
		color := false
		c.Log.Color = &color
	}

	if err := validateConfig(c); err != nil {
		return fmt.Errorf("CLI参数无效: %w", err)
	}
	logger.Debug("CLI参数覆盖应用完成")
	return nil
}
