package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"multiscan/pkg/dirscan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9000"
scan:
  mode: darkweb
  depth: 3
  respect_robots: false
  rate_limit: 5
  exclusions:
    - /private
    - http://h/secret
  tor_proxy: socks5h://127.0.0.1:9150
  headers:
    X-Test: "1"
hosts:
  reject:
    - "*.gov"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Same(t, cfg, GlobalConfig)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "darkweb", cfg.Scan.Mode)
	assert.Equal(t, 3, cfg.Scan.Depth)
	assert.False(t, cfg.Scan.RespectRobotsEnabled())
	assert.Equal(t, 5.0, cfg.Scan.RateLimit)
	assert.Equal(t, []string{"/private", "http://h/secret"}, cfg.Scan.Exclusions)
	assert.Equal(t, "1", cfg.Scan.Headers["X-Test"])

	// 未出现的字段保留默认值
	assert.Equal(t, 10, cfg.Scan.Workers)
	assert.Equal(t, 2, cfg.Scan.TargetConcurrency)
	assert.True(t, cfg.Scan.DetectTechnologiesEnabled())
	assert.True(t, cfg.Log.ColorEnabled())
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"非法YAML", "scan: [\n"},
		{"未知模式", "scan:\n  mode: stealth\n"},
		{"负数深度", "scan:\n  depth: -1\n"},
		{"并发为0", "scan:\n  workers: 0\n"},
		{"空监听地址", "server:\n  listen: \"\"\n"},
		{"不支持的代理协议", "scan:\n  proxy: ftp://127.0.0.1:21\n"},
		{"负数限速", "scan:\n  rate_limit: -2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInitConfigFromEnv(t *testing.T) {
	path := writeConfig(t, "scan:\n  depth: 5\n")
	t.Setenv("MULTISCAN_CONFIG_PATH", path)

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Scan.Depth)
}

func TestInitConfigDefaults(t *testing.T) {
	t.Setenv("MULTISCAN_CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := InitConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyCLIOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Exclusions = []string{"/a"}

	depth, workers := 0, 25
	rate := 3.5
	err := cfg.ApplyCLIOverrides(&CLIOverrides{
		Mode:       "darkweb",
		Depth:      &depth,
		Workers:    &workers,
		RateLimit:  &rate,
		NoRobots:   true,
		Exclusions: []string{"/b"},
		Wordlists:  []string{"dict.txt"},
		Headers:    map[string]string{"X-A": "1"},
		Listen:     ":9001",
		NoColor:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "darkweb", cfg.Scan.Mode)
	assert.Equal(t, 0, cfg.Scan.Depth)
	assert.Equal(t, 25, cfg.Scan.Workers)
	assert.Equal(t, 3.5, cfg.Scan.RateLimit)
	assert.False(t, cfg.Scan.RespectRobotsEnabled())
	assert.Equal(t, []string{"/a", "/b"}, cfg.Scan.Exclusions)
	assert.Equal(t, []string{"dict.txt"}, cfg.Scan.Wordlists)
	assert.Equal(t, "1", cfg.Scan.Headers["X-A"])
	assert.Equal(t, ":9001", cfg.Server.Listen)
	assert.False(t, cfg.Log.ColorEnabled())

	assert.NoError(t, cfg.ApplyCLIOverrides(nil))

	bad := -1
	assert.Error(t, cfg.ApplyCLIOverrides(&CLIOverrides{Depth: &bad}))
}

func TestIsHostAllowed(t *testing.T) {
	tests := []struct {
		name   string
		hosts  HostsConfig
		host   string
		expect bool
	}{
		{"空配置全部允许", HostsConfig{}, "example.com", true},
		{"拒绝通配", HostsConfig{Reject: []string{"*.gov"}}, "www.example.gov", false},
		{"拒绝忽略端口", HostsConfig{Reject: []string{"example.com"}}, "example.com:8080", false},
		{"允许列表命中", HostsConfig{Allow: []string{"*.example.com"}}, "api.example.com", true},
		{"允许列表未命中", HostsConfig{Allow: []string{"*.example.com"}}, "other.org", false},
		{"拒绝优先", HostsConfig{Allow: []string{"*"}, Reject: []string{"bad.com"}}, "bad.com", false},
		{"IPv6带端口", HostsConfig{Reject: []string{"::1"}}, "[::1]:8080", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.hosts.IsHostAllowed(tt.host))
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := DefaultConfig()
	respect, detect := false, false
	cfg.Scan.RespectRobots = &respect
	cfg.Scan.DetectTechnologies = &detect
	cfg.Scan.Timeout = 7
	cfg.Scan.Exclusions = []string{"/x"}

	opts := cfg.Scan.EngineOptions()
	assert.True(t, opts.IgnoreRobots)
	assert.Nil(t, opts.TechDetector)
	assert.Equal(t, 7*time.Second, opts.Timeout)
	assert.Equal(t, []string{"/x"}, opts.Exclusions)
	assert.Equal(t, 10, opts.Workers)
}

func TestBaseWordlist(t *testing.T) {
	cfg := DefaultConfig()
	words, err := cfg.Scan.BaseWordlist()
	require.NoError(t, err)
	assert.Equal(t, dirscan.DefaultGeneralWordlist, words)

	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nadmin\n\nbackup\nadmin\n"), 0o644))
	cfg.Scan.Wordlists = []string{path}
	words, err = cfg.Scan.BaseWordlist()
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "backup"}, words)
}
