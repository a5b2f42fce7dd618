package dirscan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExclusionPolicyIsExcluded(t *testing.T) {
	policy := NewExclusionPolicy([]string{
		"http://h/secret",
		"cdn.h",
		"/private",
		"  ",
	})
	policy.robots = []string{"http://h/cgi-bin/"}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"完整URL命中", "http://h/secret", true},
		{"完整URL不做前缀匹配", "http://h/secret2", false},
		{"主机命中", "https://cdn.h/lib.js", true},
		{"路径前缀命中", "http://h/private/data", true},
		{"路径前缀按字符串比较", "http://h/privateer", true},
		{"robots前缀命中", "http://h/cgi-bin/test.cgi", true},
		{"普通路径放行", "http://h/public", false},
		{"空白排除项被忽略", "http://h/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.IsExcluded(tt.url))
		})
	}
}

func TestExclusionPolicyEmptyPathIsRoot(t *testing.T) {
	policy := NewExclusionPolicy([]string{"/"})
	assert.True(t, policy.IsExcluded("http://h"))
	assert.True(t, policy.IsExcluded("http://h/anything"))

	var nilPolicy *ExclusionPolicy
	assert.False(t, nilPolicy.IsExcluded("http://h"))
}

func TestParseRobots(t *testing.T) {
	content := `# robots for h
User-agent: Googlebot
Disallow: /google-only

User-agent: *
Disallow: /private
Disallow:
Disallow: /private
not a directive
Allow: /public

User-agent: Mozilla/5.0 (compatible)
Disallow: /moz

User-agent: MultiScan/1.0
Disallow: tmp/
`
	rules := ParseRobots(content, "http://h", "MultiScan")
	assert.Equal(t, []string{
		"http://h/private",
		"http://h/moz",
		"http://h/tmp/",
	}, rules)
}

func TestLoadRobots(t *testing.T) {
	ctx := context.Background()

	t.Run("200时加载规则", func(t *testing.T) {
		tr := newMockTransport()
		tr.set("http://h/robots.txt", textPage(200, "text/plain", "User-agent: *\nDisallow: /admin\n"))
		policy := NewExclusionPolicy(nil)
		policy.LoadRobots(ctx, tr, "http://h", nil, "ua", time.Second)
		assert.Equal(t, []string{"http://h/admin"}, policy.RobotsRules())
		assert.True(t, policy.IsExcluded("http://h/admin/panel"))
	})

	t.Run("非200时规则为空", func(t *testing.T) {
		tr := newMockTransport()
		policy := NewExclusionPolicy(nil)
		policy.LoadRobots(ctx, tr, "http://h/app", nil, "ua", time.Second)
		assert.Empty(t, policy.RobotsRules())
		assert.Equal(t, 1, tr.callCount("http://h/robots.txt"))
	})

	t.Run("传输错误时规则为空", func(t *testing.T) {
		tr := newMockTransport()
		tr.fail["http://h/robots.txt"] = true
		policy := NewExclusionPolicy(nil)
		policy.LoadRobots(ctx, tr, "http://h", nil, "ua", time.Second)
		assert.Empty(t, policy.RobotsRules())
	})

	t.Run("空响应时规则为空", func(t *testing.T) {
		tr := newMockTransport()
		tr.empty["http://h/robots.txt"] = true
		policy := NewExclusionPolicy(nil)
		assert.NotPanics(t, func() {
			policy.LoadRobots(ctx, tr, "http://h", nil, "ua", time.Second)
		})
		assert.Empty(t, policy.RobotsRules())
	})

	t.Run("传输异常时规则为空", func(t *testing.T) {
		tr := newMockTransport()
		tr.panics["http://h/robots.txt"] = true
		policy := NewExclusionPolicy(nil)
		assert.NotPanics(t, func() {
			policy.LoadRobots(ctx, tr, "http://h", nil, "ua", time.Second)
		})
		assert.Empty(t, policy.RobotsRules())
	})
}
