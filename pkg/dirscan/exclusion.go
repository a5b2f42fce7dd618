package dirscan

import (
	"bufio"
	"context"
	"net/url"
	"strings"
	"time"

	"multiscan/pkg/utils/logger"
)

// ExclusionPolicy 用户排除项与 robots.txt Disallow 规则的合集
// 构造完成后只读，可被多个worker并发查询
type ExclusionPolicy struct {
	urls         map[string]struct{}
	hosts        map[string]struct{}
	pathPrefixes []string
	robots       []string
}

// NewExclusionPolicy 按原样保存排除项，以 / 开头的同时作为路径前缀
func NewExclusionPolicy(exclusions []string) *ExclusionPolicy {
	p := &ExclusionPolicy{
		urls:  make(map[string]struct{}, len(exclusions)),
		hosts: make(map[string]struct{}, len(exclusions)),
	}
	for _, e := range exclusions {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		p.urls[e] = struct{}{}
		p.hosts[e] = struct{}{}
		if strings.HasPrefix(e, "/") {
			p.pathPrefixes = append(p.pathPrefixes, e)
		}
	}
	return p
}

// IsExcluded 依次检查完整URL、主机、路径前缀、robots前缀，首个命中即返回
func (p *ExclusionPolicy) IsExcluded(rawURL string) bool {
	if p == nil {
		return false
	}
	if _, ok := p.urls[rawURL]; ok {
		return true
	}

	u, err := url.Parse(rawURL)
	if err == nil {
		if _, ok := p.hosts[u.Host]; ok {
			return true
		}
		path := u.Path
		if path == "" {
			path = "/"
		}
		for _, prefix := range p.pathPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}

	return p.disallowedByRobots(rawURL)
}

func (p *ExclusionPolicy) disallowedByRobots(rawURL string) bool {
	for _, prefix := range p.robots {
		if strings.HasPrefix(rawURL, prefix) {
			logger.Debugf("robots.txt 禁止访问: %s", rawURL)
			return true
		}
	}
	return false
}

// RobotsRules 已加载的 Disallow 绝对URL前缀
func (p *ExclusionPolicy) RobotsRules() []string {
	return append([]string(nil), p.robots...)
}

// ===========================================
// robots.txt 解析
// ===========================================

// LoadRobots 拉取 {scheme}://{host}/robots.txt 并合并 Disallow 规则
// 任何失败都只记录日志，规则集保持为空
func (p *ExclusionPolicy) LoadRobots(ctx context.Context, transport Transport, target string, headers map[string]string, userAgent string, timeout time.Duration) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		logger.Warnf("robots.txt 目标地址无效: %s", target)
		return
	}
	origin := u.Scheme + "://" + u.Host
	robotsURL := origin + "/robots.txt"

	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("robots.txt 加载异常: %v", r)
		}
	}()

	logger.Infof("检查 robots.txt: %s", robotsURL)
	resp, err := transport.Get(ctx, robotsURL, headers, timeout)
	if err != nil {
		logger.Warnf("robots.txt 获取失败: %v", err)
		return
	}
	if resp == nil {
		logger.Warnf("robots.txt 响应为空: %s", robotsURL)
		return
	}
	if resp.StatusCode != 200 {
		logger.Infof("robots.txt 不存在或无法访问: %d", resp.StatusCode)
		return
	}

	p.robots = append(p.robots, ParseRobots(resp.BodyText(), origin, userAgent)...)
	logger.Infof("共加载 %d 条 robots.txt Disallow 规则", len(p.robots))
}

// ParseRobots 解析 robots.txt 文本，返回适用分组下解析为绝对URL的 Disallow 前缀
// 适用分组：User-agent 为 *、包含 mozilla（不区分大小写）或包含客户端 User-Agent
func ParseRobots(content, origin, userAgent string) []string {
	base, err := url.Parse(origin)
	if err != nil {
		return nil
	}

	var rules []string
	seen := make(map[string]struct{})
	currentAgent := "*"

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		directive, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		directive = strings.ToLower(strings.TrimSpace(directive))
		value = strings.TrimSpace(value)

		switch directive {
		case "user-agent":
			currentAgent = value
		case "disallow":
			if value == "" || !robotsGroupApplies(currentAgent, userAgent) {
				continue
			}
			ref, err := url.Parse(value)
			if err != nil {
				continue
			}
			rule := base.ResolveReference(ref).String()
			if _, dup := seen[rule]; dup {
				continue
			}
			seen[rule] = struct{}{}
			rules = append(rules, rule)
			logger.Debugf("robots.txt Disallow: %s", rule)
		}
	}
	return rules
}

func robotsGroupApplies(group, userAgent string) bool {
	if group == "*" || strings.Contains(strings.ToLower(group), "mozilla") {
		return true
	}
	return userAgent != "" && strings.Contains(group, userAgent)
}
