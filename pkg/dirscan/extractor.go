package dirscan

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"multiscan/pkg/utils/logger"
	"multiscan/pkg/utils/shared"
)

// EndpointExtractor 从JS源码中挖掘候选API地址
type EndpointExtractor interface {
	Extract(scriptBody, scriptURL string) []string
}

// 按调用形态匹配的字符串字面量，第一个分组为候选路径
var endpointPatterns = []*regexp.Regexp{
	// fetch('/api/x')
	regexp.MustCompile(`fetch\s*\(\s*['"]((?:[^'"\s]|\\')+)['"]`),
	// axios.get('/api/x')
	regexp.MustCompile(`axios\.(?:get|post|put|delete|request)\s*\(\s*['"]((?:[^'"\s]|\\')+)['"]`),
	// 含 api / v1 / rest / service / data / user / auth 段的路径
	regexp.MustCompile(`['"]((?:/[a-zA-Z0-9_.-]+)*(?:/(api|v\d+|rest|service|data|user|auth)\S*?))['"]`),
	// 两段及以上的根路径
	regexp.MustCompile(`['"](/[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+(?:[?#]\S*)?)['"]`),
}

// RegexEndpointExtractor 基于正则的启发式提取器
type RegexEndpointExtractor struct {
	target     *url.URL
	targetHost string
	static     *shared.FileExtensionChecker
}

// NewRegexEndpointExtractor 所有候选都会被限定到目标主机
func NewRegexEndpointExtractor(targetURL string) *RegexEndpointExtractor {
	target, err := url.Parse(targetURL)
	if err != nil {
		target = &url.URL{}
	}
	return &RegexEndpointExtractor{
		target:     target,
		targetHost: strings.ToLower(target.Host),
		static:     shared.NewFileExtensionChecker(),
	}
}

// Extract 返回去重并排序后的候选URL
func (e *RegexEndpointExtractor) Extract(scriptBody, scriptURL string) []string {
	if scriptBody == "" {
		return nil
	}

	candidates := make(map[string]struct{})
	for _, re := range endpointPatterns {
		for _, m := range re.FindAllStringSubmatch(scriptBody, -1) {
			if resolved, ok := e.resolve(m[1], scriptURL); ok {
				candidates[resolved] = struct{}{}
			}
		}
	}

	endpoints := make(map[string]struct{})
	for c := range candidates {
		if ep, ok := e.qualify(c); ok {
			endpoints[ep] = struct{}{}
		}
	}

	out := make([]string, 0, len(endpoints))
	for ep := range endpoints {
		out = append(out, ep)
	}
	sort.Strings(out)
	if len(out) > 0 {
		logger.Debugf("JS解析 %s: 发现 %d 个候选接口", scriptURL, len(out))
	}
	return out
}

// resolve 将原始匹配解析为绝对URL
func (e *RegexEndpointExtractor) resolve(raw, scriptURL string) (string, bool) {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "//"):
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || strings.ToLower(u.Host) != e.targetHost {
			return "", false
		}
		return e.onTarget(u.EscapedPath())
	case strings.HasPrefix(raw, "/"):
		return e.onTarget(raw)
	default:
		if strings.ContainsAny(raw, "<>{}") {
			return "", false
		}
		resolved := shared.ResolveReference(scriptURL, raw)
		return resolved, resolved != ""
	}
}

func (e *RegexEndpointExtractor) onTarget(ref string) (string, bool) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return e.target.ResolveReference(r).String(), true
}

// qualify 丢弃静态资源与过短路径，并重新限定到目标主机（去掉查询串与片段）
func (e *RegexEndpointExtractor) qualify(candidate string) (string, bool) {
	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	p := u.EscapedPath()
	if len(p) <= 3 || e.static.IsStaticFile(p) {
		return "", false
	}
	ep, ok := e.onTarget(p)
	if !ok || !strings.EqualFold(shared.HostOf(ep), e.targetHost) {
		return "", false
	}
	return ep, true
}
