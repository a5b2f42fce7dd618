package shared

import (
	"net/url"
	"strings"
)

// URLValidator URL验证工具
type URLValidator struct{}

// NewURLValidator 创建URL验证器
func NewURLValidator() *URLValidator {
	return &URLValidator{}
}

// IsValidURL 检查URL是否为带主机名的 http/https 地址
func (v *URLValidator) IsValidURL(rawURL string) bool {
	if rawURL == "" || strings.HasPrefix(rawURL, "//") {
		return false
	}
	if strings.ContainsAny(rawURL, " \n\t") {
		return false
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		return false
	}
	return IsHTTPScheme(parsedURL.Scheme)
}

// IsHTTPScheme 协议是否为 http 或 https
func IsHTTPScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}

// HostOf 返回URL的 authority（host[:port]），解析失败返回空串
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SameHost 两个URL的 authority 是否一致
func SameHost(a, b string) bool {
	ha := HostOf(a)
	return ha != "" && ha == HostOf(b)
}

// JoinPath 拼接扫描URL：去掉base尾部与word首部的斜杠后以单个斜杠连接
func JoinPath(base, word string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(word, "/")
}

// ResolveReference 基于base解析相对引用，失败返回空串
func ResolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// FileExtensionChecker 静态资源扩展名检查
type FileExtensionChecker struct {
	extensions []string
}

// 非接口路径的静态资源扩展名
var defaultStaticExtensions = []string{
	".js", ".css", ".html", ".png", ".jpg", ".gif", ".svg", ".woff", ".ttf",
}

// NewFileExtensionChecker 创建扩展名检查器
func NewFileExtensionChecker() *FileExtensionChecker {
	return &FileExtensionChecker{extensions: defaultStaticExtensions}
}

// IsStaticFile 路径是否以静态资源扩展名结尾（大小写不敏感）
func (c *FileExtensionChecker) IsStaticFile(urlPath string) bool {
	lower := strings.ToLower(urlPath)
	for _, ext := range c.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
