package dirscan

import (
	"regexp"

	"multiscan/pkg/types"
)

// 目录列表页面特征，均不区分大小写
var directoryListingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Index of /`),
	regexp.MustCompile(`(?i)<title>Index of .*?</title>`),
	regexp.MustCompile(`(?i)Parent Directory`),
	regexp.MustCompile(`(?i)\[To Parent Directory\]`),
	regexp.MustCompile(`(?i)Directory Listing For /`),
	regexp.MustCompile(`(?i)<h1>Index of .*?</h1>`),
}

// DirectoryListingAnalyzer 判断响应是否为服务器自动生成的目录列表
type DirectoryListingAnalyzer struct {
	patterns []*regexp.Regexp
}

// NewDirectoryListingAnalyzer 使用内置特征创建分析器
func NewDirectoryListingAnalyzer() *DirectoryListingAnalyzer {
	return &DirectoryListingAnalyzer{patterns: directoryListingPatterns}
}

// IsListing 仅对 200 且 Content-Type 含 text/html 的响应做特征匹配
func (a *DirectoryListingAnalyzer) IsListing(resp *types.HTTPResponse) bool {
	if resp == nil || resp.StatusCode != 200 || !resp.IsHTML() {
		return false
	}
	return a.MatchContent(resp.BodyText())
}

// MatchContent 文本是否命中任一目录列表特征
func (a *DirectoryListingAnalyzer) MatchContent(content string) bool {
	for _, re := range a.patterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}
