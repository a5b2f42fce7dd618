package dirscan

import (
	"fmt"

	"multiscan/pkg/types"
)

// 固定说明文本
const (
	NoteExcluded   = "URL excluded by configuration or robots.txt."
	NoteNoResponse = "Failed to fetch URL (request error or excluded by fetch_url)."
)

// ScanNote 字典扫描结果说明，js_api 与页面来源使用不同措辞
func ScanNote(source types.Source, status int, listing bool) string {
	if source == types.SourceJSAPI {
		switch status {
		case 200:
			return "API endpoint/path responded (200)."
		case 401:
			return "API endpoint/path requires authentication (401)."
		case 403:
			return "API endpoint/path access denied (403)."
		case 404:
			return "API endpoint/path not found (404)."
		case 405:
			return "API endpoint/path - Method Not Allowed (405)."
		}
		return fmt.Sprintf("Scan attempted. Status: %d", status)
	}

	switch status {
	case 200:
		if listing {
			return "Directory listing found (200)."
		}
		return "Path found (200)."
	case 401:
		return "Authentication required (401)."
	case 403:
		return "Access denied (403)."
	case 404:
		return "Not found (404)."
	case 405:
		return "Method not allowed (405)."
	}
	return fmt.Sprintf("Scan attempted. Status: %d", status)
}

// CrawlNote 爬取页面记录说明
func CrawlNote(status int, listing bool) string {
	switch status {
	case 200:
		if listing {
			return "Crawled path with directory listing found (200)."
		}
		return "Crawled path found (200)."
	case 403:
		return "Crawled path access denied (403)."
	}
	return fmt.Sprintf("Crawled path. Status: %d", status)
}

// TargetNote 扫描目标根地址记录说明
func TargetNote(status int, listing bool) string {
	switch status {
	case 200:
		if listing {
			return "Initial target with directory listing found (200)."
		}
		return "Initial target found (200)."
	case 403:
		return "Initial target access denied (403)."
	}
	return fmt.Sprintf("Initial target. Status: %d", status)
}

// APIBaseNote JS挖掘出的接口根地址记录说明
func APIBaseNote(status int) string {
	switch status {
	case 200:
		return "JS Discovered API Base found (200)."
	case 401:
		return "JS Discovered API Base requires authentication (401)."
	case 403:
		return "JS Discovered API Base access denied (403)."
	case 404:
		return "JS Discovered API Base - Not Found (404)."
	case 405:
		return "JS Discovered API Base - Method Not Allowed (405)."
	}
	return fmt.Sprintf("JS Discovered API Base. Status: %d", status)
}

// TaskErrorNote worker 异常说明
func TaskErrorNote(word string, err interface{}) string {
	return fmt.Sprintf("Internal error during scan attempt for %s: %v", word, err)
}

// recordableAPIBaseStatus 需要写入记录的接口根地址状态码
var recordableAPIBaseStatus = map[int]struct{}{
	200: {}, 400: {}, 401: {}, 403: {}, 404: {}, 405: {}, 500: {},
}
