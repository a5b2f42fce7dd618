package types

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ===========================================
// 扫描结果公共类型
// ===========================================

// Status 扫描结果状态：HTTP状态码或特殊标记
// Label 非空时表示特殊标记，Code 此时为0
type Status struct {
	Code  int
	Label string
}

const (
	LabelExcluded         = "EXCLUDED"
	LabelNoResponse       = "NO_RESPONSE_OR_ERROR"
	LabelScannerTaskError = "SCANNER_TASK_ERROR"
)

var (
	StatusExcluded         = Status{Label: LabelExcluded}
	StatusNoResponse       = Status{Label: LabelNoResponse}
	StatusScannerTaskError = Status{Label: LabelScannerTaskError}
)

// HTTPStatus 构造HTTP状态码类型的Status
func HTTPStatus(code int) Status {
	return Status{Code: code}
}

// IsHTTP 是否为真实HTTP状态码
func (s Status) IsHTTP() bool {
	return s.Label == ""
}

func (s Status) String() string {
	if s.Label != "" {
		return s.Label
	}
	return strconv.Itoa(s.Code)
}

// MarshalJSON HTTP状态码输出为数字，特殊标记输出为字符串
func (s Status) MarshalJSON() ([]byte, error) {
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return []byte(strconv.Itoa(s.Code)), nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*s = Status{Label: label}
		return nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("无效的状态值: %s", raw)
	}
	*s = Status{Code: code}
	return nil
}

// Source 记录来源
type Source string

const (
	SourceInitial    Source = "initial"
	SourceCrawl      Source = "crawl"
	SourceJSAPI      Source = "js_api"
	SourceJSAPIBase  Source = "js_api_base"
	SourceTargetBase Source = "target_base"
)

// IsPage 页面类来源（需要做目录列表检测）
func (s Source) IsPage() bool {
	return s == SourceInitial || s == SourceCrawl
}

// FindingRecord 单个尝试URL的扫描记录
type FindingRecord struct {
	Status           Status `json:"status"`
	ContentLength    int    `json:"content_length"`
	DirectoryListing bool   `json:"directory_listing"`
	Note             string `json:"note"`
	Source           Source `json:"source"`
}

// ServerInfo 目标服务器信息，首次响应后确定
type ServerInfo struct {
	Server        string   `json:"Server"`
	XPoweredBy    string   `json:"X-Powered-By"`
	FrameworkHint string   `json:"Framework_Hint"`
	Technologies  []string `json:"Technologies,omitempty"`
}

const UnknownValue = "Unknown"

// DefaultServerInfo 未观察到响应时的默认值
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Server:        UnknownValue,
		XPoweredBy:    UnknownValue,
		FrameworkHint: UnknownValue,
	}
}

// HTTPResponse 传输层返回的完整响应
type HTTPResponse struct {
	URL           string              `json:"url"`
	FinalURL      string              `json:"final_url"`
	StatusCode    int                 `json:"status_code"`
	Headers       map[string][]string `json:"headers"`
	Cookies       []*http.Cookie      `json:"-"`
	Body          []byte              `json:"-"`
	Text          string              `json:"-"`
	ContentType   string              `json:"content_type"`
	ContentLength int                 `json:"content_length"`
	Duration      time.Duration       `json:"duration"`
}

// Header 大小写不敏感获取首个头部值
func (r *HTTPResponse) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	if vals, ok := r.Headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	for k, vals := range r.Headers {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// BodyText 返回解码后的文本，传输层未填充时直接使用原始字节
func (r *HTTPResponse) BodyText() string {
	if r == nil {
		return ""
	}
	if r.Text != "" {
		return r.Text
	}
	return string(r.Body)
}

// IsHTML 响应是否为HTML
func (r *HTTPResponse) IsHTML() bool {
	if r == nil {
		return false
	}
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}

// Statistics 单次扫描统计
type Statistics struct {
	TotalRequests    int64 `json:"total_requests"`
	FailedRequests   int64 `json:"failed_requests"`
	ExcludedURLs     int64 `json:"excluded_urls"`
	CrawledPages     int64 `json:"crawled_pages"`
	ScriptsProcessed int64 `json:"scripts_processed"`
	APIBasesFound    int64 `json:"api_bases_found"`
}

// ScanResult 单个目标的扫描结果
type ScanResult struct {
	Target     string                   `json:"target"`
	Mode       string                   `json:"mode"`
	Findings   map[string]FindingRecord `json:"findings"`
	ServerInfo ServerInfo               `json:"server_info"`
	Stats      Statistics               `json:"stats"`
	StartTime  time.Time                `json:"start_time"`
	EndTime    time.Time                `json:"end_time"`
	Duration   time.Duration            `json:"duration"`
}
