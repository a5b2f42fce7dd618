package api

import (
	"errors"
	"net/http"
	"strings"

	"multiscan/internal/scheduler"
	"multiscan/pkg/dirscan"
	report "multiscan/pkg/reporter"
	"multiscan/pkg/types"
	"multiscan/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ScanRequest POST /scan 请求体
type ScanRequest struct {
	TargetURLs           []string                    `json:"target_urls"`
	TargetURL            string                      `json:"target_url"`
	Mode                 string                      `json:"mode"`
	Exclusions           []string                    `json:"exclusions"`
	MaxDepth             *int                        `json:"max_depth"`
	RespectRobotsTxt     *bool                       `json:"respect_robots_txt"`
	Dictionary           []string                    `json:"dictionary"`
	DictionaryOperations []dirscan.WordlistOperation `json:"dictionary_operations"`
	UseDefaultDictionary *bool                       `json:"use_default_dictionary"`
	SessionCookiesString *string                     `json:"session_cookies_string"`
}

// ScanResponse POST /scan 响应体
type ScanResponse struct {
	ScanID     string                          `json:"scan_id"`
	Result     map[string]types.FindingRecord `json:"result"`
	ServerInfo map[string]types.ServerInfo    `json:"server_info"`
	Summary    report.Summary                  `json:"summary"`
	Errors     map[string]string               `json:"errors,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// targets 合并 target_urls 与 target_url
func (r *ScanRequest) targets() []string {
	out := make([]string, 0, len(r.TargetURLs)+1)
	out = append(out, r.TargetURLs...)
	if strings.TrimSpace(r.TargetURL) != "" {
		out = append(out, r.TargetURL)
	}
	return out
}

// wordlist 默认字典（或请求中的 dictionary）叠加增删操作
func (r *ScanRequest) wordlist(defaults []string) []string {
	useDefault := r.UseDefaultDictionary == nil || *r.UseDefaultDictionary
	var words []string
	switch {
	case len(r.Dictionary) > 0:
		words = r.Dictionary
	case useDefault:
		words = defaults
	}
	return dirscan.ApplyOperations(append([]string(nil), words...), r.DictionaryOperations)
}

func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "请求体解析失败: " + err.Error()})
		return
	}

	targets := req.targets()
	if len(targets) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "target_urls 或 target_url 不能为空"})
		return
	}

	maxDepth := dirscan.DefaultMaxDepth
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}
	if maxDepth < 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "max_depth 不能为负数"})
		return
	}

	opts := s.config.Scan.EngineOptions()
	if req.Mode != "" {
		opts.Mode = req.Mode
	}
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", dirscan.ModeNormal, dirscan.ModeDarkweb:
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "未知的扫描模式: " + req.Mode})
		return
	}
	opts.Exclusions = append(opts.Exclusions, req.Exclusions...)
	if req.RespectRobotsTxt != nil {
		opts.IgnoreRobots = !*req.RespectRobotsTxt
	}
	if req.SessionCookiesString != nil {
		opts.SessionCookies = strings.TrimSpace(*req.SessionCookiesString)
	}
	opts.Wordlist = req.wordlist(s.wordlist)
	opts.Transport = s.transport

	scanID := uuid.New().String()
	logger.Infof("收到扫描请求 [%s]: %d 个目标, 深度 %d, 字典 %d 条", scanID, len(targets), maxDepth, len(opts.Wordlist))

	ts := scheduler.NewTargetScheduler(targets, opts, maxDepth, s.config.Scan.TargetConcurrency)
	ts.SetHostFilter(s.config.Hosts.IsHostAllowed)

	outcome, err := ts.Execute(c.Request.Context())
	if err != nil {
		logger.Errorf("扫描 [%s] 失败: %v", scanID, err)
		status := http.StatusInternalServerError
		if outcome == nil {
			status = http.StatusBadRequest
		}
		c.JSON(status, errorResponse{Detail: err.Error()})
		return
	}

	failures := make(map[string]string)
	invalid := 0
	for _, res := range outcome.Results {
		if res.Err == nil {
			continue
		}
		failures[res.Target] = res.Err.Error()
		if errors.Is(res.Err, dirscan.ErrInvalidTarget) || errors.Is(res.Err, dirscan.ErrInvalidMode) {
			invalid++
		}
	}
	if invalid == len(outcome.Results) {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "没有合法的扫描目标"})
		return
	}

	resp := ScanResponse{
		ScanID:     scanID,
		Result:     outcome.Findings,
		ServerInfo: outcome.ServerInfo,
		Summary:    report.Summarize(outcome.Findings, len(outcome.Targets), outcome.Duration()),
	}
	if len(failures) > 0 {
		resp.Errors = failures
	}
	logger.Infof("扫描 [%s] 完成: 记录 %d 条, 发现 %d 条", scanID, resp.Summary.TotalPaths, resp.Summary.SuccessfulPaths)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDefaultDictionary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"dictionary":     s.wordlist,
		"api_dictionary": dirscan.APIWordlist,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
