package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"multiscan/pkg/dirscan"
	"multiscan/pkg/types"
)

// Metadata 扫描参数与时间信息
type Metadata struct {
	Targets              []string
	MaxDepth             int
	RespectRobots        bool
	CredentialsProvided  bool
	Exclusions           []string
	UseDefaultDictionary bool
	DictionaryOperations []dirscan.WordlistOperation
	StartTime            time.Time
	EndTime              time.Time
}

// PathDetail 单条尝试记录
type PathDetail struct {
	URL              string `json:"url"`
	StatusCode       string `json:"status_code"`
	ContentLength    int    `json:"content_length"`
	DirectoryListing bool   `json:"directory_listing"`
	Note             string `json:"note"`
	Source           string `json:"source"`
}

// SuccessfulPath 200/403 的路径
type SuccessfulPath struct {
	URL              string       `json:"url"`
	StatusCode       types.Status `json:"status_code"`
	ContentLength    int          `json:"content_length"`
	DirectoryListing bool         `json:"directory_listing"`
}

// DictionarySettings 字典来源
type DictionarySettings struct {
	UseDefaultDictionary bool                        `json:"use_default_dictionary"`
	DictionaryOperations []dirscan.WordlistOperation `json:"dictionary_operations"`
}

// Report 完整扫描报告
type Report struct {
	CompletedAt         string                      `json:"scan_completed_timestamp"`
	DurationSeconds     float64                     `json:"scan_duration_seconds"`
	TargetsCount        int                         `json:"targets_scanned_count"`
	Targets             []string                    `json:"targets_list"`
	MaxDepth            int                         `json:"max_depth"`
	RespectRobots       bool                        `json:"respect_robots_txt"`
	CredentialsProvided bool                        `json:"credentials_provided"`
	Exclusions          []string                    `json:"exclusions_list"`
	CheckedPathsCount   int                         `json:"checked_paths_count"`
	AllPaths            []PathDetail                `json:"all_attempted_paths_details"`
	SuccessfulCount     int                         `json:"successful_directories_count"`
	SuccessfulPaths     []SuccessfulPath            `json:"successful_directories_list"`
	DictionarySettings  DictionarySettings          `json:"dictionary_settings"`
	ServerInfo          map[string]types.ServerInfo `json:"server_info,omitempty"`
}

// Summary 控制台与API使用的汇总
type Summary struct {
	Targets           int     `json:"targets"`
	TotalPaths        int     `json:"total_paths"`
	SuccessfulPaths   int     `json:"successful_paths"`
	DirectoryListings int     `json:"directory_listings"`
	DurationSeconds   float64 `json:"duration"`
}

// IsSuccessful 状态码为 200 或 403 视为发现
func IsSuccessful(rec types.FindingRecord) bool {
	return rec.Status.Code == 200 || rec.Status.Code == 403
}

// SortedURLs 按URL排序，保证报告输出稳定
func SortedURLs(findings map[string]types.FindingRecord) []string {
	urls := make([]string, 0, len(findings))
	for u := range findings {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Summarize 统计发现数量
func Summarize(findings map[string]types.FindingRecord, targets int, duration time.Duration) Summary {
	s := Summary{
		Targets:         targets,
		TotalPaths:      len(findings),
		DurationSeconds: roundSeconds(duration),
	}
	for _, rec := range findings {
		if IsSuccessful(rec) {
			s.SuccessfulPaths++
		}
		if rec.DirectoryListing {
			s.DirectoryListings++
		}
	}
	return s
}

// BuildReport 组装报告
func BuildReport(findings map[string]types.FindingRecord, serverInfo map[string]types.ServerInfo, meta Metadata) *Report {
	urls := SortedURLs(findings)
	r := &Report{
		CompletedAt:         meta.EndTime.UTC().Format(time.RFC3339),
		DurationSeconds:     roundSeconds(meta.EndTime.Sub(meta.StartTime)),
		TargetsCount:        len(meta.Targets),
		Targets:             nonNil(meta.Targets),
		MaxDepth:            meta.MaxDepth,
		RespectRobots:       meta.RespectRobots,
		CredentialsProvided: meta.CredentialsProvided,
		Exclusions:          nonNil(meta.Exclusions),
		CheckedPathsCount:   len(findings),
		AllPaths:            make([]PathDetail, 0, len(urls)),
		SuccessfulPaths:     make([]SuccessfulPath, 0),
		DictionarySettings: DictionarySettings{
			UseDefaultDictionary: meta.UseDefaultDictionary,
			DictionaryOperations: meta.DictionaryOperations,
		},
		ServerInfo: serverInfo,
	}
	if r.DictionarySettings.DictionaryOperations == nil {
		r.DictionarySettings.DictionaryOperations = []dirscan.WordlistOperation{}
	}

	for _, u := range urls {
		rec := findings[u]
		note := rec.Note
		if note == "" {
			note = "No specific note."
		}
		r.AllPaths = append(r.AllPaths, PathDetail{
			URL:              u,
			StatusCode:       rec.Status.String(),
			ContentLength:    rec.ContentLength,
			DirectoryListing: rec.DirectoryListing,
			Note:             note,
			Source:           string(rec.Source),
		})
		if IsSuccessful(rec) {
			r.SuccessfulPaths = append(r.SuccessfulPaths, SuccessfulPath{
				URL:              u,
				StatusCode:       rec.Status,
				ContentLength:    rec.ContentLength,
				DirectoryListing: rec.DirectoryListing,
			})
		}
	}
	r.SuccessfulCount = len(r.SuccessfulPaths)
	return r
}

// Write 根据扩展名选择输出格式：.json / .xlsx / .csv
func Write(r *Report, outputPath string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("报告为空")
	}
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".json":
		return WriteJSONReport(r, outputPath)
	case ".xlsx":
		return GenerateExcelReport(r, outputPath)
	case ".csv":
		return GenerateCSVReport(r, outputPath)
	default:
		return "", fmt.Errorf("不支持的报告格式: %s", outputPath)
	}
}

func roundSeconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d.Round(time.Millisecond)) / float64(time.Second)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
