package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"multiscan/pkg/types"
)

var csvHeader = []string{"URL", "Status", "ContentLength", "DirectoryListing", "Source", "Note"}

// CSVReporter 逐条写入扫描记录，可被多个协程并发调用
type CSVReporter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	path   string
	closed bool
}

// NewCSVReporter 创建（或截断）CSV文件并写入表头
func NewCSVReporter(outputPath string) (*CSVReporter, error) {
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return nil, fmt.Errorf("输出路径为空")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	r := &CSVReporter{
		file:   f,
		writer: csv.NewWriter(f),
		path:   outputPath,
	}
	if err := r.writer.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("写入CSV表头失败: %w", err)
	}
	return r, nil
}

func (r *CSVReporter) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// WriteFinding 写入一条记录
func (r *CSVReporter) WriteFinding(url string, rec types.FindingRecord) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("csv reporter 已关闭")
	}

	return r.writer.Write([]string{
		url,
		rec.Status.String(),
		strconv.Itoa(rec.ContentLength),
		strconv.FormatBool(rec.DirectoryListing),
		string(rec.Source),
		rec.Note,
	})
}

func (r *CSVReporter) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.writer.Flush()
	werr := r.writer.Error()
	syncErr := r.file.Sync()
	closeErr := r.file.Close()

	if werr != nil {
		return werr
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

// GenerateCSVReport 按URL顺序输出全部尝试记录
func GenerateCSVReport(rep *Report, outputPath string) (string, error) {
	if rep == nil {
		return "", fmt.Errorf("报告为空")
	}

	reporter, err := NewCSVReporter(outputPath)
	if err != nil {
		return "", err
	}

	for _, p := range rep.AllPaths {
		status := types.Status{Label: p.StatusCode}
		if code, err := strconv.Atoi(p.StatusCode); err == nil {
			status = types.HTTPStatus(code)
		}
		rec := types.FindingRecord{
			Status:           status,
			ContentLength:    p.ContentLength,
			DirectoryListing: p.DirectoryListing,
			Note:             p.Note,
			Source:           types.Source(p.Source),
		}
		if err := reporter.WriteFinding(p.URL, rec); err != nil {
			_ = reporter.Close()
			return "", err
		}
	}

	if err := reporter.Close(); err != nil {
		return "", err
	}
	return reporter.Path(), nil
}
