package report

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GenerateJSON 序列化报告（仅负责序列化，不做文件 IO）
func GenerateJSON(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON序列化失败: %w", err)
	}
	return string(data), nil
}

// WriteJSONReport 写入 JSON 报告文件
func WriteJSONReport(r *Report, outputPath string) (string, error) {
	content, err := GenerateJSON(r)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("写入JSON报告失败: %w", err)
	}
	return outputPath, nil
}
