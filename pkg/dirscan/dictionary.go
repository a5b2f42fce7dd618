package dirscan

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"multiscan/pkg/utils/logger"
)

// DefaultGeneralWordlist 未指定字典时使用的通用路径
var DefaultGeneralWordlist = []string{
	"admin", "backup", "config", "logs", "test", "phpmyadmin", "wp-admin",
}

// APIWordlist 对JS挖掘出的接口根地址做二次探测的固定字典
// 首项为空串，用于探测根地址自身的尾斜杠形式
var APIWordlist = []string{
	"", "users", "user", "items", "products", "orders", "cart", "auth",
	"login", "logout", "register", "profile", "settings", "config",
	"status", "health", "ping", "api-docs", "swagger", "openapi",
	"graphql", "v1", "v2", "v3", "test", "dev", "prod", "data",
	"metrics", "logs", "admin", "management", "payment", "search",
	"notifications",
}

// 字典编辑操作类型
const (
	OperationAdd    = "add"
	OperationRemove = "remove"
)

// WordlistOperation 对字典的增删操作
type WordlistOperation struct {
	Type  string   `json:"type" yaml:"type"`
	Paths []string `json:"paths" yaml:"paths"`
}

// LoadWordlistFiles 依次读取字典文件并合并去重，单个文件失败只记录警告
func LoadWordlistFiles(paths []string) ([]string, error) {
	var entries []string
	var warnings []string

	logger.Debugf("开始加载字典文件，共 %d 个文件", len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		dictEntries, lineCount, commentCount, err := readWordlist(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		entries = append(entries, dictEntries...)
		logger.Debugf("字典文件加载完成: %s, 总行数 %d, 注释行 %d, 有效条目 %d",
			path, lineCount, commentCount, len(dictEntries))
	}

	if len(warnings) > 0 {
		logger.Warnf("字典加载警告: %s", strings.Join(warnings, "; "))
	}
	if len(entries) == 0 && len(warnings) > 0 {
		return nil, fmt.Errorf("未能加载任何字典文件: %s", strings.Join(warnings, "; "))
	}
	return DedupWords(entries), nil
}

func readWordlist(path string) ([]string, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("打开字典文件失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	entries := make([]string, 0, 1000)
	lineCount := 0
	commentCount := 0

	for scanner.Scan() {
		lineCount++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "#") {
				commentCount++
			}
			continue
		}
		entries = append(entries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, lineCount, commentCount, fmt.Errorf("读取字典文件失败: %w", err)
	}

	return entries, lineCount, commentCount, nil
}

// DedupWords 去重并保持首次出现的顺序
func DedupWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// ApplyOperations 按顺序应用增删操作；新增的路径补齐尾部斜杠
func ApplyOperations(words []string, ops []WordlistOperation) []string {
	result := DedupWords(words)
	for _, op := range ops {
		switch strings.ToLower(strings.TrimSpace(op.Type)) {
		case OperationAdd:
			for _, p := range op.Paths {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				if !strings.HasSuffix(p, "/") {
					p += "/"
				}
				result = append(result, p)
			}
			result = DedupWords(result)
		case OperationRemove:
			drop := make(map[string]struct{}, len(op.Paths))
			for _, p := range op.Paths {
				drop[strings.TrimSpace(p)] = struct{}{}
			}
			kept := result[:0]
			for _, w := range result {
				if _, ok := drop[w]; !ok {
					kept = append(kept, w)
				}
			}
			result = kept
		default:
			logger.Warnf("未知的字典操作类型: %s", op.Type)
		}
	}
	return result
}
