package fingerprint

import (
	"sort"
	"sync"

	"multiscan/pkg/utils/logger"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

// TechnologyDetector 根据响应头与响应体识别技术栈
type TechnologyDetector interface {
	Detect(headers map[string][]string, body []byte) []string
}

// WappalyzerDetector 基于 wappalyzergo 内置指纹库
type WappalyzerDetector struct {
	client *wappalyzer.Wappalyze
}

var (
	sharedDetector     *WappalyzerDetector
	sharedDetectorErr  error
	sharedDetectorOnce sync.Once
)

// DefaultTechnologyDetector 返回进程内共享的检测器，指纹库只加载一次
// 加载失败时返回 nil，调用方跳过技术栈识别
func DefaultTechnologyDetector() TechnologyDetector {
	sharedDetectorOnce.Do(func() {
		client, err := wappalyzer.New()
		if err != nil {
			sharedDetectorErr = err
			return
		}
		sharedDetector = &WappalyzerDetector{client: client}
	})
	if sharedDetectorErr != nil {
		logger.Warnf("技术栈指纹库加载失败: %v", sharedDetectorErr)
		return nil
	}
	return sharedDetector
}

// Detect 返回排序后的技术名称列表
func (d *WappalyzerDetector) Detect(headers map[string][]string, body []byte) []string {
	if d == nil || d.client == nil {
		return nil
	}
	found := d.client.Fingerprint(headers, body)
	if len(found) == 0 {
		return nil
	}
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
