package formatter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	urlColor       = color.New(color.FgGreen)
	successColor   = color.New(color.FgGreen, color.Bold)
	deniedColor    = color.New(color.FgHiRed, color.Bold)
	warnColor      = color.New(color.FgYellow, color.Bold)
	labelColor     = color.New(color.FgMagenta)
	sourceColor    = color.New(color.FgCyan)
	listingColor   = color.New(color.FgRed, color.Bold)
	dimColor       = color.New(color.Faint)
	boldColor      = color.New(color.Bold)
	frameworkColor = color.New(color.FgHiCyan)
)

// SetColorEnabled 控制全局颜色输出
func SetColorEnabled(enabled bool) {
	color.NoColor = !enabled
}

// ColorsEnabled 返回当前颜色输出状态（终端不支持时 fatih/color 会自动关闭）
func ColorsEnabled() bool {
	return !color.NoColor
}

// FormatURL 格式化URL显示，超长时截断并右侧填充对齐
func FormatURL(url string) string {
	displayURL := url
	if len(url) > 70 {
		displayURL = url[:67] + "..."
	}
	padding := 0
	if len(displayURL) < 70 {
		padding = 70 - len(displayURL)
	}
	return urlColor.Sprint(displayURL) + strings.Repeat(" ", padding)
}

// FormatFullURL 不截断的URL
func FormatFullURL(url string) string {
	return urlColor.Sprint(url)
}

// FormatStatusCode 根据状态码类别着色
func FormatStatusCode(statusCode int) string {
	statusStr := fmt.Sprintf("[%d]", statusCode)
	switch {
	case statusCode == 200:
		return successColor.Sprint(statusStr)
	case statusCode == 401 || statusCode == 403:
		return deniedColor.Sprint(statusStr)
	case statusCode == 404 || (statusCode >= 500 && statusCode < 600):
		return warnColor.Sprint(statusStr)
	default:
		return boldColor.Sprint(statusStr)
	}
}

// FormatStatusLabel 特殊状态标记（EXCLUDED 等）
func FormatStatusLabel(label string) string {
	return labelColor.Sprintf("[%s]", label)
}

// FormatSource 记录来源
func FormatSource(source string) string {
	return sourceColor.Sprintf("(%s)", source)
}

// FormatListing 目录列表标记
func FormatListing() string {
	return listingColor.Sprint("[DIR-LISTING]")
}

// FormatNote 备注信息（暗淡显示）
func FormatNote(note string) string {
	return dimColor.Sprint(note)
}

// FormatFramework 框架提示
func FormatFramework(hint string) string {
	return frameworkColor.Sprint(hint)
}

// FormatBold 加粗
func FormatBold(s string) string {
	return boldColor.Sprint(s)
}

// FormatNumber 格式化数字
func FormatNumber(num int) string {
	return boldColor.Sprint(num)
}

// FormatContentLength 格式化内容长度
func FormatContentLength(length int) string {
	return fmt.Sprintf("[%d]", length)
}
