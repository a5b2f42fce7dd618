package shared

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"

	"multiscan/pkg/utils/logger"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

type decoderFunc func(io.Reader) (io.Reader, error)

// 按 Content-Encoding 中出现的标记匹配，顺序即优先级
var bodyDecoders = []struct {
	token string
	open  decoderFunc
}{
	{"gzip", func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }},
	{"deflate", func(r io.Reader) (io.Reader, error) { return flate.NewReader(r), nil }},
	{"br", func(r io.Reader) (io.Reader, error) { return brotli.NewReader(r), nil }},
}

// DecompressByEncoding 根据 Content-Encoding 对响应体解压，失败时返回原始数据
func DecompressByEncoding(data []byte, contentEncoding string) []byte {
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	if len(data) == 0 || enc == "" || enc == "identity" {
		return data
	}

	for _, d := range bodyDecoders {
		if !strings.Contains(enc, d.token) {
			continue
		}
		r, err := d.open(bytes.NewReader(data))
		if err != nil {
			logger.Debugf("%s解压失败: %v, 返回原始内容", d.token, err)
			return data
		}
		out, err := io.ReadAll(r)
		if closer, ok := r.(io.Closer); ok {
			closer.Close()
		}
		if err != nil {
			logger.Debugf("%s读取失败: %v, 返回原始内容", d.token, err)
			return data
		}
		return out
	}

	logger.Debugf("不支持的压缩格式: %s", enc)
	return data
}

// DecodeCharset 按 Content-Type 与 <meta charset> 将文本响应转为 UTF-8
// 非文本类型或识别失败时返回原始数据
func DecodeCharset(data []byte, contentType string) []byte {
	if len(data) == 0 || !isTextual(contentType) {
		return data
	}
	enc, name, _ := charset.DetermineEncoding(data, contentType)
	if enc == nil || name == "utf-8" {
		return data
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		logger.Debugf("字符集转换失败 (%s): %v", name, err)
		return data
	}
	return out
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return false
	}
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "javascript") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "json")
}
