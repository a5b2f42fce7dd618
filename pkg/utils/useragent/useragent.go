package useragent

import "strings"

// Profile 扫描模式对应的请求头画像
type Profile struct {
	UserAgent string
	Headers   map[string]string
}

const (
	ModeNormal  = "normal"
	ModeDarkweb = "darkweb"
)

var (
	normalUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"
	darkwebUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:91.0) Gecko/20100101 Firefox/91.0"
)

// ForMode 返回模式对应的画像，未知模式按 normal 处理
// darkweb 模式模拟 Tor Browser 的默认请求头
func ForMode(mode string) Profile {
	if strings.EqualFold(strings.TrimSpace(mode), ModeDarkweb) {
		return Profile{
			UserAgent: darkwebUserAgent,
			Headers: map[string]string{
				"Accept-Language": "en-US,en;q=0.5",
				"DNT":             "1",
			},
		}
	}
	return Profile{UserAgent: normalUserAgent, Headers: map[string]string{}}
}

// Primary 默认 User-Agent
func Primary() string {
	return normalUserAgent
}
