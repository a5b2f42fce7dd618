package httpclient

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"multiscan/pkg/utils/logger"

	"github.com/valyala/fasthttp"
	"golang.org/x/net/proxy"
)

// DefaultTorProxy Tor 本地 SOCKS 端口，socks5h 由代理端解析域名（.onion 必需）
const DefaultTorProxy = "socks5h://127.0.0.1:9050"

// FasthttpDialerFactory 根据代理URL创建 fasthttp 的 Dial 函数
// 支持 socks5/socks5h 与 http(s) CONNECT 隧道
func FasthttpDialerFactory(proxyURL string, connectTimeout time.Duration) (fasthttp.DialFunc, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("无效的代理URL %s: %w", proxyURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
		forward := &net.Dialer{Timeout: connectTimeout}
		dialer, err := proxy.FromURL(u, forward)
		if err != nil {
			return nil, fmt.Errorf("SOCKS5代理初始化失败: %w", err)
		}
		logger.Debugf("使用SOCKS5代理: %s", u.Redacted())
		return func(addr string) (net.Conn, error) {
			return dialer.Dial("tcp", addr)
		}, nil

	case "http":
		logger.Debugf("使用HTTP代理(CONNECT模式): %s", u.Redacted())
		return connectDialer(u, connectTimeout, nil), nil
	case "https":
		logger.Debugf("使用HTTPS代理(CONNECT模式): %s", u.Redacted())
		return connectDialer(u, connectTimeout, &tls.Config{ServerName: u.Hostname()}), nil
	}

	return nil, fmt.Errorf("不支持的代理协议: %s", u.Scheme)
}

// proxyAddress 代理地址，未指定端口时 http 用 80，https 用 443
func proxyAddress(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if strings.EqualFold(u.Scheme, "https") {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// connectDialer CONNECT 隧道拨号器，tlsConfig 非空时先与代理建立TLS
func connectDialer(u *url.URL, connectTimeout time.Duration, tlsConfig *tls.Config) fasthttp.DialFunc {
	proxyAddr := proxyAddress(u)

	var authHeader string
	if u.User != nil {
		password, _ := u.User.Password()
		auth := u.User.Username() + ":" + password
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
	}

	return func(addr string) (net.Conn, error) {
		conn, err := net.DialTimeout("tcp", proxyAddr, connectTimeout)
		if err != nil {
			return nil, err
		}
		if tlsConfig != nil {
			tlsConn := tls.Client(conn, tlsConfig)
			tlsConn.SetDeadline(time.Now().Add(connectTimeout))
			if err := tlsConn.Handshake(); err != nil {
				conn.Close()
				return nil, fmt.Errorf("代理TLS握手失败: %w", err)
			}
			tlsConn.SetDeadline(time.Time{})
			conn = tlsConn
		}

		req := "CONNECT " + addr + " HTTP/1.1\r\nHost: " + addr + "\r\n"
		if authHeader != "" {
			req += "Proxy-Authorization: " + authHeader + "\r\n"
		}
		req += "\r\n"

		if _, err := conn.Write([]byte(req)); err != nil {
			conn.Close()
			return nil, err
		}

		reader := bufio.NewReader(conn)
		statusLine, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, err
		}
		if !strings.Contains(statusLine, " 200") {
			conn.Close()
			return nil, fmt.Errorf("代理连接失败: %s", strings.TrimSpace(statusLine))
		}

		// 消耗剩余头部直到空行
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				conn.Close()
				return nil, err
			}
			if line == "\r\n" || line == "\n" {
				break
			}
		}

		if reader.Buffered() > 0 {
			return &bufferedConn{Conn: conn, r: reader}, nil
		}
		return conn, nil
	}
}

// bufferedConn 握手阶段多读到的数据需要先交还给调用方
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
