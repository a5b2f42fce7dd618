package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"multiscan/internal/core/config"
	"multiscan/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport 已登记的URL返回200页面，其余返回404
type stubTransport struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func newStubTransport(pages map[string]string) *stubTransport {
	return &stubTransport{pages: pages, calls: make(map[string]int)}
}

func (s *stubTransport) Get(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*types.HTTPResponse, error) {
	s.mu.Lock()
	s.calls[rawURL]++
	body, ok := s.pages[rawURL]
	s.mu.Unlock()

	if !ok {
		return &types.HTTPResponse{URL: rawURL, FinalURL: rawURL, StatusCode: 404, ContentType: "text/plain"}, nil
	}
	return &types.HTTPResponse{
		URL:           rawURL,
		FinalURL:      rawURL,
		StatusCode:    200,
		Headers:       map[string][]string{"Content-Type": {"text/html"}, "X-Powered-By": {"Express"}},
		Body:          []byte(body),
		Text:          body,
		ContentType:   "text/html",
		ContentLength: len(body),
	}, nil
}

func (s *stubTransport) count(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[rawURL]
}

func newTestServer(t *testing.T, tr *stubTransport) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	detect := false
	cfg.Scan.DetectTechnologies = &detect

	s, err := NewServer(cfg)
	require.NoError(t, err)
	s.SetTransport(tr)
	return s
}

func postScan(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestScanEndpoint(t *testing.T) {
	tr := newStubTransport(map[string]string{
		"http://h":       `<html><a href="/docs">docs</a></html>`,
		"http://h/admin": "<html><title>Index of /admin</title></html>",
	})
	s := newTestServer(t, tr)

	w := postScan(t, s, `{
		"target_urls": ["http://h"],
		"mode": "normal",
		"exclusions": ["/backup"],
		"max_depth": 1,
		"respect_robots_txt": false,
		"dictionary_operations": [{"type": "remove", "paths": ["config", "logs", "test", "phpmyadmin", "wp-admin"]}],
		"use_default_dictionary": true,
		"session_cookies_string": null
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ScanID     string                            `json:"scan_id"`
		Result     map[string]map[string]interface{} `json:"result"`
		ServerInfo map[string]types.ServerInfo       `json:"server_info"`
		Summary    map[string]float64                `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Len(t, resp.ScanID, 36)
	assert.Equal(t, "target_base", resp.Result["http://h"]["source"])
	assert.Equal(t, true, resp.Result["http://h/admin"]["directory_listing"])
	assert.Equal(t, "EXCLUDED", resp.Result["http://h/backup"]["status"])
	assert.Equal(t, "crawl", resp.Result["http://h/docs"]["source"])
	assert.NotContains(t, resp.Result, "http://h/config")
	assert.Equal(t, "Express", resp.ServerInfo["http://h"].XPoweredBy)
	assert.Equal(t, 1.0, resp.Summary["targets"])
	assert.Equal(t, 1.0, resp.Summary["directory_listings"])

	assert.Equal(t, 0, tr.count("http://h/backup"))
	assert.Equal(t, 0, tr.count("http://h/robots.txt"))
}

func TestScanEndpointValidation(t *testing.T) {
	s := newTestServer(t, newStubTransport(nil))

	tests := []struct {
		name string
		body string
	}{
		{"非法JSON", `{`},
		{"缺少目标", `{"mode": "normal"}`},
		{"负数深度", `{"target_url": "http://h", "max_depth": -1}`},
		{"未知模式", `{"target_url": "http://h", "mode": "stealth"}`},
		{"非法目标", `{"target_urls": ["ftp://h", "not a url"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postScan(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "detail")
		})
	}
}

func TestScanEndpointCustomDictionary(t *testing.T) {
	tr := newStubTransport(map[string]string{"http://h": "<html></html>"})
	s := newTestServer(t, tr)

	w := postScan(t, s, `{
		"target_url": "http://h/",
		"max_depth": 0,
		"respect_robots_txt": false,
		"use_default_dictionary": false,
		"dictionary_operations": [{"type": "add", "paths": ["secret"]}]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, 1, tr.count("http://h/secret/"))
	assert.Equal(t, 0, tr.count("http://h/admin"))
}

func TestDefaultDictionaryEndpoint(t *testing.T) {
	s := newTestServer(t, newStubTransport(nil))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dictionary/default", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"admin", "backup", "config", "logs", "test", "phpmyadmin", "wp-admin"}, body["dictionary"])
	assert.Len(t, body["api_dictionary"], 35)
}

func TestHealthMetricsAndCORS(t *testing.T) {
	s := newTestServer(t, newStubTransport(nil))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "multiscan_")

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/scan", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
