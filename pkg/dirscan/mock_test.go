package dirscan

import (
	"context"
	"errors"
	"sync"
	"time"

	"multiscan/pkg/types"
)

var errMockRefused = errors.New("connection refused")

// mockTransport 按URL返回预置响应并统计请求次数，未登记的URL返回404
type mockTransport struct {
	mu      sync.Mutex
	pages   map[string]*types.HTTPResponse
	fail    map[string]bool
	panics  map[string]bool
	empty   map[string]bool
	calls   map[string]int
	order   []string
	headers map[string]string
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		pages:  make(map[string]*types.HTTPResponse),
		fail:   make(map[string]bool),
		panics: make(map[string]bool),
		empty:  make(map[string]bool),
		calls:  make(map[string]int),
	}
}

func (m *mockTransport) Get(_ context.Context, rawURL string, headers map[string]string, _ time.Duration) (*types.HTTPResponse, error) {
	m.mu.Lock()
	m.calls[rawURL]++
	m.order = append(m.order, rawURL)
	m.headers = headers
	page, ok := m.pages[rawURL]
	fail := m.fail[rawURL]
	boom := m.panics[rawURL]
	empty := m.empty[rawURL]
	m.mu.Unlock()

	if boom {
		panic("boom")
	}
	if empty {
		return nil, nil
	}
	if fail {
		return nil, errMockRefused
	}
	if !ok {
		return &types.HTTPResponse{URL: rawURL, FinalURL: rawURL, StatusCode: 404, ContentType: "text/plain"}, nil
	}
	resp := *page
	resp.URL = rawURL
	resp.FinalURL = rawURL
	return &resp, nil
}

func (m *mockTransport) set(rawURL string, resp *types.HTTPResponse) {
	m.mu.Lock()
	m.pages[rawURL] = resp
	m.mu.Unlock()
}

func (m *mockTransport) callCount(rawURL string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[rawURL]
}

// requested 按请求顺序返回调用过的URL
func (m *mockTransport) requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *mockTransport) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func htmlPage(status int, body string) *types.HTTPResponse {
	return &types.HTTPResponse{
		StatusCode:    status,
		ContentType:   "text/html; charset=utf-8",
		Headers:       map[string][]string{"Content-Type": {"text/html; charset=utf-8"}},
		Body:          []byte(body),
		Text:          body,
		ContentLength: len(body),
	}
}

func textPage(status int, contentType, body string) *types.HTTPResponse {
	return &types.HTTPResponse{
		StatusCode:    status,
		ContentType:   contentType,
		Headers:       map[string][]string{"Content-Type": {contentType}},
		Body:          []byte(body),
		Text:          body,
		ContentLength: len(body),
	}
}

const listingBody = `<html><head><title>Index of /tmp</title></head><body><h1>Index of /tmp</h1></body></html>`
