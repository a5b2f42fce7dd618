package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"multiscan/pkg/dirscan"
	"multiscan/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport 已登记的URL返回200页面，其余返回404
type stubTransport struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (s *stubTransport) Get(_ context.Context, rawURL string, _ map[string]string, _ time.Duration) (*types.HTTPResponse, error) {
	s.mu.Lock()
	s.calls++
	body, ok := s.pages[rawURL]
	s.mu.Unlock()

	if !ok {
		return &types.HTTPResponse{URL: rawURL, FinalURL: rawURL, StatusCode: 404, ContentType: "text/plain"}, nil
	}
	return &types.HTTPResponse{
		URL:           rawURL,
		FinalURL:      rawURL,
		StatusCode:    200,
		Headers:       map[string][]string{"Content-Type": {"text/html"}, "Server": {"nginx"}},
		Body:          []byte(body),
		Text:          body,
		ContentType:   "text/html",
		ContentLength: len(body),
	}, nil
}

func baseOptions(tr dirscan.Transport) dirscan.Options {
	return dirscan.Options{
		Wordlist:     []string{"admin/"},
		IgnoreRobots: true,
		Workers:      2,
		Transport:    tr,
	}
}

func TestExecuteMultipleTargets(t *testing.T) {
	tr := &stubTransport{pages: map[string]string{
		"http://a":        "<html>a</html>",
		"http://a/admin/": "<html>admin</html>",
		"http://b":        "<html>b</html>",
	}}
	ts := NewTargetScheduler([]string{"http://a/", " http://b ", "http://a", ""}, baseOptions(tr), 0, 4)
	assert.Equal(t, []string{"http://a", "http://b"}, ts.Targets())

	var (
		mu       sync.Mutex
		finished []string
	)
	ts.SetResultCallback(func(res TargetResult) {
		mu.Lock()
		finished = append(finished, res.Target)
		mu.Unlock()
	})

	outcome, err := ts.Execute(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"http://a", "http://b"}, finished)
	require.Len(t, outcome.Results, 2)
	for _, res := range outcome.Results {
		assert.NoError(t, res.Err)
		require.NotNil(t, res.Result)
	}

	assert.Equal(t, types.SourceTargetBase, outcome.Findings["http://a"].Source)
	assert.Equal(t, 200, outcome.Findings["http://a/admin/"].Status.Code)
	assert.Equal(t, 404, outcome.Findings["http://b/admin/"].Status.Code)
	assert.Len(t, outcome.Findings, 4)

	require.Contains(t, outcome.ServerInfo, "http://a")
	assert.Equal(t, "nginx", outcome.ServerInfo["http://b"].Server)
	assert.False(t, outcome.EndTime.Before(outcome.StartTime))
}

func TestExecuteHostFilterAndInvalidTarget(t *testing.T) {
	tr := &stubTransport{pages: map[string]string{"http://ok": "<html></html>"}}
	ts := NewTargetScheduler([]string{"http://ok", "http://blocked", "ftp://x"}, baseOptions(tr), 0, 1)
	ts.SetHostFilter(func(host string) bool { return host != "blocked" })

	outcome, err := ts.Execute(context.Background())
	require.NoError(t, err)

	assert.NoError(t, outcome.Results[0].Err)
	assert.ErrorIs(t, outcome.Results[1].Err, ErrHostRejected)
	assert.ErrorIs(t, outcome.Results[2].Err, dirscan.ErrInvalidTarget)

	assert.Len(t, outcome.ServerInfo, 1)
	for u := range outcome.Findings {
		assert.Contains(t, u, "http://ok")
	}
}

func TestExecuteCancelled(t *testing.T) {
	tr := &stubTransport{pages: map[string]string{}}
	ts := NewTargetScheduler([]string{"http://a", "http://b"}, baseOptions(tr), 1, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := ts.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, outcome)
	assert.Empty(t, outcome.Findings)
	assert.Equal(t, 0, tr.calls)
}

func TestExecuteNoTargets(t *testing.T) {
	_, err := NewTargetScheduler([]string{" ", ""}, dirscan.Options{}, 0, 1).Execute(context.Background())
	assert.Error(t, err)
}

func TestCalculateTargetWorkers(t *testing.T) {
	tests := []struct {
		name      string
		targets   int
		requested int
		expect    int
	}{
		{"未指定", 5, 0, 1},
		{"超过目标数", 2, 8, 2},
		{"正常", 10, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, calculateTargetWorkers(tt.targets, tt.requested))
		})
	}
}
