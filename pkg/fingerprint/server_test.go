package fingerprint

import (
	"net/http"
	"sync"
	"testing"

	"multiscan/pkg/types"

	"github.com/stretchr/testify/assert"
)

func cookies(names ...string) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(names))
	for _, n := range names {
		out = append(out, &http.Cookie{Name: n, Value: "v"})
	}
	return out
}

func TestInferFramework(t *testing.T) {
	tests := []struct {
		name      string
		server    string
		poweredBy string
		cookies   []*http.Cookie
		want      string
	}{
		{"ASP.NET优先于PHP", "Microsoft-IIS/10.0", "ASP.NET, PHP/8", nil, "ASP.NET"},
		{"Server中的ASP.NET", "ASP.NET Development Server", "", nil, "ASP.NET"},
		{"X-Powered-By PHP", "nginx", "PHP/7.4.3", nil, "PHP"},
		{"PHP会话Cookie大小写不敏感", "nginx", "", cookies("phpsessid"), "PHP (Session)"},
		{"PHP头部优先于会话Cookie", "", "PHP/8.2", cookies("PHPSESSID"), "PHP"},
		{"Express", "", "Express", nil, "Express.js (Node.js)"},
		{"Django Server", "WSGIServer Django", "", nil, "Django (Python)"},
		{"Django csrftoken", "", "", cookies("csrftoken"), "Django (Python)"},
		{"csrftoken区分大小写", "", "", cookies("CSRFTOKEN"), types.UnknownValue},
		{"Ruby Server", "WEBrick Ruby/3.1", "", nil, "Ruby on Rails"},
		{"Rails X-Powered-By", "", "Phusion Passenger Rails", nil, "Ruby on Rails"},
		{"JSESSIONID", "Apache-Coyote/1.1", "", cookies("jsessionid"), "Java (JSP/Servlets)"},
		{"无命中", "nginx", "", nil, types.UnknownValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferFramework(tt.server, tt.poweredBy, tt.cookies))
		})
	}
}

type stubDetector struct{ calls int }

func (s *stubDetector) Detect(map[string][]string, []byte) []string {
	s.calls++
	return []string{"Nginx"}
}

func TestServerFingerprinterObserveOnce(t *testing.T) {
	tech := &stubDetector{}
	fp := NewServerFingerprinter(tech)

	assert.Equal(t, types.DefaultServerInfo(), fp.Info())
	assert.False(t, fp.Observed())

	fp.Observe(&types.HTTPResponse{
		URL:     "http://h/",
		Headers: map[string][]string{"Server": {"nginx/1.25"}, "X-Powered-By": {"PHP/8.1"}},
	})
	fp.Observe(&types.HTTPResponse{
		URL:     "http://h/other",
		Headers: map[string][]string{"Server": {"Apache"}},
	})

	info := fp.Info()
	assert.Equal(t, "nginx/1.25", info.Server)
	assert.Equal(t, "PHP/8.1", info.XPoweredBy)
	assert.Equal(t, "PHP", info.FrameworkHint)
	assert.Equal(t, []string{"Nginx"}, info.Technologies)
	assert.Equal(t, 1, tech.calls)
}

func TestServerFingerprinterMissingHeaders(t *testing.T) {
	fp := NewServerFingerprinter(nil)
	fp.Observe(&types.HTTPResponse{URL: "http://h/", Headers: map[string][]string{}})

	info := fp.Info()
	assert.True(t, fp.Observed())
	assert.Equal(t, types.UnknownValue, info.Server)
	assert.Equal(t, types.UnknownValue, info.XPoweredBy)
	assert.Equal(t, types.UnknownValue, info.FrameworkHint)
	assert.Empty(t, info.Technologies)
}

func TestServerFingerprinterConcurrentObserve(t *testing.T) {
	fp := NewServerFingerprinter(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp.Observe(&types.HTTPResponse{Headers: map[string][]string{"Server": {"Django"}}})
		}()
	}
	wg.Wait()
	assert.Equal(t, "Django (Python)", fp.Info().FrameworkHint)
}
