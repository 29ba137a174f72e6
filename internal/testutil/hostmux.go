// Package testutil 在不访问网络的情况下为 HTTP 客户端提供假的上游域名。
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// HostMux 是按请求域名分发到对应 handler 的 http.RoundTripper，
// 未注册的域名像 DNS 解析失败一样报错。
type HostMux struct {
	mu       sync.Mutex
	handlers map[string]http.Handler
	calls    map[string]int
	requests []string
}

func NewHostMux() *HostMux {
	return &HostMux{
		handlers: make(map[string]http.Handler),
		calls:    make(map[string]int),
	}
}

func (m *HostMux) Handle(host string, h http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[host] = h
}

// Status 注册一个对所有请求都返回 code 的域名。
func (m *HostMux) Status(host string, code int, body string) {
	m.Handle(host, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
}

func (m *HostMux) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	m.mu.Lock()
	m.calls[host]++
	m.requests = append(m.requests, req.Method+" "+host+req.URL.Path)
	h, ok := m.handlers[host]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dial tcp: lookup %s: no such host", host)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (m *HostMux) Calls(host string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[host]
}

// Requests 按到达顺序列出 "METHOD host/path"。
func (m *HostMux) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}
