package utils

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

type TransportOptions struct {
	Proxy     string
	VerifyTLS bool
}

// NewTransport 构造面板请求共用的 Transport：绕过 Cloudflare 的 TLS 指纹和可选代理。
func NewTransport(opts TransportOptions) (http.RoundTripper, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(opts.Proxy); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", p, err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	rt := cloudflarebp.AddCloudFlareByPass(tr)
	// AddCloudFlareByPass 会替换 TLS 配置，证书校验要在之后设置。
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = !opts.VerifyTLS
	return rt, nil
}
