package notify

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"ikuuu_checkin/internal/config"
	"ikuuu_checkin/internal/logbus"
)

type PushDeerOptions struct {
	Config config.PushDeerConfig
	Bus    *logbus.Bus
	// 测试中替换 Transport。
	Transport http.RoundTripper
}

// PushDeer 向 PushDeer 服务推送 markdown 消息。
type PushDeer struct {
	key      string
	endpoint string
	bus      *logbus.Bus
	client   *resty.Client
}

func NewPushDeer(opts PushDeerOptions) *PushDeer {
	endpoint := strings.TrimSpace(opts.Config.Endpoint)
	if endpoint == "" {
		endpoint = config.DefaultPushDeerEndpoint
	}
	client := resty.New().SetTimeout(opts.Config.Timeout())
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}
	return &PushDeer{
		key:      strings.TrimSpace(opts.Config.Key),
		endpoint: endpoint,
		bus:      opts.Bus,
		client:   client,
	}
}

func (p *PushDeer) Name() string { return "pushdeer" }

// Notify 发送一条消息，未配置 key 时不发送。
// 只有服务端返回 JSON 且 code 为数字 0 才算成功。
func (p *PushDeer) Notify(ctx context.Context, title, body string) bool {
	if p.key == "" {
		p.bus.Log("info", "未配置 PUSHDEER_KEY，跳过推送", nil)
		return false
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"pushkey": p.key,
			"text":    title,
			"desp":    body,
			"type":    "markdown",
		}).
		Post(p.endpoint)
	if err != nil {
		p.bus.Log("warn", "推送失败", map[string]any{"error": err.Error()})
		return false
	}

	code := gjson.GetBytes(resp.Body(), "code")
	if code.Type != gjson.Number || code.Int() != 0 {
		p.bus.Log("warn", "推送失败", map[string]any{
			"status": resp.StatusCode(),
			"body":   truncate(resp.String(), 200),
		})
		return false
	}
	p.bus.Log("info", "推送成功", nil)
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
