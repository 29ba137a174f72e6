package ikuuu

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"ikuuu_checkin/internal/config"
	"ikuuu_checkin/internal/logbus"
	"ikuuu_checkin/internal/model"
	"ikuuu_checkin/internal/provider"
	"ikuuu_checkin/internal/scrape"
	"ikuuu_checkin/internal/utils"
)

const (
	loginPath   = "/auth/login"
	checkinPath = "/user/checkin"
	userPath    = "/user"
)

type Options struct {
	Host   string
	Site   config.SiteConfig
	Jitter config.JitterConfig
	Limits config.LimitsConfig
	Proxy  config.ProxyConfig
	Bus    *logbus.Bus
	// 测试中替换 Transport 和 Sleep。
	Transport http.RoundTripper
	Sleep     utils.Sleeper
}

// Provider 是针对单个面板域名、携带 cookie 的会话。
type Provider struct {
	host   string
	site   config.SiteConfig
	jitter config.JitterConfig
	bus    *logbus.Bus
	sleep  utils.Sleeper

	jar *cookiejar.Jar
	// http 跟随重定向；form 保留登录 POST 的原始 302。
	http *resty.Client
	form *resty.Client
}

var _ provider.Provider = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	rt := opts.Transport
	if rt == nil {
		rt, err = utils.NewTransport(utils.TransportOptions{
			Proxy:     opts.Proxy.Global,
			VerifyTLS: opts.Site.VerifyTLS,
		})
		if err != nil {
			return nil, err
		}
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = utils.Sleep
	}

	p := &Provider{
		host:   opts.Host,
		site:   opts.Site,
		jitter: opts.Jitter,
		bus:    opts.Bus,
		sleep:  sleep,
		jar:    jar,
	}

	limit := rate.Inf
	if opts.Limits.QPS > 0 {
		limit = rate.Limit(opts.Limits.QPS)
	}
	burst := opts.Limits.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	p.http = p.newClient(rt, limiter)
	p.form = p.newClient(rt, limiter).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	return p, nil
}

func (p *Provider) Name() string { return "ikuuu" }

func (p *Provider) Host() string { return p.host }

func (p *Provider) baseURL() string {
	scheme := p.site.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + p.host
}

func (p *Provider) newClient(rt http.RoundTripper, limiter *rate.Limiter) *resty.Client {
	base := p.baseURL()
	client := resty.New().
		SetTransport(rt).
		SetBaseURL(base).
		SetTimeout(p.site.RequestTimeout()).
		SetCookieJar(p.jar).
		SetHeaders(map[string]string{
			"User-Agent":                utils.NormalizeUserAgent(p.site.UserAgent),
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "zh-CN,zh;q=0.9,en;q=0.8",
			"Referer":                   base + loginPath,
			"Origin":                    base,
			"Upgrade-Insecure-Requests": "1",
		})

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if err := limiter.Wait(req.Context()); err != nil {
			return err
		}
		p.bus.Log("debug", "http request", map[string]any{
			"method": req.Method,
			"url":    req.URL,
		})
		return nil
	})
	return client
}

// Login 先打开登录页拿 cookie，再提交表单。
// 每次尝试前等待登录抖动，失败后等待重试抖动再进行下一次。
func (p *Provider) Login(ctx context.Context, creds model.Credentials) error {
	attempts := p.site.LoginRetries
	if attempts < 1 {
		attempts = 1
	}
	form := map[string]string{
		"email":       creds.Email,
		"passwd":      creds.Password,
		"remember_me": "on",
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if !p.sleep(ctx, p.jitter.Login().Duration()) {
			lastErr = ctx.Err()
			break
		}
		lastErr = p.loginOnce(ctx, form)
		if lastErr == nil {
			p.bus.Log("info", "登录成功", map[string]any{"email": creds.Email, "attempt": i})
			return nil
		}
		p.bus.Log("warn", "登录失败", map[string]any{
			"email":   creds.Email,
			"attempt": i,
			"error":   lastErr.Error(),
		})
		if i < attempts && !p.sleep(ctx, p.jitter.Retry().Duration()) {
			lastErr = ctx.Err()
			break
		}
	}
	p.bus.Log("error", "登录失败，已放弃", map[string]any{"email": creds.Email})
	return fmt.Errorf("%w: %s: %w", provider.ErrLoginFailed, creds.Email, lastErr)
}

func (p *Provider) loginOnce(ctx context.Context, form map[string]string) error {
	if _, err := p.http.R().SetContext(ctx).Get(loginPath); err != nil {
		return fmt.Errorf("get login page: %w", err)
	}
	resp, err := p.form.R().
		SetContext(ctx).
		SetFormData(form).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	location := resp.Header().Get("Location")
	if !LoginSucceeded(resp.StatusCode(), location) {
		return fmt.Errorf("unexpected login response: status=%d location=%q", resp.StatusCode(), location)
	}
	return nil
}

// LoginSucceeded 判断登录是否成功：302 且跳转地址包含 "user" 或不回到登录页。
func LoginSucceeded(status int, location string) bool {
	return status == http.StatusFound &&
		(strings.Contains(location, "user") || !strings.Contains(location, "login"))
}

// Checkin 只提交一次，不重试，任何情况都返回可展示的结果。
func (p *Provider) Checkin(ctx context.Context) model.CheckinResult {
	if !p.sleep(ctx, p.jitter.Action().Duration()) {
		return model.CheckinResult{Outcome: model.CheckinRequestFailed, Message: ctx.Err().Error()}
	}
	resp, err := p.http.R().SetContext(ctx).Post(checkinPath)
	var result model.CheckinResult
	switch {
	case err != nil:
		result = model.CheckinResult{Outcome: model.CheckinRequestFailed, Message: err.Error()}
	case !resp.IsSuccess():
		result = model.CheckinResult{Outcome: model.CheckinRequestFailed, Message: fmt.Sprintf("status %d", resp.StatusCode())}
	default:
		result = ClassifyCheckin(resp.Body())
	}
	p.bus.Log("info", "签到结果", map[string]any{"outcome": string(result.Outcome), "message": result.Message})
	return result
}

// FetchProfile 读取 /user。出错时调用方使用获取失败的流量占位并显示账号邮箱。
func (p *Provider) FetchProfile(ctx context.Context) (provider.Profile, error) {
	failed := provider.Profile{Quota: model.FailedQuota()}
	if !p.sleep(ctx, p.jitter.Action().Duration()) {
		return failed, ctx.Err()
	}
	resp, err := p.http.R().SetContext(ctx).Get(userPath)
	if err != nil {
		p.bus.Log("warn", "获取用户信息失败", map[string]any{"error": err.Error()})
		return failed, fmt.Errorf("fetch profile: %w", err)
	}
	if !resp.IsSuccess() {
		p.bus.Log("warn", "获取用户信息失败", map[string]any{"status": resp.StatusCode()})
		return failed, fmt.Errorf("fetch profile: status %d", resp.StatusCode())
	}
	page := scrape.Extract(resp.String())
	if page.Username == "" {
		p.bus.Log("warn", "未找到用户名标签", nil)
	}
	p.bus.Log("info", "流量信息", map[string]any{
		"remaining": page.Quota.Remaining,
		"usedToday": page.Quota.UsedToday,
		"total":     page.Quota.Total,
		"decoded":   page.Decoded,
	})
	return provider.Profile{Username: page.Username, Quota: page.Quota}, nil
}
