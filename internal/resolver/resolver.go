package resolver

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ikuuu_checkin/internal/config"
	"ikuuu_checkin/internal/logbus"
	"ikuuu_checkin/internal/utils"
)

var domainPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})/auth/login`),
	regexp.MustCompile(`(?i)(ikuuu\.[a-zA-Z0-9.-]+)`),
	regexp.MustCompile(`(?i)新域名[:：]\s*([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	regexp.MustCompile(`(?i)域名[:：]\s*([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
}

// changeIndicators 表示首页发布了域名变更；没有这些字样时只信任含 ikuuu 的域名。
var changeIndicators = []string{
	"官网域名已更改", "Domain deprecated", "域名已更新",
	"新域名", "最新域名", "域名变更", "网站已迁移",
}

type Options struct {
	Site  config.SiteConfig
	Proxy config.ProxyConfig
	Bus   *logbus.Bus
	// 测试中替换 Transport。
	Transport http.RoundTripper
}

// Resolver 选择可用的面板域名：先主域名，再主页公布的新域名，
// 然后是备用列表，都不可用时退回主域名。
type Resolver struct {
	primary string
	backups []string
	scheme  string
	bus     *logbus.Bus
	client  *resty.Client
}

func New(opts Options) (*Resolver, error) {
	rt := opts.Transport
	if rt == nil {
		var err error
		rt, err = utils.NewTransport(utils.TransportOptions{
			Proxy:     opts.Proxy.Global,
			VerifyTLS: opts.Site.VerifyTLS,
		})
		if err != nil {
			return nil, err
		}
	}
	scheme := opts.Site.Scheme
	if scheme == "" {
		scheme = "https"
	}
	client := resty.New().
		SetTransport(rt).
		SetTimeout(opts.Site.ReachTimeout()).
		SetHeaders(map[string]string{
			"User-Agent":      utils.NormalizeUserAgent(opts.Site.UserAgent),
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		})
	return &Resolver{
		primary: opts.Site.PrimaryHost,
		backups: opts.Site.BackupHosts,
		scheme:  scheme,
		bus:     opts.Bus,
		client:  client,
	}, nil
}

func (r *Resolver) Primary() string { return r.primary }

// Resolve 不会失败，全部不可用时返回主域名，由后续步骤自行报错。
func (r *Resolver) Resolve(ctx context.Context) string {
	r.bus.Log("info", "当前域名", map[string]any{"host": r.primary})
	if r.Reachable(ctx, r.primary) {
		return r.primary
	}

	tried := map[string]bool{r.primary: true}

	discovered := r.Discover(ctx, r.primary)
	r.bus.Log("info", "发现的新域名", map[string]any{"hosts": discovered})
	for _, host := range discovered {
		if tried[host] {
			continue
		}
		tried[host] = true
		if r.Reachable(ctx, host) {
			r.bus.Log("info", "找到可用域名", map[string]any{"host": host})
			return host
		}
	}

	r.bus.Log("info", "测试备用域名列表", map[string]any{"count": len(r.backups)})
	for _, host := range r.backups {
		if tried[host] {
			continue
		}
		tried[host] = true
		if r.Reachable(ctx, host) {
			r.bus.Log("info", "备用域名可用", map[string]any{"host": host})
			return host
		}
	}

	r.bus.Log("warn", "所有域名测试失败，使用原始域名", map[string]any{"host": r.primary})
	return r.primary
}

// Reachable 判断 host 的首页是否在超时内返回 200。
func (r *Resolver) Reachable(ctx context.Context, host string) bool {
	if ctx.Err() != nil {
		return false
	}
	start := time.Now()
	resp, err := r.client.R().SetContext(ctx).Get(r.rootURL(host))
	if err != nil {
		r.bus.Log("warn", "域名不可用", map[string]any{"host": host, "error": err.Error()})
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		r.bus.Log("warn", "域名返回异常状态码", map[string]any{"host": host, "status": resp.StatusCode()})
		return false
	}
	r.bus.Log("info", "域名可用", map[string]any{"host": host, "elapsedMs": time.Since(start).Milliseconds()})
	return true
}

// Discover 从 host 首页中提取公布的域名，不管状态码都读取页面，
// 请求失败时返回 nil。
func (r *Resolver) Discover(ctx context.Context, host string) []string {
	if ctx.Err() != nil {
		return nil
	}
	resp, err := r.client.R().SetContext(ctx).Get(r.rootURL(host))
	if err != nil {
		r.bus.Log("warn", "获取页面信息失败", map[string]any{"host": host, "error": err.Error()})
		return nil
	}
	return Candidates(resp.String())
}

func (r *Resolver) rootURL(host string) string {
	return r.scheme + "://" + host + "/"
}

// Candidates 返回 content 中的域名，页面没有变更提示时只保留含 ikuuu 的域名。
func Candidates(content string) []string {
	domains := ExtractDomains(content)
	if HasChangeNotice(content) {
		return domains
	}
	out := domains[:0]
	for _, d := range domains {
		if strings.Contains(d, "ikuuu") {
			out = append(out, d)
		}
	}
	return out
}

func HasChangeNotice(content string) bool {
	for _, indicator := range changeIndicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	return false
}

// ExtractDomains 依次套用所有正则，结果转小写并按首次出现顺序去重。
func ExtractDomains(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range domainPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			domain := strings.ToLower(strings.TrimSpace(m[1]))
			if !strings.Contains(domain, ".") || len(domain) <= 3 || len(domain) >= 50 {
				continue
			}
			if seen[domain] {
				continue
			}
			seen[domain] = true
			out = append(out, domain)
		}
	}
	return out
}
