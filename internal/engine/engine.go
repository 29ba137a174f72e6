package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ikuuu_checkin/internal/logbus"
	"ikuuu_checkin/internal/model"
	"ikuuu_checkin/internal/notify"
	"ikuuu_checkin/internal/provider"
)

var ErrRunInProgress = errors.New("a check-in run is already in progress")

// HostResolver 为一次运行选择面板域名。
type HostResolver interface {
	Resolve(ctx context.Context) string
}

// ProviderFactory 针对 host 新建会话。
type ProviderFactory func(host string) (provider.Provider, error)

// RunStore 保存运行记录，为 nil 时不记录历史。
type RunStore interface {
	InsertRun(ctx context.Context, r model.Report) (model.Report, error)
	SetLastHost(ctx context.Context, host string, at time.Time) error
}

type Options struct {
	Credentials model.Credentials
	Resolver    HostResolver
	NewProvider ProviderFactory
	Notifiers   []notify.Notifier
	Store       RunStore
	Bus         *logbus.Bus
	// 默认 time.Now。
	Now func() time.Time
}

// State 是 HTTP API 展示的引擎状态。
type State struct {
	Running bool          `json:"running"`
	Last    *model.Report `json:"last,omitempty"`
}

// Engine 执行签到流程：选域名、登录、签到、读流量、记录并通知。
// 同一时间只有一次运行。
type Engine struct {
	creds       model.Credentials
	resolver    HostResolver
	newProvider ProviderFactory
	notifiers   []notify.Notifier
	store       RunStore
	bus         *logbus.Bus
	now         func() time.Time

	mu      sync.Mutex
	running bool
	last    *model.Report
}

func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		creds:       opts.Credentials,
		resolver:    opts.Resolver,
		newProvider: opts.NewProvider,
		notifiers:   opts.Notifiers,
		store:       opts.Store,
		bus:         opts.Bus,
		now:         now,
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{Running: e.running}
	if e.last != nil {
		last := *e.last
		st.Last = &last
	}
	return st
}

// Run 执行一次完整签到。唯一的错误是 ErrRunInProgress，
// 上游失败都体现在报告里。
func (e *Engine) Run(ctx context.Context) (model.Report, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return model.Report{}, ErrRunInProgress
	}
	e.running = true
	e.mu.Unlock()

	report := e.run(ctx)

	e.mu.Lock()
	e.running = false
	e.last = &report
	e.mu.Unlock()
	return report, nil
}

func (e *Engine) run(ctx context.Context) model.Report {
	report := model.Report{
		RunID:     uuid.NewString(),
		Email:     e.creds.Email,
		Quota:     model.DefaultQuota(),
		StartedAt: e.now(),
	}
	e.bus.Log("info", "开始签到", map[string]any{"runId": report.RunID, "email": report.Email})

	report.Host = e.resolver.Resolve(ctx)
	e.bus.Log("info", "使用域名", map[string]any{"host": report.Host})

	e.session(ctx, &report)
	report.FinishedAt = e.now()

	e.persist(ctx, report)
	delivered := notify.Broadcast(ctx, e.bus, e.notifiers, report.Title(), report.Markdown())
	e.bus.Log("info", "签到流程结束", map[string]any{
		"runId":     report.RunID,
		"loggedIn":  report.LoggedIn,
		"outcome":   string(report.Checkin.Outcome),
		"delivered": delivered,
		"elapsedMs": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	e.bus.Publish("run", report)
	return report
}

func (e *Engine) session(ctx context.Context, report *model.Report) {
	p, err := e.newProvider(report.Host)
	if err != nil {
		e.bus.Log("error", "创建会话失败", map[string]any{"host": report.Host, "error": err.Error()})
		return
	}
	if err := p.Login(ctx, e.creds); err != nil {
		e.bus.Log("error", "登录失败，跳过签到", map[string]any{"error": err.Error()})
		return
	}
	report.LoggedIn = true
	report.Checkin = p.Checkin(ctx)

	profile, err := p.FetchProfile(ctx)
	if err != nil {
		report.Quota = model.FailedQuota()
		return
	}
	report.Username = profile.Username
	report.Quota = profile.Quota
}

func (e *Engine) persist(ctx context.Context, report model.Report) {
	if e.store == nil {
		return
	}
	if _, err := e.store.InsertRun(ctx, report); err != nil {
		e.bus.Log("warn", "保存运行记录失败", map[string]any{"error": err.Error()})
	}
	if !report.LoggedIn {
		return
	}
	if err := e.store.SetLastHost(ctx, report.Host, report.FinishedAt); err != nil {
		e.bus.Log("warn", "保存域名失败", map[string]any{"error": err.Error()})
	}
}
