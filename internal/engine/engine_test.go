package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ikuuu_checkin/internal/config"
	"ikuuu_checkin/internal/model"
	"ikuuu_checkin/internal/notify"
	"ikuuu_checkin/internal/provider"
	"ikuuu_checkin/internal/provider/ikuuu"
	"ikuuu_checkin/internal/resolver"
	"ikuuu_checkin/internal/testutil"
	"ikuuu_checkin/internal/utils"
)

type staticResolver string

func (r staticResolver) Resolve(context.Context) string { return string(r) }

type fakeProvider struct {
	host       string
	loginErr   error
	checkin    model.CheckinResult
	profile    provider.Profile
	profileErr error

	checkins int
	profiles int
}

func (p *fakeProvider) Name() string { return "fake" }
func (p *fakeProvider) Host() string { return p.host }

func (p *fakeProvider) Login(context.Context, model.Credentials) error { return p.loginErr }

func (p *fakeProvider) Checkin(context.Context) model.CheckinResult {
	p.checkins++
	return p.checkin
}

func (p *fakeProvider) FetchProfile(context.Context) (provider.Profile, error) {
	p.profiles++
	return p.profile, p.profileErr
}

type memoryStore struct {
	mu    sync.Mutex
	runs  []model.Report
	hosts []string
}

func (s *memoryStore) InsertRun(_ context.Context, r model.Report) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return r, nil
}

func (s *memoryStore) SetLastHost(_ context.Context, host string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = append(s.hosts, host)
	return nil
}

type recordingNotifier struct {
	titles []string
	bodies []string
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, title, body string) bool {
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return true
}

func newEngine(p *fakeProvider, store RunStore, n notify.Notifier) *Engine {
	return New(Options{
		Credentials: model.NewCredentials("a@example.com", "pw"),
		Resolver:    staticResolver(p.host),
		NewProvider: func(host string) (provider.Provider, error) {
			p.host = host
			return p, nil
		},
		Notifiers: []notify.Notifier{n},
		Store:     store,
	})
}

func TestRunSuccess(t *testing.T) {
	p := &fakeProvider{
		host:    "ikuuu.one",
		checkin: model.CheckinResult{Outcome: model.CheckinReward, Message: "获得100MB"},
		profile: provider.Profile{
			Username: "alice",
			Quota:    model.QuotaSnapshot{Remaining: "10GB", UsedToday: "1GB", Total: "100GB"},
		},
	}
	store := &memoryStore{}
	n := &recordingNotifier{}

	report, err := newEngine(p, store, n).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.LoggedIn)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "ikuuu.one", report.Host)
	assert.Equal(t, "alice", report.DisplayName())

	require.Len(t, n.bodies, 1)
	assert.Equal(t, model.ReportTitle, n.titles[0])
	assert.Equal(t, "[登录账号]：alice  \n"+
		"[签到状态]：获得100MB  \n"+
		"[剩余流量]：10GB  \n"+
		"[今日已用]：1GB  \n"+
		"[总流量]：100GB  \n"+
		"[当前域名]：ikuuu.one\n", n.bodies[0])

	require.Len(t, store.runs, 1)
	assert.Equal(t, report.RunID, store.runs[0].RunID)
	assert.Equal(t, []string{"ikuuu.one"}, store.hosts)
}

func TestRunLoginFailureSkipsCheckin(t *testing.T) {
	p := &fakeProvider{host: "ikuuu.nl", loginErr: provider.ErrLoginFailed}
	store := &memoryStore{}
	n := &recordingNotifier{}

	report, err := newEngine(p, store, n).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.LoggedIn)
	assert.Equal(t, 0, p.checkins)
	assert.Equal(t, 0, p.profiles)
	require.Len(t, n.bodies, 1)
	assert.Equal(t, "[登录]：a@example.com 登录失败（风控/网络/账号密码），请检查\n\n", n.bodies[0])
	assert.Len(t, store.runs, 1)
	assert.Empty(t, store.hosts)
}

func TestRunProfileFailureFallsBackToEmail(t *testing.T) {
	p := &fakeProvider{
		host:       "ikuuu.nl",
		checkin:    model.CheckinResult{Outcome: model.CheckinAlready},
		profile:    provider.Profile{Quota: model.FailedQuota()},
		profileErr: errors.New("status 500"),
	}
	n := &recordingNotifier{}

	report, err := newEngine(p, nil, n).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.FailedQuota(), report.Quota)
	assert.Equal(t, "a@example.com", report.DisplayName())
	assert.Contains(t, n.bodies[0], "[剩余流量]：未知")
	assert.Contains(t, n.bodies[0], "[今日已用]：未知")
	assert.NotContains(t, n.bodies[0], "[总流量]")
}

func TestRunProviderConstructionFailure(t *testing.T) {
	e := New(Options{
		Credentials: model.NewCredentials("a@example.com", "pw"),
		Resolver:    staticResolver("ikuuu.nl"),
		NewProvider: func(string) (provider.Provider, error) { return nil, errors.New("bad proxy") },
	})
	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.LoggedIn)
	assert.Equal(t, "ikuuu.nl", report.Host)
}

type blockingResolver struct {
	entered chan struct{}
	release chan struct{}
}

func (r blockingResolver) Resolve(context.Context) string {
	close(r.entered)
	<-r.release
	return "ikuuu.nl"
}

func TestRunRejectsOverlap(t *testing.T) {
	res := blockingResolver{entered: make(chan struct{}), release: make(chan struct{})}
	p := &fakeProvider{loginErr: provider.ErrLoginFailed}
	e := New(Options{
		Credentials: model.NewCredentials("a@example.com", "pw"),
		Resolver:    res,
		NewProvider: func(string) (provider.Provider, error) { return p, nil },
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.Run(context.Background())
	}()
	<-res.entered
	assert.True(t, e.State().Running)

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(res.release)
	<-done
	st := e.State()
	assert.False(t, st.Running)
	require.NotNil(t, st.Last)
	assert.Equal(t, "ikuuu.nl", st.Last.Host)
}

// 完整流程跑在假上游上：主域名不可用，其首页公布了新域名。
func TestRunEndToEnd(t *testing.T) {
	mux := testutil.NewHostMux()
	mux.Status("ikuuu.nl", http.StatusForbidden, `<h1>官网域名已更改</h1><p>新域名：ikuuu.one</p>`)
	panel := testutil.NewPanel("a@example.com", "pw")
	mux.Handle("ikuuu.one", panel)

	var pushed []string
	mux.Handle("push.example", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		pushed = append(pushed, r.PostForm.Get("desp"))
		_, _ = w.Write([]byte(`{"code":0}`))
	}))

	cfg := config.Default()
	cfg.Site.BackupHosts = []string{"ikuuu.de"}
	res, err := resolver.New(resolver.Options{Site: cfg.Site, Transport: mux})
	require.NoError(t, err)

	e := New(Options{
		Credentials: model.NewCredentials("a@example.com", "pw"),
		Resolver:    res,
		NewProvider: func(host string) (provider.Provider, error) {
			return ikuuu.New(ikuuu.Options{
				Host:      host,
				Site:      cfg.Site,
				Jitter:    cfg.Jitter,
				Transport: mux,
				Sleep:     utils.NoSleep,
			})
		},
		Notifiers: []notify.Notifier{notify.NewPushDeer(notify.PushDeerOptions{
			Config:    config.PushDeerConfig{Key: "k", Endpoint: "https://push.example/message/push"},
			Transport: mux,
		})},
	})

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ikuuu.one", report.Host)
	assert.True(t, report.LoggedIn)
	assert.Equal(t, model.CheckinReward, report.Checkin.Outcome)
	assert.Equal(t, "tester", report.Username)
	assert.Equal(t, 0, mux.Calls("ikuuu.de"))

	require.Len(t, pushed, 1)
	assert.True(t, strings.HasPrefix(pushed[0], "[登录账号]：tester  \n"))
	assert.Contains(t, pushed[0], "[当前域名]：ikuuu.one")
}
