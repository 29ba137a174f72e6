package commands

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"ikuuu_checkin/internal/config"
	"ikuuu_checkin/internal/engine"
	"ikuuu_checkin/internal/logbus"
	"ikuuu_checkin/internal/model"
	"ikuuu_checkin/internal/notify"
	"ikuuu_checkin/internal/provider"
	"ikuuu_checkin/internal/provider/ikuuu"
	"ikuuu_checkin/internal/resolver"
	"ikuuu_checkin/internal/store/sqlite"
)

// app 保存各子命令共用的组件。
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	bus   *logbus.Bus
	store *sqlite.Store
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	a := &app{cfg: cfg, log: log, bus: logbus.New(500, log)}
	if cfg.Storage.SQLitePath != "" {
		a.store, err = sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	a.bus.Close()
}

func (a *app) resolver() (*resolver.Resolver, error) {
	return resolver.New(resolver.Options{
		Site:  a.cfg.Site,
		Proxy: a.cfg.Proxy,
		Bus:   a.bus,
	})
}

func (a *app) notifiers() []notify.Notifier {
	return []notify.Notifier{
		notify.NewPushDeer(notify.PushDeerOptions{Config: a.cfg.Notify.PushDeer, Bus: a.bus}),
		notify.NewEmailNotifier(a.cfg.Notify.Email, a.bus),
	}
}

// engine 要求账号密码，缺失时在发起请求前退出。
func (a *app) engine() (*engine.Engine, error) {
	if err := a.cfg.Account.Validate(); err != nil {
		return nil, err
	}
	res, err := a.resolver()
	if err != nil {
		return nil, err
	}
	opts := engine.Options{
		Credentials: model.NewCredentials(a.cfg.Account.Email, a.cfg.Account.Password),
		Resolver:    res,
		NewProvider: func(host string) (provider.Provider, error) {
			return ikuuu.New(ikuuu.Options{
				Host:   host,
				Site:   a.cfg.Site,
				Jitter: a.cfg.Jitter,
				Limits: a.cfg.Limits,
				Proxy:  a.cfg.Proxy,
				Bus:    a.bus,
			})
		},
		Notifiers: a.notifiers(),
		Bus:       a.bus,
	}
	// 带类型的 nil *sqlite.Store 会绕过引擎的 nil 判断。
	if a.store != nil {
		opts.Store = a.store
	}
	return engine.New(opts), nil
}
