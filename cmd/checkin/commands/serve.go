package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ikuuu_checkin/internal/httpapi"
	"ikuuu_checkin/internal/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the check-in on the configured cron schedule, with an optional HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}

		var server *http.Server
		serverErr := make(chan error, 1)
		if a.cfg.Server.Addr != "" {
			opts := httpapi.Options{Cfg: a.cfg, Bus: a.bus, Engine: eng}
			// 只把非 nil 的 store 放进接口。
			if a.store != nil {
				opts.Store = a.store
			}
			api := httpapi.New(opts)
			server = &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				serverErr <- server.ListenAndServe()
			}()
			a.bus.Log("info", "http api listening", map[string]any{"addr": a.cfg.Server.Addr})
		}

		schedCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		schedErr := make(chan error, 1)
		go func() {
			schedErr <- eng.Schedule(schedCtx, a.cfg.Schedule.Cron, func(r model.Report) {
				a.bus.Log("info", "定时签到完成", map[string]any{"runId": r.RunID, "status": r.Checkin.Display()})
			})
		}()

		var runErr error
		select {
		case <-ctx.Done():
			a.bus.Log("info", "shutdown signal received", nil)
		case err := <-serverErr:
			if !errors.Is(err, http.ErrServerClosed) {
				a.bus.Log("error", "http server error", map[string]any{"error": err.Error()})
				runErr = err
			}
		case runErr = <-schedErr:
		}

		cancel()
		if server != nil {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
			defer stop()
			_ = server.Shutdown(shutdownCtx)
		}
		a.bus.Log("info", "server stopped", nil)
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
