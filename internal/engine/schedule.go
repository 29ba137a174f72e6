package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ikuuu_checkin/internal/logbus"
	"ikuuu_checkin/internal/model"
)

// NextRun 返回 from 之后下一次触发的时间。
func NextRun(spec string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return sched.Next(from), nil
}

// Schedule 按 cron 表达式定时签到，直到 ctx 结束。
// 上一次尚未结束时跳过本次触发。
func (e *Engine) Schedule(ctx context.Context, spec string, onReport func(model.Report)) error {
	c := cron.New(cron.WithLogger(cronLogger{bus: e.bus}))
	_, err := c.AddFunc(spec, func() {
		report, err := e.Run(ctx)
		if errors.Is(err, ErrRunInProgress) {
			e.bus.Log("warn", "上一次签到尚未结束，跳过本次调度", nil)
			return
		}
		if onReport != nil {
			onReport(report)
		}
	})
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", spec, err)
	}

	next, _ := NextRun(spec, time.Now())
	c.Start()
	e.bus.Log("info", "定时签到已启动", map[string]any{"cron": spec, "next": next.Format(time.DateTime)})
	<-ctx.Done()
	<-c.Stop().Done()
	e.bus.Log("info", "定时签到已停止", nil)
	return nil
}

type cronLogger struct {
	bus *logbus.Bus
}

func (l cronLogger) fields(keysAndValues []any) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.bus.Log("debug", "cron: "+msg, l.fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := l.fields(keysAndValues)
	fields["error"] = err.Error()
	l.bus.Log("error", "cron: "+msg, fields)
}
