package notify

import (
	"context"

	"ikuuu_checkin/internal/logbus"
)

// Notifier 发送运行报告。Notify 返回渠道是否接收，失败只记日志。
type Notifier interface {
	Name() string
	Notify(ctx context.Context, title, body string) bool
}

// Broadcast 依次发送给所有渠道，返回发送成功的渠道名。
func Broadcast(ctx context.Context, bus *logbus.Bus, notifiers []Notifier, title, body string) []string {
	var delivered []string
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		if n.Notify(ctx, title, body) {
			delivered = append(delivered, n.Name())
			continue
		}
		bus.Log("warn", "通知未送达", map[string]any{"channel": n.Name()})
	}
	return delivered
}
