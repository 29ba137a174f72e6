package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter 是等待时长的闭区间。
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

func NewJitter(min, max time.Duration) Jitter {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return Jitter{Min: min, Max: max}
}

// Duration 在区间内均匀随机取一个时长。
func (j Jitter) Duration() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int64N(int64(j.Max-j.Min)+1))
}

// Sleeper 等待 d，ctx 先结束时返回 false。
type Sleeper func(ctx context.Context, d time.Duration) bool

// Sleep 是真实等待的 Sleeper。
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// NoSleep 立即返回，供测试使用。
func NoSleep(ctx context.Context, _ time.Duration) bool {
	return ctx.Err() == nil
}
