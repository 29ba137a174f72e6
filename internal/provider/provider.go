package provider

import (
	"context"
	"errors"

	"ikuuu_checkin/internal/model"
)

var ErrLoginFailed = errors.New("login failed")

// Profile 是登录后从面板读到的账号信息。
type Profile struct {
	Username string              `json:"username,omitempty"`
	Quota    model.QuotaSnapshot `json:"quota"`
}

// Provider 驱动一个面板会话，调用之间保留 cookie，
// 因此 Login 必须先于 Checkin 和 FetchProfile。
type Provider interface {
	Name() string
	Host() string

	Login(ctx context.Context, creds model.Credentials) error
	Checkin(ctx context.Context) model.CheckinResult
	FetchProfile(ctx context.Context) (Profile, error)
}
