package model

import (
	"fmt"
	"strings"
	"time"
)

const ReportTitle = "ikuuu签到通知"

// Report 是一次签到运行的结果。
type Report struct {
	RunID      string        `json:"runId"`
	Host       string        `json:"host"`
	Email      string        `json:"email"`
	Username   string        `json:"username,omitempty"`
	LoggedIn   bool          `json:"loggedIn"`
	Checkin    CheckinResult `json:"checkin"`
	Quota      QuotaSnapshot `json:"quota"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

func (r Report) Title() string {
	return ReportTitle
}

// DisplayName 没有用户名时退回账号邮箱。
func (r Report) DisplayName() string {
	if name := strings.TrimSpace(r.Username); name != "" {
		return name
	}
	return r.Email
}

// Markdown 生成通知正文，行尾两个空格用于在 markdown 里保留换行。
func (r Report) Markdown() string {
	if !r.LoggedIn {
		return fmt.Sprintf("[登录]：%s 登录失败（风控/网络/账号密码），请检查\n\n", r.Email)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[登录账号]：%s  \n", r.DisplayName())
	fmt.Fprintf(&sb, "[签到状态]：%s  \n", r.Checkin.Display())
	fmt.Fprintf(&sb, "[剩余流量]：%s  \n", r.Quota.Remaining)
	fmt.Fprintf(&sb, "[今日已用]：%s  \n", r.Quota.UsedToday)
	if r.Quota.Total != "" && r.Quota.Total != Unknown {
		fmt.Fprintf(&sb, "[总流量]：%s  \n", r.Quota.Total)
	}
	fmt.Fprintf(&sb, "[当前域名]：%s\n", r.Host)
	return sb.String()
}
