package model

const (
	Unknown   = "未知"
	ZeroBytes = "0B"
)

// QuotaSnapshot 按面板原样保存流量数字。
type QuotaSnapshot struct {
	Remaining string `json:"remaining"`
	UsedToday string `json:"usedToday"`
	Total     string `json:"total"`
}

func DefaultQuota() QuotaSnapshot {
	return QuotaSnapshot{Remaining: Unknown, UsedToday: ZeroBytes, Total: Unknown}
}

// FailedQuota 在用户页获取失败时使用。
func FailedQuota() QuotaSnapshot {
	return QuotaSnapshot{Remaining: Unknown, UsedToday: Unknown, Total: Unknown}
}
