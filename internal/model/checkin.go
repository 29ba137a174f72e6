package model

type CheckinOutcome string

const (
	CheckinAlready       CheckinOutcome = "already_checked_in"
	CheckinReward        CheckinOutcome = "reward"
	CheckinUnknown       CheckinOutcome = "unknown"
	CheckinParseFailed   CheckinOutcome = "parse_failed"
	CheckinRequestFailed CheckinOutcome = "request_failed"
)

type CheckinResult struct {
	Outcome CheckinOutcome `json:"outcome"`
	Message string         `json:"message,omitempty"`
}

// Display 返回报告中显示的签到结果。
func (r CheckinResult) Display() string {
	switch r.Outcome {
	case CheckinAlready:
		return "已经签到过了"
	case CheckinReward:
		return r.Message
	case CheckinParseFailed:
		return "响应解析失败"
	case CheckinRequestFailed:
		return "请求失败 " + r.Message
	case CheckinUnknown:
		return "未知结果: " + r.Message
	default:
		return "未签到"
	}
}
