package ikuuu

import (
	"strings"

	"github.com/tidwall/gjson"

	"ikuuu_checkin/internal/model"
)

const (
	alreadyCheckedIn = "已经签到"
	rewardObtained   = "获得"
	noMessage        = "无信息"
)

// ClassifyCheckin 把 /user/checkin 的响应体归类为签到结果。
// 非 JSON 对象或 msg 不是字符串时视为解析失败。
func ClassifyCheckin(body []byte) model.CheckinResult {
	if !gjson.ValidBytes(body) {
		return model.CheckinResult{Outcome: model.CheckinParseFailed}
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return model.CheckinResult{Outcome: model.CheckinParseFailed}
	}

	msg := noMessage
	if field := parsed.Get("msg"); field.Exists() {
		// null、数字等非字符串的 msg 无法判断结果。
		if field.Type != gjson.String {
			return model.CheckinResult{Outcome: model.CheckinParseFailed}
		}
		msg = field.String()
	}
	switch {
	case strings.Contains(msg, alreadyCheckedIn):
		return model.CheckinResult{Outcome: model.CheckinAlready, Message: msg}
	case strings.Contains(msg, rewardObtained):
		return model.CheckinResult{Outcome: model.CheckinReward, Message: msg}
	default:
		return model.CheckinResult{Outcome: model.CheckinUnknown, Message: msg}
	}
}
