// Package scrape 从面板 /user 页面解析用户名和流量，不发起网络请求。
package scrape

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"ikuuu_checkin/internal/model"
)

const (
	labelRemaining = "剩余流量"
	labelUsedToday = "今日已用"
	greetingPrefix = "Hi,"
)

var (
	originBodyRe = regexp.MustCompile(`var originBody = "([^"]+)"`)
	usedTodayRe  = regexp.MustCompile(`(?i)今日已用[:：]\s*([\d.]+)\s*([KMGTP]?B)`)
	totalPairRe  = regexp.MustCompile(`([\d.]+\s*GB)\s*/\s*([\d.]+\s*GB)`)
	totalLabelRe = regexp.MustCompile(`(?i)总计[:：]\s*([\d.]+\s*[KMGTP]?B)`)
)

// Page 是 Extract 从用户页解析出的结果。
type Page struct {
	// 找不到用户名节点时为空。
	Username string
	Quota    model.QuotaSnapshot
	// 是否使用了 originBody 中解码出的页面。
	Decoded bool
}

// Extract 解析用户页。优先使用 base64 的 originBody，再看可见页面；
// 正则兜底只填充仍为默认值的字段。
func Extract(html string) Page {
	page := Page{Quota: model.DefaultQuota()}

	var texts []string
	if decoded, ok := DecodeOriginBody(html); ok {
		page.Decoded = true
		texts = append(texts, decoded)
	}
	texts = append(texts, html)

	for _, text := range texts {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err != nil {
			continue
		}
		if page.Username == "" {
			page.Username = findUsername(doc)
		}
		if page.Quota.Remaining != model.Unknown && page.Quota.UsedToday != model.ZeroBytes {
			continue
		}
		remaining, used := scanCards(doc)
		if page.Quota.Remaining == model.Unknown && remaining != "" {
			page.Quota.Remaining = remaining
		}
		if page.Quota.UsedToday == model.ZeroBytes && used != "" {
			page.Quota.UsedToday = used
		}
	}

	for _, text := range texts {
		if page.Quota.UsedToday != model.ZeroBytes {
			break
		}
		if m := usedTodayRe.FindStringSubmatch(text); m != nil {
			page.Quota.UsedToday = m[1] + m[2]
		}
	}

	for _, text := range texts {
		if total, ok := findTotal(text); ok {
			page.Quota.Total = total
			break
		}
	}
	return page
}

// DecodeOriginBody 返回 `var originBody = "..."` 中隐藏的页面。
func DecodeOriginBody(html string) (string, bool) {
	m := originBodyRe.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	raw := strings.TrimSpace(m[1])
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return "", false
		}
	}
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func findUsername(doc *goquery.Document) string {
	if sel := doc.Find("div.d-sm-none.d-lg-inline-block").First(); sel.Length() > 0 {
		name := strings.TrimSpace(sel.Text())
		if strings.HasPrefix(name, greetingPrefix) {
			name = strings.TrimSpace(strings.ReplaceAll(name, greetingPrefix, ""))
		}
		if name != "" {
			return name
		}
	}
	if sel := doc.Find("span.navbar-brand").First(); sel.Length() > 0 {
		return strings.TrimSpace(sel.Text())
	}
	return ""
}

// scanCards 读取标题为流量项的卡片数值，后出现的卡片覆盖前面的。
func scanCards(doc *goquery.Document) (remaining, usedToday string) {
	doc.Find("div.card-header").Each(func(_ int, header *goquery.Selection) {
		card := header.ParentsFiltered("div.card").First()
		if card.Length() == 0 {
			return
		}
		counter := card.Find("span.counter").First()
		if counter.Length() == 0 {
			return
		}
		value := strings.TrimSpace(counter.Text())
		title := header.Text()
		switch {
		case strings.Contains(title, labelRemaining):
			remaining = value
		case strings.Contains(title, labelUsedToday):
			usedToday = value
		}
	})
	return remaining, usedToday
}

func findTotal(text string) (string, bool) {
	if m := totalPairRe.FindStringSubmatch(text); m != nil {
		return m[2], true
	}
	if m := totalLabelRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}
