package notify

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/mail"
	"strings"

	"gopkg.in/gomail.v2"

	"ikuuu_checkin/internal/config"
	"ikuuu_checkin/internal/logbus"
)

// SendFunc 通过 SMTP 服务器发送邮件。
type SendFunc func(ctx context.Context, server SMTPServer, user, password string, msg *gomail.Message) error

type SMTPServer struct {
	Host   string
	Port   int
	UseSSL bool
}

// EmailNotifier 把报告发到配置的邮箱，并用该邮箱登录 SMTP。
type EmailNotifier struct {
	cfg  config.EmailConfig
	bus  *logbus.Bus
	send SendFunc
}

func NewEmailNotifier(cfg config.EmailConfig, bus *logbus.Bus) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, bus: bus, send: dialAndSend}
}

// WithSender 替换发送实现。
func (n *EmailNotifier) WithSender(send SendFunc) *EmailNotifier {
	n.send = send
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(ctx context.Context, title, body string) bool {
	if !n.cfg.Enabled {
		n.bus.Log("info", "邮件通知未启用", nil)
		return false
	}
	if err := validateEmailConfig(n.cfg); err != nil {
		n.bus.Log("warn", "邮件配置无效", map[string]any{"error": err.Error()})
		return false
	}
	if err := n.sendReport(ctx, title, body); err != nil {
		n.bus.Log("warn", "邮件发送失败", map[string]any{"error": err.Error()})
		return false
	}
	n.bus.Log("info", "通知邮件已发送", map[string]any{"to": strings.TrimSpace(n.cfg.Email)})
	return true
}

func (n *EmailNotifier) sendReport(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := strings.TrimSpace(n.cfg.Email)
	server, err := smtpConfigForEmail(email)
	if err != nil {
		return err
	}
	htmlBody, textBody, err := buildEmailBody(title, body)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(email, "ikuuu签到助手"))
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", title)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	return n.send(ctx, server, email, strings.TrimSpace(n.cfg.AuthCode), msg)
}

func dialAndSend(_ context.Context, server SMTPServer, user, password string, msg *gomail.Message) error {
	d := gomail.NewDialer(server.Host, server.Port, user, password)
	d.SSL = server.UseSSL
	return d.DialAndSend(msg)
}

func validateEmailConfig(c config.EmailConfig) error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email")
	}
	if strings.TrimSpace(c.AuthCode) == "" {
		return errors.New("authCode is required")
	}
	return nil
}

func smtpConfigForEmail(email string) (SMTPServer, error) {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return SMTPServer{}, errors.New("invalid email format")
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))
	is := func(names ...string) bool {
		for _, name := range names {
			if domain == name || strings.HasSuffix(domain, "."+name) {
				return true
			}
		}
		return false
	}

	switch {
	case is("qq.com", "foxmail.com"):
		return SMTPServer{Host: "smtp.qq.com", Port: 465, UseSSL: true}, nil
	case is("163.com", "126.com", "yeah.net"):
		return SMTPServer{Host: "smtp.163.com", Port: 465, UseSSL: true}, nil
	case is("gmail.com"):
		return SMTPServer{Host: "smtp.gmail.com", Port: 587}, nil
	case is("outlook.com", "hotmail.com", "live.com"):
		return SMTPServer{Host: "smtp.office365.com", Port: 587}, nil
	case is("sina.com"):
		return SMTPServer{Host: "smtp.sina.com", Port: 465, UseSSL: true}, nil
	case is("aliyun.com"):
		return SMTPServer{Host: "smtp.aliyun.com", Port: 465, UseSSL: true}, nil
	default:
		return SMTPServer{Host: "smtp." + domain, Port: 465, UseSSL: true}, nil
	}
}

var emailHTMLTpl = template.Must(template.New("email").Parse(`
<!doctype html>
<html lang="zh-CN">
  <head>
    <meta charset="utf-8" />
    <title>{{ .Title }}</title>
  </head>
  <body style="margin:0;padding:0;background:#f6f8fb;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'PingFang SC','Microsoft YaHei',sans-serif;">
    <div style="max-width:640px;margin:0 auto;padding:24px;">
      <div style="background:#ffffff;border:1px solid #e6e8ef;border-radius:14px;overflow:hidden;">
        <div style="padding:18px 22px;background:linear-gradient(135deg,#0ea5e9,#6366f1);color:#ffffff;">
          <div style="font-size:16px;font-weight:700;">{{ .Title }}</div>
        </div>
        <div style="padding:22px;">
          <table role="presentation" cellspacing="0" cellpadding="0" border="0" style="width:100%;border-collapse:collapse;">
            <tbody>
              {{ range .Rows }}
              <tr>
                <td style="width:120px;padding:10px 12px;background:#fafbff;border-bottom:1px solid #eef0f6;color:#6b7280;font-size:12px;">{{ .K }}</td>
                <td style="padding:10px 12px;border-bottom:1px solid #eef0f6;color:#111827;font-size:12px;font-weight:600;">{{ .V }}</td>
              </tr>
              {{ end }}
            </tbody>
          </table>
          <div style="margin-top:14px;color:#9ca3af;font-size:12px;">此邮件由系统自动发送</div>
        </div>
      </div>
    </div>
  </body>
</html>
`))

type rowKV struct {
	K string
	V string
}

// reportRows 把 "[标签]：值" 行拆成表格行，没有标签的行 key 为空。
func reportRows(body string) []rowKV {
	var rows []rowKV
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if k, v, ok := strings.Cut(line[1:], "]："); ok {
				rows = append(rows, rowKV{K: k, V: strings.TrimSpace(v)})
				continue
			}
		}
		rows = append(rows, rowKV{V: line})
	}
	return rows
}

func buildEmailBody(title, body string) (htmlBody string, textBody string, err error) {
	data := struct {
		Title string
		Rows  []rowKV
	}{
		Title: title,
		Rows:  reportRows(body),
	}
	var buf bytes.Buffer
	if err := emailHTMLTpl.Execute(&buf, data); err != nil {
		return "", "", err
	}

	text := new(strings.Builder)
	text.WriteString(title + "\n")
	for _, r := range data.Rows {
		if r.K == "" {
			text.WriteString(r.V + "\n")
			continue
		}
		text.WriteString(r.K + "：" + r.V + "\n")
	}
	return buf.String(), text.String(), nil
}
