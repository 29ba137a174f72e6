package notify

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"ikuuu_checkin/internal/config"
)

type capturedMail struct {
	server   SMTPServer
	user     string
	password string
	subject  []string
	raw      string
}

func capture(dst *capturedMail, err error) SendFunc {
	return func(_ context.Context, server SMTPServer, user, password string, msg *gomail.Message) error {
		dst.server = server
		dst.user = user
		dst.password = password
		// gomail 存的是已编码的 MIME 头。
		dec := new(mime.WordDecoder)
		for _, h := range msg.GetHeader("Subject") {
			subject, derr := dec.DecodeHeader(h)
			if derr != nil {
				return derr
			}
			dst.subject = append(dst.subject, subject)
		}
		var buf bytes.Buffer
		if _, werr := msg.WriteTo(&buf); werr != nil {
			return werr
		}
		dst.raw = buf.String()
		return err
	}
}

func TestEmailNotifierSendsReport(t *testing.T) {
	var got capturedMail
	n := NewEmailNotifier(config.EmailConfig{
		Enabled:  true,
		Email:    " someone@qq.com ",
		AuthCode: "code",
	}, nil).WithSender(capture(&got, nil))

	ok := n.Notify(context.Background(), "ikuuu签到通知", "[登录账号]：tester  \n[当前域名]：ikuuu.one\n")
	require.True(t, ok)
	assert.Equal(t, SMTPServer{Host: "smtp.qq.com", Port: 465, UseSSL: true}, got.server)
	assert.Equal(t, "someone@qq.com", got.user)
	assert.Equal(t, "code", got.password)
	assert.Equal(t, []string{"ikuuu签到通知"}, got.subject)
	assert.Contains(t, got.raw, "text/html")
}

func TestEmailNotifierSkipsWhenDisabledOrInvalid(t *testing.T) {
	sent := false
	sender := func(context.Context, SMTPServer, string, string, *gomail.Message) error {
		sent = true
		return nil
	}

	disabled := NewEmailNotifier(config.EmailConfig{Email: "a@qq.com", AuthCode: "x"}, nil).WithSender(sender)
	assert.False(t, disabled.Notify(context.Background(), "t", "b"))

	noCode := NewEmailNotifier(config.EmailConfig{Enabled: true, Email: "a@qq.com"}, nil).WithSender(sender)
	assert.False(t, noCode.Notify(context.Background(), "t", "b"))

	badAddr := NewEmailNotifier(config.EmailConfig{Enabled: true, Email: "nope", AuthCode: "x"}, nil).WithSender(sender)
	assert.False(t, badAddr.Notify(context.Background(), "t", "b"))

	assert.False(t, sent)
}

func TestEmailNotifierSendFailure(t *testing.T) {
	var got capturedMail
	n := NewEmailNotifier(config.EmailConfig{Enabled: true, Email: "a@gmail.com", AuthCode: "x"}, nil).
		WithSender(capture(&got, errors.New("535 auth failed")))
	assert.False(t, n.Notify(context.Background(), "t", "b"))
	assert.Equal(t, "smtp.gmail.com", got.server.Host)
}

func TestSMTPConfigForEmail(t *testing.T) {
	cases := map[string]SMTPServer{
		"a@qq.com":          {Host: "smtp.qq.com", Port: 465, UseSSL: true},
		"a@vip.qq.com":      {Host: "smtp.qq.com", Port: 465, UseSSL: true},
		"a@126.com":         {Host: "smtp.163.com", Port: 465, UseSSL: true},
		"a@Outlook.com":     {Host: "smtp.office365.com", Port: 587},
		"a@gmail.com":       {Host: "smtp.gmail.com", Port: 587},
		"a@mail.example.io": {Host: "smtp.mail.example.io", Port: 465, UseSSL: true},
	}
	for email, want := range cases {
		got, err := smtpConfigForEmail(email)
		require.NoError(t, err, email)
		assert.Equal(t, want, got, email)
	}

	_, err := smtpConfigForEmail("no-at-sign")
	assert.Error(t, err)
}

func TestReportRows(t *testing.T) {
	rows := reportRows("[登录账号]：tester  \n[签到状态]：已经签到过了  \n\n自由文本\n")
	assert.Equal(t, []rowKV{
		{K: "登录账号", V: "tester"},
		{K: "签到状态", V: "已经签到过了"},
		{V: "自由文本"},
	}, rows)
}
