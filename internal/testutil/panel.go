package testutil

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
)

const (
	sessionCookie = "PHPSESSID"
	userCookie    = "uid"
)

// Panel 模拟签到面板的登录、签到接口和用户页，响应字段为零值时走正常流程。
type Panel struct {
	Email    string
	Password string

	CheckinStatus int
	CheckinBody   string
	UserStatus    int
	UserPage      string

	mu         sync.Mutex
	loginPosts int
	checkins   int
}

func NewPanel(email, password string) *Panel {
	return &Panel{Email: email, Password: password}
}

func (p *Panel) LoginPosts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginPosts
}

func (p *Panel) Checkins() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkins
}

func (p *Panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		writeHTML(w, http.StatusOK, `<html><body><a href="/auth/login">登录</a></body></html>`)
	case r.URL.Path == "/auth/login" && r.Method == http.MethodGet:
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "mock-session", Path: "/"})
		writeHTML(w, http.StatusOK, `<html><body><form method="post"><input name="email"><input name="passwd"></form></body></html>`)
	case r.URL.Path == "/auth/login" && r.Method == http.MethodPost:
		p.login(w, r)
	case r.URL.Path == "/user/checkin" && r.Method == http.MethodPost:
		p.checkin(w, r)
	case r.URL.Path == "/user" && r.Method == http.MethodGet:
		if !loggedIn(r) {
			http.Redirect(w, r, "/auth/login", http.StatusFound)
			return
		}
		status, page := p.UserStatus, p.UserPage
		if status == 0 {
			status = http.StatusOK
		}
		if page == "" {
			page = UserPage("tester", "88.5GB", "1.2GB", "100GB")
		}
		writeHTML(w, status, page)
	default:
		http.NotFound(w, r)
	}
}

func (p *Panel) login(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.loginPosts++
	p.mu.Unlock()

	_ = r.ParseForm()
	_, err := r.Cookie(sessionCookie)
	ok := err == nil &&
		r.PostForm.Get("email") == p.Email &&
		r.PostForm.Get("passwd") == p.Password &&
		r.PostForm.Get("remember_me") == "on"
	if !ok {
		http.Redirect(w, r, "/auth/login?err=1", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: userCookie, Value: "1", Path: "/"})
	http.Redirect(w, r, "/user", http.StatusFound)
}

func (p *Panel) checkin(w http.ResponseWriter, r *http.Request) {
	if !loggedIn(r) {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}
	p.mu.Lock()
	p.checkins++
	n := p.checkins
	p.mu.Unlock()

	status, body := p.CheckinStatus, p.CheckinBody
	if status == 0 {
		status = http.StatusOK
	}
	if body == "" {
		body = `{"ret":1,"msg":"你获得了 1024MB 流量"}`
		if n > 1 {
			body = `{"ret":0,"msg":"您似乎已经签到过了..."}`
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func loggedIn(r *http.Request) bool {
	c, err := r.Cookie(userCookie)
	return err == nil && c.Value != ""
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// UserPage 生成用户页，真实内容像线上面板一样藏在 base64 的 originBody 脚本里。
func UserPage(username, remaining, usedToday, total string) string {
	inner := fmt.Sprintf(`<html><body>
<nav class="navbar"><div class="d-sm-none d-lg-inline-block">Hi, %s</div></nav>
<div class="card"><div class="card-header"><h4>剩余流量</h4></div><div class="card-body"><span class="counter">%s</span></div></div>
<div class="card"><div class="card-header"><h4>今日已用</h4></div><div class="card-body"><span class="counter">%s</span></div></div>
<p>已用 0 GB / %s</p>
</body></html>`, username, remaining, usedToday, total)
	enc := base64.StdEncoding.EncodeToString([]byte(inner))
	return `<html><head><title>用户中心</title></head><body><script>var originBody = "` + enc +
		`";document.body.innerHTML = atob(originBody);</script></body></html>`
}
