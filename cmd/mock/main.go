// mock 为本地调试提供假的面板和 PushDeer 接口：
//
//	go run ./cmd/mock -addr :8080
//	IKUUU_HOST=127.0.0.1:8080 IKUUU_EMAIL=demo@example.com IKUUU_PASSWORD=demo \
//	  go run ./cmd/checkin --config mock.yaml
//
// 其中 site.scheme 设为 http，notify.pushdeer.endpoint 指向
// http://127.0.0.1:8080/message/push。
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"

	"ikuuu_checkin/internal/testutil"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	email := flag.String("email", "demo@example.com", "accepted login email")
	password := flag.String("password", "demo", "accepted login password")
	flag.Parse()

	panel := testutil.NewPanel(*email, *password)

	mux := http.NewServeMux()
	mux.HandleFunc("/mock/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"loginPosts": panel.LoginPosts(),
			"checkins":   panel.Checkins(),
		})
	})

	mux.HandleFunc("/message/push", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = r.ParseForm()
		log.Printf("push %q (%s):\n%s", r.PostForm.Get("text"), r.PostForm.Get("type"), r.PostForm.Get("desp"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    0,
			"content": map[string]any{"result": []string{`{"counts":1}`}},
		})
	})

	mux.Handle("/", panel)

	server := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("mock panel listening on %s (login %s)", *addr, *email)
	log.Fatal(server.ListenAndServe())
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}
