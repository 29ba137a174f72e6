package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ikuuu_checkin/internal/logbus"
)

func TestHandlerReplaysAndStreamsFilteredEvents(t *testing.T) {
	bus := logbus.New(10, nil)
	bus.Log("debug", "noise", nil)
	bus.Log("warn", "replayed", nil)

	srv := httptest.NewServer(NewHandler(bus, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?types=log&level=warn"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first struct {
		Type string         `json:"type"`
		Data logbus.LogData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "replayed", first.Data.Msg)

	bus.Publish("run", map[string]any{"host": "ikuuu.one"})
	bus.Log("info", "too quiet", nil)
	bus.Log("error", "live", nil)

	var second struct {
		Type string         `json:"type"`
		Data logbus.LogData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "log", second.Type)
	assert.Equal(t, "live", second.Data.Msg)
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(nil, []string{"https://panel.example"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, h.checkOrigin(req("")))
	assert.True(t, h.checkOrigin(req("https://PANEL.example")))
	assert.False(t, h.checkOrigin(req("https://evil.example")))
	assert.True(t, NewHandler(nil, []string{"*"}).checkOrigin(req("https://any.example")))
}
