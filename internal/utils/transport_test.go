package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	insecure, err := NewTransport(TransportOptions{})
	require.NoError(t, err)
	resp, err := (&http.Client{Transport: insecure}).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	strict, err := NewTransport(TransportOptions{VerifyTLS: true})
	require.NoError(t, err)
	_, err = (&http.Client{Transport: strict}).Get(srv.URL)
	assert.Error(t, err, "self-signed certificate must be rejected")
}

func TestNewTransportRejectsBadProxy(t *testing.T) {
	_, err := NewTransport(TransportOptions{Proxy: "http://[::1"})
	assert.Error(t, err)

	_, err = NewTransport(TransportOptions{Proxy: " socks5://127.0.0.1:1080 "})
	assert.NoError(t, err)
}
