package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUserAgent(t *testing.T) {
	chrome := "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	firefox := "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

	assert.Equal(t, chrome, NormalizeUserAgent("  "+chrome+" "))
	assert.Equal(t, firefox, NormalizeUserAgent(firefox))
	assert.Equal(t, DefaultDesktopUserAgent(), NormalizeUserAgent(""))
	assert.Equal(t, DefaultDesktopUserAgent(), NormalizeUserAgent("curl/8.0"))
	assert.Equal(t, DefaultDesktopUserAgent(), NormalizeUserAgent("python-requests/2.31"))
}
