package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextURL(t *testing.T) {
	testCases := []struct {
		name     string
		next     string
		expected string
	}{
		{"local path", "/tournaments/abc", "/tournaments/abc"},
		{"missing", "", "/fallback"},
		{"absolute url", "https://example.org/", "/fallback"},
		{"protocol relative", "//example.org/", "/fallback"},
		{"backslash", "/\\example.org", "/fallback"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			form := url.Values{"next": {tc.next}}
			r := httptest.NewRequest(http.MethodPost, "/tournaments/abc/join", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			assert.Equal(t, tc.expected, nextURL(r, "/fallback"))
		})
	}
}

func TestParseFormTime(t *testing.T) {
	got, err := parseFormTime("2021-12-01T18:30")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2021, 12, 1, 18, 30, 0, 0, time.UTC), *got)

	got, err = parseFormTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseFormTime("tomorrow")
	assert.Error(t, err)
}
