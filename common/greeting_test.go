package common

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestGreetingHandlerAnyMethodAnyPath(t *testing.T) {
	methods := []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions, "BREW",
	}
	paths := []string{"/", "/anything", "/a/b/c?x=1", "/favicon.ico"}

	h := GreetingHandler()
	for _, method := range methods {
		for _, path := range paths {
			req := httptest.NewRequest(method, path, strings.NewReader("ignored body"))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, "%s %s", method, path)
			require.Equal(t, "text/html", rec.Header().Get("Content-Type"), "%s %s", method, path)
			require.Equal(t, Greeting, rec.Body.String(), "%s %s", method, path)
		}
	}
}

func TestGreetingIsFixed(t *testing.T) {
	require.Equal(t, "<h1>Hello from Node on port 3000</h1>", Greeting)
}

func TestAccessLogRedactsAndRecords(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := AccessLog(logger.WithField("component", "test"), GreetingHandler())
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "id=1")
	req.Header.Set("X-Trace", "abc")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, Greeting, string(body))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)

	headers, ok := entries[0].Data["headers"].(http.Header)
	require.True(t, ok)
	require.Equal(t, "<redacted>", headers.Get("Authorization"))
	require.Equal(t, "<redacted>", headers.Get("Cookie"))
	require.Equal(t, "abc", headers.Get("X-Trace"))
	require.Equal(t, "Bearer secret", req.Header.Get("Authorization"))

	require.Equal(t, "response completed", entries[1].Message)
	require.Equal(t, http.StatusOK, entries[1].Data["status"])
	require.Equal(t, len(Greeting), entries[1].Data["bytes"])
}

func TestAccessLogSilentAboveDebug(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	rec := httptest.NewRecorder()
	AccessLog(logrus.NewEntry(logger), GreetingHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, Greeting, rec.Body.String())
	require.Empty(t, hook.AllEntries())
}
