package common

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytes += n
	return n, err
}

func redactHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
			out[k] = []string{"<redacted>"}
			continue
		}
		out[k] = vv
	}
	return out
}

// AccessLog logs each request and its outcome at debug level.
func AccessLog(log *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		log.WithFields(logrus.Fields{
			"method":  r.Method,
			"url":     r.URL.String(),
			"remote":  r.RemoteAddr,
			"proto":   r.Proto,
			"headers": redactHeaders(r.Header),
		}).Debug("incoming request")

		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		if lrw.status == 0 {
			lrw.status = http.StatusOK
		}
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"url":      r.URL.String(),
			"status":   lrw.status,
			"bytes":    lrw.bytes,
			"duration": time.Since(start),
		}).Debug("response completed")
	})
}
