package common

import (
	"context"
	"net"
	"net/http"

	"github.com/hashicorp/yamux"
	"github.com/sirupsen/logrus"
)

// DialMux connects to a yamux listener and opens a client session on it.
func DialMux(ctx context.Context, addr string, logger *logrus.Logger) (*yamux.Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	session, err := yamux.Client(conn, muxConfig(logger))
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"component": "mux",
		"remote":    session.RemoteAddr().String(),
	}).Debug("session established")
	return session, nil
}

// MuxTransport returns an HTTP transport whose connections are streams on
// session. The request URL host is ignored.
func MuxTransport(session *yamux.Session) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return openStream(ctx, session)
		},
	}
}

type openResult struct {
	conn net.Conn
	err  error
}

// openStream opens a stream on session, giving up when ctx is done.
func openStream(ctx context.Context, session *yamux.Session) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make(chan openResult, 1)
	go func() {
		conn, err := session.Open()
		result <- openResult{conn, err}
	}()

	select {
	case r := <-result:
		return r.conn, r.err
	case <-ctx.Done():
		// 晚到的流无人使用, 关闭
		go func() {
			if r := <-result; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
