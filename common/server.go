package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// BindError reports that a listening socket could not be created. It is not
// retried.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Server serves the greeting on the configured port and, when MuxPort is set,
// over yamux streams on a second port.
type Server struct {
	cfg Config
	log *logrus.Entry

	srv      *http.Server
	errorLog io.Closer

	ln  net.Listener
	mux *MuxListener
}

func NewServer(cfg Config, logger *logrus.Logger) *Server {
	log := logger.WithField("component", "greeter")

	// net/http 内部错误 (如畸形请求) 转给 logrus
	errorLog := logger.WriterLevel(logrus.WarnLevel)

	handler := h2c.NewHandler(AccessLog(log, GreetingHandler()), &http2.Server{})
	return &Server{
		cfg: cfg,
		log: log,
		srv: &http.Server{
			Handler:  handler,
			ErrorLog: stdlog.New(errorLog, "", 0),
		},
		errorLog: errorLog,
	}
}

// Listen binds the listening sockets. On failure nothing stays bound.
func (s *Server) Listen() error {
	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	if s.cfg.MuxPort != 0 {
		muxAddr := s.cfg.MuxAddr()
		base, err := net.Listen("tcp", muxAddr)
		if err != nil {
			ln.Close()
			return &BindError{Addr: muxAddr, Err: err}
		}
		s.mux = NewMuxListener(base, s.log.Logger)
		s.log.WithField("port", tcpPort(base.Addr())).Info("yamux listener enabled")
	}

	s.ln = ln
	port := tcpPort(ln.Addr())
	s.log.WithField("port", port).Infof("Listening on %d", port)
	return nil
}

// Serve blocks until the server is shut down or a listener fails. A clean
// shutdown returns nil.
func (s *Server) Serve() error {
	if s.ln == nil {
		return errors.New("greeter: Serve called before Listen")
	}

	listeners := []net.Listener{s.ln}
	if s.mux != nil {
		listeners = append(listeners, s.mux)
	}

	errc := make(chan error, len(listeners))
	for _, ln := range listeners {
		go func(ln net.Listener) {
			errc <- s.srv.Serve(ln)
		}(ln)
	}

	var first error
	for range listeners {
		err := <-errc
		if err == nil || errors.Is(err, http.ErrServerClosed) || first != nil {
			continue
		}
		first = err
		// 任一监听失败则整体停止
		s.srv.Close()
	}
	return first
}

// Addr returns the bound greeting address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// MuxAddr returns the bound yamux address, or nil when disabled.
func (s *Server) MuxAddr() net.Addr {
	if s.mux == nil {
		return nil
	}
	return s.mux.Addr()
}

// Shutdown stops accepting, closes yamux sessions and waits for in-flight
// requests until ctx is done. Connections still open at that point are
// force-closed and the shutdown counts as clean.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if err != nil && errors.Is(err, ctx.Err()) {
		// 未发请求的连接在 net/http 看来一直忙碌, 超时后强制关闭
		s.log.WithError(err).Warn("graceful shutdown timed out, closing remaining connections")
		err = s.srv.Close()
	}
	// Serve 未运行时监听器不归 http.Server 管理
	if s.ln != nil {
		s.ln.Close()
	}
	if s.mux != nil {
		s.mux.Close()
	}
	s.errorLog.Close()
	return err
}

func tcpPort(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
