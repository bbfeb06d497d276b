package common

import (
	"errors"
	"net"
	"sync"

	"github.com/hashicorp/yamux"
	"github.com/sirupsen/logrus"
)

// MuxListener accepts TCP connections from a base listener, runs a yamux
// server session on each and yields every inbound stream from Accept.
type MuxListener struct {
	base     net.Listener
	config   *yamux.Config
	sessions *SessionManager
	log      *logrus.Entry

	streams chan net.Conn
	done    chan struct{}
	// doneErr 在 done 关闭前写入, 之后只读
	doneErr   error
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

func muxConfig(logger *logrus.Logger) *yamux.Config {
	config := yamux.DefaultConfig()
	// LogOutput 与 Logger 不能同时设置
	config.LogOutput = nil
	config.Logger = logger.WithField("component", "yamux")
	return config
}

// NewMuxListener takes ownership of base and starts accepting from it.
func NewMuxListener(base net.Listener, logger *logrus.Logger) *MuxListener {
	l := &MuxListener{
		base:     base,
		config:   muxConfig(logger),
		sessions: NewSessionManager(),
		log:      logger.WithField("component", "mux"),
		streams:  make(chan net.Conn),
		done:     make(chan struct{}),
	}
	l.wg.Add(1)
	go l.acceptLoop()
	return l
}

func (l *MuxListener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.base.Accept()
		if err != nil {
			if l.closed() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				l.log.WithError(err).Warn("accept timeout")
				continue
			}
			l.log.WithError(err).Error("accept failed")
			l.fail(err)
			return
		}

		l.log.WithField("remote", conn.RemoteAddr().String()).Debug("conn accepted")
		l.wg.Add(1)
		go l.handleConnection(conn)
	}
}

func (l *MuxListener) handleConnection(conn net.Conn) {
	defer l.wg.Done()

	session, err := yamux.Server(conn, l.config)
	if err != nil {
		l.log.WithError(err).Warn("create yamux session failed")
		conn.Close()
		return
	}
	defer session.Close()

	addr := conn.RemoteAddr().String()
	log := l.log.WithField("remote", addr)
	l.sessions.Add(addr, session)
	defer l.sessions.Remove(addr, session)
	l.sessions.Dump(l.log)
	// Close 可能已在 Add 之前执行
	if l.closed() {
		return
	}

	for {
		stream, err := session.Accept()
		if err != nil {
			if errors.Is(err, yamux.ErrSessionShutdown) {
				log.Debug("session closed")
			} else {
				log.WithError(err).Warn("accept stream failed")
			}
			return
		}

		select {
		case l.streams <- stream:
		case <-l.done:
			stream.Close()
			return
		}
	}
}

// stop closes done once, recording the error Accept reports from then on.
func (l *MuxListener) stop(err error) {
	l.doneOnce.Do(func() {
		l.doneErr = err
		close(l.done)
	})
}

// fail shuts the listener down after the base listener broke. It runs on the
// accept goroutine, so it must not wait for wg.
func (l *MuxListener) fail(err error) {
	l.stop(err)
	l.base.Close()
	l.sessions.CloseAll()
}

func (l *MuxListener) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Accept returns the next stream opened by any client session. After Close it
// returns net.ErrClosed; after a base listener failure, that failure.
func (l *MuxListener) Accept() (net.Conn, error) {
	select {
	case stream := <-l.streams:
		return stream, nil
	case <-l.done:
		return nil, l.doneErr
	}
}

// Close stops the base listener and every live session. It waits for the
// per-session goroutines to exit.
func (l *MuxListener) Close() error {
	l.closeOnce.Do(func() {
		l.stop(net.ErrClosed)
		l.closeErr = l.base.Close()
		l.sessions.CloseAll()
		l.wg.Wait()
	})
	return l.closeErr
}

func (l *MuxListener) Addr() net.Addr {
	return l.base.Addr()
}

// Sessions returns the number of live client sessions.
func (l *MuxListener) Sessions() int {
	return l.sessions.Len()
}
