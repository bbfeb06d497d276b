package common

import (
	"sync"

	"github.com/hashicorp/yamux"
	"github.com/sirupsen/logrus"
)

// SessionManager tracks live yamux sessions by remote address.
type SessionManager struct {
	sync.Mutex
	addr2session map[string]*yamux.Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		addr2session: make(map[string]*yamux.Session),
	}
}

func (m *SessionManager) Add(addr string, session *yamux.Session) {
	m.Lock()
	defer m.Unlock()
	m.addr2session[addr] = session
}

func (m *SessionManager) Get(addr string) *yamux.Session {
	m.Lock()
	defer m.Unlock()
	return m.addr2session[addr]
}

// Remove drops addr only if it still maps to session.
func (m *SessionManager) Remove(addr string, session *yamux.Session) {
	m.Lock()
	defer m.Unlock()
	if m.addr2session[addr] == session {
		delete(m.addr2session, addr)
	}
}

func (m *SessionManager) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.addr2session)
}

// CloseAll closes and forgets every session.
func (m *SessionManager) CloseAll() {
	m.Lock()
	sessions := m.addr2session
	m.addr2session = make(map[string]*yamux.Session)
	m.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

func (m *SessionManager) Dump(log *logrus.Entry) {
	m.Lock()
	defer m.Unlock()
	for addr, session := range m.addr2session {
		log.WithFields(logrus.Fields{
			"addr":    addr,
			"streams": session.NumStreams(),
		}).Debug("session")
	}
}
