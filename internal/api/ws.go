package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frenchbreeze/breeze/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsMessage is pushed to the client on every state change.
type wsMessage struct {
	Type    string      `json:"type"`
	Profile profileView `json:"profile"`
}

// handleWS streams the caller's profile. Bursts of changes collapse into a
// single push of the latest state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	m, release, err := s.manager(r)
	defer release()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}

	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}
	unsubscribe := m.OnChange(func(session.State) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, m, dirty, done)
}

// readPump discards client messages and keeps the read deadline alive.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read", "error", err)
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, m *session.Manager, dirty <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case <-dirty:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsMessage{Type: "profile", Profile: viewOf(m.State())}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
