package httpserver

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcards/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 512
)

// wsCommand is a client message on the game socket.
type wsCommand struct {
	Type  string `json:"type"` // "flip" | "restart"
	Index int    `json:"index"`
}

// wsEvent is a server message on the game socket.
type wsEvent struct {
	Type  string  `json:"type"` // "state"
	State viewRes `json:"state"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == s.origin {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleWS streams every view of the session and accepts flip/restart
// commands. Only this goroutine writes to the connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID()).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	log.Debug().Str("session", sess.ID()).Str("remote", r.RemoteAddr).Msg("websocket connected")

	updates, cancel := sess.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go readCommands(conn, sess, done)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case v, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(wsEvent{Type: "state", State: toViewRes(v)}); err != nil {
				log.Debug().Err(err).Str("session", sess.ID()).Msg("websocket write")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readCommands applies client commands until the connection fails or the
// session is closed; it closes done on exit.
func readCommands(conn *websocket.Conn, sess *session.Session, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", sess.ID()).Msg("websocket read")
			}
			return
		}
		var err error
		switch cmd.Type {
		case "flip":
			_, err = sess.Flip(cmd.Index)
		case "restart":
			_, err = sess.Restart()
		default:
			log.Debug().Str("session", sess.ID()).Str("type", cmd.Type).Msg("unknown websocket command")
		}
		if err != nil {
			return
		}
	}
}
