package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/analysis"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// handleStream pushes status, result and periodic stats messages of one session.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var id = chi.URLParam(r, "id")
	var ctrl, err = s.registry.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "id", id, "error", err)
		return
	}
	defer conn.Close()

	var notifications, unsubscribe = ctrl.Subscribe()
	defer unsubscribe()

	// the client only talks to close the stream
	var closed = make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var snapshot = ctrl.Snapshot()
	if err := s.writeMessage(conn, string(analysis.KindStatus), snapshot); err != nil {
		return
	}
	if err := s.stream(conn, ctrl, notifications, closed); err != nil {
		s.logger.Debugw("websocket closed", "id", id, "error", err)
	}
}

func (s *Server) stream(conn *websocket.Conn, ctrl *analysis.Controller, notifications <-chan analysis.Notification, closed <-chan struct{}) error {
	var stats = time.NewTicker(s.cfg.StatsInterval)
	defer stats.Stop()
	var heartbeat = time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	var lastWrite = time.Now()

	for {
		select {
		case <-closed:
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			var err error
			switch n.Kind {
			case analysis.KindResult:
				err = s.writeMessage(conn, string(n.Kind), n.Result)
			case analysis.KindStats:
				err = s.writeMessage(conn, string(n.Kind), n.Stats)
			default:
				err = s.writeMessage(conn, string(n.Kind), n)
			}
			if err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-stats.C:
			if !ctrl.Analyzing() {
				continue
			}
			if err := s.writeMessage(conn, string(analysis.KindStats), ctrl.Snapshot().Stats); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-heartbeat.C:
			if time.Since(lastWrite) < s.cfg.HeartbeatInterval {
				continue
			}
			if err := s.writeMessage(conn, "ping", nil); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, kind string, payload any) error {
	var msg = wsMessage{Type: kind}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, mustMarshal(msg))
}
