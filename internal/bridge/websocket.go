package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/transceiver"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge is a LAN service; browsers on other origins may subscribe
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CommandRequest is a message accepted on /command
type CommandRequest struct {
	ID     string `json:"id,omitempty"`     // Echoed back for client correlation
	Op     string `json:"op"`               // reset, status, reset-tamper, light-on, light-off
	Device string `json:"device,omitempty"` // Alias or id such as "0x0A0B0C"
	Unit   *int   `json:"unit,omitempty"`   // Overrides the alias unit
}

// CommandResponse answers a CommandRequest once the command has been
// written to the transceiver (or has failed)
type CommandResponse struct {
	ID      string `json:"id,omitempty"`
	Op      string `json:"op"`
	Seq     *int   `json:"seq,omitempty"`
	Written bool   `json:"written"`
	Error   string `json:"error,omitempty"`
}

// serveEvents streams envelopes to a subscriber until it disconnects
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Warn("Event websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, remote: r.RemoteAddr, send: make(chan []byte, sendBuffer)}
	s.hub.add(c)
	logging.LogConnection(c.remote, "events_subscribed")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writePump(c)
	}()
	s.readPump(c)
}

// readPump discards client messages and notices when the client goes away
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		logging.LogConnection(c.remote, "events_closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Event client read error", zap.String("remote_addr", c.remote), zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveCommand handles one command client. Requests are processed in
// order; each response is sent after the write completes.
func (s *Server) serveCommand(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Command websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	remote := r.RemoteAddr
	logging.LogConnection(remote, "command_connected")
	defer logging.LogConnection(remote, "command_closed")

	conn.SetReadLimit(maxMessageSize)

	for {
		var req CommandRequest
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logging.Info("Command client read error", zap.String("remote_addr", remote), zap.Error(err))
			}
			return
		}

		resp := s.execute(req)

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			logging.Info("Command client write error", zap.String("remote_addr", remote), zap.Error(err))
			return
		}
	}
}

type writeResult struct {
	err error
	n   int
}

// execute sends req to the transceiver and waits for the write to settle
func (s *Server) execute(req CommandRequest) CommandResponse {
	resp := CommandResponse{ID: req.ID, Op: req.Op}

	results := make(chan writeResult, 1)
	done := func(err error, n int) { results <- writeResult{err, n} }

	seq, err := s.dispatch(req, done)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Seq = &seq

	select {
	case res := <-results:
		if res.err != nil {
			resp.Error = res.err.Error()
		} else {
			resp.Written = true
		}
	case <-time.After(writeWait):
		resp.Error = "timed out waiting for write"
	}
	return resp
}

func (s *Server) dispatch(req CommandRequest, done transceiver.WriteHandler) (int, error) {
	switch req.Op {
	case "reset":
		return s.tx.Reset(done), nil
	case "status":
		return s.tx.GetStatus(done), nil
	case "reset-tamper":
		return s.tx.ResetTamper(done), nil
	case "light-on", "light-off":
		id, unit, err := s.resolveTarget(req)
		if err != nil {
			return 0, err
		}
		if req.Op == "light-on" {
			return s.tx.LightOn(id, unit, done)
		}
		return s.tx.LightOff(id, unit, done)
	default:
		return 0, fmt.Errorf("unknown op %q", req.Op)
	}
}

func (s *Server) resolveTarget(req CommandRequest) (string, byte, error) {
	if req.Device == "" {
		return "", 0, fmt.Errorf("%s needs a device", req.Op)
	}

	id, unit, found := req.Device, 0, false
	if s.resolve != nil {
		id, unit, found = s.resolve(req.Device)
	}
	if req.Unit != nil {
		unit = *req.Unit
	} else if !found {
		return "", 0, fmt.Errorf("%s needs a unit for device %s", req.Op, req.Device)
	}

	if unit < 0 || unit > 255 {
		return "", 0, fmt.Errorf("unit %d out of range 0-255", unit)
	}
	return id, byte(unit), nil
}
