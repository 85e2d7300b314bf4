package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"scriptforge/internal/compiler"
)

const (
	streamWriteWait = 10 * time.Second
	streamReadWait  = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// streamMessage is one server-to-client frame. Type is "state", "result" or
// "error".
type streamMessage struct {
	Type    string           `json:"type"`
	From    string           `json:"from,omitempty"`
	To      string           `json:"to,omitempty"`
	Result  *compiler.Result `json:"result,omitempty"`
	Code    string           `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
}

// stream compiles one flow per connection. The client sends a compile
// request; the server answers with every state transition followed by the
// result or the error, then closes.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	log := h.deps.Logger.WithField("remote", r.RemoteAddr)

	send := func(m streamMessage) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
			return false
		}
		if err := conn.WriteJSON(m); err != nil {
			log.WithError(err).Debug("compile stream write failed")
			return false
		}
		return true
	}

	if err := conn.SetReadDeadline(time.Now().Add(streamReadWait)); err != nil {
		return
	}
	var req compiler.Request
	if err := conn.ReadJSON(&req); err != nil {
		send(streamMessage{Type: "error", Code: "invalid_argument", Message: err.Error()})
		return
	}
	req.Flow = strings.TrimSpace(req.Flow)
	if req.Flow == "" {
		send(streamMessage{Type: "error", Code: "invalid_argument", Message: "flow is required"})
		return
	}

	obs := compiler.ObserverFunc(func(e compiler.Event) {
		send(streamMessage{Type: "state", From: e.From.String(), To: e.To.String(), Message: e.Message})
	})
	res, err := h.deps.Compiler.Compile(r.Context(), req, obs)
	if err != nil {
		_, code := classify(err)
		send(streamMessage{Type: "error", Code: code, Message: err.Error()})
	} else {
		send(streamMessage{Type: "result", Result: &res})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteWait))
}
