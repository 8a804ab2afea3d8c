package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shaytris/Obsidian/internal/config"
	"github.com/Shaytris/Obsidian/pkg/log"
)

// Client is one live connection: the websocket, its buffered outbound
// queue and its session record. All outbound traffic goes through Send
// so a slow peer backs up its own queue, never the sender.
type Client struct {
	ID      string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session *Session
	config  config.WebSocketConfig

	closed bool // guarded by Hub.mu
}

func NewClient(id string, h *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buf := cfg.SendBuffer
	if buf <= 0 {
		buf = 256
	}
	return &Client{
		ID:      id,
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, buf),
		Session: NewSession(""),
		config:  cfg,
	}
}

// ReadPump consumes inbound frames and hands them to handler. The
// deferred cleanup runs on every exit path, error or graceful, so a
// dying connection always leaves its room and the registry.
func (c *Client) ReadPump(handler func(*Client, []byte), onClose func(*Client)) {
	defer func() {
		if onClose != nil {
			onClose(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.L().Warn().Str(log.FieldClientID, c.ID).Err(err).Msg("websocket read failed")
			}
			break
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

// WritePump drains Send onto the socket with a bounded write deadline
// per frame, and keeps the transport alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent marshals v and queues it for this client only. A full
// queue drops the event rather than blocking the caller.
func (c *Client) SendEvent(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Hub.trySend(c, data)
	return nil
}
