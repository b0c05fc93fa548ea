package main

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	connID     string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	log        zerolog.Logger
}

// NewClient creates a new Client with a fresh connection id
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := GenerateConnID()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		connID:     id,
		remoteAddr: remoteAddr,
		log:        hub.log.With().Str("conn", id).Logger(),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("ws error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn().Str("ip", c.remoteAddr).Msg("rate limit exceeded, disconnecting")
			c.hub.relay.Dropped("rate_limit")
			break
		}

		if msgType != websocket.TextMessage {
			c.hub.relay.Dropped("binary")
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// Close drops the connection; the read pump then unregisters the client
func (c *Client) Close() {
	c.conn.Close()
}

// handleMessage decodes one envelope and queues it for the relay
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.hub.relay.Dropped("malformed")
		return
	}

	var cmd any
	switch env.T {
	case MsgJoin:
		var msg JoinMsg
		if decode(env.D, &msg) {
			cmd = joinCmd{conn: c, connID: c.connID, msg: msg}
		}
	case MsgPlayerMove:
		var msg MoveMsg
		if decode(env.D, &msg) {
			cmd = moveCmd{connID: c.connID, msg: msg}
		}
	case MsgPlayerShoot:
		var msg ShootMsg
		if decode(env.D, &msg) {
			cmd = shootCmd{connID: c.connID, msg: msg}
		}
	case MsgPlayerHit:
		var msg HitMsg
		if decode(env.D, &msg) {
			cmd = hitCmd{connID: c.connID, msg: msg}
		}
	case MsgCollision:
		var msg CollisionMsg
		if decode(env.D, &msg) {
			cmd = collisionCmd{connID: c.connID, msg: msg}
		}
	case MsgRequestPlayerInfo:
		var msg InfoRequestMsg
		if decode(env.D, &msg) {
			cmd = infoCmd{connID: c.connID, msg: msg}
		}
	case MsgHeartbeat:
		cmd = heartbeatCmd{connID: c.connID}
	default:
		c.hub.relay.Dropped("unknown_type")
		return
	}

	if cmd == nil {
		c.hub.relay.Dropped("malformed")
		return
	}
	c.hub.relay.Submit(cmd)
}

// decode unmarshals a payload, treating an absent payload as malformed
func decode(data json.RawMessage, v interface{}) bool {
	if len(data) == 0 {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
