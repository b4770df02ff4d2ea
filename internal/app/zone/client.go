/*
Package zone is the single owner of all shared zone state.

This file defines the Client struct, the transport adapter for one websocket
connection. A Client never touches zone state: ReadPump forwards frames to the
zone loop and WritePump drains the send queue the loop fills.
*/
package zone

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"zone/internal/app/ticket"
	"zone/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// size of the per-client outbound queue.
	sendBuffer = 256
)

// Custom close codes (4000-4999 range).
const (
	// CloseSuperseded tells a client its user was bound to a newer connection.
	CloseSuperseded = 4001

	// CloseKilled tells a client an admin removed it from the zone.
	CloseKilled = 4002

	// CloseBanned tells a client its network identity was banned.
	CloseBanned = 4003
)

// Client struct represents an active WebSocket connection and the user it carries.
type Client struct {
	zone *Zone

	// underlying WebSocket connection object. Nil in tests.
	conn *websocket.Conn

	// identity redeemed from the ticket.
	record ticket.Record

	// network identity the connection came from.
	ip string

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// closed, closeCode and closeReason are owned by the zone loop.
	closed      bool
	closeCode   int
	closeReason string

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient binds a redeemed ticket to a connection.
func NewClient(z *Zone, conn *websocket.Conn, rec ticket.Record, ip string) *Client {
	return &Client{
		zone:   z,
		conn:   conn,
		record: rec,
		ip:     ip,
		send:   make(chan []byte, sendBuffer),
		logger: logx.Logger().With().
			Str("component", "client").
			Str("user_id", rec.UserID).
			Logger(),
	}
}

// UserID returns the id of the user this connection carries.
func (c *Client) UserID() string { return c.record.UserID }

// enqueue queues a frame without blocking. It reports false when the client
// is closed or too slow to keep up.
func (c *Client) enqueue(data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full.")
		return false
	}
}

// close ends the connection with code. Only the zone loop calls it; later
// calls are no-ops.
func (c *Client) close(code int, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// ReadPump handles reading messages from the WebSocket connection.
// It handles heartbeats (Pong) and hands every frame to the zone loop.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		if !c.zone.deliver(c, data) {
			break
		}
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.zone.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump handles writing messages from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		code := c.closeCode
		if code == 0 {
			code = websocket.CloseNormalClosure
		}
		frame := websocket.FormatCloseMessage(code, c.closeReason)
		if err := c.conn.WriteMessage(websocket.CloseMessage, frame); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
