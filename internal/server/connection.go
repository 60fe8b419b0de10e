package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/cupsandcoins/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBufferSize = 256
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Connection is one websocket client playing its own game. The connection
// is the controller's renderer and event subscriber, so everything the
// controller produces is forwarded as a frame.
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	ctrl      *game.Controller
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	unsub     func()
}

// NewConnection wraps conn. opts configure the connection's controller; the
// renderer is always the connection itself.
func NewConnection(id string, conn *websocket.Conn, logger *log.Logger, opts ...game.Option) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan *Message, sendBufferSize),
		logger: logger.WithPrefix("conn").With("conn", id),
		ctx:    ctx,
		cancel: cancel,
	}
	c.ctrl = game.NewController(append(opts, game.WithRenderer(c))...)
	c.unsub = c.ctrl.Subscribe(c)
	return c
}

// Start begins handling the connection and sends the initial state.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
	c.sendState()
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close stops the game and closes the socket.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.unsub()
		c.ctrl.Stop()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg for the write pump. A client that cannot keep up
// with its buffer is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// RenderCups implements game.Renderer.
func (c *Connection) RenderCups(cups []game.CupView) {
	c.emit(MessageTypeCups, CupsData{Cups: cups})
}

// OnEvent implements game.EventSubscriber.
func (c *Connection) OnEvent(e game.GameEvent) {
	if mt, data, ok := messageFromEvent(e); ok {
		c.emit(mt, data)
	}
}

func (c *Connection) emit(mt MessageType, data any) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", mt, "error", err)
		return
	}
	if err := c.SendMessage(msg); err != nil {
		c.logger.Debug("Dropped message", "type", mt, "error", err)
	}
}

func (c *Connection) sendState() {
	c.emit(MessageTypeState, c.ctrl.State())
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case MessageTypeStart:
		var data StartData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start data: "+err.Error())
			return
		}
		// The controller reports progress through RenderCups and OnEvent.
		if err := c.ctrl.StartGame(data.Difficulty); err != nil {
			c.sendError("start_failed", err.Error())
		}

	case MessageTypeGuess:
		var data GuessData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse guess data")
			return
		}
		// Rejections arrive as a GuessRejectedEvent.
		c.ctrl.Guess(data.Slot)

	case MessageTypeState:
		c.sendState()

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	c.emit(MessageTypeError, ErrorData{Code: code, Message: message})
}
