package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one real-time connection. Frames are queued on send and
// written by WritePump; the connection's identity is filled in by the Hub
// once the client joins as an admin or a student.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	closeOnce sync.Once

	mu        sync.RWMutex
	admin     bool
	studentID string
	examID    int64
}

// NewClient wraps a connection. conn and limiter may be nil in tests.
func NewClient(conn *websocket.Conn, limiter *rate.Limiter) *Client {
	return &Client{
		id:      uuid.New().String(),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Outbound exposes queued frames.
func (c *Client) Outbound() <-chan []byte { return c.send }

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the write pump, which closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Identity returns what the client joined as.
func (c *Client) Identity() (studentID string, examID int64, admin bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.studentID, c.examID, c.admin
}

func (c *Client) bindStudent(studentID string, examID int64) (prevStudent string, prevExam int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prevStudent, prevExam = c.studentID, c.examID
	c.studentID, c.examID = studentID, examID
	return prevStudent, prevExam
}

func (c *Client) markAdmin() {
	c.mu.Lock()
	c.admin = true
	c.mu.Unlock()
}

// Send queues a frame without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) Send(event Event, data any) bool {
	payload, err := Encode(event, data)
	if err != nil {
		return false
	}
	return c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// ReadLoop reads frames until the connection fails, passing each decoded
// envelope to handle. Frames over the client's rate limit are dropped.
func (c *Client) ReadLoop(handle func(env RequestEnvelope)) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if c.limiter != nil && !c.limiter.Allow() {
			c.Send(EventError, ErrorNotice{Message: "too many events"})
			continue
		}

		var env RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.Send(EventError, ErrorNotice{Message: "malformed frame"})
			continue
		}
		handle(env)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings
// until the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued, best effort.
func (c *Client) flush() {
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}
