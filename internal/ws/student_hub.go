package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
)

// StudentFrame is a message pushed to the exam-taking client: a termination
// directive, or feedback about a rejected event report.
type StudentFrame struct {
	Type      string                `json:"type"` // "terminate", "event_ack", "event_rejected"
	Directive *proctoring.Directive `json:"directive,omitempty"`
	EventID   string                `json:"event_id,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type studentNotification struct {
	studentID string
	payload   []byte
}

// StudentHub keeps one live connection per student. Inbound frames are event
// reports fed into the engine by the client's read pump; outbound frames
// carry directives.
type StudentHub struct {
	register   chan *studentClient
	unregister chan *studentClient
	notify     chan studentNotification
	clients    map[string]*studentClient
}

func NewStudentHub() *StudentHub {
	return &StudentHub{
		register:   make(chan *studentClient),
		unregister: make(chan *studentClient),
		notify:     make(chan studentNotification, 256),
		clients:    make(map[string]*studentClient),
	}
}

func (h *StudentHub) Run() {
	for {
		select {
		case client := <-h.register:
			if existing, ok := h.clients[client.studentID]; ok {
				close(existing.send)
				existing.conn.Close()
			}
			h.clients[client.studentID] = client
		case client := <-h.unregister:
			if stored, ok := h.clients[client.studentID]; ok && stored == client {
				delete(h.clients, client.studentID)
				close(client.send)
				client.conn.Close()
			}
		case msg := <-h.notify:
			if client, ok := h.clients[msg.studentID]; ok {
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, msg.studentID)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

// Notify pushes a frame to the student's live connection, if any.
func (h *StudentHub) Notify(studentID string, frame StudentFrame) {
	if h == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case h.notify <- studentNotification{studentID: studentID, payload: data}:
	default:
		log.Printf("ws: student notify queue full, dropping frame")
	}
}

// Terminate implements proctoring.DirectiveSink.
func (h *StudentHub) Terminate(d proctoring.Directive) {
	directive := d
	h.Notify(d.StudentID, StudentFrame{Type: "terminate", Directive: &directive})
}

type studentClient struct {
	hub       *StudentHub
	conn      *websocket.Conn
	send      chan []byte
	studentID string
	sessionID string
	engine    *proctoring.Engine
}

func newStudentClient(hub *StudentHub, conn *websocket.Conn, studentID, sessionID string, engine *proctoring.Engine) *studentClient {
	return &studentClient{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		studentID: studentID,
		sessionID: sessionID,
		engine:    engine,
	}
}

// readPump parses inbound event reports and feeds them to the engine. The
// engine assigns the authoritative timestamp; the client's is advisory only.
func (c *studentClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var raw proctoring.RawEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			c.hub.Notify(c.studentID, StudentFrame{Type: "event_rejected", Error: "malformed event payload"})
			continue
		}
		ev, err := c.engine.Ingest(c.sessionID, raw)
		if err != nil {
			log.Printf("ws: event from student %s rejected: %v", c.studentID, err)
			c.hub.Notify(c.studentID, StudentFrame{Type: "event_rejected", Error: err.Error()})
			continue
		}
		c.hub.Notify(c.studentID, StudentFrame{Type: "event_ack", EventID: ev.ID})
	}
}

func (c *studentClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
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
