package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// MonitorFrame is one message on the supervisor/admin live stream: either a
// session delta (accepted event or status transition) or a threshold alert.
type MonitorFrame struct {
	Kind  string            `json:"kind"` // "delta" or "alert"
	Delta *proctoring.Delta `json:"delta,omitempty"`
	Alert *proctoring.Alert `json:"alert,omitempty"`
}

type monitorMessage struct {
	examID  string
	payload []byte
}

// MonitorHub fans live proctoring traffic out to connected dashboards.
// Supervisors only receive frames for exams they are assigned to.
type MonitorHub struct {
	register   chan *monitorClient
	unregister chan *monitorClient
	broadcast  chan monitorMessage
	clients    map[*monitorClient]struct{}
}

func NewMonitorHub() *MonitorHub {
	return &MonitorHub{
		register:   make(chan *monitorClient),
		unregister: make(chan *monitorClient),
		broadcast:  make(chan monitorMessage, 256),
		clients:    make(map[*monitorClient]struct{}),
	}
}

func (h *MonitorHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				client.conn.Close()
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.allowAll {
					if _, ok := client.allowedExams[msg.examID]; !ok {
						continue
					}
				}
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, client)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

func (h *MonitorHub) send(examID string, frame MonitorFrame) {
	if h == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("ws: failed to marshal monitor frame: %v", err)
		return
	}
	select {
	case h.broadcast <- monitorMessage{examID: examID, payload: data}:
	default:
		log.Printf("ws: monitor broadcast queue full, dropping frame")
	}
}

// Publish implements proctoring.BroadcastSink.
func (h *MonitorHub) Publish(d proctoring.Delta) {
	delta := d
	h.send(d.Session.ExamID, MonitorFrame{Kind: "delta", Delta: &delta})
}

// Alert implements proctoring.AlertSink.
func (h *MonitorHub) Alert(a proctoring.Alert) {
	alert := a
	h.send(a.Session.ExamID, MonitorFrame{Kind: "alert", Alert: &alert})
}

type monitorClient struct {
	hub          *MonitorHub
	conn         *websocket.Conn
	send         chan []byte
	allowedExams map[string]struct{}
	allowAll     bool
}

func newMonitorClient(hub *MonitorHub, conn *websocket.Conn, allowed map[string]struct{}, allowAll bool) *monitorClient {
	return &monitorClient{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		allowedExams: allowed,
		allowAll:     allowAll,
	}
}

func (c *monitorClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *monitorClient) writePump() {
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
