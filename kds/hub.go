package kds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	writeWait = 5 * time.Second

	// jumlah event yang boleh antri per client sebelum client dianggap macet
	sendBuffer = 64
)

type client struct {
	conn     *websocket.Conn
	outletID string
	role     string
	send     chan []byte
}

// Hub menampung semua client KDS / POS per outlet dan menyiarkan event order.
// Setiap connection punya goroutine writer sendiri; Emit hanya mengantri.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// Register -> menambahkan connection untuk outlet tertentu
func (h *Hub) Register(conn *websocket.Conn, outletID, role string) {
	c := &client{
		conn:     conn,
		outletID: outletID,
		role:     role,
		send:     make(chan []byte, sendBuffer),
	}

	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()

	go h.writePump(c)
	utils.InfoLogger.WithFields(logrus.Fields{"outlet_id": outletID, "role": role}).Info("kds client connected")
}

// Unregister -> melepaskan connection
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(conn)
}

// removeLocked closes the send queue, which ends the writer goroutine.
func (h *Hub) removeLocked(conn *websocket.Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"outlet_id": c.outletID,
				"role":      c.role,
			}).Warnf("dropping kds client: %v", err)
			h.Unregister(c.conn)
			return
		}
	}
}

// ClientCount returns the number of live connections for an outlet.
func (h *Hub) ClientCount(outletID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := 0
	for _, c := range h.clients {
		if c.outletID == outletID {
			n++
		}
	}
	return n
}

// Emit queues the event for every connection subscribed to the event's outlet and
// returns without waiting for the writes. A client whose queue is full is dropped.
func (h *Hub) Emit(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		if c.outletID != evt.OutletID {
			continue
		}
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.WithFields(logrus.Fields{
				"outlet_id": c.outletID,
				"role":      c.role,
			}).Warn("dropping kds client: send queue full")
			h.removeLocked(conn)
		}
	}
	return nil
}
