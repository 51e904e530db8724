package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"FxChart/internal/domain/models"
	applogger "FxChart/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

type client struct {
	conn       *websocket.Conn
	instrument string
	send       chan []byte
}

// Hub fans refreshed candle series out to websocket subscribers of each instrument.
// New subscribers receive the latest series immediately.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
	latest   map[string][]byte
	upgrader websocket.Upgrader
	log      *applogger.Logger
}

func NewHub(log *applogger.Logger) *Hub {
	if log == nil {
		log = applogger.Nop()
	}
	return &Hub{
		subs:   make(map[string]map[*client]struct{}),
		latest: make(map[string][]byte),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Publish implements repository.Publisher. Subscribers whose buffer is full are dropped.
func (h *Hub) Publish(_ context.Context, series *models.CandleSeries) error {
	b, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	h.mu.Lock()
	h.latest[series.Instrument] = b
	var slow []*client
	for c := range h.subs[series.Instrument] {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn("dropping slow subscriber", applogger.String("instrument", c.instrument))
	}
	return nil
}

// Serve upgrades the request and subscribes the connection to instrument.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, instrument string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &client{conn: conn, instrument: instrument, send: make(chan []byte, sendBuffer)}
	h.add(c)
	h.log.Info("live subscriber connected",
		applogger.String("instrument", instrument),
		applogger.Int("subscribers", h.ClientCount(instrument)),
	)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// ClientCount returns the number of subscribers for instrument.
func (h *Hub) ClientCount(instrument string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[instrument])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.instrument]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[c.instrument] = set
	}
	set[c] = struct{}{}
	if b, ok := h.latest[c.instrument]; ok {
		c.send <- b
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked closes c.send once; the write pump then closes the connection.
func (h *Hub) removeLocked(c *client) {
	set, ok := h.subs[c.instrument]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, c.instrument)
	}
	close(c.send)
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("live subscriber read error", applogger.String("instrument", c.instrument), applogger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
