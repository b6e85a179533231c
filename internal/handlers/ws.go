package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"coinfolio/internal/models"
	"coinfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type portfolioEvent struct {
	Type       string                  `json:"type"`
	Items      []service.ValuedHolding `json:"items"`
	TotalValue string                  `json:"total_value"`
	TS         string                  `json:"ts"`
}

func encodePortfolio(holdings []models.Holding) ([]byte, error) {
	items, total := service.Summarize(holdings)
	return json.Marshal(portfolioEvent{
		Type:       "portfolio",
		Items:      items,
		TotalValue: total.StringFixed(2),
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// ServeWS pushes the portfolio on connect and after every change until the
// peer goes away.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("ws upgrade error: %v", err)
		return
	}
	h.metrics.WSClients.Inc()
	defer h.metrics.WSClients.Dec()

	updates, unsubscribe := h.store.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readPump(conn, closed)
	h.writePump(conn, updates, closed)
}

func (h *Handler) writePump(conn *websocket.Conn, updates <-chan []models.Holding, closed <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	send := func(holdings []models.Holding) bool {
		msg, err := encodePortfolio(holdings)
		if err != nil {
			h.log.Errorf("ws encode: %v", err)
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteMessage(websocket.TextMessage, msg) == nil
	}

	if !send(h.store.Holdings()) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case holdings, ok := <-updates:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !send(holdings) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only exists to process control frames and notice disconnects.
func (h *Handler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debugf("ws client disconnected: %v", err)
			return
		}
	}
}
