package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Subscription channels.
const (
	ChannelBlocks       = "blocks"
	ChannelTransactions = "transactions"
	ChannelExecutions   = "executions"
)

var wsChannels = map[string]bool{
	ChannelBlocks:       true,
	ChannelTransactions: true,
	ChannelExecutions:   true,
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBuffer = 256
)

// WSMessage is a message pushed to subscribers.
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSSubscribeMessage is sent by clients to change subscriptions.
type WSSubscribeMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// BlockMessage is pushed on the blocks channel.
type BlockMessage struct {
	Height    uint64    `json:"height"`
	Blockhash string    `json:"blockhash"`
	Time      time.Time `json:"time"`
	TxCount   int       `json:"tx_count"`
}

// ExecutionEventMessage is a channel program event pushed on the
// executions channel.
type ExecutionEventMessage struct {
	Height     uint64            `json:"height"`
	TxID       string            `json:"tx_id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type wsControl struct {
	client *wsClient
	msg    WSSubscribeMessage
}

// WebSocketHub fans ledger updates out to subscribed connections. Client
// state and send channels are owned by the Run goroutine.
type WebSocketHub struct {
	logger     log.Logger
	clients    map[*wsClient]map[string]bool
	broadcast  chan WSMessage
	register   chan *wsClient
	unregister chan *wsClient
	control    chan wsControl
	count      chan chan int
	done       chan struct{}
	closeOnce  sync.Once
}

type wsClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan WSMessage
}

// NewWebSocketHub creates a hub. Run must be started before clients
// connect.
func NewWebSocketHub(logger log.Logger) *WebSocketHub {
	return &WebSocketHub{
		logger:     logger,
		clients:    make(map[*wsClient]map[string]bool),
		broadcast:  make(chan WSMessage, sendBuffer),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		control:    make(chan wsControl),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until Close.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = make(map[string]bool)
			h.logger.Debug("websocket client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Debug("websocket client disconnected", "clients", len(h.clients))

		case ctl := <-h.control:
			h.handleControl(ctl)

		case reply := <-h.count:
			reply <- len(h.clients)

		case msg := <-h.broadcast:
			for c, subs := range h.clients {
				if !subs[msg.Channel] {
					continue
				}
				h.deliver(c, msg)
			}
		}
	}
}

// deliver drops clients that cannot keep up. Called from Run.
func (h *WebSocketHub) deliver(c *wsClient, msg WSMessage) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
		h.logger.Info("dropping slow websocket client")
	}
}

func (h *WebSocketHub) handleControl(ctl wsControl) {
	subs, ok := h.clients[ctl.client]
	if !ok {
		return
	}
	msg := ctl.msg
	if !wsChannels[msg.Channel] {
		h.deliver(ctl.client, WSMessage{Type: "error", Channel: msg.Channel, Data: "unknown channel"})
		return
	}
	switch msg.Type {
	case "subscribe":
		subs[msg.Channel] = true
		h.deliver(ctl.client, WSMessage{Type: "subscribed", Channel: msg.Channel})
	case "unsubscribe":
		delete(subs, msg.Channel)
		h.deliver(ctl.client, WSMessage{Type: "unsubscribed", Channel: msg.Channel})
	default:
		h.deliver(ctl.client, WSMessage{Type: "error", Channel: msg.Channel, Data: "unknown message type " + msg.Type})
	}
}

// Broadcast queues msg for subscribers of msg.Channel. It never blocks.
func (h *WebSocketHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Error("websocket broadcast queue full; dropping message", "channel", msg.Channel)
	}
}

// ConnectedClients returns the number of connected clients.
func (h *WebSocketHub) ConnectedClients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Close disconnects every client and stops Run.
func (h *WebSocketHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// PublishBlock converts a committed block into channel messages.
func (h *WebSocketHub) PublishBlock(b app.Block) {
	h.Broadcast(WSMessage{
		Type:    "block",
		Channel: ChannelBlocks,
		Data: BlockMessage{
			Height:    b.Height,
			Blockhash: b.Blockhash.String(),
			Time:      b.Time,
			TxCount:   len(b.Txs),
		},
	})
	for i := range b.Txs {
		tx := b.Txs[i]
		h.Broadcast(WSMessage{Type: "transaction", Channel: ChannelTransactions, Data: tx})
		for _, ev := range tx.Events {
			if !strings.HasPrefix(ev.Type, "channel_") || ev.Type == types.EventTypeTransfer {
				continue
			}
			attrs := make(map[string]string, len(ev.Attributes))
			for _, a := range ev.Attributes {
				attrs[a.Key] = a.Value
			}
			h.Broadcast(WSMessage{
				Type:    "execution_event",
				Channel: ChannelExecutions,
				Data:    ExecutionEventMessage{Height: b.Height, TxID: tx.ID, Type: ev.Type, Attributes: attrs},
			})
		}
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{hub: s.wsHub, conn: conn, send: make(chan WSMessage, sendBuffer)}
	select {
	case s.wsHub.register <- client:
	case <-s.wsHub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var msg WSSubscribeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = WSSubscribeMessage{Type: "invalid"}
		}
		select {
		case c.hub.control <- wsControl{client: c, msg: msg}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *wsClient) writePump() {
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
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// newUpgrader accepts the configured CORS origins; "*" or an empty list
// accepts any origin.
func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}
