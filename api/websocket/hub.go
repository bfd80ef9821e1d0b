package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/openalpha/cdp-chain/metrics"
)

// Channel names. Per-owner channels append ":<address>" to the base name.
const (
	ChannelPrices       = "prices"
	ChannelTroves       = "troves"
	ChannelLiquidations = "liquidations"
	ChannelPool         = "pool"
)

// Hub maintains the set of active clients and fans out published events
type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients
	perIP    map[string]int

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest
	done        chan struct{}

	mu sync.RWMutex

	config  *HubConfig
	metrics *metrics.Collector
	logger  log.Logger
}

// HubConfig contains hub configuration
type HubConfig struct {
	MaxClientsPerIP  int `toml:"max_clients_per_ip"`
	MaxSubscriptions int `toml:"max_subscriptions"`
	MessageRateLimit int `toml:"message_rate_limit"` // Messages per second per client
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		MaxClientsPerIP:  10,
		MaxSubscriptions: 50,
		MessageRateLimit: 100,
	}
}

// SubscriptionRequest represents a subscription request
type SubscriptionRequest struct {
	Client  *Client
	Channel string
}

// NewHub creates a new Hub. The collector may be nil.
func NewHub(config *HubConfig, collector *metrics.Collector, logger log.Logger) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		perIP:       make(map[string]int),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		done:        make(chan struct{}),
		config:      config,
		metrics:     collector,
		logger:      logger.With("module", "api/websocket"),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.perIP[client.ip]++
	if h.metrics != nil {
		h.metrics.RecordWSConnection(1)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for channel, clients := range h.channels {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}
	if h.perIP[client.ip]--; h.perIP[client.ip] <= 0 {
		delete(h.perIP, client.ip)
	}
	client.closeSend()
	if h.metrics != nil {
		h.metrics.RecordWSConnection(-1)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.closeSend()
		if h.metrics != nil {
			h.metrics.RecordWSConnection(-1)
		}
	}
	h.clients = make(map[*Client]bool)
	h.channels = make(map[string]map[*Client]bool)
	h.perIP = make(map[string]int)
}

func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	if _, ok := h.clients[req.Client]; !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := h.channels[req.Channel]; !ok {
		h.channels[req.Channel] = make(map[*Client]bool)
	}
	h.channels[req.Channel][req.Client] = true
	h.mu.Unlock()

	req.Client.Send(encode(&WSMessage{Type: "subscribed", Channel: req.Channel}))
}

func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	if _, ok := h.clients[req.Client]; !ok {
		h.mu.Unlock()
		return
	}
	if clients, ok := h.channels[req.Channel]; ok {
		delete(clients, req.Client)
		if len(clients) == 0 {
			delete(h.channels, req.Channel)
		}
	}
	h.mu.Unlock()

	req.Client.Send(encode(&WSMessage{Type: "unsubscribed", Channel: req.Channel}))
}

// Publish sends an event to every client subscribed to channel
func (h *Hub) Publish(channel, msgType string, data interface{}) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	payload := encode(&WSMessage{
		Type:      msgType,
		Channel:   channel,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if payload == nil {
		return
	}
	for _, client := range clientList {
		client.Send(payload)
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage(baseChannel(channel))
	}
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Channel   string      `json:"channel,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

func encode(msg *WSMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	return data
}

// OwnerChannel returns the per-owner variant of a base channel
func OwnerChannel(base, owner string) string {
	return base + ":" + owner
}

func baseChannel(channel string) string {
	if i := strings.IndexByte(channel, ':'); i >= 0 {
		return channel[:i]
	}
	return channel
}

// IsValidChannel reports whether channel is a known base channel or a per-owner variant of one
func IsValidChannel(channel string) bool {
	base := baseChannel(channel)
	switch base {
	case ChannelPrices, ChannelLiquidations:
		return channel == base
	case ChannelTroves, ChannelPool:
		return channel == base || len(channel) > len(base)+1
	}
	return false
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelClientCount returns the number of clients in a channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) ipAtLimit(ip string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config.MaxClientsPerIP > 0 && h.perIP[ip] >= h.config.MaxClientsPerIP
}

// ServeWS handles WebSocket upgrade requests
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if h.ipAtLimit(ip) {
		http.Error(w, "Too many connections from this IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "ip", ip, "err", err)
		return
	}

	client := NewClient(h, conn, uuid.NewString(), ip)
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
