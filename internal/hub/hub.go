// Package hub implements the topic-filtered fan-out broker over a persistent
// WebSocket transport. One hub owns the listening socket, the host-to-clients
// message bus, and the dispatcher that feeds each client's outbound queue.
package hub

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/taclink/cotbridge/internal/monitoring"
)

const (
	// TopicDelimiter separates topic from body in every frame crossing the
	// bus and in client control frames. Topics must not contain it.
	TopicDelimiter = "\x00"

	subscribeTopic   = "SUBSCRIBE"
	unsubscribeTopic = "UNSUBSCRIBE"

	defaultQueueCapacity = 1024
)

// ClientMessageFunc is invoked for client frames whose topic is neither
// SUBSCRIBE nor UNSUBSCRIBE. It runs on the client's reader goroutine.
type ClientMessageFunc func(h *Hub, topic, body string)

// Config holds hub configuration. Zero capacities fall back to 1024.
type Config struct {
	Addr                string
	BusCapacity         int
	ClientQueueCapacity int
	OnClientMessage     ClientMessageFunc
	Logger              zerolog.Logger
}

// Hub accepts client connections and fans broadcast messages out to the
// subset of clients subscribed to each message's topic.
type Hub struct {
	cfg    Config
	logger zerolog.Logger

	listener net.Listener
	upgrader ws.Upgrader

	// bus carries already-formatted "<topic>\x00<body>" strings from
	// Broadcast callers to the dispatcher.
	bus chan string

	mu       sync.Mutex
	sessions map[uint32]*session

	nextClientID atomic.Uint32

	// dropLog throttles queue-full logging so one slow client cannot
	// flood the log.
	dropLog *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New allocates the hub and starts its dispatcher. Start must still be
// called to bind the listening socket.
func New(cfg Config) *Hub {
	if cfg.BusCapacity <= 0 {
		cfg.BusCapacity = defaultQueueCapacity
	}
	if cfg.ClientQueueCapacity <= 0 {
		cfg.ClientQueueCapacity = defaultQueueCapacity
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "hub").Logger(),
		bus:      make(chan string, cfg.BusCapacity),
		sessions: make(map[uint32]*session),
		dropLog:  rate.NewLimiter(rate.Every(time.Second), 10),
		ctx:      ctx,
		cancel:   cancel,
	}

	h.wg.Add(1)
	go h.dispatch()

	return h
}

// Start binds the listening socket and begins accepting connections. A bind
// failure is returned to the caller; everything scoped to a single client is
// handled inside the accept loop.
func (h *Hub) Start() error {
	listener, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind tcp %s: %w", h.cfg.Addr, err)
	}
	h.listener = listener

	h.logger.Info().
		Str("addr", listener.Addr().String()).
		Msg("Hub listening")

	h.wg.Add(1)
	go h.acceptLoop()

	return nil
}

// Addr returns the bound listener address. Valid after Start.
func (h *Hub) Addr() net.Addr {
	return h.listener.Addr()
}

// Done closes when the hub has stopped, either by Shutdown or by an
// unrecoverable accept-loop failure.
func (h *Hub) Done() <-chan struct{} {
	return h.ctx.Done()
}

// ActiveClients returns the number of sessions currently registered.
func (h *Hub) ActiveClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast offers one (topic, body) pair for delivery to every client
// subscribed to topic. Never blocks: if the bus is full the message is
// dropped and logged.
func (h *Hub) Broadcast(topic, body string) {
	msg := topic + TopicDelimiter + body
	select {
	case h.bus <- msg:
		monitoring.BroadcastsTotal.Inc()
	default:
		monitoring.BusFullDrops.Inc()
		h.logger.Warn().
			Str("topic", topic).
			Int("bus_cap", cap(h.bus)).
			Msg("Message bus full, broadcast dropped")
	}
}

// dispatch drains the bus and enqueues each message onto every client's
// outbound queue. Enqueues are non-blocking; a full queue costs that client
// that one message. No network I/O happens under the sessions lock.
func (h *Hub) dispatch() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case msg := <-h.bus:
			h.mu.Lock()
			for id, s := range h.sessions {
				select {
				case s.queue <- msg:
				default:
					monitoring.ClientQueueDrops.Inc()
					if h.dropLog.Allow() {
						h.logger.Warn().
							Uint32("client_id", id).
							Int("queue_cap", cap(s.queue)).
							Msg("Client queue full, message dropped")
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) acceptLoop() {
	defer h.wg.Done()

	for {
		conn, err := h.listener.Accept()
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			// An accept error with the listener still healthy is
			// unrecoverable; stop the hub so the caller notices.
			h.logger.Error().Err(err).Msg("Accept loop failed")
			h.cancel()
			return
		}

		if _, err := h.upgrader.Upgrade(conn); err != nil {
			h.logger.Warn().
				Err(err).
				Str("remote_addr", conn.RemoteAddr().String()).
				Msg("WebSocket handshake failed")
			conn.Close()
			continue
		}

		id := h.nextClientID.Add(1) - 1
		s := newSession(id, conn, make(chan string, h.cfg.ClientQueueCapacity), h)

		h.mu.Lock()
		h.sessions[id] = s
		h.mu.Unlock()

		monitoring.ClientsConnected.Inc()
		monitoring.ClientsActive.Inc()
		h.logger.Info().
			Uint32("client_id", id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Msg("Client connected")

		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			s.readLoop()
		}()
		go func() {
			defer h.wg.Done()
			s.writeLoop()
		}()
	}
}

// removeSession detaches a session from fan-out. Returns true the first time
// the id is removed. Called exactly once per client via the session's
// disconnect path.
func (h *Hub) removeSession(id uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[id]; !ok {
		return false
	}
	delete(h.sessions, id)
	return true
}

// Shutdown stops accepting connections, disconnects every client, and waits
// for the dispatcher and all session goroutines to finish.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Hub shutting down")
	h.cancel()

	if h.listener != nil {
		h.listener.Close()
	}

	h.mu.Lock()
	remaining := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		remaining = append(remaining, s)
	}
	h.mu.Unlock()

	for _, s := range remaining {
		s.disconnect(disconnectReasonShutdown)
	}

	h.wg.Wait()
	h.logger.Info().Msg("Hub stopped")
}
