package hub

import (
	"net"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"

	"github.com/taclink/cotbridge/internal/monitoring"
)

const (
	disconnectReasonRead     = "read_error"
	disconnectReasonWrite    = "write_error"
	disconnectReasonShutdown = "server_shutdown"
)

// session owns one connected client: its transport, subscription set, and
// outbound queue. The reader goroutine is the only writer of the
// subscription set; the writer goroutine only reads it.
type session struct {
	id   uint32
	conn net.Conn
	hub  *Hub

	// queue is fed by the dispatcher and drained by writeLoop. Closed
	// during disconnect, after the session leaves the hub's map.
	queue chan string

	mu     sync.Mutex
	topics map[string]struct{}

	closeOnce sync.Once
	logger    zerolog.Logger
}

func newSession(id uint32, conn net.Conn, queue chan string, h *Hub) *session {
	return &session{
		id:     id,
		conn:   conn,
		hub:    h,
		queue:  queue,
		topics: make(map[string]struct{}),
		logger: h.logger.With().Uint32("client_id", id).Logger(),
	}
}

func (s *session) subscribe(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
	s.logger.Info().Str("topic", topic).Msg("Client subscribed")
}

func (s *session) unsubscribe(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
	s.logger.Info().Str("topic", topic).Msg("Client unsubscribed")
}

func (s *session) isSubscribed(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.topics[topic]
	return ok
}

// splitMessage splits a frame on the first topic delimiter.
func splitMessage(msg string) (topic, body string, ok bool) {
	return strings.Cut(msg, TopicDelimiter)
}

// readLoop consumes client frames until end-of-stream or a transport error.
// SUBSCRIBE/UNSUBSCRIBE frames mutate the subscription set; anything else
// goes to the host's client-message callback.
func (s *session) readLoop() {
	defer s.disconnect(disconnectReasonRead)

	for {
		data, op, err := wsutil.ReadClientData(s.conn)
		if err != nil {
			return
		}
		monitoring.FramesReceived.Inc()

		if op != ws.OpText {
			s.logger.Warn().
				Int("opcode", int(op)).
				Msg("Discarding non-text frame")
			continue
		}

		topic, body, ok := splitMessage(string(data))
		if !ok {
			s.logger.Warn().Msg("Discarding frame without topic delimiter")
			continue
		}

		switch topic {
		case subscribeTopic:
			s.subscribe(body)
		case unsubscribeTopic:
			s.unsubscribe(body)
		default:
			if cb := s.hub.cfg.OnClientMessage; cb != nil {
				cb(s.hub, topic, body)
			} else {
				s.logger.Debug().
					Str("topic", topic).
					Msg("Client message with no handler registered")
			}
		}
	}
}

// writeLoop drains the outbound queue, forwarding the body of each message
// whose topic the client is subscribed to. Exits when the queue closes or a
// write fails.
func (s *session) writeLoop() {
	defer s.disconnect(disconnectReasonWrite)

	for msg := range s.queue {
		topic, body, ok := splitMessage(msg)
		if !ok {
			continue
		}
		if !s.isSubscribed(topic) {
			continue
		}

		if err := wsutil.WriteServerMessage(s.conn, ws.OpText, []byte(body)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write frame")
			return
		}
		monitoring.FramesSent.Inc()
	}
}

// disconnect tears the session down exactly once: it leaves the hub's map
// (so the dispatcher stops enqueuing), closes the queue to end writeLoop,
// and closes the transport to end readLoop.
func (s *session) disconnect(reason string) {
	s.closeOnce.Do(func() {
		s.hub.removeSession(s.id)
		close(s.queue)
		s.conn.Close()

		monitoring.ClientsActive.Dec()
		monitoring.ClientsDisconnected.WithLabelValues(reason).Inc()
		s.logger.Info().Str("reason", reason).Msg("Client disconnected")
	})
}
