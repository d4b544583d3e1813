// Package mirror republishes rendered CoT events to NATS so consumers that
// do not speak the hub's WebSocket protocol can receive the same feed.
package mirror

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Mirror publishes each rendered event to a NATS subject.
type Mirror struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// Connect dials the NATS server. The hub path never depends on the mirror;
// connection loss only costs mirrored events until reconnect.
func Connect(url, subject string, logger zerolog.Logger) (*Mirror, error) {
	logger = logger.With().Str("component", "mirror").Logger()

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info().Str("url", url).Str("subject", subject).Msg("Event mirror connected")
	return &Mirror{conn: conn, subject: subject, logger: logger}, nil
}

// Publish sends one rendered event.
func (m *Mirror) Publish(event string) error {
	return m.conn.Publish(m.subject, []byte(event))
}

// Close drains and closes the connection.
func (m *Mirror) Close() {
	if err := m.conn.Drain(); err != nil {
		m.logger.Warn().Err(err).Msg("NATS drain failed")
	}
}
