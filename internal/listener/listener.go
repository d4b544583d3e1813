// Package listener receives newline-delimited JSON unit reports over UDP and
// hands decoded records to a caller-supplied handler.
package listener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/taclink/cotbridge/internal/monitoring"
	"github.com/taclink/cotbridge/internal/unit"
)

const (
	// DefaultAddr is the simulator's export socket.
	DefaultAddr = "127.0.0.1:34254"

	// MsgDelimiter terminates each JSON payload inside a datagram.
	MsgDelimiter = '\n'

	// BufferSize bounds how much of a datagram is read. One datagram
	// carries one message; excess bytes are discarded.
	BufferSize = 1024
)

// Handler receives each successfully decoded record. It is invoked
// synchronously from the receive loop and may be shared across goroutines;
// it must not assume it always runs on the same one.
type Handler func(unit.Record)

// Listener reads one unit record per datagram from a bound UDP socket.
type Listener struct {
	conn   net.PacketConn
	logger zerolog.Logger
}

// New binds the UDP socket. An empty addr uses DefaultAddr.
func New(addr string, logger zerolog.Logger) (*Listener, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind udp %s: %w", addr, err)
	}
	return &Listener{
		conn:   conn,
		logger: logger.With().Str("component", "listener").Logger(),
	}, nil
}

// Addr returns the bound socket address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Listen runs the receive loop until the context is cancelled or the socket
// enters an error state. Per-datagram failures are logged and skipped; only
// socket-level errors abort the loop.
func (l *Listener) Listen(ctx context.Context, handler Handler) error {
	defer l.conn.Close()

	l.logger.Info().
		Str("addr", l.conn.LocalAddr().String()).
		Msg("Datagram listener started")

	// Unblock the blocking read when the context ends.
	stop := context.AfterFunc(ctx, func() { l.conn.Close() })
	defer stop()

	buf := make([]byte, BufferSize)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("udp receive: %w", err)
		}

		record, err := decodeDatagram(buf[:n])
		if err != nil {
			monitoring.DatagramsRejected.Inc()
			l.logger.Warn().
				Err(err).
				Int("datagram_bytes", n).
				Msg("Dropping datagram")
			continue
		}

		monitoring.DatagramsReceived.Inc()
		handler(record)
	}
}

// decodeDatagram extracts the message before the first delimiter and decodes
// it. Bytes at or after the delimiter are discarded.
func decodeDatagram(data []byte) (unit.Record, error) {
	if len(data) == 0 {
		return unit.Record{}, errors.New("empty datagram")
	}
	end := bytes.IndexByte(data, MsgDelimiter)
	if end < 0 {
		return unit.Record{}, errors.New("message delimiter not found in datagram")
	}
	return unit.Decode(data[:end])
}
