// Package bridge wires the ingestion pipeline to the fan-out hub: decoded
// records are filtered against the user config, rendered as CoT events, and
// broadcast on the configured topic.
package bridge

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/taclink/cotbridge/internal/config"
	"github.com/taclink/cotbridge/internal/cot"
	"github.com/taclink/cotbridge/internal/monitoring"
	"github.com/taclink/cotbridge/internal/unit"
)

// Broadcaster is the hub entry point the pipeline feeds. Satisfied by
// *hub.Hub.
type Broadcaster interface {
	Broadcast(topic, body string)
}

// EventSink receives every rendered event in addition to the hub broadcast.
// Used for the optional NATS mirror.
type EventSink interface {
	Publish(event string) error
}

// Bridge turns unit records into broadcast CoT events.
type Bridge struct {
	userConfig config.UserConfig
	topic      string
	hub        Broadcaster
	sink       EventSink
	pool       *workerPool
	logger     zerolog.Logger
}

// Options configures a Bridge.
type Options struct {
	UserConfig  config.UserConfig
	Topic       string
	Hub         Broadcaster
	Sink        EventSink // optional
	WorkerCount int
	Logger      zerolog.Logger
}

func New(opts Options) *Bridge {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 4
	}
	logger := opts.Logger.With().Str("component", "bridge").Logger()
	return &Bridge{
		userConfig: opts.UserConfig,
		topic:      opts.Topic,
		hub:        opts.Hub,
		sink:       opts.Sink,
		pool:       newWorkerPool(opts.WorkerCount, opts.WorkerCount*100, logger),
		logger:     logger,
	}
}

// Start launches the pipeline workers.
func (b *Bridge) Start(ctx context.Context) {
	b.pool.Start(ctx)
}

// Stop waits for in-flight work to finish. The context passed to Start must
// already be cancelled.
func (b *Bridge) Stop() {
	b.pool.Stop()
}

// HandleRecord is the listener handler: it hands the record to the worker
// pool so the datagram receive loop is never blocked by rendering or a full
// broadcast bus.
func (b *Bridge) HandleRecord(r unit.Record) {
	b.pool.Submit(func() { b.process(r) })
}

// process runs the filter, render, and broadcast stages for one record.
func (b *Bridge) process(r unit.Record) {
	if !b.userConfig.IsUnitConfigured(r) {
		monitoring.RecordsFiltered.Inc()
		return
	}

	event, err := cot.Render(r)
	if err != nil {
		monitoring.RenderFailures.Inc()
		if errors.Is(err, unit.ErrBadMissionDate) {
			b.logger.Warn().
				Err(err).
				Str("unit_name", r.UnitName).
				Msg("Dropping record with underivable mission time")
		} else {
			b.logger.Warn().
				Err(err).
				Str("unit_name", r.UnitName).
				Msg("Dropping record that failed to render")
		}
		return
	}

	monitoring.EventsRendered.Inc()
	b.hub.Broadcast(b.topic, event)

	if b.sink != nil {
		if err := b.sink.Publish(event); err != nil {
			b.logger.Warn().Err(err).Msg("Event mirror publish failed")
		}
	}
}
