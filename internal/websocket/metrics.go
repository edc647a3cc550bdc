package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HubMetrics records push channel activity. A nil *HubMetrics records
// nothing.
type HubMetrics struct {
	connectionsTotal   metric.Int64Counter
	activeClients      metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messagesDropped    metric.Int64Counter
}

// NewHubMetrics creates the websocket instruments on meter.
func NewHubMetrics(meter metric.Meter) (*HubMetrics, error) {
	m := &HubMetrics{}
	var err error

	if m.connectionsTotal, err = meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	); err != nil {
		return nil, err
	}
	if m.activeClients, err = meter.Int64UpDownCounter(
		"websocket_active_clients",
		metric.WithDescription("Number of connected WebSocket clients"),
	); err != nil {
		return nil, err
	}
	if m.connectionDuration, err = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.messagesSent, err = meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Messages queued to WebSocket clients"),
	); err != nil {
		return nil, err
	}
	if m.messagesDropped, err = meter.Int64Counter(
		"websocket_messages_dropped_total",
		metric.WithDescription("Messages dropped because a client buffer was full"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HubMetrics) connected(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.activeClients.Add(ctx, 1)
}

func (m *HubMetrics) disconnected(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.activeClients.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds())
}

func (m *HubMetrics) broadcast(ctx context.Context, msgType string, sent, dropped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("type", msgType))
	if sent > 0 {
		m.messagesSent.Add(ctx, int64(sent), attrs)
	}
	if dropped > 0 {
		m.messagesDropped.Add(ctx, int64(dropped), attrs)
	}
}
