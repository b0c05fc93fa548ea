package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arena-server"

// relayMetrics are the relay's instruments. They report to the global meter
// provider, which is a no-op until an SDK is installed.
type relayMetrics struct {
	players metric.Int64UpDownCounter
	shots   metric.Int64Counter
	hits    metric.Int64Counter
	deaths  metric.Int64Counter
	dropped metric.Int64Counter
}

func newRelayMetrics(meter metric.Meter) (*relayMetrics, error) {
	m := &relayMetrics{}
	var err error
	if m.players, err = meter.Int64UpDownCounter("arena.players.active",
		metric.WithDescription("Active sessions")); err != nil {
		return nil, err
	}
	if m.shots, err = meter.Int64Counter("arena.shots",
		metric.WithDescription("Accepted shots")); err != nil {
		return nil, err
	}
	if m.hits, err = meter.Int64Counter("arena.hits",
		metric.WithDescription("Applied hits")); err != nil {
		return nil, err
	}
	if m.deaths, err = meter.Int64Counter("arena.deaths",
		metric.WithDescription("Vessels sunk")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("arena.events.dropped",
		metric.WithDescription("Inbound events dropped"),
		metric.WithUnit("{event}")); err != nil {
		return nil, err
	}
	return m, nil
}

func defaultRelayMetrics() *relayMetrics {
	m, err := newRelayMetrics(otel.Meter(meterName))
	if err != nil {
		// The global provider only fails on invalid instrument names.
		panic(err)
	}
	return m
}

func (m *relayMetrics) drop(reason string) {
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
