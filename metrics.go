// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hub

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gogpu/hub/identity"
	"github.com/gogpu/hub/registry"
)

// meterName is the instrumentation scope of hub metrics.
const meterName = "github.com/gogpu/hub"

// Metric names.
const (
	MetricRegistered   = "hub.registry.registered"
	MetricUnregistered = "hub.registry.unregistered"
	MetricRejected     = "hub.registry.rejected"
)

// otelObserver reports registry outcomes as OpenTelemetry counters.
type otelObserver struct {
	hubID        attribute.KeyValue
	registered   metric.Int64Counter
	unregistered metric.Int64Counter
	rejected     metric.Int64Counter
}

func newOtelObserver(mp metric.MeterProvider, hubID string) (*otelObserver, error) {
	meter := mp.Meter(meterName)

	registered, err := meter.Int64Counter(MetricRegistered,
		metric.WithDescription("Number of resources registered"),
	)
	if err != nil {
		return nil, err
	}

	unregistered, err := meter.Int64Counter(MetricUnregistered,
		metric.WithDescription("Number of resources unregistered"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter(MetricRejected,
		metric.WithDescription("Number of rejected registry operations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelObserver{
		hubID:        attribute.String("hub.id", hubID),
		registered:   registered,
		unregistered: unregistered,
		rejected:     rejected,
	}, nil
}

func (o *otelObserver) Registered(kind identity.Kind) {
	o.registered.Add(context.Background(), 1, metric.WithAttributes(
		o.hubID, attribute.String("kind", kind.String())))
}

func (o *otelObserver) Unregistered(kind identity.Kind) {
	o.unregistered.Add(context.Background(), 1, metric.WithAttributes(
		o.hubID, attribute.String("kind", kind.String())))
}

func (o *otelObserver) Rejected(kind identity.Kind, op registry.Op, err error) {
	o.rejected.Add(context.Background(), 1, metric.WithAttributes(
		o.hubID,
		attribute.String("kind", kind.String()),
		attribute.String("op", string(op)),
		attribute.String("reason", rejectReason(err)),
	))
}

// rejectReason maps an error to a low-cardinality attribute value.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, identity.ErrDoubleFree):
		return "double_free"
	case errors.Is(err, identity.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, identity.ErrStaleHandle):
		return "stale_handle"
	case errors.Is(err, identity.ErrInvalidID):
		return "invalid_id"
	case errors.Is(err, identity.ErrExternalIdentity),
		errors.Is(err, identity.ErrLocalAllocation),
		errors.Is(err, identity.ErrUnexpectedID):
		return "wrong_mode"
	default:
		return "other"
	}
}
