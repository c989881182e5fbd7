package queue

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "klinik/antrian/queue"

type instruments struct {
	ticketsTaken metric.Int64Counter
	transitions  metric.Int64Counter
}

// newInstruments registers the queue counters on meter, or on the global
// meter provider when meter is nil. A counter that fails to register is left
// nil and never recorded.
func newInstruments(meter metric.Meter) instruments {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	var out instruments
	counter, err := meter.Int64Counter(
		"queue.tickets.taken",
		metric.WithDescription("Number of tickets issued"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("register queue.tickets.taken")
	} else {
		out.ticketsTaken = counter
	}
	counter, err = meter.Int64Counter(
		"queue.transitions",
		metric.WithDescription("Number of queue entry transitions by event type"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("register queue.transitions")
	} else {
		out.transitions = counter
	}
	return out
}

func (i instruments) recordTaken(ctx context.Context, departmentID string) {
	if i.ticketsTaken == nil {
		return
	}
	i.ticketsTaken.Add(ctx, 1, metric.WithAttributes(attribute.String("department_id", departmentID)))
}

func (i instruments) recordTransition(ctx context.Context, departmentID, eventType string) {
	if i.transitions == nil {
		return
	}
	i.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("department_id", departmentID),
		attribute.String("event", eventType),
	))
}
