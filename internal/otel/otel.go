// Package otel exports executor lifecycle events as OpenTelemetry traces:
// one span per loop with a child span per round.
package otel

import (
	"context"
	"sync"

	"github.com/meritra/ordex/internal/eventbus"
	"github.com/meritra/ordex/internal/events"
	"github.com/meritra/ordex/internal/runid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("ordex")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer     trace.Tracer
	loopSpans  sync.Map // run id -> trace.Span
	roundSpans sync.Map // run id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.LoopStart) {
		rid, _ := runid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "ordex.loop")
		span.SetAttributes(
			attribute.String("ordex.loop.name", e.Name),
			attribute.Int("ordex.loop.items", e.Items),
			attribute.Int("ordex.loop.threads", e.Threads),
		)
		s.loopSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.LoopFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.loopSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(
			attribute.Int64("ordex.loop.rounds", int64(e.Rounds)),
			attribute.Int64("ordex.loop.commits", int64(e.Commits)),
			attribute.Int64("ordex.loop.attempts", int64(e.Attempts)),
			attribute.Int64("ordex.loop.spills", int64(e.Spills)),
		)
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RoundStart) {
		rid, _ := runid.FromContext(ctx)
		parent := ctx
		if v, ok := s.loopSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "ordex.round")
		span.SetAttributes(
			attribute.Int64("ordex.round.number", int64(e.Round)),
			attribute.Int("ordex.round.window", e.Window),
		)
		s.roundSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RoundFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.roundSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(
			attribute.Int64("ordex.round.commits", int64(e.Commits)),
			attribute.Int64("ordex.round.attempts", int64(e.Attempts)),
		)
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.Spill) {
		rid, _ := runid.FromContext(ctx)
		if v, ok := s.loopSpans.Load(rid); ok {
			v.(trace.Span).AddEvent("ordex.spill",
				trace.WithAttributes(attribute.Int("ordex.spill.moved", e.Moved)))
		}
	})
}
