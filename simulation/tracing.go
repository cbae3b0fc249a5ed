package simulation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mc-integrator/simulation")

// startRunSpan creates the span covering one Sim.Run.
func startRunSpan(ctx context.Context, cfg Config) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Sim.Run",
		trace.WithAttributes(
			attribute.String("integrand.name", cfg.Integrand.Name),
			attribute.String("integrand.expr", cfg.Integrand.Expr),
			attribute.Float64("interval.a", cfg.Interval.A),
			attribute.Float64("interval.b", cfg.Interval.B),
			attribute.Int("samples", cfg.Samples),
			attribute.Int("workers", cfg.Sampler.Workers),
			attribute.String("quadrature.method", cfg.Quadrature.Method),
		),
	)
}

// endSpan records err, if any, and ends span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
