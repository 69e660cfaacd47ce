package suggest

import (
	"context"
	"errors"
	"time"

	"mealsuggest"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedOrchestrator wraps an Orchestrator with tracing and metrics.
type InstrumentedOrchestrator struct {
	inner  *Orchestrator
	tracer trace.Tracer
	meter  metric.Meter
}

// NewInstrumentedOrchestrator initializes a new instrumented orchestrator.
func NewInstrumentedOrchestrator(inner *Orchestrator, tracer trace.Tracer, meter metric.Meter) *InstrumentedOrchestrator {
	return &InstrumentedOrchestrator{
		inner:  inner,
		tracer: tracer,
		meter:  meter,
	}
}

// Generate runs the pipeline with full instrumentation.
func (o *InstrumentedOrchestrator) Generate(ctx context.Context, in mealsuggest.GenerateInput) (*mealsuggest.Session, []mealsuggest.MealSuggestion, error) {
	ctx, span := o.tracer.Start(ctx, "InstrumentedOrchestrator.Generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", in.UserID),
		attribute.String("meal_category", in.MealCategory),
		attribute.String("portion_category", string(in.PortionCategory)),
		attribute.Bool("session_resume", in.SessionID != ""),
		attribute.String("language", in.Language),
	)

	generationsCounter, _ := o.meter.Int64Counter("suggestion_generations_total",
		metric.WithDescription("Total number of suggestion generation requests started"))
	generationsCompletedCounter, _ := o.meter.Int64Counter("suggestion_generations_completed_total",
		metric.WithDescription("Total number of suggestion generation requests completed successfully"))
	generationsFailedCounter, _ := o.meter.Int64Counter("suggestion_generations_failed_total",
		metric.WithDescription("Total number of suggestion generation requests that failed"))
	enumerationFailuresCounter, _ := o.meter.Int64Counter("suggestion_enumeration_failures_total",
		metric.WithDescription("Total number of name enumeration failures"))
	insufficientResultsCounter, _ := o.meter.Int64Counter("suggestion_insufficient_results_total",
		metric.WithDescription("Total number of runs that fell below the minimum acceptable suggestion count"))
	degradedResultsCounter, _ := o.meter.Int64Counter("suggestion_degraded_results_total",
		metric.WithDescription("Total number of successful runs that returned fewer than the full suggestion count"))

	suggestionsReturnedGauge, _ := o.meter.Int64Gauge("suggestions_returned_count",
		metric.WithDescription("Number of suggestions returned by the latest generation"))
	generationDurationHist, _ := o.meter.Float64Histogram("suggestion_generation_duration_seconds",
		metric.WithDescription("Total duration of a suggestion generation request in seconds"))

	generationsCounter.Add(ctx, 1)
	start := time.Now()

	session, suggestions, err := o.inner.Generate(ctx, in)

	generationDurationHist.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		generationsFailedCounter.Add(ctx, 1)
		if errors.Is(err, mealsuggest.ErrEnumeration) {
			enumerationFailuresCounter.Add(ctx, 1)
		}
		if errors.Is(err, mealsuggest.ErrInsufficientResults) {
			insufficientResultsCounter.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	generationsCompletedCounter.Add(ctx, 1)
	suggestionsReturnedGauge.Record(ctx, int64(len(suggestions)))
	if len(suggestions) < resultCount {
		degradedResultsCounter.Add(ctx, 1)
	}

	span.SetAttributes(
		attribute.String("session_id", session.ID),
		attribute.Int("suggestions_returned", len(suggestions)),
	)
	span.SetStatus(codes.Ok, "generation completed")
	return session, suggestions, nil
}

// Regenerate reruns the pipeline against an existing session with full
// instrumentation.
func (o *InstrumentedOrchestrator) Regenerate(ctx context.Context, userID, sessionID string, excludeIDs []string) (*mealsuggest.Session, []mealsuggest.MealSuggestion, error) {
	ctx, span := o.tracer.Start(ctx, "InstrumentedOrchestrator.Regenerate")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("session_id", sessionID),
		attribute.Int("exclude_count", len(excludeIDs)),
	)

	regenerationsCounter, _ := o.meter.Int64Counter("suggestion_regenerations_total",
		metric.WithDescription("Total number of suggestion regeneration requests started"))
	regenerationsFailedCounter, _ := o.meter.Int64Counter("suggestion_regenerations_failed_total",
		metric.WithDescription("Total number of suggestion regeneration requests that failed"))
	staleSessionCounter, _ := o.meter.Int64Counter("suggestion_stale_session_total",
		metric.WithDescription("Total number of regenerations against a missing, expired, or foreign session"))
	regenerationDurationHist, _ := o.meter.Float64Histogram("suggestion_regeneration_duration_seconds",
		metric.WithDescription("Total duration of a suggestion regeneration request in seconds"))

	regenerationsCounter.Add(ctx, 1)
	start := time.Now()

	session, suggestions, err := o.inner.Regenerate(ctx, userID, sessionID, excludeIDs)

	regenerationDurationHist.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		regenerationsFailedCounter.Add(ctx, 1)
		if errors.Is(err, mealsuggest.ErrSessionNotFound) {
			staleSessionCounter.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int("suggestions_returned", len(suggestions)))
	span.SetStatus(codes.Ok, "regeneration completed")
	return session, suggestions, nil
}
