package application

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

var (
	// ErrInFlight is returned when the same shopper already has an identical
	// submission running.
	ErrInFlight   = errors.New("a submission is already in progress")
	ErrValidation = errors.New("validation failed")
)

// Probe carries the RED instruments shared by a service's use cases.
type Probe struct {
	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewProbe(tel observability.Observability, service string) *Probe {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Probe{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (p *Probe) Logger() observability.Logger { return p.log }

func (p *Probe) Metrics() observability.Metrics { return p.tel.Metrics() }

// Call is one running use case. Outcome and Status may be changed until End.
type Call struct {
	probe   *Probe
	useCase string
	span    trace.Span
	start   time.Time
	log     observability.Logger
	fields  []observability.Field

	Outcome string
	Status  string
}

// Begin opens a span and returns a context whose logger is tagged with the
// use case and trace ids.
func (p *Probe) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := p.tel.Tracer().Start(ctx, spanPrefix+spanName, attrs...)

	logger := logctx.FromOr(ctx, p.log).With(observability.F("use_case", useCase))
	if tf := observability.TraceFields(ctx); len(tf) > 0 {
		logger = logger.With(tf...)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, &Call{
		probe:   p,
		useCase: useCase,
		span:    span,
		start:   time.Now(),
		log:     logger,
		Outcome: "success",
		Status:  "OK",
	}
}

// Fail marks the call as failed with a machine-readable status.
func (c *Call) Fail(status string) {
	c.Outcome, c.Status = "error", status
}

// With adds fields to the final use_case_done line.
func (c *Call) With(fields ...observability.Field) {
	c.fields = append(c.fields, fields...)
}

func (c *Call) Span() trace.Span { return c.span }

func (c *Call) Logger() observability.Logger { return c.log }

// End records metrics, closes the span and logs use_case_done.
func (c *Call) End(err error) {
	if err != nil && c.Outcome == "success" {
		c.Fail("ERROR")
	}
	lat := time.Since(c.start).Seconds()

	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, c.Status)
	} else {
		c.span.SetStatus(codes.Ok, c.Status)
	}
	c.span.End()

	c.probe.reqCounter.Add(1,
		observability.L("use_case", c.useCase),
		observability.L("outcome", c.Outcome),
	)
	c.probe.durHistogram.Observe(lat,
		observability.L("use_case", c.useCase),
	)

	fields := append([]observability.Field{
		observability.F("outcome", c.Outcome),
		observability.F("status", c.Status),
		observability.F("latency_seconds", lat),
	}, c.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	c.log.Info("use_case_done", fields...)
}
