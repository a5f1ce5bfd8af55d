package rates

import (
	"context"
	"log/slog"
	"time"

	"fxledger/internal/log"
	"fxledger/internal/metrics"
)

// Instrumented records lookup counts and latency for the wrapped provider.
type Instrumented struct {
	next Provider
	name string
}

func NewInstrumented(name string, next Provider) *Instrumented {
	return &Instrumented{next: next, name: name}
}

func (p *Instrumented) Rate(ctx context.Context, from, to string) Result {
	start := time.Now()
	res := p.next.Rate(ctx, from, to)
	metrics.RateLookupDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())

	if res.OK() {
		metrics.RateLookups.WithLabelValues(p.name, metrics.OutcomeOK).Inc()
		return res
	}

	metrics.RateLookups.WithLabelValues(p.name, metrics.OutcomeUnavailable).Inc()
	slog.WarnContext(ctx, "Rate unavailable",
		log.FieldComponent, log.ComponentRates,
		log.FieldProvider, p.name,
		"from", from,
		"to", to,
		log.FieldError, res.Reason(),
		log.FieldErrorType, log.ErrorTypeConversion)
	return res
}
