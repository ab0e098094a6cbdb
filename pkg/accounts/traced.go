package accounts

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

const tracerName = "github.com/gabrielmiguelok/agentsignup/pkg/accounts"

// Traced wraps an AccountCreator in a span per call.
type Traced struct {
	next   registration.AccountCreator
	tracer trace.Tracer
}

// NewTraced wraps next. A nil provider uses the global one.
func NewTraced(next registration.AccountCreator, tp trace.TracerProvider) *Traced {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Traced{
		next:   next,
		tracer: tp.Tracer(tracerName),
	}
}

// CreateAccount calls the wrapped creator inside a span and records failures.
func (t *Traced) CreateAccount(ctx context.Context, form registration.FormState) (registration.Receipt, error) {
	ctx, span := t.tracer.Start(ctx, "accounts.CreateAccount",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("signup.state", form.State),
			attribute.String("signup.experience", form.Experience),
			attribute.Int("signup.specializations", form.Specializations.Len()),
		),
	)
	defer span.End()

	receipt, err := t.next.CreateAccount(ctx, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return receipt, err
	}
	span.SetAttributes(attribute.String("signup.account_id", receipt.AccountID.String()))
	return receipt, nil
}
