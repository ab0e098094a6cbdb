package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestTraced_Success(t *testing.T) {
	rec, tp := newRecorder()
	traced := NewTraced(NewSimulated(WithDelay(0)), tp)

	form := registration.NewFormState()
	form.Specializations.Toggle("luxury")
	receipt, err := traced.CreateAccount(context.Background(), form)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "accounts.CreateAccount", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, receipt.AccountID.String(), attrs["signup.account_id"])
	assert.Equal(t, "1", attrs["signup.specializations"])
}

func TestTraced_RecordsFailure(t *testing.T) {
	rec, tp := newRecorder()
	boom := errors.New("insert failed")
	traced := NewTraced(NewSimulated(WithDelay(0), FailWith(boom)), tp)

	_, err := traced.CreateAccount(context.Background(), registration.NewFormState())
	assert.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "insert failed", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestTraced_NilProviderUsesGlobal(t *testing.T) {
	traced := NewTraced(NewSimulated(WithDelay(0)), nil)

	_, err := traced.CreateAccount(context.Background(), registration.NewFormState())
	assert.NoError(t, err)
}
