package registration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
)

// Receipt identifies an account created by an AccountCreator.
type Receipt struct {
	AccountID uuid.UUID `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccountCreator is the external "create account" operation. It receives the
// full form state and either succeeds or returns an error.
type AccountCreator interface {
	CreateAccount(ctx context.Context, form FormState) (Receipt, error)
}

// AccountCreatorFunc adapts a function to AccountCreator.
type AccountCreatorFunc func(ctx context.Context, form FormState) (Receipt, error)

func (f AccountCreatorFunc) CreateAccount(ctx context.Context, form FormState) (Receipt, error) {
	return f(ctx, form)
}

// Observer receives wizard lifecycle notifications.
type Observer interface {
	StepChanged(from, to Step)
	ValidationFailed(step Step, errs forms.ErrorMap)
	SubmissionFinished(err error, elapsed time.Duration)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) StepChanged(from, to Step)                           {}
func (NopObserver) ValidationFailed(step Step, errs forms.ErrorMap)     {}
func (NopObserver) SubmissionFinished(err error, elapsed time.Duration) {}

// Observers fans notifications out to several observers.
type Observers []Observer

func (o Observers) StepChanged(from, to Step) {
	for _, obs := range o {
		obs.StepChanged(from, to)
	}
}

func (o Observers) ValidationFailed(step Step, errs forms.ErrorMap) {
	for _, obs := range o {
		obs.ValidationFailed(step, errs)
	}
}

func (o Observers) SubmissionFinished(err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.SubmissionFinished(err, elapsed)
	}
}
