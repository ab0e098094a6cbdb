package registration

import (
	"context"
	"time"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
)

// Controller owns the wizard: the form state, the error map, the current step
// and the loading flag. All mutation goes through its methods. A Controller is
// not safe for concurrent use; callers serialize access the way a LiveView
// session loop does.
type Controller struct {
	creator  AccountCreator
	logger   logging.Logger
	observer Observer
	now      func() time.Time

	state   FormState
	errors  forms.ErrorMap
	step    Step
	loading bool
	success bool
	receipt Receipt

	submitStarted time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for submission failures.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock replaces time.Now for submission timing.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a controller positioned on the first step.
func New(creator AccountCreator, opts ...Option) *Controller {
	c := &Controller{
		creator:  creator,
		logger:   logging.NopLogger{},
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset returns the controller to its freshly created state.
func (c *Controller) Reset() {
	c.state = NewFormState()
	c.errors = make(forms.ErrorMap)
	c.step = StepBasicInfo
	c.loading = false
	c.success = false
	c.receipt = Receipt{}
	c.submitStarted = time.Time{}
}

// OnFieldChange merges value into the form state and clears the error for
// field, leaving every other error in place. No validation runs here.
// An error is returned only for an unknown field or a value of the wrong
// type, in which case nothing changes.
func (c *Controller) OnFieldChange(field string, value any) error {
	if err := c.state.set(field, value); err != nil {
		return err
	}
	c.errors.Clear(field)
	return nil
}

// ValidateStep runs every rule of step, replaces the error map with the
// result and reports whether the step is valid.
func (c *Controller) ValidateStep(step Step) bool {
	c.errors = Rules(step, c.state)
	if c.errors.Len() > 0 {
		c.observer.ValidationFailed(step, c.errors.Clone())
		return false
	}
	return true
}

// GoNext validates the current step and advances when it is valid and not the
// last step. It reports whether the step changed.
func (c *Controller) GoNext() bool {
	if !c.ValidateStep(c.step) {
		return false
	}
	if c.step >= TotalSteps {
		return false
	}
	from := c.step
	c.step++
	c.observer.StepChanged(from, c.step)
	return true
}

// GoPrevious moves back one step without validating. It is a no-op on the
// first step.
func (c *Controller) GoPrevious() bool {
	if c.step <= StepBasicInfo {
		return false
	}
	from := c.step
	c.step--
	c.observer.StepChanged(from, c.step)
	return true
}

// BeginSubmit validates the current step and, when valid, sets the loading
// flag and returns a snapshot of the form to send. It returns false before the
// last step, while a submission is in flight, after a successful one, or when
// validation fails. Earlier steps are re-checked since their fields can still
// change after they were passed.
func (c *Controller) BeginSubmit() (FormState, bool) {
	if c.loading || c.success {
		return FormState{}, false
	}
	if c.step != TotalSteps {
		c.logger.Warn("submit before the last step ignored", logging.String("step", c.step.String()))
		return FormState{}, false
	}
	if !c.ValidateStep(c.step) {
		return FormState{}, false
	}
	for _, step := range Steps()[:TotalSteps-1] {
		if !c.ValidateStep(step) {
			c.logger.Warn("submit with an invalid earlier step", logging.String("step", step.String()))
			return FormState{}, false
		}
	}
	c.loading = true
	c.submitStarted = c.now()
	return c.state.Clone(), true
}

// CompleteSubmit records the outcome of the submission started by
// BeginSubmit. Failures set the generic submit error and are logged; the step
// is left unchanged. Calls without a pending submission are ignored.
func (c *Controller) CompleteSubmit(receipt Receipt, err error) {
	if !c.loading {
		return
	}
	c.loading = false
	elapsed := c.now().Sub(c.submitStarted)

	if err != nil {
		c.errors.Set(FieldSubmit, SubmitFailedMessage)
		c.logger.Error("account creation failed",
			logging.Err(err),
			logging.String("step", c.step.String()),
			logging.Duration("elapsed", elapsed),
		)
	} else {
		c.success = true
		c.receipt = receipt
		c.logger.Info("account created",
			logging.String("account_id", receipt.AccountID.String()),
			logging.Duration("elapsed", elapsed),
		)
	}

	c.observer.SubmissionFinished(err, elapsed)
}

// Submit runs BeginSubmit, the creator call and CompleteSubmit in sequence.
// It reports whether the account was created.
func (c *Controller) Submit(ctx context.Context) bool {
	form, ok := c.BeginSubmit()
	if !ok {
		return false
	}
	receipt, err := c.creator.CreateAccount(ctx, form)
	c.CompleteSubmit(receipt, err)
	return err == nil
}

// Creator returns the account creator the controller submits to.
func (c *Controller) Creator() AccountCreator {
	return c.creator
}

// State returns a copy of the form state.
func (c *Controller) State() FormState {
	return c.state.Clone()
}

// Errors returns a copy of the error map.
func (c *Controller) Errors() forms.ErrorMap {
	return c.errors.Clone()
}

// Step returns the current step.
func (c *Controller) Step() Step {
	return c.step
}

// Loading reports whether a submission is in flight.
func (c *Controller) Loading() bool {
	return c.loading
}

// Succeeded reports whether the account was created.
func (c *Controller) Succeeded() bool {
	return c.success
}

// Receipt returns the creator's receipt after a successful submission.
func (c *Controller) Receipt() Receipt {
	return c.receipt
}

// PasswordStrength rates the current password.
func (c *Controller) PasswordStrength() Strength {
	return PasswordStrength(c.state.Password)
}
