// Package views holds the live components served by the signup server.
package views

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
	"github.com/gabrielmiguelok/agentsignup/pkg/handoff"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

// Events handled by SignupView.
const (
	EventFieldChange          = "field_change"
	EventToggleSpecialization = "toggle_specialization"
	EventNext                 = "next"
	EventPrevious             = "previous"
	EventSubmit               = "submit"
	EventSearchTimezones      = "search_timezones"
	EventGetStarted           = "get_started"
	EventSkipTour             = "skip_tour"
)

// DefaultTimezoneResults caps the timezone options shown at once.
const DefaultTimezoneResults = 12

var (
	// ErrUnknownEvent is returned for events SignupView does not handle.
	ErrUnknownEvent = errors.New("views: unknown event")

	// ErrMissingField is returned when an event lacks a required value.
	ErrMissingField = errors.New("views: missing event value")

	// ErrSubmitNotAllowed is returned for a submit sent before the last step.
	ErrSubmitNotAllowed = errors.New("views: submit before the last step")
)

// Config carries the collaborators shared by every SignupView.
type Config struct {
	Creator registration.AccountCreator

	// Issuer signs the dashboard hand-off. Without one the modal actions
	// redirect to DashboardPath unsigned.
	Issuer        *handoff.Issuer
	DashboardPath string

	Observer registration.Observer
	Logger   logging.Logger
	Catalog  *registration.Catalog

	TimezoneResults int
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logging.NopLogger{}
	}
	if c.Observer == nil {
		c.Observer = registration.NopObserver{}
	}
	if c.Catalog == nil {
		c.Catalog = registration.DefaultCatalog()
	}
	if c.TimezoneResults <= 0 {
		c.TimezoneResults = DefaultTimezoneResults
	}
	if c.DashboardPath == "" {
		c.DashboardPath = "/dashboard"
	}
	return c
}

// submitResult carries the creator's answer back to the session goroutine.
type submitResult struct {
	receipt registration.Receipt
	err     error
}

// SignupView is the three-step agent signup wizard.
type SignupView struct {
	core.BaseComponent

	cfg    Config
	logger logging.Logger
	ctrl   *registration.Controller

	tzQuery   string
	timezones []forms.Option

	// ctx outlives individual events and is cancelled on Terminate, so an
	// in-flight submission stops when the session ends.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignup creates an unmounted view.
func NewSignup(cfg Config) *SignupView {
	return &SignupView{cfg: cfg.withDefaults()}
}

// Factory returns a constructor suitable for router.Live.
func Factory(cfg Config) func() core.Component {
	cfg = cfg.withDefaults()
	return func() core.Component {
		return &SignupView{cfg: cfg}
	}
}

func (v *SignupView) Name() string {
	return "signup"
}

// Mount starts a fresh wizard on step 1.
func (v *SignupView) Mount(ctx context.Context, params core.Params, session core.Session) error {
	if v.cfg.Creator == nil {
		return fmt.Errorf("views: signup has no account creator")
	}

	v.logger = v.cfg.Logger.With(logging.String("component", v.Name()))
	if socket := v.Socket(); socket != nil {
		v.logger = v.logger.With(logging.String("socket_id", socket.ID()))
	}

	v.ctrl = registration.New(v.cfg.Creator,
		registration.WithLogger(v.logger),
		registration.WithObserver(v.cfg.Observer),
	)
	v.timezones = v.cfg.Catalog.SearchTimezones("", v.cfg.TimezoneResults)
	v.ctx, v.cancel = context.WithCancel(context.WithoutCancel(ctx))
	return nil
}

// Controller exposes the wizard state, mostly for tests.
func (v *SignupView) Controller() *registration.Controller {
	return v.ctrl
}

// HandleEvent dispatches a client event.
func (v *SignupView) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case EventFieldChange:
		return v.handleFieldChange(payload)
	case EventToggleSpecialization:
		value, _ := payload["value"].(string)
		if value == "" {
			return fmt.Errorf("%w: value", ErrMissingField)
		}
		return v.ctrl.OnFieldChange(registration.FieldSpecializations, sanitizeValue(registration.FieldSpecializations, value))
	case EventNext:
		v.ctrl.GoNext()
		return nil
	case EventPrevious:
		v.ctrl.GoPrevious()
		return nil
	case EventSubmit:
		if step := v.ctrl.Step(); step != registration.StepAccount {
			v.logger.Warn("rejected submit", logging.String("step", step.String()))
			return fmt.Errorf("%w: on %s", ErrSubmitNotAllowed, step)
		}
		v.submit()
		return nil
	case EventSearchTimezones:
		query, _ := payload["query"].(string)
		v.tzQuery = sanitizeValue("", query).(string)
		v.timezones = v.cfg.Catalog.SearchTimezones(v.tzQuery, v.cfg.TimezoneResults)
		return nil
	case EventGetStarted:
		return v.handOff(handoff.GetStarted)
	case EventSkipTour:
		return v.handOff(handoff.SkipTour)
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
}

func (v *SignupView) handleFieldChange(payload map[string]any) error {
	field, _ := payload["field"].(string)
	if field == "" {
		return fmt.Errorf("%w: field", ErrMissingField)
	}
	value, ok := payload["value"]
	if !ok {
		return fmt.Errorf("%w: value", ErrMissingField)
	}
	if err := v.ctrl.OnFieldChange(field, sanitizeValue(field, value)); err != nil {
		v.logger.Warn("rejected field change", logging.String("field", field), logging.Err(err))
		return err
	}
	return nil
}

// submit starts the creator call in the background. The result returns
// through HandleInfo so the loading state renders meanwhile.
func (v *SignupView) submit() {
	form, ok := v.ctrl.BeginSubmit()
	if !ok {
		return
	}

	creator := v.ctrl.Creator()
	socket := v.Socket()
	if socket == nil {
		receipt, err := creator.CreateAccount(v.ctx, form)
		v.ctrl.CompleteSubmit(receipt, err)
		return
	}

	ctx, logger := v.ctx, v.logger
	go func() {
		receipt, err := creator.CreateAccount(ctx, form)
		if sendErr := socket.SendInfo(submitResult{receipt: receipt, err: err}); sendErr != nil {
			logger.Warn("submission result dropped", logging.Err(sendErr))
		}
	}()
}

// HandleInfo completes a background submission.
func (v *SignupView) HandleInfo(ctx context.Context, msg any) error {
	res, ok := msg.(submitResult)
	if !ok {
		v.logger.Debug("ignoring info message", logging.String("type", fmt.Sprintf("%T", msg)))
		return nil
	}
	v.ctrl.CompleteSubmit(res.receipt, res.err)
	return nil
}

func (v *SignupView) handOff(dest handoff.Destination) error {
	if !v.ctrl.Succeeded() {
		v.logger.Debug("hand-off before account creation ignored")
		return nil
	}

	url := v.cfg.DashboardPath
	if v.cfg.Issuer != nil {
		var err error
		url, err = v.cfg.Issuer.RedirectURL(v.ctrl.Receipt(), v.ctrl.State().Email, dest)
		if err != nil {
			return fmt.Errorf("views: hand-off: %w", err)
		}
	}

	socket := v.Socket()
	if socket == nil {
		return nil
	}
	return socket.PushRedirect(url)
}

// Terminate stops any in-flight submission. It may be called more than once.
func (v *SignupView) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if v.cancel != nil {
		v.cancel()
	}
	if v.logger != nil {
		v.logger.Debug("signup terminated", logging.String("reason", reason.String()))
	}
	return nil
}

// Render draws the wizard.
func (v *SignupView) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		return signupTemplate.ExecuteTemplate(w, "signup", v.pageData())
	})
}
