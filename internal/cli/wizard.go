// Package cli runs the agent signup wizard in a terminal. It drives the same
// registration controller as the live view, one prompt per field.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
	"github.com/gabrielmiguelok/agentsignup/pkg/handoff"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

const timezoneResults = 12

type fieldKind int

const (
	kindText fieldKind = iota
	kindPassword
	kindSelect
	kindConfirm
	kindMulti
	kindTimezone
	kindPreferences
)

type fieldSpec struct {
	name    string
	label   string
	kind    fieldKind
	options func(*registration.Catalog) []forms.Option
	when    func(registration.FormState) bool
}

var stepSpecs = map[registration.Step][]fieldSpec{
	registration.StepBasicInfo: {
		{name: registration.FieldFirstName, label: "First name"},
		{name: registration.FieldLastName, label: "Last name"},
		{name: registration.FieldEmail, label: "Email address"},
		{name: registration.FieldPhone, label: "Phone number"},
		{name: registration.FieldState, label: "State", kind: kindSelect,
			options: func(c *registration.Catalog) []forms.Option { return c.States }},
		{name: registration.FieldCity, label: "City"},
		{name: registration.FieldBrokerage, label: "Brokerage", kind: kindSelect,
			options: func(c *registration.Catalog) []forms.Option { return c.Brokerages }},
		{name: registration.FieldOtherBrokerage, label: "Brokerage name",
			when: func(f registration.FormState) bool { return f.Brokerage == registration.BrokerageOther }},
	},
	registration.StepProfessional: {
		{name: registration.FieldLicenseNumber, label: "License number"},
		{name: registration.FieldExperience, label: "Years of experience", kind: kindSelect,
			options: func(c *registration.Catalog) []forms.Option { return c.Experience }},
		{name: registration.FieldTransactionVolume, label: "Annual transaction volume (optional)", kind: kindSelect,
			options: func(c *registration.Catalog) []forms.Option { return c.TransactionVolumes }},
		{name: registration.FieldMLSID, label: "MLS ID (optional)"},
		{name: registration.FieldNARID, label: "NAR member ID (optional)"},
		{name: registration.FieldSpecializations, label: "Specializations (pick at least 2)", kind: kindMulti,
			options: func(c *registration.Catalog) []forms.Option { return c.Specializations }},
		{name: registration.FieldWebsite, label: "Website (optional)"},
		{name: registration.FieldAuthorizeVerification, label: "Authorize verification of your license?", kind: kindConfirm},
	},
	registration.StepAccount: {
		{name: registration.FieldPassword, label: "Password", kind: kindPassword},
		{name: registration.FieldConfirmPassword, label: "Confirm password", kind: kindPassword},
		{name: registration.FieldTimezone, label: "Timezone", kind: kindTimezone},
		{name: registration.FieldCommunicationPreferences, label: "Communication preferences", kind: kindPreferences},
		{name: registration.FieldAgreeToTerms, label: "Agree to the Terms of Service and Privacy Policy?", kind: kindConfirm},
		{name: registration.FieldConsentToCommunications, label: "Consent to account communications?", kind: kindConfirm},
		{name: registration.FieldAcknowledgeLicensed, label: "Confirm you are a licensed real estate agent?", kind: kindConfirm},
	},
}

var preferenceLabels = map[string]string{
	registration.PrefEmailNotifications: "Email notifications",
	registration.PrefSMSNotifications:   "SMS notifications",
	registration.PrefMarketingEmails:    "Marketing emails",
	registration.PrefWeeklyReports:      "Weekly performance reports",
}

// Wizard walks a user through the signup steps.
type Wizard struct {
	driver  PromptDriver
	ctrl    *registration.Controller
	catalog *registration.Catalog
	issuer  *handoff.Issuer
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithCatalog overrides the option catalog.
func WithCatalog(c *registration.Catalog) Option {
	return func(w *Wizard) { w.catalog = c }
}

// WithIssuer prints a signed dashboard link after signup.
func WithIssuer(i *handoff.Issuer) Option {
	return func(w *Wizard) { w.issuer = i }
}

// NewWizard creates a wizard over ctrl.
func NewWizard(driver PromptDriver, ctrl *registration.Controller, opts ...Option) *Wizard {
	w := &Wizard{
		driver:  driver,
		ctrl:    ctrl,
		catalog: registration.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run prompts until the account is created or the user gives up.
func (w *Wizard) Run(ctx context.Context) (registration.Receipt, error) {
	retry := false
	for !w.ctrl.Succeeded() {
		step := w.ctrl.Step()
		if !retry {
			if err := w.info(ctx, fmt.Sprintf("\nStep %d of %d: %s", step, registration.TotalSteps, step.Title())); err != nil {
				return registration.Receipt{}, err
			}
			if err := w.fillStep(ctx, step); err != nil {
				return registration.Receipt{}, err
			}

			if step != registration.StepBasicInfo {
				back, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Go back to the previous step?"})
				if err != nil {
					return registration.Receipt{}, err
				}
				if back {
					w.ctrl.GoPrevious()
					continue
				}
			}
		}

		if step < registration.StepAccount {
			w.ctrl.GoNext()
			continue
		}

		created, err := w.submit(ctx)
		if err != nil {
			return registration.Receipt{}, err
		}
		retry = !created
	}

	return w.ctrl.Receipt(), w.handOff(ctx)
}

// fillStep prompts every field of step, then re-prompts the fields that fail
// validation until the step passes.
func (w *Wizard) fillStep(ctx context.Context, step registration.Step) error {
	specs := stepSpecs[step]
	for _, spec := range specs {
		if err := w.prompt(ctx, spec); err != nil {
			return err
		}
	}

	for !w.ctrl.ValidateStep(step) {
		errs := w.ctrl.Errors()
		for _, spec := range specs {
			msg := errs.Get(spec.name)
			if msg == "" {
				continue
			}
			if err := w.info(ctx, "  ! "+msg); err != nil {
				return err
			}
			if err := w.prompt(ctx, spec); err != nil {
				return err
			}
		}
	}
	return nil
}

// submit reports whether the account was created. A declined retry ends the
// wizard with ErrAborted.
func (w *Wizard) submit(ctx context.Context) (bool, error) {
	if err := w.info(ctx, "Creating account..."); err != nil {
		return false, err
	}
	if w.ctrl.Submit(ctx) {
		return true, nil
	}
	if msg := w.ctrl.Errors().Get(registration.FieldSubmit); msg != "" {
		if err := w.info(ctx, msg); err != nil {
			return false, err
		}
	}
	again, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
	if err != nil {
		return false, err
	}
	if !again {
		return false, ErrAborted
	}
	return false, nil
}

func (w *Wizard) handOff(ctx context.Context) error {
	state := w.ctrl.State()
	if err := w.info(ctx, fmt.Sprintf("\nWelcome, %s! Your agent account has been created.", state.FirstName)); err != nil {
		return err
	}

	choice, err := w.driver.Select(ctx, SelectConfig{
		Message: "What next?",
		Options: []string{"Get Started", "Skip Tour"},
	})
	if err != nil {
		return err
	}
	dest := handoff.GetStarted
	if choice == 1 {
		dest = handoff.SkipTour
	}

	if w.issuer == nil {
		return w.info(ctx, "Open your dashboard to continue.")
	}
	url, err := w.issuer.RedirectURL(w.ctrl.Receipt(), state.Email, dest)
	if err != nil {
		return err
	}
	return w.info(ctx, "Dashboard: "+url)
}

func (w *Wizard) prompt(ctx context.Context, spec fieldSpec) error {
	state := w.ctrl.State()
	if spec.when != nil && !spec.when(state) {
		return nil
	}

	var value any
	switch spec.kind {
	case kindText:
		current, _ := state.StringValue(spec.name)
		s, err := w.driver.Input(ctx, InputConfig{Message: spec.label, Default: current})
		if err != nil {
			return err
		}
		value = s

	case kindPassword:
		current, _ := state.StringValue(spec.name)
		s, err := w.driver.Password(ctx, InputConfig{Message: spec.label, Default: current})
		if err != nil {
			return err
		}
		value = s

	case kindSelect:
		current, _ := state.StringValue(spec.name)
		v, err := w.selectOption(ctx, spec.label, spec.options(w.catalog), current)
		if err != nil {
			return err
		}
		value = v

	case kindConfirm:
		current, _ := state.BoolValue(spec.name)
		b, err := w.driver.Confirm(ctx, ConfirmConfig{Message: spec.label, Default: current})
		if err != nil {
			return err
		}
		value = b

	case kindMulti:
		options := spec.options(w.catalog)
		labels, defaults := labelsOf(options), []int{}
		for i, o := range options {
			if state.Specializations.Has(o.Value) {
				defaults = append(defaults, i)
			}
		}
		picked, err := w.driver.MultiSelect(ctx, SelectConfig{Message: spec.label, Options: labels, Defaults: defaults})
		if err != nil {
			return err
		}
		values := make([]string, 0, len(picked))
		for _, i := range picked {
			values = append(values, options[i].Value)
		}
		value = values

	case kindTimezone:
		v, err := w.promptTimezone(ctx, state.Timezone)
		if err != nil {
			return err
		}
		value = v

	case kindPreferences:
		return w.promptPreferences(ctx, state.CommunicationPreferences)
	}

	return w.ctrl.OnFieldChange(spec.name, value)
}

func (w *Wizard) selectOption(ctx context.Context, label string, options []forms.Option, current string) (string, error) {
	labels := append([]string{"(none)"}, labelsOf(options)...)
	def := 0
	for i, o := range options {
		if o.Value == current {
			def = i + 1
		}
	}
	idx, err := w.driver.Select(ctx, SelectConfig{Message: label, Options: labels, DefaultIndex: def, PageSize: 12})
	if err != nil {
		return "", err
	}
	if idx <= 0 || idx > len(options) {
		return "", nil
	}
	return options[idx-1].Value, nil
}

func (w *Wizard) promptTimezone(ctx context.Context, current string) (string, error) {
	for {
		query, err := w.driver.Input(ctx, InputConfig{
			Message: "Search timezones",
			Help:    "Type part of a city or zone name, or leave empty to list all",
		})
		if err != nil {
			return "", err
		}
		results := w.catalog.SearchTimezones(query, timezoneResults)
		if len(results) == 0 {
			if err := w.info(ctx, "  No timezones match "+query); err != nil {
				return "", err
			}
			continue
		}
		return w.selectOption(ctx, "Timezone", results, current)
	}
}

func (w *Wizard) promptPreferences(ctx context.Context, current registration.CommunicationPreferences) error {
	keys := registration.PreferenceKeys()
	labels := make([]string, len(keys))
	var defaults []int
	for i, key := range keys {
		labels[i] = preferenceLabels[key]
		if on, _ := current.Get(key); on {
			defaults = append(defaults, i)
		}
	}

	picked, err := w.driver.MultiSelect(ctx, SelectConfig{Message: "Communication preferences", Options: labels, Defaults: defaults})
	if err != nil {
		return err
	}
	chosen := make(map[int]bool, len(picked))
	for _, i := range picked {
		chosen[i] = true
	}
	var errs []error
	for i, key := range keys {
		errs = append(errs, w.ctrl.OnFieldChange(registration.PreferenceField(key), chosen[i]))
	}
	return errors.Join(errs...)
}

func (w *Wizard) info(ctx context.Context, msg string) error {
	return w.driver.Info(ctx, msg)
}

func labelsOf(options []forms.Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Label
	}
	return out
}
