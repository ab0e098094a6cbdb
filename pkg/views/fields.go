package views

import (
	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

// preferenceLabels are the checkbox labels of the communication preferences.
var preferenceLabels = map[string]string{
	registration.PrefEmailNotifications: "Email notifications",
	registration.PrefSMSNotifications:   "SMS notifications",
	registration.PrefMarketingEmails:    "Marketing emails",
	registration.PrefWeeklyReports:      "Weekly performance reports",
}

// stepFields returns the widgets of step bound to the current values and
// errors. The other-brokerage input only appears when "other" is selected.
func stepFields(step registration.Step, f registration.FormState, errs forms.ErrorMap, cat *registration.Catalog, timezones []forms.Option) []forms.Field {
	var fields []forms.Field

	switch step {
	case registration.StepBasicInfo:
		fields = []forms.Field{
			forms.TextField(registration.FieldFirstName, "First Name", forms.WithRequired(), forms.WithAutocomplete("given-name")).
				Bind(f.FirstName, errs),
			forms.TextField(registration.FieldLastName, "Last Name", forms.WithRequired(), forms.WithAutocomplete("family-name")).
				Bind(f.LastName, errs),
			forms.EmailField(registration.FieldEmail, "Email Address", forms.WithRequired(), forms.WithPlaceholder("you@example.com"), forms.WithAutocomplete("email")).
				Bind(f.Email, errs),
			forms.TelField(registration.FieldPhone, "Phone Number", forms.WithRequired(), forms.WithPlaceholder("(555) 123-4567"), forms.WithAutocomplete("tel")).
				Bind(f.Phone, errs),
			forms.SelectField(registration.FieldState, "State", cat.States, forms.WithRequired()).
				Bind(f.State, errs),
			forms.TextField(registration.FieldCity, "City", forms.WithRequired(), forms.WithAutocomplete("address-level2")).
				Bind(f.City, errs),
			forms.SelectField(registration.FieldBrokerage, "Brokerage", cat.Brokerages, forms.WithRequired()).
				Bind(f.Brokerage, errs),
		}
		if f.Brokerage == registration.BrokerageOther {
			fields = append(fields,
				forms.TextField(registration.FieldOtherBrokerage, "Brokerage Name", forms.WithRequired()).
					Bind(f.OtherBrokerage, errs))
		}

	case registration.StepProfessional:
		fields = []forms.Field{
			forms.TextField(registration.FieldLicenseNumber, "License Number", forms.WithRequired()).
				Bind(f.LicenseNumber, errs),
			forms.SelectField(registration.FieldExperience, "Years of Experience", cat.Experience, forms.WithRequired()).
				Bind(f.Experience, errs),
			forms.SelectField(registration.FieldTransactionVolume, "Annual Transaction Volume", cat.TransactionVolumes).
				Bind(f.TransactionVolume, errs),
			forms.TextField(registration.FieldMLSID, "MLS ID").
				Bind(f.MLSID, errs),
			forms.TextField(registration.FieldNARID, "NAR Member ID").
				Bind(f.NARID, errs),
			forms.CheckboxGroupField(registration.FieldSpecializations, "Specializations", cat.Specializations,
				forms.WithRequired(), forms.WithHelp("Select at least 2")).
				Bind(f.Specializations.Values(), errs),
			forms.URLField(registration.FieldWebsite, "Website", forms.WithPlaceholder("https://")).
				Bind(f.Website, errs),
			forms.CheckboxField(registration.FieldAuthorizeVerification, "I authorize verification of my real estate license", forms.WithRequired()).
				Bind(f.AuthorizeVerification, errs),
		}

	case registration.StepAccount:
		fields = []forms.Field{
			forms.PasswordField(registration.FieldPassword, "Password", forms.WithRequired(), forms.WithAutocomplete("new-password"),
				forms.WithHelp("At least 8 characters with uppercase, lowercase, number, and special character")).
				Bind(f.Password, errs),
			forms.PasswordField(registration.FieldConfirmPassword, "Confirm Password", forms.WithRequired(), forms.WithAutocomplete("new-password")).
				Bind(f.ConfirmPassword, errs),
			forms.SelectField(registration.FieldTimezone, "Timezone", withSelected(timezones, cat.Timezones, f.Timezone), forms.WithRequired()).
				Bind(f.Timezone, errs),
		}
		for _, key := range registration.PreferenceKeys() {
			on, _ := f.CommunicationPreferences.Get(key)
			fields = append(fields,
				forms.CheckboxField(registration.PreferenceField(key), preferenceLabels[key]).Bind(on, errs))
		}
		fields = append(fields,
			forms.CheckboxField(registration.FieldAgreeToTerms, "I agree to the Terms of Service and Privacy Policy", forms.WithRequired()).
				Bind(f.AgreeToTerms, errs),
			forms.CheckboxField(registration.FieldConsentToCommunications, "I consent to receive communications about my account").
				Bind(f.ConsentToCommunications, errs),
			forms.CheckboxField(registration.FieldAcknowledgeLicensed, "I confirm I am a licensed real estate agent", forms.WithRequired()).
				Bind(f.AcknowledgeLicensed, errs),
		)
	}

	return fields
}

// withSelected keeps the chosen value visible when a search has filtered it
// out of options.
func withSelected(options, all []forms.Option, selected string) []forms.Option {
	if selected == "" {
		return options
	}
	for _, o := range options {
		if o.Value == selected {
			return options
		}
	}
	chosen := forms.Option{Value: selected, Label: registration.Label(all, selected)}
	return append([]forms.Option{chosen}, options...)
}
