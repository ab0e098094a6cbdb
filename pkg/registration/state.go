package registration

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Field names carried by change events and used as ErrorMap keys.
const (
	FieldFirstName      = "firstName"
	FieldLastName       = "lastName"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldState          = "state"
	FieldCity           = "city"
	FieldBrokerage      = "brokerage"
	FieldOtherBrokerage = "otherBrokerage"

	FieldLicenseNumber         = "licenseNumber"
	FieldExperience            = "experience"
	FieldTransactionVolume     = "transactionVolume"
	FieldMLSID                 = "mlsId"
	FieldNARID                 = "narId"
	FieldSpecializations       = "specializations"
	FieldWebsite               = "website"
	FieldAuthorizeVerification = "authorizeVerification"

	FieldPassword                 = "password"
	FieldConfirmPassword          = "confirmPassword"
	FieldTimezone                 = "timezone"
	FieldCommunicationPreferences = "communicationPreferences"
	FieldAgreeToTerms             = "agreeToTerms"
	FieldConsentToCommunications  = "consentToCommunications"
	FieldAcknowledgeLicensed      = "acknowledgeLicensed"

	// FieldSubmit holds the top-level submission error.
	FieldSubmit = "submit"
)

// Communication preference keys.
const (
	PrefEmailNotifications = "emailNotifications"
	PrefSMSNotifications   = "smsNotifications"
	PrefMarketingEmails    = "marketingEmails"
	PrefWeeklyReports      = "weeklyReports"
)

// BrokerageOther is the brokerage selection that requires OtherBrokerage.
const BrokerageOther = "other"

// PreferenceField returns the change-event field name for a communication
// preference key.
func PreferenceField(key string) string {
	return FieldCommunicationPreferences + "." + key
}

// SpecializationSet is a set of specialization values.
type SpecializationSet map[string]struct{}

// NewSpecializationSet builds a set from values, dropping duplicates and blanks.
func NewSpecializationSet(values ...string) SpecializationSet {
	s := make(SpecializationSet, len(values))
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Toggle adds v when absent and removes it when present. It reports whether v
// is in the set afterwards.
func (s SpecializationSet) Toggle(v string) bool {
	if _, ok := s[v]; ok {
		delete(s, v)
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has reports whether v is selected.
func (s SpecializationSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of distinct selections.
func (s SpecializationSet) Len() int {
	return len(s)
}

// Values returns the selections sorted.
func (s SpecializationSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s SpecializationSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array, dropping duplicates.
func (s *SpecializationSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewSpecializationSet(values...)
	return nil
}

// CommunicationPreferences are the fixed notification opt-ins.
type CommunicationPreferences struct {
	EmailNotifications bool `json:"emailNotifications"`
	SMSNotifications   bool `json:"smsNotifications"`
	MarketingEmails    bool `json:"marketingEmails"`
	WeeklyReports      bool `json:"weeklyReports"`
}

// PreferenceKeys lists the preference keys in display order.
func PreferenceKeys() []string {
	return []string{PrefEmailNotifications, PrefSMSNotifications, PrefMarketingEmails, PrefWeeklyReports}
}

// Get returns the value of the preference key.
func (p CommunicationPreferences) Get(key string) (bool, bool) {
	switch key {
	case PrefEmailNotifications:
		return p.EmailNotifications, true
	case PrefSMSNotifications:
		return p.SMSNotifications, true
	case PrefMarketingEmails:
		return p.MarketingEmails, true
	case PrefWeeklyReports:
		return p.WeeklyReports, true
	}
	return false, false
}

func (p *CommunicationPreferences) set(key string, on bool) bool {
	switch key {
	case PrefEmailNotifications:
		p.EmailNotifications = on
	case PrefSMSNotifications:
		p.SMSNotifications = on
	case PrefMarketingEmails:
		p.MarketingEmails = on
	case PrefWeeklyReports:
		p.WeeklyReports = on
	default:
		return false
	}
	return true
}

// FormState is every value collected by the wizard.
type FormState struct {
	// Basic information
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	State          string `json:"state"`
	City           string `json:"city"`
	Brokerage      string `json:"brokerage"`
	OtherBrokerage string `json:"otherBrokerage"`

	// Professional details
	LicenseNumber         string            `json:"licenseNumber"`
	Experience            string            `json:"experience"`
	TransactionVolume     string            `json:"transactionVolume"`
	MLSID                 string            `json:"mlsId"`
	NARID                 string            `json:"narId"`
	Specializations       SpecializationSet `json:"specializations"`
	Website               string            `json:"website"`
	AuthorizeVerification bool              `json:"authorizeVerification"`

	// Account setup
	Password                 string                   `json:"password"`
	ConfirmPassword          string                   `json:"confirmPassword"`
	Timezone                 string                   `json:"timezone"`
	CommunicationPreferences CommunicationPreferences `json:"communicationPreferences"`
	AgreeToTerms             bool                     `json:"agreeToTerms"`
	ConsentToCommunications  bool                     `json:"consentToCommunications"`
	AcknowledgeLicensed      bool                     `json:"acknowledgeLicensed"`
}

// NewFormState returns the initial form state.
func NewFormState() FormState {
	return FormState{
		Specializations: NewSpecializationSet(),
		CommunicationPreferences: CommunicationPreferences{
			EmailNotifications: true,
			WeeklyReports:      true,
		},
	}
}

// Clone returns a deep copy.
func (f FormState) Clone() FormState {
	out := f
	out.Specializations = NewSpecializationSet(f.Specializations.Values()...)
	return out
}

// BrokerageName returns the brokerage the agent works for, resolving "other"
// to the free-text name.
func (f FormState) BrokerageName() string {
	if f.Brokerage == BrokerageOther {
		return strings.TrimSpace(f.OtherBrokerage)
	}
	return f.Brokerage
}

// StringValue returns the value of a text or select field.
func (f FormState) StringValue(field string) (string, bool) {
	if p, ok := f.stringField(field); ok {
		return *p, true
	}
	return "", false
}

// BoolValue returns the value of a checkbox field, including communication
// preferences.
func (f FormState) BoolValue(field string) (bool, bool) {
	if p, ok := f.boolField(field); ok {
		return *p, true
	}
	if key, ok := strings.CutPrefix(field, FieldCommunicationPreferences+"."); ok {
		return f.CommunicationPreferences.Get(key)
	}
	return false, false
}

func (f *FormState) stringField(field string) (*string, bool) {
	switch field {
	case FieldFirstName:
		return &f.FirstName, true
	case FieldLastName:
		return &f.LastName, true
	case FieldEmail:
		return &f.Email, true
	case FieldPhone:
		return &f.Phone, true
	case FieldState:
		return &f.State, true
	case FieldCity:
		return &f.City, true
	case FieldBrokerage:
		return &f.Brokerage, true
	case FieldOtherBrokerage:
		return &f.OtherBrokerage, true
	case FieldLicenseNumber:
		return &f.LicenseNumber, true
	case FieldExperience:
		return &f.Experience, true
	case FieldTransactionVolume:
		return &f.TransactionVolume, true
	case FieldMLSID:
		return &f.MLSID, true
	case FieldNARID:
		return &f.NARID, true
	case FieldWebsite:
		return &f.Website, true
	case FieldPassword:
		return &f.Password, true
	case FieldConfirmPassword:
		return &f.ConfirmPassword, true
	case FieldTimezone:
		return &f.Timezone, true
	}
	return nil, false
}

func (f *FormState) boolField(field string) (*bool, bool) {
	switch field {
	case FieldAuthorizeVerification:
		return &f.AuthorizeVerification, true
	case FieldAgreeToTerms:
		return &f.AgreeToTerms, true
	case FieldConsentToCommunications:
		return &f.ConsentToCommunications, true
	case FieldAcknowledgeLicensed:
		return &f.AcknowledgeLicensed, true
	}
	return nil, false
}

// set merges value into the field. Bool fields also accept the strings
// "true" and "false" as sent by HTML checkboxes.
func (f *FormState) set(field string, value any) error {
	if p, ok := f.stringField(field); ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants a string, got %T", ErrInvalidValue, field, value)
		}
		*p = s
		return nil
	}

	if p, ok := f.boolField(field); ok {
		b, err := toBool(field, value)
		if err != nil {
			return err
		}
		*p = b
		return nil
	}

	if key, ok := strings.CutPrefix(field, FieldCommunicationPreferences+"."); ok {
		b, err := toBool(field, value)
		if err != nil {
			return err
		}
		if !f.CommunicationPreferences.set(key, b) {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		return nil
	}

	if field == FieldSpecializations {
		if f.Specializations == nil {
			f.Specializations = NewSpecializationSet()
		}
		switch v := value.(type) {
		case string:
			if v == "" {
				return fmt.Errorf("%w: empty specialization", ErrInvalidValue)
			}
			f.Specializations.Toggle(v)
		case []string:
			f.Specializations = NewSpecializationSet(v...)
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("%w: specialization %T", ErrInvalidValue, item)
				}
				values = append(values, s)
			}
			f.Specializations = NewSpecializationSet(values...)
		default:
			return fmt.Errorf("%w: %s wants a string or []string, got %T", ErrInvalidValue, field, value)
		}
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func toBool(field string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true", "on":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s wants a bool, got %T", ErrInvalidValue, field, value)
}
