package forms

// FieldType identifies the type of form field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldMulti    FieldType = "checkbox-group"
	FieldURL      FieldType = "url"
	FieldTel      FieldType = "tel"
)

// Field describes one input widget. Value and Error are filled in at render
// time from a read-only view of the form state and its error map.
type Field struct {
	// Name is the field name carried in change events.
	Name string

	Type  FieldType
	Label string

	Placeholder string

	// Required only marks the label; the rules live elsewhere.
	Required bool

	Options []Option

	// Value is a string, a bool or a []string depending on Type.
	Value any

	Error string
	Help  string

	Autocomplete string
}

// Option represents a select or checkbox-group option.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// FieldOption is a function that configures a field.
type FieldOption func(*Field)

// NewField creates a new field.
func NewField(name string, fieldType FieldType, label string, opts ...FieldOption) Field {
	field := Field{
		Name:  name,
		Type:  fieldType,
		Label: label,
	}
	for _, opt := range opts {
		opt(&field)
	}
	return field
}

// Bind returns a copy of f carrying value and the message errs holds for f.
func (f Field) Bind(value any, errs ErrorMap) Field {
	f.Value = value
	f.Error = errs.Get(f.Name)
	return f
}

// StringValue returns Value as a string, or "" for other types.
func (f Field) StringValue() string {
	s, _ := f.Value.(string)
	return s
}

// Checked reports whether a checkbox field is on.
func (f Field) Checked() bool {
	b, _ := f.Value.(bool)
	return b
}

// Selected reports whether option is among the chosen values.
func (f Field) Selected(option string) bool {
	switch v := f.Value.(type) {
	case string:
		return v == option
	case []string:
		for _, s := range v {
			if s == option {
				return true
			}
		}
	}
	return false
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.Required = true
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithHelp sets the help text.
func WithHelp(help string) FieldOption {
	return func(f *Field) {
		f.Help = help
	}
}

// WithOptions sets the select options.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
	}
}

// WithAutocomplete sets the autocomplete attribute.
func WithAutocomplete(value string) FieldOption {
	return func(f *Field) {
		f.Autocomplete = value
	}
}

// TextField creates a text field.
func TextField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldText, label, opts...)
}

// EmailField creates an email field.
func EmailField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldEmail, label, opts...)
}

// PasswordField creates a password field.
func PasswordField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldPassword, label, opts...)
}

// TelField creates a phone number field.
func TelField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldTel, label, opts...)
}

// URLField creates a URL field.
func URLField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldURL, label, opts...)
}

// SelectField creates a select field.
func SelectField(name, label string, options []Option, opts ...FieldOption) Field {
	field := NewField(name, FieldSelect, label, opts...)
	field.Options = options
	return field
}

// CheckboxField creates a checkbox field.
func CheckboxField(name, label string, opts ...FieldOption) Field {
	return NewField(name, FieldCheckbox, label, opts...)
}

// CheckboxGroupField creates a multi-select rendered as checkboxes.
func CheckboxGroupField(name, label string, options []Option, opts ...FieldOption) Field {
	field := NewField(name, FieldMulti, label, opts...)
	field.Options = options
	return field
}
