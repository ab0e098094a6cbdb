package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validator validates a field value.
type Validator interface {
	// Validate checks if the value is valid.
	Validate(value any) error

	// Message returns the error message.
	Message() string
}

var errInvalid = errors.New("invalid")

// RequiredValidator validates that a field is not blank.
type RequiredValidator struct {
	Msg string
}

func (v RequiredValidator) Validate(value any) error {
	if isBlank(value) {
		return errors.New("required")
	}
	return nil
}

func (v RequiredValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "This field is required"
}

// EmailValidator validates a local-part@domain.tld address with no embedded
// whitespace.
type EmailValidator struct {
	Msg string
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (v EmailValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil // Skip if empty (use Required for that)
	}
	if !emailRegex.MatchString(str) {
		return errors.New("invalid email")
	}
	return nil
}

func (v EmailValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Please enter a valid email address"
}

// URLSchemeValidator validates that a non-blank value starts with one of the
// allowed scheme prefixes.
type URLSchemeValidator struct {
	Schemes []string
	Msg     string
}

func (v URLSchemeValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || strings.TrimSpace(str) == "" {
		return nil
	}
	str = strings.TrimSpace(str)
	for _, scheme := range v.Schemes {
		if strings.HasPrefix(str, scheme) {
			return nil
		}
	}
	return errors.New("invalid URL")
}

func (v URLSchemeValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Please enter a valid URL"
}

// MinLengthValidator validates minimum string length in characters.
type MinLengthValidator struct {
	Min int
	Msg string
}

func (v MinLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if utf8.RuneCountInString(str) < v.Min {
		return fmt.Errorf("too short (min %d)", v.Min)
	}
	return nil
}

func (v MinLengthValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return fmt.Sprintf("Must be at least %d characters", v.Min)
}

// CharClass is a class of characters a value may be required to contain.
type CharClass int

const (
	ClassLower CharClass = iota
	ClassUpper
	ClassDigit
	// ClassSymbol is anything outside A-Z, a-z and 0-9.
	ClassSymbol
)

func (c CharClass) String() string {
	switch c {
	case ClassLower:
		return "lowercase letter"
	case ClassUpper:
		return "uppercase letter"
	case ClassDigit:
		return "number"
	case ClassSymbol:
		return "special character"
	default:
		return "unknown"
	}
}

// Classify reports which character classes occur in s.
func Classify(s string) map[CharClass]bool {
	found := make(map[CharClass]bool, 4)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			found[ClassLower] = true
		case r >= 'A' && r <= 'Z':
			found[ClassUpper] = true
		case r >= '0' && r <= '9':
			found[ClassDigit] = true
		default:
			found[ClassSymbol] = true
		}
	}
	return found
}

// CharacterClassesValidator requires every listed class to occur at least once.
type CharacterClassesValidator struct {
	Classes []CharClass
	Msg     string
}

func (v CharacterClassesValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	found := Classify(str)
	for _, class := range v.Classes {
		if !found[class] {
			return fmt.Errorf("missing %s", class)
		}
	}
	return nil
}

func (v CharacterClassesValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	names := make([]string, len(v.Classes))
	for i, c := range v.Classes {
		names[i] = c.String()
	}
	return "Must contain a " + strings.Join(names, ", ")
}

// EqualValidator validates that a string equals Other exactly.
type EqualValidator struct {
	Other string
	Msg   string
}

func (v EqualValidator) Validate(value any) error {
	str, _ := value.(string)
	if str != v.Other {
		return errors.New("mismatch")
	}
	return nil
}

func (v EqualValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Values do not match"
}

// CheckedValidator validates that a checkbox value is true.
type CheckedValidator struct {
	Msg string
}

func (v CheckedValidator) Validate(value any) error {
	if b, ok := value.(bool); ok && b {
		return nil
	}
	return errInvalid
}

func (v CheckedValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "This box must be checked"
}

// MinItemsValidator validates the number of selected items.
type MinItemsValidator struct {
	Min int
	Msg string
}

func (v MinItemsValidator) Validate(value any) error {
	if countItems(value) < v.Min {
		return fmt.Errorf("fewer than %d items", v.Min)
	}
	return nil
}

func (v MinItemsValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return fmt.Sprintf("Select at least %d options", v.Min)
}

// CustomValidator allows custom validation functions.
type CustomValidator struct {
	Fn  func(value any) error
	Msg string
}

func (v CustomValidator) Validate(value any) error {
	return v.Fn(value)
}

func (v CustomValidator) Message() string {
	return v.Msg
}

// Helper functions

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func countItems(value any) int {
	switch v := value.(type) {
	case []string:
		return len(v)
	case []any:
		return len(v)
	case interface{ Len() int }:
		return v.Len()
	default:
		return 0
	}
}

func message(msgs []string) string {
	if len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Convenience constructors. Each takes an optional message override.

// Required returns a required validator.
func Required(msg ...string) Validator {
	return RequiredValidator{Msg: message(msg)}
}

// Email returns an email validator.
func Email(msg ...string) Validator {
	return EmailValidator{Msg: message(msg)}
}

// URLScheme returns a validator accepting values that start with one of schemes.
func URLScheme(schemes []string, msg ...string) Validator {
	return URLSchemeValidator{Schemes: schemes, Msg: message(msg)}
}

// MinLength returns a minimum length validator.
func MinLength(n int, msg ...string) Validator {
	return MinLengthValidator{Min: n, Msg: message(msg)}
}

// CharacterClasses returns a validator requiring every class in classes.
func CharacterClasses(classes []CharClass, msg ...string) Validator {
	return CharacterClassesValidator{Classes: classes, Msg: message(msg)}
}

// EqualTo returns a validator requiring an exact match with other.
func EqualTo(other string, msg ...string) Validator {
	return EqualValidator{Other: other, Msg: message(msg)}
}

// Checked returns a validator requiring a true checkbox.
func Checked(msg ...string) Validator {
	return CheckedValidator{Msg: message(msg)}
}

// MinItems returns a validator requiring at least n selected items.
func MinItems(n int, msg ...string) Validator {
	return MinItemsValidator{Min: n, Msg: message(msg)}
}

// Custom returns a custom validator.
func Custom(fn func(value any) error, msg string) Validator {
	return CustomValidator{Fn: fn, Msg: msg}
}
