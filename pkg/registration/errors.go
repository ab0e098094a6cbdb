package registration

import "errors"

var (
	// ErrUnknownField is returned by OnFieldChange for a field name the form
	// does not have.
	ErrUnknownField = errors.New("registration: unknown field")

	// ErrInvalidValue is returned by OnFieldChange when the value has the
	// wrong type for the field.
	ErrInvalidValue = errors.New("registration: invalid value type")
)

// SubmitFailedMessage is shown above the navigation controls when account
// creation fails.
const SubmitFailedMessage = "Failed to create account. Please try again."
