package views

import (
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

var textPolicy = bluemonday.StrictPolicy()

// rawFields are stored exactly as typed.
var rawFields = map[string]bool{
	registration.FieldPassword:        true,
	registration.FieldConfirmPassword: true,
}

// sanitizeValue strips markup from free-text values. The policy escapes
// entities, which the templates escape again, so they are decoded here.
func sanitizeValue(field string, value any) any {
	s, ok := value.(string)
	if !ok || rawFields[field] {
		return value
	}
	return html.UnescapeString(textPolicy.Sanitize(s))
}
