package registration

import (
	"unicode/utf8"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
)

// Strength is the display-only password strength rating.
type Strength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
	// Color is the meter color for the score; empty when Score is 0.
	Color string `json:"color"`
}

var strengthTable = [...]Strength{
	{0, "", ""},
	{1, "Very Weak", "red"},
	{2, "Weak", "orange"},
	{3, "Fair", "yellow"},
	{4, "Good", "blue"},
	{5, "Strong", "green"},
}

// MaxStrength is the highest score PasswordStrength returns.
const MaxStrength = 5

// PasswordStrength scores pw from 0 to 5: one point for the minimum length and
// one per character class present. It does not decide acceptance.
func PasswordStrength(pw string) Strength {
	score := 0
	if utf8.RuneCountInString(pw) >= MinPasswordLength {
		score++
	}
	for _, present := range forms.Classify(pw) {
		if present {
			score++
		}
	}
	return strengthTable[score]
}

// Percent returns the meter fill for the score.
func (s Strength) Percent() int {
	return s.Score * 100 / MaxStrength
}
