package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		pw    string
		score int
		label string
	}{
		{"", 0, ""},
		{"a", 1, "Very Weak"},
		{"abcdefgh", 2, "Weak"},
		{"Abcdefgh", 3, "Fair"},
		{"Abcd1234", 4, "Good"},
		{"Abc123!@", 5, "Strong"},
		{"Ab1!", 4, "Good"},
		{"!!!!", 1, "Very Weak"},
	}

	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			got := PasswordStrength(tt.pw)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.label, got.Label)
		})
	}
}

func TestStrength_Percent(t *testing.T) {
	assert.Equal(t, 0, PasswordStrength("").Percent())
	assert.Equal(t, 60, PasswordStrength("Abcdefgh").Percent())
	assert.Equal(t, 100, PasswordStrength("Abc123!@").Percent())
}

func TestPasswordStrength_NotAGate(t *testing.T) {
	// "Good" passwords are still rejected by the account rules.
	f := NewFormState()
	f.Password = "Abcd1234"
	f.ConfirmPassword = "Abcd1234"

	assert.Equal(t, 4, PasswordStrength(f.Password).Score)
	assert.Equal(t, MsgPasswordClasses, Rules(StepAccount, f).Get(FieldPassword))
}
