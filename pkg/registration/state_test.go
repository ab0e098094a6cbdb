package registration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecializationSet(t *testing.T) {
	s := NewSpecializationSet("luxury", "luxury", "", "land")
	assert.Equal(t, 2, s.Len())

	assert.False(t, s.Toggle("land"))
	assert.True(t, s.Toggle("commercial"))
	assert.Equal(t, []string{"commercial", "luxury"}, s.Values())
}

func TestFormState_JSON(t *testing.T) {
	f := NewFormState()
	f.Email = "jane@realty.com"
	f.Specializations.Toggle("residential")
	f.Specializations.Toggle("commercial")

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "jane@realty.com", raw["email"])
	assert.Equal(t, []any{"commercial", "residential"}, raw["specializations"])
	assert.Equal(t, true, raw["communicationPreferences"].(map[string]any)["weeklyReports"])

	var back FormState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Specializations.Has("residential"))
}

func TestFormState_Clone(t *testing.T) {
	f := NewFormState()
	f.Specializations.Toggle("land")

	c := f.Clone()
	c.Specializations.Toggle("luxury")

	assert.False(t, f.Specializations.Has("luxury"))
}

func TestFormState_SetBoolFromString(t *testing.T) {
	f := NewFormState()

	require.NoError(t, f.set(FieldAgreeToTerms, "on"))
	assert.True(t, f.AgreeToTerms)
	require.NoError(t, f.set(FieldAgreeToTerms, "false"))
	assert.False(t, f.AgreeToTerms)
	assert.ErrorIs(t, f.set(FieldAgreeToTerms, "maybe"), ErrInvalidValue)
}

func TestFormState_SetSpecializationsFromAnySlice(t *testing.T) {
	f := NewFormState()

	require.NoError(t, f.set(FieldSpecializations, []any{"land", "luxury"}))
	assert.Equal(t, 2, f.Specializations.Len())
	assert.ErrorIs(t, f.set(FieldSpecializations, []any{1}), ErrInvalidValue)
	assert.ErrorIs(t, f.set(FieldSpecializations, ""), ErrInvalidValue)
}

func TestFormState_ValueAccessors(t *testing.T) {
	f := NewFormState()
	require.NoError(t, f.set(FieldCity, "Austin"))
	require.NoError(t, f.set(FieldAgreeToTerms, true))
	require.NoError(t, f.set(PreferenceField(PrefWeeklyReports), true))

	city, ok := f.StringValue(FieldCity)
	assert.True(t, ok)
	assert.Equal(t, "Austin", city)

	agreed, ok := f.BoolValue(FieldAgreeToTerms)
	assert.True(t, ok)
	assert.True(t, agreed)

	weekly, ok := f.BoolValue(PreferenceField(PrefWeeklyReports))
	assert.True(t, ok)
	assert.True(t, weekly)

	_, ok = f.StringValue(FieldAgreeToTerms)
	assert.False(t, ok)
	_, ok = f.BoolValue("nope")
	assert.False(t, ok)
}
