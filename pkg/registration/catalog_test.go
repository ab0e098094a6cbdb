package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
)

func values(opts []forms.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.States, 51)
	assert.Equal(t, "Other", Label(c.Brokerages, BrokerageOther))
	assert.Equal(t, []string{"0-1", "1-3", "3-5", "5-10", "10+"}, values(c.Experience))
	assert.GreaterOrEqual(t, len(c.Specializations), MinSpecializations)
	assert.NotEmpty(t, c.Timezones)
}

func TestParseCatalog_Rejects(t *testing.T) {
	_, err := ParseCatalog([]byte("states: [oops"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("brokerages: [{value: a, label: A}]"))
	assert.Error(t, err)
}

func TestLabel_FallsBackToValue(t *testing.T) {
	assert.Equal(t, "unknown", Label(DefaultCatalog().States, "unknown"))
	assert.Equal(t, "Texas", Label(DefaultCatalog().States, "TX"))
}

func TestSearchTimezones_EmptyQuery(t *testing.T) {
	c := DefaultCatalog()

	got := c.SearchTimezones("  ", 3)
	require.Len(t, got, 3)
	assert.Equal(t, c.Timezones[0], got[0])
	assert.Nil(t, c.SearchTimezones("pacific", 0))
}

func TestSearchTimezones_PrefixBeforeSubstring(t *testing.T) {
	c := &Catalog{Timezones: []forms.Option{
		{Value: "America/Indiana/Indianapolis", Label: "Eastern Time - Indianapolis"},
		{Value: "America/Chicago", Label: "Central Time (CT)"},
	}}

	got := c.SearchTimezones("cent", 10)
	assert.Equal(t, []string{"America/Chicago"}, values(got))

	got = c.SearchTimezones("ana", 10)
	assert.Equal(t, []string{"America/Indiana/Indianapolis"}, values(got))
}

func TestSearchTimezones_Typos(t *testing.T) {
	got := DefaultCatalog().SearchTimezones("pacfic", 5)
	require.NotEmpty(t, got)
	assert.Contains(t, values(got), "America/Los_Angeles")

	assert.Empty(t, DefaultCatalog().SearchTimezones("zzzzzz", 5))
}

func TestSearchTimezones_Limit(t *testing.T) {
	got := DefaultCatalog().SearchTimezones("time", 2)
	assert.Len(t, got, 2)
}
