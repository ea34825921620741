package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return parsed
}

func TestParse_ExpiryDate(t *testing.T) {
	tag := Parse("2024-12-31")

	require.NotNil(t, tag.ExpiryDate)
	assert.Equal(t, date(t, "2024-12-31"), *tag.ExpiryDate)
	assert.False(t, tag.OnWeekends)
	assert.Nil(t, tag.WarningDate)
}

func TestParse_OnWeekends(t *testing.T) {
	for _, raw := range []string{"On Weekends", "on weekends", "ON WEEKENDS"} {
		tag := Parse(raw)
		assert.True(t, tag.OnWeekends, raw)
		assert.Nil(t, tag.ExpiryDate, raw)
	}
}

func TestParse_WarningMarker(t *testing.T) {
	tag := Parse("2024-12-31 (Nagbot: Warned on 2024-12-27)")

	require.NotNil(t, tag.ExpiryDate)
	require.NotNil(t, tag.WarningDate)
	assert.Equal(t, date(t, "2024-12-31"), *tag.ExpiryDate)
	assert.Equal(t, date(t, "2024-12-27"), *tag.WarningDate)
}

func TestParse_MalformedInputYieldsZeroTag(t *testing.T) {
	for _, raw := range []string{"", "never", "next tuesday", "31-12-2024", "soon (ish)"} {
		tag := Parse(raw)
		assert.Nil(t, tag.ExpiryDate, raw)
		assert.Nil(t, tag.WarningDate, raw)
		assert.False(t, tag.OnWeekends, raw)
	}
}

func TestParse_ExpiryMustBeAtStart(t *testing.T) {
	tag := Parse("delete after 2024-12-31")
	assert.Nil(t, tag.ExpiryDate)
}

func TestString_WeekendsWinOverExpiry(t *testing.T) {
	expiry := date(t, "2024-12-31")
	tag := Tag{ExpiryDate: &expiry, OnWeekends: true}

	assert.Equal(t, "On Weekends", tag.String())
}

func TestString_RoundTripIsStable(t *testing.T) {
	values := []string{
		"2024-12-31",
		"On Weekends",
		"2024-12-31 (Nagbot: Warned on 2024-12-27)",
		"On Weekends (Nagbot: Warned on 2024-12-27)",
		"",
	}
	for _, raw := range values {
		canonical := Parse(raw).String()
		assert.Equal(t, canonical, Parse(canonical).String(), raw)
	}
}

func TestAddWarning_RecordsToday(t *testing.T) {
	today := date(t, "2024-12-27")

	got := AddWarning("2024-12-31", today, false)
	assert.Equal(t, "2024-12-31 (Nagbot: Warned on 2024-12-27)", got)
}

func TestAddWarning_KeepsExistingWarningWhenNotReplacing(t *testing.T) {
	today := date(t, "2024-12-29")

	got := AddWarning("2024-12-31 (Nagbot: Warned on 2024-12-27)", today, false)
	assert.Equal(t, "2024-12-31 (Nagbot: Warned on 2024-12-27)", got)
}

func TestAddWarning_ReplaceRefreshesWarning(t *testing.T) {
	today := date(t, "2024-12-29")

	got := AddWarning("2024-12-31 (Nagbot: Warned on 2024-12-27)", today, true)
	assert.Equal(t, "2024-12-31 (Nagbot: Warned on 2024-12-29)", got)
}

func TestAddWarning_NormalizesWeekendSpelling(t *testing.T) {
	today := date(t, "2024-12-27")

	got := AddWarning("on weekends", today, false)
	assert.Equal(t, "On Weekends (Nagbot: Warned on 2024-12-27)", got)
}
