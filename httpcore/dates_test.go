package httpcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatDateIsIMFFixdate(t *testing.T) {
	tm := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "Fri, 31 Jul 2026 12:00:00 GMT", FormatDate(tm))
}

func TestParseDateAcceptsAllThreeForms(t *testing.T) {
	want := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	got, err := ParseDate("Fri, 31 Jul 2026 12:00:00 GMT")
	require.NoError(t, err)
	require.True(t, want.Equal(got))

	got, err = ParseDate("Friday, 31-Jul-26 12:00:00 GMT")
	require.NoError(t, err)
	require.True(t, want.Equal(got))

	got, err = ParseDate("Fri Jul 31 12:00:00 2026")
	require.NoError(t, err)
	require.True(t, want.Equal(got))
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("not a date")
	require.Error(t, err)
}
