package gocardless

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "millisecond precision UTC",
			input: "2024-05-01T12:30:45.123Z",
			want:  time.Date(2024, 5, 1, 12, 30, 45, 123000000, time.UTC),
		},
		{
			name:  "second precision UTC",
			input: "2024-05-01T12:30:45Z",
			want:  time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC),
		},
		{
			name:    "date only is not a timestamp",
			input:   "2024-05-01",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "yesterday",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, hostZone, got.Location())
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.May, got.Month())
	assert.Equal(t, 1, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, hostZone, got.Location())

	_, err = ParseDate("01/05/2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestParseRFC5322(t *testing.T) {
	got, err := ParseRFC5322("Wed, 01 May 2024 12:30:45 +0000")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)))

	_, err = ParseRFC5322("not a date")
	assert.Error(t, err)
}

func TestFormatTimestamp(t *testing.T) {
	in := time.Date(2024, 5, 1, 14, 30, 45, 123000000, time.FixedZone("CEST", 2*60*60))
	assert.Equal(t, "2024-05-01T12:30:45.123Z", FormatTimestamp(in))
}

func TestFormatDate(t *testing.T) {
	in := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-01", FormatDate(in))
}
