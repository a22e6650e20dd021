package sizespec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"100", 100},
		{"100B", 100},
		{"100b", 100},
		{"40K", 40960},
		{"40k", 40960},
		{"40KB", 40960},
		{"2M", 2097152},
		{"2MB", 2097152},
		{"1G", 1073741824},
		{"1T", 1099511627776},
		{"1.5K", 1536},
		{"0.5M", 524288},
		{" 40K ", 40960},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEmptyMeansUnlimited(t *testing.T) {
	got, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	got, err = Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"abc",
		"40X",
		"-5K",
		"-100",
		"-0.5M",
		"K",
		"B",
		"KB",
		"notanumber G",
		"10000000000G",
		"9999999999999999T",
		"1e30K",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
