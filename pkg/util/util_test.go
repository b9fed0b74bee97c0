package util

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"2d", 48 * time.Hour},
		{"3s", 3 * time.Second},
		{"15", 15 * time.Second},
		{" 250ms ", 250 * time.Millisecond},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseDuration("xd")
	assert.Error(t, err)
}

func TestRandomBase36(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{9}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, RandomBase36(9))
	}
	assert.Empty(t, RandomBase36(0))
}
