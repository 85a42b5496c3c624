package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"30m", 30 * time.Minute},
		{"10s", 10 * time.Second},
		{"90", 90 * time.Second},
		{" 7d ", 7 * 24 * time.Hour},
	}

	for _, c := range cases {
		got, err := ParseDuration(c.in)
		assert.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "xd"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}
