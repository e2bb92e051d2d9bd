package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0812345678", true},
		{"081-234-5678", true},
		{"081 234 5678", true},
		{"021234567", true},
		{"123456789", false},
		{"08123", false},
		{"08123456789", false},
		{"08a2345678", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidPhone(tc.in))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "0812345678", NormalizePhone(" 081-234 5678 "))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.True(t, ValidEmail("  somchai.k@spa.example.com "))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a b@c.co"))
	assert.False(t, ValidEmail(""))
}
