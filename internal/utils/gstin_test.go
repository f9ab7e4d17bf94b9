package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAndValidate(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"27ABCDE1234F1Z5", "27ABCDE1234F1Z5", true},
		{" 27abcde1234f1z5 ", "27ABCDE1234F1Z5", true},
		{"27ABCDE1234F1Z", "27ABCDE1234F1Z", false},
		{"27ABCDE1234F1Z5X", "27ABCDE1234F1Z5X", false},
		{"27ABCDE-234F1Z5", "27ABCDE-234F1Z5", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got := NormalizeGSTIN(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.valid, IsValidGSTIN(got), tt.in)
	}
}

func TestStateCodeAndPAN(t *testing.T) {
	assert.Equal(t, "27", StateCode("27ABCDE1234F1Z5"))
	assert.Equal(t, "ABCDE1234F", PAN("27ABCDE1234F1Z5"))
	assert.Empty(t, StateCode("2"))
	assert.Empty(t, PAN("27ABC"))
}
