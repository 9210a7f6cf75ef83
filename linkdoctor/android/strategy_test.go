package android

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStrategy(t *testing.T) {
	tests := map[string]struct {
		apiLevel int
		want     Dialect
	}{
		"android 12":          {apiLevel: 31, want: DialectNew},
		"android 14":          {apiLevel: 34, want: DialectNew},
		"android 11":          {apiLevel: 30, want: DialectLegacy},
		"android 6":           {apiLevel: 23, want: DialectLegacy},
		"unknown level zero":  {apiLevel: 0, want: DialectLegacy},
		"garbage level below": {apiLevel: -1, want: DialectLegacy},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, SelectStrategy(test.apiLevel).Dialect())
		})
	}
}

func TestDomainVerificationStrategy_Commands(t *testing.T) {
	s := &DomainVerificationStrategy{}

	assert.Equal(t, "pm get-app-links com.example.shop", s.ListVerificationCommand("com.example.shop"))
	assert.Equal(t, "pm get-app-links", s.ListVerificationCommand(""))
	assert.Equal(t, "pm verify-app-links --re-verify com.example.shop", s.ForceReverifyCommand("com.example.shop"))
}

func TestIntentFilterVerifierStrategy_Commands(t *testing.T) {
	s := &IntentFilterVerifierStrategy{}

	// The legacy report is global; the package filter is applied after parsing.
	assert.Equal(t, "dumpsys package domain-preferred-apps", s.ListVerificationCommand("com.example.shop"))
	assert.Equal(t, "dumpsys package domain-preferred-apps", s.ListVerificationCommand(""))
	assert.Equal(t, "pm set-app-link com.example.shop undefined", s.ForceReverifyCommand("com.example.shop"))
}
