package android

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_deviceArgs(t *testing.T) {
	assert.Equal(t, []string{"shell", "getprop"}, deviceArgs("", "shell", "getprop"))
	assert.Equal(t, []string{"-s", "emulator-5554", "get-state"}, deviceArgs("emulator-5554", "get-state"))
}

func Test_normalizeLineEndings(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"adb shell output": {input: "line one\r\nline two\r\n", want: "line one\nline two\n"},
		"already clean":    {input: "line one\nline two\n", want: "line one\nline two\n"},
		"empty":            {input: "", want: ""},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, normalizeLineEndings(test.input))
		})
	}
}

func TestNewADBRunner_DefaultTimeout(t *testing.T) {
	assert.Equal(t, defaultCommandTimeout, NewADBRunner(0).timeout)
	assert.Equal(t, defaultCommandTimeout, NewADBRunner(-1).timeout)
}
