package utils

import (
	"github.com/bytedance/sonic"
)

// JsonString renders obj as compact JSON, swallowing marshal errors. Meant
// for log lines where a best-effort rendering beats failing the call.
func JsonString(obj any) string {
	s, _ := sonic.MarshalString(obj)
	return s
}

// JsonIndent renders obj as two-space indented JSON for human-facing output.
func JsonIndent(obj any) string {
	b, _ := sonic.MarshalIndent(obj, "", "  ")
	return string(b)
}
