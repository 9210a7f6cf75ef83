package helper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

// reThreadtime matches the default `logcat -v threadtime` line layout:
//   08-23 14:31:22.123  1234  5678 I ActivityTaskManager: message
var reThreadtime = regexp.MustCompile(`^(\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s+(\d+)\s+(\d+)\s+([VDIWEF])\s+(.*?)\s*: (.*)$`)

var (
	reIntentData      = regexp.MustCompile(`dat=([^\s}]+)`)
	reIntentComponent = regexp.MustCompile(`cmp=([^\s}]+)`)
	reDisplayed       = regexp.MustCompile(`Displayed ([^\s:]+)`)
)

// ParseLogLine turns one line of device log output into a LogEntry. Logcat
// buffer dividers are dropped entirely (nil); lines that do not match the
// threadtime pattern come back as unstructured entries.
func ParseLogLine(line string) *definitions.LogEntry {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "--------- beginning of") {
		return nil
	}

	m := reThreadtime.FindStringSubmatch(trimmed)
	if m == nil {
		return &definitions.LogEntry{
			Level:   definitions.LevelUnknown,
			Message: strings.TrimSpace(trimmed),
			Raw:     line,
		}
	}

	pid, _ := strconv.Atoi(m[2])
	tid, _ := strconv.Atoi(m[3])
	return &definitions.LogEntry{
		Timestamp: m[1],
		PID:       pid,
		TID:       tid,
		Level:     definitions.LogLevel(m[4]),
		Tag:       m[5],
		Message:   m[6],
		Raw:       line,
	}
}

// ClassifyDeepLinkEvent decides whether a log entry marks a deep-link
// lifecycle moment. The rules are tag+substring heuristics over well-known
// framework log shapes; lines that match none of them return nil.
func ClassifyDeepLinkEvent(entry *definitions.LogEntry) *definitions.DeepLinkEvent {
	if entry == nil {
		return nil
	}
	msg := entry.Message

	uri := firstSubmatch(reIntentData, msg)
	component := firstSubmatch(reIntentComponent, msg)

	switch {
	case strings.Contains(msg, "No Activity found to handle Intent"),
		strings.Contains(msg, "ActivityNotFoundException"):
		return newDeepLinkEvent(definitions.EventError, uri, component, msg)

	case isActivityManagerTag(entry.Tag) && strings.Contains(msg, "START") &&
		strings.Contains(msg, "act="+definitions.ActionView):
		return newDeepLinkEvent(definitions.EventStarted, uri, component, msg)

	case isActivityManagerTag(entry.Tag) && strings.HasPrefix(msg, "Displayed "):
		if component == "" {
			component = firstSubmatch(reDisplayed, msg)
		}
		return newDeepLinkEvent(definitions.EventResolved, uri, component, msg)

	case strings.Contains(msg, "act="+definitions.ActionView) && strings.Contains(msg, "resultCode="):
		return newDeepLinkEvent(definitions.EventResult, uri, component, msg)

	case strings.Contains(msg, "act="+definitions.ActionView):
		// A VIEW intent observed outside an activity start, typically the
		// browser or launcher dispatching a tapped link.
		return newDeepLinkEvent(definitions.EventClicked, uri, component, msg)

	case (entry.Level == definitions.LevelError || entry.Level == definitions.LevelFatal) &&
		containsAnyFold(msg, "app link", "applink", "deep link", "deeplink"):
		return newDeepLinkEvent(definitions.EventError, uri, component, msg)
	}

	return nil
}

func isActivityManagerTag(tag string) bool {
	return tag == "ActivityTaskManager" || tag == "ActivityManager"
}

func newDeepLinkEvent(typ definitions.DeepLinkEventType, uri, component, msg string) *definitions.DeepLinkEvent {
	return &definitions.DeepLinkEvent{
		Type:        typ,
		Description: describeEvent(uri, component, msg),
		URI:         uri,
		Component:   component,
	}
}

// describeEvent prefers the dat=/cmp= fragments; without them it falls back
// to a shortened message.
func describeEvent(uri, component, msg string) string {
	switch {
	case uri != "" && component != "":
		return fmt.Sprintf("%s -> %s", uri, component)
	case uri != "":
		return uri
	case component != "":
		return component
	}
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func containsAnyFold(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
