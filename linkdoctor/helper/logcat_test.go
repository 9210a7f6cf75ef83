package helper

import (
	"bufio"
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

var dataLogcat, _ = os.ReadFile("testdata/logcat.txt")

func TestParseLogLine(t *testing.T) {
	tests := map[string]struct {
		line string
		want *definitions.LogEntry
	}{
		"empty line": {
			line: "",
			want: nil,
		},
		"buffer divider": {
			line: "--------- beginning of main",
			want: nil,
		},
		"threadtime line": {
			line: "08-23 14:31:20.117  1762  1804 I ActivityTaskManager: START u0 {act=android.intent.action.VIEW}",
			want: &definitions.LogEntry{
				Timestamp: "08-23 14:31:20.117",
				PID:       1762,
				TID:       1804,
				Level:     definitions.LevelInfo,
				Tag:       "ActivityTaskManager",
				Message:   "START u0 {act=android.intent.action.VIEW}",
			},
		},
		"unstructured line": {
			line: "beep boop unstructured\r\n",
			want: &definitions.LogEntry{
				Level:   definitions.LevelUnknown,
				Message: "beep boop unstructured",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := ParseLogLine(test.line)
			if test.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			got.Raw = ""
			assert.Equal(t, test.want, got)
		})
	}
}

func TestClassifyDeepLinkEvent(t *testing.T) {
	tests := map[string]struct {
		line     string
		wantType definitions.DeepLinkEventType
		wantNone bool
	}{
		"activity start": {
			line:     "08-23 14:31:20.117  1762  1804 I ActivityTaskManager: START u0 {act=android.intent.action.VIEW dat=https://example.com/p/1 cmp=com.example.shop/.ui.LinkActivity}",
			wantType: definitions.EventStarted,
		},
		"activity displayed": {
			line:     "08-23 14:31:20.483  1762  1801 I ActivityManager: Displayed com.example.shop/.ui.LinkActivity: +366ms",
			wantType: definitions.EventResolved,
		},
		"view dispatch outside start": {
			line:     "08-23 14:30:59.881  3021  3021 I UriDispatcher: Dispatching {act=android.intent.action.VIEW dat=https://example.com/sale}",
			wantType: definitions.EventClicked,
		},
		"view result": {
			line:     "08-23 14:32:01.200  1762  1804 I ActivityTaskManager: Sending result {act=android.intent.action.VIEW dat=https://example.com/checkout} resultCode=0",
			wantType: definitions.EventResult,
		},
		"no matching activity": {
			line:     "08-23 14:31:25.902  1762  1804 W ActivityTaskManager: No Activity found to handle Intent { act=android.intent.action.VIEW dat=https://missing.example.org/x }",
			wantType: definitions.EventError,
		},
		"activity not found exception": {
			line:     "08-23 14:31:26.014  4410  4410 E AndroidRuntime: android.content.ActivityNotFoundException: No Activity found to handle Intent",
			wantType: definitions.EventError,
		},
		"app link failure at error level": {
			line:     "08-23 14:31:27.300  9981  9981 E AppLinkVerifier: deep link verification failed for example.com",
			wantType: definitions.EventError,
		},
		"verifier chatter at debug level": {
			line:     `08-23 14:31:30.551  9981  9981 D IntentFilterVerifier: Verifying IntentFilter. verificationId:32 scheme:"https"`,
			wantNone: true,
		},
		"unrelated log line": {
			line:     "08-23 14:31:31.000  1200  1200 I WifiService: scan requested",
			wantNone: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			entry := ParseLogLine(test.line)
			require.NotNil(t, entry)

			event := ClassifyDeepLinkEvent(entry)
			if test.wantNone {
				assert.Nil(t, event)
				return
			}
			require.NotNil(t, event)
			assert.Equal(t, test.wantType, event.Type)
		})
	}
}

func TestClassifyDeepLinkEvent_NilEntry(t *testing.T) {
	assert.Nil(t, ClassifyDeepLinkEvent(nil))
}

func TestClassifyDeepLinkEvent_Fixture(t *testing.T) {
	var events []definitions.DeepLinkEvent
	scanner := bufio.NewScanner(bytes.NewReader(dataLogcat))
	for scanner.Scan() {
		entry := ParseLogLine(scanner.Text())
		if entry == nil {
			continue
		}
		if event := ClassifyDeepLinkEvent(entry); event != nil {
			events = append(events, *event)
		}
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 4)
	assert.Equal(t, definitions.EventStarted, events[0].Type)
	assert.Equal(t, "https://example.com/products/42", events[0].URI)
	assert.Equal(t, "com.example.shop/.ui.LinkActivity", events[0].Component)
	assert.Equal(t, definitions.EventResolved, events[1].Type)
	assert.Equal(t, "com.example.shop/.ui.LinkActivity", events[1].Component)
	assert.Equal(t, definitions.EventError, events[2].Type)
	assert.Equal(t, "https://missing.example.org/x", events[2].URI)
	assert.Equal(t, definitions.EventError, events[3].Type)
}
