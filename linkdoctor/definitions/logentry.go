package definitions

type LogLevel string

const (
	LevelVerbose LogLevel = "V"
	LevelDebug   LogLevel = "D"
	LevelInfo    LogLevel = "I"
	LevelWarning LogLevel = "W"
	LevelError   LogLevel = "E"
	LevelFatal   LogLevel = "F"
	LevelUnknown LogLevel = "?"
)

// LogEntry is one parsed line of device log output. Lines that do not match
// the threadtime pattern are kept as unstructured entries: the raw text
// becomes the message, the tag stays empty and the level is LevelUnknown.
type LogEntry struct {
	Timestamp string   `json:"timestamp,omitempty"`
	PID       int      `json:"pid,omitempty"`
	TID       int      `json:"tid,omitempty"`
	Level     LogLevel `json:"level"`
	Tag       string   `json:"tag,omitempty"`
	Message   string   `json:"message"`
	Raw       string   `json:"-"`
}

type DeepLinkEventType string

const (
	EventStarted  DeepLinkEventType = "started"
	EventResolved DeepLinkEventType = "resolved"
	EventClicked  DeepLinkEventType = "clicked"
	EventResult   DeepLinkEventType = "result"
	EventError    DeepLinkEventType = "error"
)

// DeepLinkEvent is a classified deep-link lifecycle moment observed in the
// device log. URI and Component are filled from dat=/cmp= fragments when the
// line carries them.
type DeepLinkEvent struct {
	Type        DeepLinkEventType `json:"type"`
	Description string            `json:"description"`
	URI         string            `json:"uri,omitempty"`
	Component   string            `json:"component,omitempty"`
}
