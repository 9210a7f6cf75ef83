package definitions

import "time"

type ConnectionKind string

const (
	ConnectionUSB      ConnectionKind = "usb"
	ConnectionNetwork  ConnectionKind = "network"
	ConnectionEmulator ConnectionKind = "emulator"
)

type DeviceState string

const (
	StateOnline       DeviceState = "online"
	StateOffline      DeviceState = "offline"
	StateUnauthorized DeviceState = "unauthorized"
	StateUnknown      DeviceState = "unknown"
)

type Device struct {
	Serial         string         `json:"serial"`
	Model          string         `json:"model,omitempty"`
	AndroidVersion string         `json:"android_version,omitempty"`
	APILevel       int            `json:"api_level,omitempty"`
	Connection     ConnectionKind `json:"connection"`
	State          DeviceState    `json:"state"`
}

// IsOnline reports whether verification commands may run against the device.
func (d *Device) IsOnline() bool {
	return d.State == StateOnline
}

// DeviceStateChange is emitted by the device watcher when a poll observes
// a serial in a different state than the previous poll.
type DeviceStateChange struct {
	Serial    string      `json:"serial"`
	OldState  DeviceState `json:"old_state"`
	NewState  DeviceState `json:"new_state"`
	Timestamp time.Time   `json:"timestamp"`
}
