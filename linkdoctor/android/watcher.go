package android

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

const defaultWatchInterval = 2 * time.Second

// DeviceLister is the slice of DeviceManager the watcher needs.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]definitions.Device, error)
}

// DeviceWatcher polls the device list and reports state transitions. adb
// has no push notification for device state, so polling is the only way.
type DeviceWatcher struct {
	lister   DeviceLister
	interval time.Duration
}

func NewDeviceWatcher(lister DeviceLister, interval time.Duration) *DeviceWatcher {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	return &DeviceWatcher{lister: lister, interval: interval}
}

// Watch emits one DeviceStateChange per observed transition until ctx is
// cancelled. A device first seen emits a change from StateUnknown; a device
// that vanishes from the list emits a change to StateOffline.
func (r *DeviceWatcher) Watch(ctx context.Context) <-chan definitions.DeviceStateChange {
	changes := make(chan definitions.DeviceStateChange, 8)

	go func() {
		defer close(changes)

		known, _ := r.snapshot(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := r.snapshot(ctx)
			if err != nil {
				// A failed poll says nothing about the devices.
				continue
			}

			for serial, state := range current {
				old, seen := known[serial]
				if !seen {
					old = definitions.StateUnknown
				}
				if old != state {
					if !emitChange(ctx, changes, serial, old, state) {
						return
					}
				}
			}
			for serial, old := range known {
				if _, still := current[serial]; !still && old != definitions.StateOffline {
					if !emitChange(ctx, changes, serial, old, definitions.StateOffline) {
						return
					}
				}
			}

			known = current
		}
	}()

	return changes
}

func (r *DeviceWatcher) snapshot(ctx context.Context) (map[string]definitions.DeviceState, error) {
	devices, err := r.lister.ListDevices(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("[Watch] list devices failed")
		return nil, err
	}
	states := make(map[string]definitions.DeviceState, len(devices))
	for _, device := range devices {
		states[device.Serial] = device.State
	}
	return states, nil
}

func emitChange(ctx context.Context, ch chan<- definitions.DeviceStateChange, serial string, old, next definitions.DeviceState) bool {
	change := definitions.DeviceStateChange{
		Serial:    serial,
		OldState:  old,
		NewState:  next,
		Timestamp: time.Now(),
	}
	select {
	case ch <- change:
		return true
	case <-ctx.Done():
		return false
	}
}
