package android

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"

	"github.com/rs/zerolog/log"
)

// DeviceManager discovers and manages adb device connections.
type DeviceManager struct {
}

func NewDeviceManager() *DeviceManager {
	return &DeviceManager{}
}

func (r *DeviceManager) Connect(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmdArgs := []string{"connect", address}

	log.Debug().Str("cmd", fmt.Sprintf("[Connect] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")

	cmd := exec.CommandContext(ctx, adbPath, cmdArgs...)
	rawOutput, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Msg("[Connect] run cmd failed")
		return fmt.Sprintf("Connect error: %v", err), err
	}

	log.Debug().Str("output", string(rawOutput)).Msg("[Connect] raw output")

	output := string(rawOutput)

	lowerOutput := strings.ToLower(output)

	if strings.Contains(lowerOutput, "already connected") {
		return fmt.Sprintf("Already connected to %s", address), nil
	}
	if strings.Contains(lowerOutput, " connected") {
		return fmt.Sprintf("Connected to %s", address), nil
	}

	return fmt.Sprintf("Connection error: %s", strings.TrimSpace(output)), nil
}

func (r *DeviceManager) Disconnect(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmdArgs := []string{"disconnect"}
	if len(address) > 0 {
		cmdArgs = append(cmdArgs, address)
	}
	log.Debug().Str("cmd", fmt.Sprintf("[Disconnect] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")

	cmd := exec.CommandContext(ctx, adbPath, cmdArgs...)
	rawOutput, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Msg("[Disconnect] run cmd failed")
		return fmt.Sprintf("Disconnect error: %v", err), err
	}

	log.Debug().Str("output", string(rawOutput)).Msg("[Disconnect] raw output")

	return string(rawOutput), nil
}

func (r *DeviceManager) ListDevices(ctx context.Context) ([]definitions.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmdArgs := []string{"devices", "-l"}

	log.Debug().Str("cmd", fmt.Sprintf("[ListDevices] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")
	cmd := exec.CommandContext(ctx, adbPath, cmdArgs...)

	rawOutput, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Msg("[ListDevices] run cmd failed")
		return nil, err
	}

	return parseDeviceList(string(rawOutput)), nil
}

// parseDeviceList extracts devices from `adb devices -l` output. The first
// line is the banner; remaining lines are `<serial> <state> key:value...`.
func parseDeviceList(output string) []definitions.Device {
	var devices []definitions.Device
	scanner := bufio.NewScanner(strings.NewReader(output))

	// Skip the first line (header)
	scanner.Scan()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		serial := parts[0]

		var model string
		for _, part := range parts[2:] {
			if strings.HasPrefix(part, "model:") {
				model = strings.SplitN(part, ":", 2)[1]
				break
			}
		}

		devices = append(devices, definitions.Device{
			Serial:     serial,
			Model:      model,
			Connection: connectionKindOf(serial),
			State:      mapDeviceState(parts[1]),
		})
	}

	return devices
}

func connectionKindOf(serial string) definitions.ConnectionKind {
	switch {
	case strings.HasPrefix(serial, "emulator-"):
		return definitions.ConnectionEmulator
	case strings.Contains(serial, ":"):
		return definitions.ConnectionNetwork
	default:
		return definitions.ConnectionUSB
	}
}

func mapDeviceState(state string) definitions.DeviceState {
	switch state {
	case "device":
		return definitions.StateOnline
	case "offline":
		return definitions.StateOffline
	case "unauthorized":
		return definitions.StateUnauthorized
	default:
		return definitions.StateUnknown
	}
}

// GetDeviceInfo fills in the build properties for one device.
func (r *DeviceManager) GetDeviceInfo(ctx context.Context, serial string) (*definitions.Device, error) {
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	var device *definitions.Device
	for i := range devices {
		if devices[i].Serial == serial {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		return nil, fmt.Errorf("device %s not found", serial)
	}
	if !device.IsOnline() {
		return device, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmdArgs := deviceArgs(serial, "shell",
		"getprop ro.product.model; getprop ro.build.version.release; getprop ro.build.version.sdk")

	log.Debug().Str("cmd", fmt.Sprintf("[GetDeviceInfo] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")

	rawOutput, err := exec.CommandContext(ctx, adbPath, cmdArgs...).CombinedOutput()
	if err != nil {
		log.Error().Err(err).Msg("[GetDeviceInfo] run cmd failed")
		return nil, err
	}

	lines := strings.Split(normalizeLineEndings(string(rawOutput)), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		device.Model = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		device.AndroidVersion = strings.TrimSpace(lines[1])
	}
	if len(lines) > 2 {
		device.APILevel, _ = strconv.Atoi(strings.TrimSpace(lines[2]))
	}

	return device, nil
}

// APILevel reads ro.build.version.sdk for a device, 0 when it cannot be
// determined.
func (r *DeviceManager) APILevel(ctx context.Context, serial string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmdArgs := deviceArgs(serial, "shell", "getprop", "ro.build.version.sdk")

	log.Debug().Str("cmd", fmt.Sprintf("[APILevel] run cmd: %s %s", adbPath, strings.Join(cmdArgs, " "))).Msg("")

	rawOutput, err := exec.CommandContext(ctx, adbPath, cmdArgs...).CombinedOutput()
	if err != nil {
		log.Error().Err(err).Msg("[APILevel] run cmd failed")
		return 0, err
	}

	level, err := strconv.Atoi(strings.TrimSpace(string(rawOutput)))
	if err != nil {
		return 0, fmt.Errorf("unexpected getprop output %q", strings.TrimSpace(string(rawOutput)))
	}
	return level, nil
}

// IsConnected reports whether the device is currently listed as online.
func (r *DeviceManager) IsConnected(ctx context.Context, serial string) bool {
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return false
	}
	for _, device := range devices {
		if device.Serial == serial && device.IsOnline() {
			return true
		}
	}
	return false
}
