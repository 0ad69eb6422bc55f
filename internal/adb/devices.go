package adb

import (
	"fmt"
	"strings"
)

// Device is one entry from the bridge tool's device enumeration.
type Device struct {
	// Serial is the device identifier (e.g. emulator-5554).
	Serial string `json:"serial"`
	// State is the connection state reported by the bridge
	// (device, offline, unauthorized, ...).
	State string `json:"state"`
	// Description is the trailing per-device info, if any.
	Description string `json:"description,omitempty"`
}

// StateReady is the bridge tool's state for a usable device.
const StateReady = "device"

// Ready reports whether the device can accept commands.
func (d Device) Ready() bool { return d.State == StateReady }

// NoDeviceError indicates no usable device is connected.
type NoDeviceError struct {
	Serial string // non-empty when a specific serial was requested
}

func (e *NoDeviceError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("device %q is not connected", e.Serial)
	}
	return "no device connected"
}

// AmbiguousDeviceError indicates multiple devices are connected and none
// was selected explicitly.
type AmbiguousDeviceError struct {
	Serials []string
}

func (e *AmbiguousDeviceError) Error() string {
	return fmt.Sprintf("multiple devices connected (%s); specify one explicitly",
		strings.Join(e.Serials, ", "))
}

// DeviceOfflineError indicates the device is attached but not responding,
// after the session's single retry was exhausted.
type DeviceOfflineError struct {
	Serial string
}

func (e *DeviceOfflineError) Error() string {
	return fmt.Sprintf("device %q is offline", e.Serial)
}

// parseDevices parses `adb devices -l` output: a header line followed by
// one device per line (serial, state, optional description).
func parseDevices(out string) []Device {
	var devices []Device
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || (i == 0 && strings.HasPrefix(line, "List of devices")) {
			continue
		}
		if strings.HasPrefix(line, "*") {
			// Daemon startup noise ("* daemon started successfully *").
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{
			Serial:      fields[0],
			State:       fields[1],
			Description: strings.Join(fields[2:], " "),
		})
	}
	return devices
}
