// Package adb wraps the Android device-bridge command-line tool with
// device targeting, connectivity checks, and typed helpers. It adds no
// protocol logic of its own: every method is argument construction plus
// result parsing around one or more executor calls.
package adb

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/standardbeagle/droidctl/internal/executor"
)

// SessionConfig holds device-session settings.
type SessionConfig struct {
	// ADBPath is the bridge binary (empty = discover via FindADB).
	ADBPath string
	// DefaultSerial overrides auto-selection when set.
	DefaultSerial string
	// CommandTimeout applies to ordinary bridge invocations (0 = executor default).
	CommandTimeout time.Duration
	// InstallTimeout applies to package installs, which routinely take
	// much longer than shell commands (0 = 2 minutes).
	InstallTimeout time.Duration
}

// Session issues bridge-tool commands against a resolved device target.
// Device resolution happens fresh per operation; the session holds no
// cross-request device state.
type Session struct {
	runner executor.Runner
	config SessionConfig
}

// NewSession creates a Session backed by the given runner.
func NewSession(runner executor.Runner, config SessionConfig) *Session {
	if config.ADBPath == "" {
		config.ADBPath = FindADB()
	}
	if config.InstallTimeout == 0 {
		config.InstallTimeout = 2 * time.Minute
	}
	return &Session{runner: runner, config: config}
}

// FindADB locates the bridge binary via PATH and common SDK locations.
func FindADB() string {
	if path, err := exec.LookPath("adb"); err == nil {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "adb"
	}
	candidates := []string{
		filepath.Join(home, "Android", "Sdk", "platform-tools", "adb"),
		filepath.Join(home, "Library", "Android", "sdk", "platform-tools", "adb"),
		"/usr/local/bin/adb",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return "adb"
}

// ListDevices enumerates attached devices and emulators.
func (s *Session) ListDevices(ctx context.Context) ([]Device, error) {
	result, err := s.runner.Run(ctx, executor.Spec{
		Command: s.config.ADBPath,
		Args:    []string{"devices", "-l"},
		Timeout: s.config.CommandTimeout,
	})
	if err != nil {
		return nil, err
	}
	return parseDevices(string(result.Stdout)), nil
}

// Resolve selects the device target for one operation. An explicit serial
// wins; otherwise the configured default; otherwise the single ready
// device. Resolution is never cached because the connected set can change
// between calls.
func (s *Session) Resolve(ctx context.Context, explicit string) (Device, error) {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return Device{}, err
	}

	serial := explicit
	if serial == "" {
		serial = s.config.DefaultSerial
	}
	if serial != "" {
		for _, d := range devices {
			if d.Serial == serial {
				if !d.Ready() {
					return Device{}, &DeviceOfflineError{Serial: serial}
				}
				return d, nil
			}
		}
		return Device{}, &NoDeviceError{Serial: serial}
	}

	var ready []Device
	for _, d := range devices {
		if d.Ready() {
			ready = append(ready, d)
		}
	}
	switch len(ready) {
	case 0:
		return Device{}, &NoDeviceError{}
	case 1:
		return ready[0], nil
	default:
		serials := make([]string, len(ready))
		for i, d := range ready {
			serials[i] = d.Serial
		}
		return Device{}, &AmbiguousDeviceError{Serials: serials}
	}
}

// Shell runs a shell command on the device and returns its output.
func (s *Session) Shell(ctx context.Context, dev Device, args ...string) (executor.Result, error) {
	return s.run(ctx, dev, s.config.CommandTimeout, append([]string{"shell"}, args...)...)
}

// Pull copies a device-side file to a local path.
func (s *Session) Pull(ctx context.Context, dev Device, remotePath, localPath string) error {
	_, err := s.run(ctx, dev, s.config.CommandTimeout, "pull", remotePath, localPath)
	return err
}

// Push copies a local file to a device-side path.
func (s *Session) Push(ctx context.Context, dev Device, localPath, remotePath string) error {
	_, err := s.run(ctx, dev, s.config.CommandTimeout, "push", localPath, remotePath)
	return err
}

// Install installs an APK, replacing any existing install.
func (s *Session) Install(ctx context.Context, dev Device, apkPath string) (string, error) {
	result, err := s.run(ctx, dev, s.config.InstallTimeout, "install", "-r", apkPath)
	if err != nil {
		return "", err
	}
	return string(result.Stdout), nil
}

// Logcat returns the most recent lines of the device log. filter, when
// set, is passed through as a logcat filterspec (e.g. "ActivityManager:I *:S").
func (s *Session) Logcat(ctx context.Context, dev Device, lines int, filter string) (string, error) {
	if lines <= 0 {
		lines = 200
	}
	args := []string{"logcat", "-d", "-t", strconv.Itoa(lines)}
	if filter != "" {
		args = append(args, filter)
	}
	result, err := s.run(ctx, dev, s.config.CommandTimeout, args...)
	if err != nil {
		return "", err
	}
	return string(result.Stdout), nil
}

// run invokes the bridge against the target device with one silent retry
// on transient "device offline" failures.
func (s *Session) run(ctx context.Context, dev Device, timeout time.Duration, args ...string) (executor.Result, error) {
	spec := executor.Spec{
		Command: s.config.ADBPath,
		Args:    append([]string{"-s", dev.Serial}, args...),
		Timeout: timeout,
	}

	result, err := s.runner.Run(ctx, spec)
	if err == nil || !isOffline(result) {
		return result, err
	}

	result, err = s.runner.Run(ctx, spec)
	if err != nil && isOffline(result) {
		return result, &DeviceOfflineError{Serial: dev.Serial}
	}
	return result, err
}

// isOffline detects the bridge tool's transient offline signal.
func isOffline(result executor.Result) bool {
	return bytes.Contains(result.Stderr, []byte("device offline")) ||
		bytes.Contains(result.Stderr, []byte("device still connecting"))
}

