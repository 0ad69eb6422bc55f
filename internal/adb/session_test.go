package adb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/droidctl/internal/executor"
)

// fakeRunner scripts executor responses by matching argument substrings.
type fakeRunner struct {
	calls     []executor.Spec
	responses []fakeResponse
}

type fakeResponse struct {
	match  string // substring of the joined args; "" matches anything
	result executor.Result
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, spec executor.Spec) (executor.Result, error) {
	f.calls = append(f.calls, spec)
	joined := strings.Join(spec.Args, " ")
	for _, r := range f.responses {
		if r.match == "" || strings.Contains(joined, r.match) {
			return r.result, r.err
		}
	}
	return executor.Result{}, nil
}

func (f *fakeRunner) callCount() int { return len(f.calls) }

func devicesOutput(lines ...string) executor.Result {
	out := "List of devices attached\n" + strings.Join(lines, "\n") + "\n"
	return executor.Result{Stdout: []byte(out)}
}

func TestParseDevices(t *testing.T) {
	devices := parseDevices(`List of devices attached
emulator-5554	device product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64
0A261FDD4003ER	unauthorized usb:1-1

`)
	require.Len(t, devices, 2)
	assert.Equal(t, "emulator-5554", devices[0].Serial)
	assert.Equal(t, "device", devices[0].State)
	assert.True(t, devices[0].Ready())
	assert.Contains(t, devices[0].Description, "sdk_gphone64")
	assert.Equal(t, "unauthorized", devices[1].State)
	assert.False(t, devices[1].Ready())
}

func TestResolve_NoDevices(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput()},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Resolve(context.Background(), "")

	var noDev *NoDeviceError
	require.ErrorAs(t, err, &noDev)
}

func TestResolve_SingleDevice(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput("emulator-5554\tdevice")},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	dev, err := s.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", dev.Serial)
}

func TestResolve_MultipleDevicesAmbiguous(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput("emulator-5554\tdevice", "emulator-5556\tdevice")},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Resolve(context.Background(), "")

	var ambiguous *AmbiguousDeviceError
	require.ErrorAs(t, err, &ambiguous)
	assert.ElementsMatch(t, []string{"emulator-5554", "emulator-5556"}, ambiguous.Serials)
}

func TestResolve_ExplicitSerial(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput("emulator-5554\tdevice", "emulator-5556\tdevice")},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	dev, err := s.Resolve(context.Background(), "emulator-5556")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5556", dev.Serial)
}

func TestResolve_ExplicitSerialMissing(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput("emulator-5554\tdevice")},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Resolve(context.Background(), "emulator-9999")

	var noDev *NoDeviceError
	require.ErrorAs(t, err, &noDev)
	assert.Equal(t, "emulator-9999", noDev.Serial)
}

func TestResolve_ExplicitSerialOffline(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput("emulator-5554\toffline")},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Resolve(context.Background(), "emulator-5554")

	var offline *DeviceOfflineError
	require.ErrorAs(t, err, &offline)
}

func TestResolve_DefaultSerialFromConfig(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "devices", result: devicesOutput("emulator-5554\tdevice", "emulator-5556\tdevice")},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb", DefaultSerial: "emulator-5554"})

	dev, err := s.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", dev.Serial)
}

func TestShell_BuildsDeviceTargetedCommand(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Shell(context.Background(), Device{Serial: "emulator-5554", State: "device"}, "input", "tap", "10", "20")
	require.NoError(t, err)

	require.Equal(t, 1, runner.callCount())
	assert.Equal(t, "adb", runner.calls[0].Command)
	assert.Equal(t, []string{"-s", "emulator-5554", "shell", "input", "tap", "10", "20"}, runner.calls[0].Args)
}

func TestRun_RetriesOnceWhenOffline(t *testing.T) {
	offlineErr := &executor.ProcessError{Kind: executor.KindNonZeroExit, Command: "adb", Err: errors.New("exit 1")}
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "shell", result: executor.Result{Stderr: []byte("adb: device offline"), ExitCode: 1}, err: offlineErr},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Shell(context.Background(), Device{Serial: "emulator-5554"}, "true")

	var offline *DeviceOfflineError
	require.ErrorAs(t, err, &offline)
	assert.Equal(t, "emulator-5554", offline.Serial)
	assert.Equal(t, 2, runner.callCount(), "exactly one retry")
}

func TestRun_NoRetryOnOrdinaryFailure(t *testing.T) {
	failErr := &executor.ProcessError{Kind: executor.KindNonZeroExit, Command: "adb", Err: errors.New("exit 1")}
	runner := &fakeRunner{responses: []fakeResponse{
		{match: "shell", result: executor.Result{Stderr: []byte("some other failure"), ExitCode: 1}, err: failErr},
	}}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Shell(context.Background(), Device{Serial: "emulator-5554"}, "false")

	var perr *executor.ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, runner.callCount(), "no retry on non-offline failure")
}

func TestLogcat_Args(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Logcat(context.Background(), Device{Serial: "emulator-5554"}, 50, "ActivityManager:I *:S")
	require.NoError(t, err)

	require.Equal(t, 1, runner.callCount())
	assert.Equal(t, []string{"-s", "emulator-5554", "logcat", "-d", "-t", "50", "ActivityManager:I *:S"}, runner.calls[0].Args)
}

func TestInstall_UsesLongTimeout(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSession(runner, SessionConfig{ADBPath: "adb"})

	_, err := s.Install(context.Background(), Device{Serial: "emulator-5554"}, "/tmp/app.apk")
	require.NoError(t, err)

	require.Equal(t, 1, runner.callCount())
	assert.Equal(t, []string{"-s", "emulator-5554", "install", "-r", "/tmp/app.apk"}, runner.calls[0].Args)
	assert.Greater(t, runner.calls[0].Timeout.Seconds(), 60.0)
}
