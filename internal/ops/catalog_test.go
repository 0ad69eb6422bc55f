package ops

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/droidctl/internal/adb"
	"github.com/standardbeagle/droidctl/internal/artifact"
	"github.com/standardbeagle/droidctl/internal/executor"
	"github.com/standardbeagle/droidctl/internal/registry"
)

const testDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node text="" resource-id="" class="android.widget.FrameLayout" bounds="[0,0][1080,2400]" clickable="false" enabled="true">
    <node text="Sign in" resource-id="com.example:id/login" class="android.widget.Button" content-desc="Sign in button" bounds="[100,200][300,260]" clickable="true" enabled="true"/>
    <node text="Cancel" resource-id="com.example:id/cancel" class="android.widget.Button" bounds="[400,200][600,260]" clickable="true" enabled="true"/>
  </node>
</hierarchy>`

type fakeResponse struct {
	match  string
	result executor.Result
	err    error
	// hook runs before returning, with the full spec; used to emulate
	// side effects like `pull` writing a local file.
	hook func(spec executor.Spec)
}

type fakeRunner struct {
	calls     []executor.Spec
	responses []fakeResponse
}

func (f *fakeRunner) Run(ctx context.Context, spec executor.Spec) (executor.Result, error) {
	f.calls = append(f.calls, spec)
	line := strings.Join(spec.Args, " ")
	for _, r := range f.responses {
		if strings.Contains(line, r.match) {
			if r.hook != nil {
				r.hook(spec)
			}
			return r.result, r.err
		}
	}
	return executor.Result{}, nil
}

func (f *fakeRunner) argLines() []string {
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = strings.Join(c.Args, " ")
	}
	return lines
}

// oneDevice answers `adb devices -l` with a single ready emulator.
func oneDevice() fakeResponse {
	return fakeResponse{
		match: "devices",
		result: executor.Result{Stdout: []byte(
			"List of devices attached\nemulator-5554 device product:sdk model:sdk_gphone\n")},
	}
}

// pullWrites emulates `adb pull` by writing data to the local destination,
// which is always the final argument.
func pullWrites(data []byte) fakeResponse {
	return fakeResponse{
		match: "pull",
		hook: func(spec executor.Spec) {
			dest := spec.Args[len(spec.Args)-1]
			_ = os.WriteFile(dest, data, 0o600)
		},
	}
}

func newTestCatalog(t *testing.T, responses ...fakeResponse) (*registry.Registry, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{responses: append(responses, oneDevice())}
	session := adb.NewSession(runner, adb.SessionConfig{ADBPath: "adb"})
	store := artifact.NewStore(t.TempDir(), 0)

	r := registry.New()
	Register(r, Deps{Session: session, Store: store})
	return r, runner
}

func TestTap_BuildsInputCommand(t *testing.T) {
	r, runner := newTestCatalog(t)

	res, err := r.Invoke(context.Background(), "tap", map[string]any{"x": 540, "y": 1200})
	require.NoError(t, err)
	assert.Equal(t, registry.OutputText, res.Kind)
	assert.Contains(t, runner.argLines(), "-s emulator-5554 shell input tap 540 1200")
}

func TestPressKey_MapsKeycode(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "press_key", map[string]any{"key": "back"})
	require.NoError(t, err)
	assert.Contains(t, runner.argLines(), "-s emulator-5554 shell input keyevent 4")
}

func TestPressKey_RejectsUnknownKey(t *testing.T) {
	r, _ := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "press_key", map[string]any{"key": "sideways"})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, registry.ReasonOutOfRange, verr.Reason)
}

func TestInputText_EscapesShellMetacharacters(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "input_text", map[string]any{"text": "it's a test"})
	require.NoError(t, err)
	assert.Contains(t, runner.argLines(), `-s emulator-5554 shell input text it\'s%sa%stest`)
}

func TestSwipe_AppliesDefaultDuration(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "swipe", map[string]any{
		"start_x": 500, "start_y": 1500, "end_x": 500, "end_y": 300,
	})
	require.NoError(t, err)
	assert.Contains(t, runner.argLines(), "-s emulator-5554 shell input swipe 500 1500 500 300 300")
}

func TestScreenshot_CollectsPNG(t *testing.T) {
	png := []byte("\x89PNG fake image data")
	r, runner := newTestCatalog(t, pullWrites(png))

	res, err := r.Invoke(context.Background(), "screenshot", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, registry.OutputBinary, res.Kind)
	assert.Equal(t, "image/png", res.MIMEType)
	assert.True(t, bytes.Equal(png, res.Binary))

	lines := strings.Join(runner.argLines(), "\n")
	assert.Contains(t, lines, "shell screencap -p")
	assert.Contains(t, lines, "shell rm -f")
}

func TestScreenshot_RejectsOversizedArtifact(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 64)
	runner := &fakeRunner{responses: []fakeResponse{pullWrites(big), oneDevice()}}
	session := adb.NewSession(runner, adb.SessionConfig{ADBPath: "adb"})
	staging := t.TempDir()
	store := artifact.NewStore(staging, 16)

	r := registry.New()
	Register(r, Deps{Session: session, Store: store})

	_, err := r.Invoke(context.Background(), "screenshot", map[string]any{})
	var terr *artifact.TooLargeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, int64(64), terr.Size)

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "oversized pull must not leave a staged file")
}

func TestFindElement_MatchesCriteria(t *testing.T) {
	r, _ := newTestCatalog(t, pullWrites([]byte(testDump)))

	res, err := r.Invoke(context.Background(), "find_element", map[string]any{"text": "Sign in"})
	require.NoError(t, err)
	require.Equal(t, registry.OutputJSON, res.Kind)

	payload, ok := res.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, payload["count"])
	elements, ok := payload["elements"].([]Element)
	require.True(t, ok)
	assert.Equal(t, "com.example:id/login", elements[0].ResourceID)
	assert.Equal(t, "[100,200][300,260]", elements[0].Bounds)
}

func TestFindElement_RequiresSomeCriterion(t *testing.T) {
	r, _ := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "find_element", map[string]any{})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, registry.ReasonMissingParam, verr.Reason)
}

func TestTapElement_TapsBoundsCenter(t *testing.T) {
	r, runner := newTestCatalog(t, pullWrites([]byte(testDump)))

	res, err := r.Invoke(context.Background(), "tap_element", map[string]any{"text": "Cancel"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "(500, 230)")
	assert.Contains(t, runner.argLines(), "-s emulator-5554 shell input tap 500 230")
}

func TestTapElement_ReportsNoMatch(t *testing.T) {
	r, _ := newTestCatalog(t, pullWrites([]byte(testDump)))

	res, err := r.Invoke(context.Background(), "tap_element", map[string]any{"text": "Nonexistent"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "no matching element")
}

func TestListPackages_FiltersAndSorts(t *testing.T) {
	r, _ := newTestCatalog(t, fakeResponse{
		match: "pm list packages",
		result: executor.Result{Stdout: []byte(
			"package:com.example.zeta\npackage:com.android.settings\npackage:com.example.alpha\n")},
	})

	res, err := r.Invoke(context.Background(), "list_packages", map[string]any{"filter": "example"})
	require.NoError(t, err)

	payload := res.Value.(map[string]any)
	assert.Equal(t, 2, payload["count"])
	assert.Equal(t, []string{"com.example.alpha", "com.example.zeta"}, payload["packages"])
}

func TestInstallApp_RequiresLocalFile(t *testing.T) {
	r, _ := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "install_app", map[string]any{
		"apk_path": filepath.Join(t.TempDir(), "missing.apk"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apk not readable")
}

func TestInstallApp_RunsInstall(t *testing.T) {
	apk := filepath.Join(t.TempDir(), "app.apk")
	require.NoError(t, os.WriteFile(apk, []byte("apk"), 0o600))

	r, runner := newTestCatalog(t, fakeResponse{
		match:  "install",
		result: executor.Result{Stdout: []byte("Success\n")},
	})

	res, err := r.Invoke(context.Background(), "install_app", map[string]any{"apk_path": apk})
	require.NoError(t, err)
	assert.Equal(t, "Success", res.Text)
	assert.Contains(t, runner.argLines(), "-s emulator-5554 install -r "+apk)
}

func TestLaunchApp_UsesMonkeyLauncher(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "launch_app", map[string]any{"package": "com.example.app"})
	require.NoError(t, err)
	assert.Contains(t, runner.argLines(),
		"-s emulator-5554 shell monkey -p com.example.app -c android.intent.category.LAUNCHER 1")
}

func TestSetupProxy_RejectsBadPort(t *testing.T) {
	r, _ := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "setup_proxy", map[string]any{
		"host": "10.0.2.2", "port": 70000,
	})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "port", verr.Field)
	assert.Equal(t, registry.ReasonOutOfRange, verr.Reason)
}

func TestSetupProxy_WritesGlobalSetting(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "setup_proxy", map[string]any{
		"host": "10.0.2.2", "port": 8080,
	})
	require.NoError(t, err)
	assert.Contains(t, runner.argLines(),
		"-s emulator-5554 shell settings put global http_proxy 10.0.2.2:8080")
}

func TestClearProxy_ResetsSetting(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "clear_proxy", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, runner.argLines(),
		"-s emulator-5554 shell settings put global http_proxy :0")
}

func TestShell_ReportsNonZeroExit(t *testing.T) {
	r, _ := newTestCatalog(t, fakeResponse{
		match: "sh -c",
		result: executor.Result{
			Stdout:   []byte("partial output\n"),
			Stderr:   []byte("ls: /nope: No such file or directory\n"),
			ExitCode: 1,
		},
		err: &executor.ProcessError{Kind: executor.KindNonZeroExit, Command: "adb", Err: errors.New("exit status 1")},
	})

	res, err := r.Invoke(context.Background(), "shell", map[string]any{"command": "ls /nope"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "partial output")
	assert.Contains(t, res.Text, "No such file or directory")
	assert.Contains(t, res.Text, "(exit code 1)")
}

func TestPushFile_DecodesInlineData(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "push_file", map[string]any{
		"remote_path": "/sdcard/hello.txt",
		"data":        artifact.Encode([]byte("hello")),
	})
	require.NoError(t, err)

	var pushed bool
	for _, line := range runner.argLines() {
		if strings.HasPrefix(line, "-s emulator-5554 push ") && strings.HasSuffix(line, " /sdcard/hello.txt") {
			pushed = true
		}
	}
	assert.True(t, pushed, "expected a push call targeting /sdcard/hello.txt")
}

func TestPushFile_RejectsConflictingSources(t *testing.T) {
	r, _ := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "push_file", map[string]any{
		"remote_path": "/sdcard/x", "local_path": "/tmp/x", "data": "aGk=",
	})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = r.Invoke(context.Background(), "push_file", map[string]any{"remote_path": "/sdcard/x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, registry.ReasonMissingParam, verr.Reason)
}

func TestPullFile_EmbedsWhenNoLocalPath(t *testing.T) {
	content := []byte("device file contents")
	r, _ := newTestCatalog(t, pullWrites(content))

	res, err := r.Invoke(context.Background(), "pull_file", map[string]any{"remote_path": "/sdcard/f.bin"})
	require.NoError(t, err)
	assert.Equal(t, registry.OutputBinary, res.Kind)
	assert.True(t, bytes.Equal(content, res.Binary))
}

func TestDeviceInfo_CollectsProps(t *testing.T) {
	r, _ := newTestCatalog(t,
		fakeResponse{match: "ro.product.model", result: executor.Result{Stdout: []byte("sdk_gphone64\n")}},
		fakeResponse{match: "wm size", result: executor.Result{Stdout: []byte("Physical size: 1080x2400\n")}},
	)

	res, err := r.Invoke(context.Background(), "device_info", map[string]any{})
	require.NoError(t, err)

	info := res.Value.(map[string]string)
	assert.Equal(t, "emulator-5554", info["serial"])
	assert.Equal(t, "sdk_gphone64", info["ro.product.model"])
	assert.Equal(t, "1080x2400", info["screen_size"])
}

func TestListOperations_DescribesCatalog(t *testing.T) {
	r, _ := newTestCatalog(t)

	res, err := r.Invoke(context.Background(), "list_operations", map[string]any{})
	require.NoError(t, err)

	specs, ok := res.Value.([]registry.Spec)
	require.True(t, ok)

	names := make(map[string]bool, len(specs))
	for _, s := range specs {
		names[s.Name] = true
	}
	for _, want := range []string{
		"list_devices", "device_info", "screenshot", "ui_hierarchy", "find_element",
		"tap", "tap_element", "swipe", "input_text", "press_key",
		"install_app", "launch_app", "stop_app", "clear_app_data", "list_packages",
		"logcat", "setup_proxy", "clear_proxy", "install_certificate",
		"shell", "pull_file", "push_file", "list_operations",
	} {
		assert.True(t, names[want], "missing operation %s", want)
	}
}

func TestUnknownOp_SpawnsNoProcess(t *testing.T) {
	r, runner := newTestCatalog(t)

	_, err := r.Invoke(context.Background(), "reboot_into_orbit", map[string]any{})
	var verr *registry.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, registry.ReasonUnknownOp, verr.Reason)
	assert.Empty(t, runner.calls)
}

func TestPushPull_RoundTrip(t *testing.T) {
	// A stateful fake: push remembers file contents by remote path, pull
	// writes them back out.
	deviceFiles := map[string][]byte{}
	runner := &fakeRunner{responses: []fakeResponse{
		{
			match: "push",
			hook: func(spec executor.Spec) {
				local := spec.Args[len(spec.Args)-2]
				remote := spec.Args[len(spec.Args)-1]
				data, _ := os.ReadFile(local)
				deviceFiles[remote] = data
			},
		},
		{
			match: "pull",
			hook: func(spec executor.Spec) {
				remote := spec.Args[len(spec.Args)-2]
				local := spec.Args[len(spec.Args)-1]
				_ = os.WriteFile(local, deviceFiles[remote], 0o600)
			},
		},
		oneDevice(),
	}}
	session := adb.NewSession(runner, adb.SessionConfig{ADBPath: "adb"})
	store := artifact.NewStore(t.TempDir(), 0)

	r := registry.New()
	Register(r, Deps{Session: session, Store: store})

	content := []byte("round trip payload \x00\x01\x02")
	_, err := r.Invoke(context.Background(), "push_file", map[string]any{
		"remote_path": "/sdcard/rt.bin",
		"data":        artifact.Encode(content),
	})
	require.NoError(t, err)

	res, err := r.Invoke(context.Background(), "pull_file", map[string]any{
		"remote_path": "/sdcard/rt.bin",
	})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, res.Binary))
}

func TestParseHierarchy(t *testing.T) {
	elements, err := parseHierarchy(testDump)
	require.NoError(t, err)
	require.Len(t, elements, 3)
	assert.Equal(t, "Sign in", elements[1].Text)
	assert.True(t, elements[1].Clickable)
}

func TestBoundsCenter(t *testing.T) {
	x, y, ok := boundsCenter("[100,200][300,260]")
	require.True(t, ok)
	assert.Equal(t, 200, x)
	assert.Equal(t, 230, y)

	_, _, ok = boundsCenter("garbage")
	assert.False(t, ok)
}
