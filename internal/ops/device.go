package ops

import (
	"context"
	"strings"

	"github.com/standardbeagle/droidctl/internal/registry"
)

// deviceProps are the getprop keys reported by device_info.
var deviceProps = []string{
	"ro.product.model",
	"ro.build.version.release",
	"ro.build.version.sdk",
	"ro.product.cpu.abi",
}

func registerDeviceOps(r *registry.Registry, deps Deps) {
	r.MustRegister(registry.Spec{
		Name:        "list_devices",
		Description: "List attached devices and emulators with their connection state.",
		Output:      registry.OutputJSON,
	}, deps.handleListDevices)

	r.MustRegister(registry.Spec{
		Name:        "device_info",
		Description: "Report model, Android version, SDK level, ABI, and screen size of the target device.",
		Params:      []registry.Param{deviceParam()},
		Output:      registry.OutputJSON,
	}, deps.handleDeviceInfo)

	r.MustRegister(registry.Spec{
		Name:        "logcat",
		Description: "Retrieve the most recent device log lines.",
		Params: []registry.Param{
			{Name: "lines", Description: "Number of trailing lines", Type: registry.TypeInt, Default: 200},
			{Name: "filter", Description: "Logcat filterspec (e.g. \"ActivityManager:I *:S\")", Type: registry.TypeString},
			deviceParam(),
		},
		Output: registry.OutputText,
	}, deps.handleLogcat)
}

func (d Deps) handleListDevices(ctx context.Context, args registry.Args) (*registry.Result, error) {
	devices, err := d.Session.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	return registry.JSON(devices), nil
}

func (d Deps) handleDeviceInfo(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}

	info := map[string]string{"serial": dev.Serial}
	for _, prop := range deviceProps {
		result, err := d.Session.Shell(ctx, dev, "getprop", prop)
		if err != nil {
			return nil, err
		}
		info[prop] = strings.TrimSpace(string(result.Stdout))
	}

	if result, err := d.Session.Shell(ctx, dev, "wm", "size"); err == nil {
		// "Physical size: 1080x2400"
		info["screen_size"] = strings.TrimSpace(strings.TrimPrefix(
			strings.TrimSpace(string(result.Stdout)), "Physical size:"))
	}

	return registry.JSON(info), nil
}

func (d Deps) handleLogcat(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	out, err := d.Session.Logcat(ctx, dev, args.Int("lines"), args.String("filter"))
	if err != nil {
		return nil, err
	}
	return registry.Text(out), nil
}
