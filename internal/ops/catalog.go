// Package ops defines the static catalog of device-control operations and
// their handlers. Every operation resolves its device target fresh; no
// device state is shared across requests.
package ops

import (
	"context"

	"github.com/standardbeagle/droidctl/internal/adb"
	"github.com/standardbeagle/droidctl/internal/artifact"
	"github.com/standardbeagle/droidctl/internal/registry"
)

// Deps are the collaborators handlers execute through.
type Deps struct {
	Session *adb.Session
	Store   *artifact.Store
}

// deviceParam is shared by every device-requiring operation.
func deviceParam() registry.Param {
	return registry.Param{
		Name:        "device",
		Description: "Device serial (overrides default selection)",
		Type:        registry.TypeString,
	}
}

// device resolves the target for one operation invocation.
func (d Deps) device(ctx context.Context, args registry.Args) (adb.Device, error) {
	return d.Session.Resolve(ctx, args.String("device"))
}

// Register populates the registry with the full operation catalog plus
// the reserved list_operations capability op. Registration failures are
// programming errors and panic at process start.
func Register(r *registry.Registry, deps Deps) {
	registerDeviceOps(r, deps)
	registerScreenOps(r, deps)
	registerInputOps(r, deps)
	registerAppOps(r, deps)
	registerNetworkOps(r, deps)
	registerFileOps(r, deps)

	r.MustRegister(registry.Spec{
		Name:        "list_operations",
		Description: "Describe every supported operation: name, parameters, output kind. No device required.",
		Output:      registry.OutputJSON,
	}, func(ctx context.Context, args registry.Args) (*registry.Result, error) {
		return registry.JSON(r.DescribeAll()), nil
	})
}
