package ops

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/standardbeagle/droidctl/internal/adb"
	"github.com/standardbeagle/droidctl/internal/registry"
)

func registerScreenOps(r *registry.Registry, deps Deps) {
	r.MustRegister(registry.Spec{
		Name:        "screenshot",
		Description: "Capture the current screen as a PNG, embedded base64 in the response.",
		Params:      []registry.Param{deviceParam()},
		Output:      registry.OutputBinary,
	}, deps.handleScreenshot)

	r.MustRegister(registry.Spec{
		Name:        "ui_hierarchy",
		Description: "Dump the uiautomator XML hierarchy of the current screen.",
		Params:      []registry.Param{deviceParam()},
		Output:      registry.OutputText,
	}, deps.handleUIHierarchy)

	r.MustRegister(registry.Spec{
		Name:        "find_element",
		Description: "Find UI elements by text, resource id, class, or content description.",
		Params: []registry.Param{
			{Name: "text", Description: "Exact element text", Type: registry.TypeString},
			{Name: "resource_id", Description: "Resource id", Type: registry.TypeString},
			{Name: "class_name", Description: "Widget class name", Type: registry.TypeString},
			{Name: "content_desc", Description: "Content description", Type: registry.TypeString},
			deviceParam(),
		},
		Output: registry.OutputJSON,
	}, deps.handleFindElement)
}

func (d Deps) handleScreenshot(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}

	remote := fmt.Sprintf("/sdcard/droidctl-%s.png", uuid.NewString())
	if _, err := d.Session.Shell(ctx, dev, "screencap", "-p", remote); err != nil {
		return nil, err
	}
	// The device-side copy is transient; remove it no matter how the
	// pull goes.
	defer d.Session.Shell(ctx, dev, "rm", "-f", remote) //nolint:errcheck

	local := d.Store.StagePath(".png")
	if err := d.Session.Pull(ctx, dev, remote, local); err != nil {
		d.Store.Discard(local)
		return nil, err
	}

	data, err := d.Store.Collect(local)
	if err != nil {
		return nil, err
	}
	return registry.Binary(data, "image/png"), nil
}

// deviceDumpPath is where uiautomator writes its hierarchy dump.
const deviceDumpPath = "/sdcard/window_dump.xml"

// uiDump produces the hierarchy XML for the target device.
func (d Deps) uiDump(ctx context.Context, dev adb.Device) (string, error) {
	if _, err := d.Session.Shell(ctx, dev, "uiautomator", "dump", deviceDumpPath); err != nil {
		return "", err
	}
	defer d.Session.Shell(ctx, dev, "rm", "-f", deviceDumpPath) //nolint:errcheck

	local := d.Store.StagePath(".xml")
	if err := d.Session.Pull(ctx, dev, deviceDumpPath, local); err != nil {
		d.Store.Discard(local)
		return "", err
	}

	data, err := d.Store.Collect(local)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d Deps) handleUIHierarchy(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	dump, err := d.uiDump(ctx, dev)
	if err != nil {
		return nil, err
	}
	return registry.Text(dump), nil
}

func criteriaFromArgs(args registry.Args) criteria {
	return criteria{
		text:        args.String("text"),
		resourceID:  args.String("resource_id"),
		class:       args.String("class_name"),
		contentDesc: args.String("content_desc"),
	}
}

func (d Deps) findElements(ctx context.Context, dev adb.Device, c criteria) ([]Element, error) {
	dump, err := d.uiDump(ctx, dev)
	if err != nil {
		return nil, err
	}
	elements, err := parseHierarchy(dump)
	if err != nil {
		return nil, err
	}

	var matches []Element
	for _, e := range elements {
		if c.matches(e) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

func (d Deps) handleFindElement(ctx context.Context, args registry.Args) (*registry.Result, error) {
	c := criteriaFromArgs(args)
	if c.empty() {
		return nil, &registry.ValidationError{
			Op:      "find_element",
			Reason:  registry.ReasonMissingParam,
			Message: "at least one of text, resource_id, class_name, content_desc is required",
		}
	}

	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}

	matches, err := d.findElements(ctx, dev, c)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []Element{}
	}
	return registry.JSON(map[string]any{
		"count":    len(matches),
		"elements": matches,
	}), nil
}
