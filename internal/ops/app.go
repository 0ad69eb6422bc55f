package ops

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/standardbeagle/droidctl/internal/registry"
)

func registerAppOps(r *registry.Registry, deps Deps) {
	r.MustRegister(registry.Spec{
		Name:        "install_app",
		Description: "Install an APK from the local filesystem (replaces an existing install).",
		Params: []registry.Param{
			{Name: "apk_path", Description: "Local path to the APK", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleInstallApp)

	r.MustRegister(registry.Spec{
		Name:        "launch_app",
		Description: "Launch an app by package name.",
		Params: []registry.Param{
			{Name: "package", Description: "Package name, e.g. com.example.app", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleLaunchApp)

	r.MustRegister(registry.Spec{
		Name:        "stop_app",
		Description: "Force-stop an app by package name.",
		Params: []registry.Param{
			{Name: "package", Description: "Package name", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleStopApp)

	r.MustRegister(registry.Spec{
		Name:        "clear_app_data",
		Description: "Clear an app's data and cache.",
		Params: []registry.Param{
			{Name: "package", Description: "Package name", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleClearAppData)

	r.MustRegister(registry.Spec{
		Name:        "list_packages",
		Description: "List installed packages, optionally filtered by substring.",
		Params: []registry.Param{
			{Name: "filter", Description: "Substring to match against package names", Type: registry.TypeString},
			deviceParam(),
		},
		Output: registry.OutputJSON,
	}, deps.handleListPackages)
}

func (d Deps) handleInstallApp(ctx context.Context, args registry.Args) (*registry.Result, error) {
	apkPath := args.String("apk_path")
	if _, err := os.Stat(apkPath); err != nil {
		return nil, fmt.Errorf("apk not readable: %w", err)
	}

	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	out, err := d.Session.Install(ctx, dev, apkPath)
	if err != nil {
		return nil, err
	}
	return registry.Text(strings.TrimSpace(out)), nil
}

func (d Deps) handleLaunchApp(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	pkg := args.String("package")
	res, err := d.Session.Shell(ctx, dev, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return nil, err
	}
	combined := string(res.Stdout) + string(res.Stderr)
	if strings.Contains(combined, "No activities found") {
		return registry.Text(fmt.Sprintf("no launchable activity for %s", pkg)), nil
	}
	return registry.Text(fmt.Sprintf("launched %s", pkg)), nil
}

func (d Deps) handleStopApp(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	pkg := args.String("package")
	if _, err := d.Session.Shell(ctx, dev, "am", "force-stop", pkg); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("stopped %s", pkg)), nil
}

func (d Deps) handleClearAppData(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	pkg := args.String("package")
	res, err := d.Session.Shell(ctx, dev, "pm", "clear", pkg)
	if err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("cleared %s: %s", pkg, strings.TrimSpace(string(res.Stdout)))), nil
}

func (d Deps) handleListPackages(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	res, err := d.Session.Shell(ctx, dev, "pm", "list", "packages")
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(args.String("filter"))
	packages := []string{}
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "package:"))
		if name == "" {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		packages = append(packages, name)
	}
	sort.Strings(packages)

	return registry.JSON(map[string]any{
		"count":    len(packages),
		"packages": packages,
	}), nil
}
