package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/droidctl/internal/registry"
)

// deviceCertDir is where pushed certificates land for manual installation
// through the Settings app.
const deviceCertDir = "/sdcard/Download"

func registerNetworkOps(r *registry.Registry, deps Deps) {
	r.MustRegister(registry.Spec{
		Name:        "setup_proxy",
		Description: "Point the device's global HTTP proxy at a host and port.",
		Params: []registry.Param{
			{Name: "host", Description: "Proxy host reachable from the device", Type: registry.TypeString, Required: true},
			{Name: "port", Description: "Proxy port", Type: registry.TypeInt, Required: true},
			deviceParam(),
		},
	}, deps.handleSetupProxy)

	r.MustRegister(registry.Spec{
		Name:        "clear_proxy",
		Description: "Remove the device's global HTTP proxy setting.",
		Params:      []registry.Param{deviceParam()},
	}, deps.handleClearProxy)

	r.MustRegister(registry.Spec{
		Name:        "install_certificate",
		Description: "Push a CA certificate to the device's Download folder for manual install.",
		Params: []registry.Param{
			{Name: "cert_path", Description: "Local path to the certificate file", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleInstallCertificate)
}

func (d Deps) handleSetupProxy(ctx context.Context, args registry.Args) (*registry.Result, error) {
	host := args.String("host")
	port := args.Int("port")
	if port < 1 || port > 65535 {
		return nil, &registry.ValidationError{
			Op:      "setup_proxy",
			Field:   "port",
			Reason:  registry.ReasonOutOfRange,
			Message: fmt.Sprintf("port %d outside 1-65535", port),
		}
	}

	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	proxy := fmt.Sprintf("%s:%d", host, port)
	if _, err := d.Session.Shell(ctx, dev, "settings", "put", "global", "http_proxy", proxy); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("global HTTP proxy set to %s", proxy)), nil
}

func (d Deps) handleClearProxy(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	// ":0" is how the settings provider represents "no proxy"; deleting
	// the key outright leaves some Android builds with a stale value.
	if _, err := d.Session.Shell(ctx, dev, "settings", "put", "global", "http_proxy", ":0"); err != nil {
		return nil, err
	}
	return registry.Text("global HTTP proxy cleared"), nil
}

func (d Deps) handleInstallCertificate(ctx context.Context, args registry.Args) (*registry.Result, error) {
	certPath := args.String("cert_path")
	if _, err := os.Stat(certPath); err != nil {
		return nil, fmt.Errorf("certificate not readable: %w", err)
	}

	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	remote := deviceCertDir + "/" + filepath.Base(certPath)
	if err := d.Session.Push(ctx, dev, certPath, remote); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf(
		"certificate pushed to %s\nInstall it on the device: Settings > Security > Encryption & credentials > Install a certificate > CA certificate",
		remote)), nil
}
