package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/standardbeagle/droidctl/internal/artifact"
	"github.com/standardbeagle/droidctl/internal/executor"
	"github.com/standardbeagle/droidctl/internal/registry"
)

func registerFileOps(r *registry.Registry, deps Deps) {
	r.MustRegister(registry.Spec{
		Name:        "shell",
		Description: "Run an arbitrary shell command on the device and return its output.",
		Params: []registry.Param{
			{Name: "command", Description: "Shell command line", Type: registry.TypeString, Required: true},
			deviceParam(),
		},
	}, deps.handleShell)

	r.MustRegister(registry.Spec{
		Name:        "pull_file",
		Description: "Copy a file off the device, either to a local path or base64 in the response.",
		Params: []registry.Param{
			{Name: "remote_path", Description: "Path on the device", Type: registry.TypeString, Required: true},
			{Name: "local_path", Description: "Destination path on this machine; omit to embed the file in the response", Type: registry.TypeString},
			deviceParam(),
		},
		Output: registry.OutputBinary,
	}, deps.handlePullFile)

	r.MustRegister(registry.Spec{
		Name:        "push_file",
		Description: "Copy a file onto the device, from a local path or inline base64 data.",
		Params: []registry.Param{
			{Name: "remote_path", Description: "Destination path on the device", Type: registry.TypeString, Required: true},
			{Name: "local_path", Description: "Source path on this machine", Type: registry.TypeString},
			{Name: "data", Description: "Base64-encoded file contents, as an alternative to local_path", Type: registry.TypeString},
			deviceParam(),
		},
	}, deps.handlePushFile)
}

func (d Deps) handleShell(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	command := args.String("command")
	res, err := d.Session.Shell(ctx, dev, "sh", "-c", command)
	if err != nil {
		// A non-zero exit is a legitimate outcome for a user-supplied
		// command; report it with the captured output instead of failing.
		var perr *executor.ProcessError
		if !errors.As(err, &perr) || perr.Kind != executor.KindNonZeroExit {
			return nil, err
		}
	}

	var b strings.Builder
	if len(res.Stdout) > 0 {
		b.Write(res.Stdout)
	}
	if len(res.Stderr) > 0 {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.Write(res.Stderr)
	}
	if res.ExitCode != 0 {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "(exit code %d)", res.ExitCode)
	}
	return registry.Text(b.String()), nil
}

func (d Deps) handlePullFile(ctx context.Context, args registry.Args) (*registry.Result, error) {
	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}
	remote := args.String("remote_path")

	if local := args.String("local_path"); local != "" {
		if err := d.Session.Pull(ctx, dev, remote, local); err != nil {
			return nil, err
		}
		return registry.Text(fmt.Sprintf("pulled %s to %s", remote, local)), nil
	}

	staged := d.Store.StagePath(".bin")
	if err := d.Session.Pull(ctx, dev, remote, staged); err != nil {
		d.Store.Discard(staged)
		return nil, err
	}
	data, err := d.Store.Collect(staged)
	if err != nil {
		return nil, err
	}
	return registry.Binary(data, "application/octet-stream"), nil
}

func (d Deps) handlePushFile(ctx context.Context, args registry.Args) (*registry.Result, error) {
	remote := args.String("remote_path")
	local := args.String("local_path")
	data := args.String("data")

	switch {
	case local != "" && data != "":
		return nil, &registry.ValidationError{
			Op:      "push_file",
			Reason:  registry.ReasonWrongType,
			Message: "local_path and data are mutually exclusive",
		}
	case local == "" && data == "":
		return nil, &registry.ValidationError{
			Op:      "push_file",
			Reason:  registry.ReasonMissingParam,
			Message: "one of local_path or data is required",
		}
	}

	dev, err := d.device(ctx, args)
	if err != nil {
		return nil, err
	}

	source := local
	if data != "" {
		raw, err := artifact.Decode(data)
		if err != nil {
			return nil, &registry.ValidationError{
				Op:      "push_file",
				Field:   "data",
				Reason:  registry.ReasonWrongType,
				Message: "data is not valid base64",
			}
		}
		staged, cleanup, err := d.Store.Write(raw, ".bin")
		if err != nil {
			return nil, err
		}
		defer cleanup()
		source = staged
	}

	if err := d.Session.Push(ctx, dev, source, remote); err != nil {
		return nil, err
	}
	return registry.Text(fmt.Sprintf("pushed to %s", remote)), nil
}
