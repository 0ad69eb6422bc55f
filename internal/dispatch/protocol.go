// Package dispatch implements the request/response protocol engine: one
// framed JSON request at a time is validated against the operation
// registry, executed, and answered, per connection, until the transport
// closes.
package dispatch

import (
	"errors"

	"github.com/standardbeagle/droidctl/internal/adb"
	"github.com/standardbeagle/droidctl/internal/artifact"
	"github.com/standardbeagle/droidctl/internal/executor"
	"github.com/standardbeagle/droidctl/internal/registry"
)

// Request is one inbound operation call.
type Request struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	OK     bool         `json:"ok"`
	Result any          `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries the wire error taxonomy.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Wire error kinds. Every handler failure maps onto exactly one of these.
const (
	KindValidation       = "ValidationError"
	KindNoDevice         = "NoDeviceError"
	KindAmbiguousDevice  = "AmbiguousDeviceError"
	KindDeviceOffline    = "DeviceOfflineError"
	KindProcess          = "ProcessError"
	KindArtifactTooLarge = "ArtifactTooLargeError"
	KindInternal         = "InternalError"
)

// BinaryPayload is the inline encoding for binary-artifact results.
type BinaryPayload struct {
	Encoding  string `json:"encoding"`
	MIMEType  string `json:"mime_type,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	Data      string `json:"data"`
}

// okResponse wraps a handler result into the response envelope. Text and
// JSON results pass through structurally; binary artifacts are embedded
// base64-encoded.
func okResponse(result *registry.Result) Response {
	if result == nil {
		return Response{OK: true}
	}
	switch result.Kind {
	case registry.OutputBinary:
		return Response{OK: true, Result: BinaryPayload{
			Encoding:  "base64",
			MIMEType:  result.MIMEType,
			SizeBytes: len(result.Binary),
			Data:      artifact.Encode(result.Binary),
		}}
	case registry.OutputJSON:
		return Response{OK: true, Result: result.Value}
	default:
		return Response{OK: true, Result: result.Text}
	}
}

// errResponse maps a handler error onto the wire taxonomy. Anything
// unrecognized is an InternalError; the loop itself never dies from a
// handler failure.
func errResponse(err error) Response {
	return Response{OK: false, Error: &ErrorDetail{
		Kind:    ErrorKindOf(err),
		Message: err.Error(),
	}}
}

// ErrorKindOf classifies a handler error into the wire taxonomy.
func ErrorKindOf(err error) string {
	var (
		validationErr *registry.ValidationError
		noDevice      *adb.NoDeviceError
		ambiguous     *adb.AmbiguousDeviceError
		offline       *adb.DeviceOfflineError
		processErr    *executor.ProcessError
		tooLarge      *artifact.TooLargeError
	)
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &noDevice):
		return KindNoDevice
	case errors.As(err, &ambiguous):
		return KindAmbiguousDevice
	case errors.As(err, &offline):
		return KindDeviceOffline
	case errors.As(err, &tooLarge):
		return KindArtifactTooLarge
	case errors.As(err, &processErr):
		return KindProcess
	default:
		return KindInternal
	}
}
