package shellfish

import (
	"errors"

	"github.com/OctopusDeploy/Shellfish/internal/platform"
)

var (
	// ErrNoExecutable is reported when a Command has an empty executable.
	ErrNoExecutable = errors.New("shellfish: executable is required")

	// ErrBothArgumentModes is reported when a Command carries both a raw
	// argument string and an argument list. The two modes are mutually
	// exclusive; the error surfaces when the engine resolves the command,
	// not when the setters are called.
	ErrBothArgumentModes = errors.New("shellfish: raw and list arguments are mutually exclusive")

	// ErrSourceBusy is reported when an InputSource that only supports a
	// single subscriber is subscribed to twice concurrently.
	ErrSourceBusy = errors.New("shellfish: input source already has a subscriber")

	// ErrCredentialUnsupported is reported when the platform cannot run a
	// process as a different user.
	ErrCredentialUnsupported = platform.ErrCredentialUnsupported
)
