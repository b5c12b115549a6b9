package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenExternal hands target (a cover image or audio URL, or a downloaded file) to the
// platform's default handler.
func OpenExternal(target string) error {
	if target == "" {
		return fmt.Errorf("%w: nothing to open", ErrMissingArgument)
	}

	name, args, err := openerFor(getRuntime())
	if err != nil {
		return err
	}

	if err := exec.Command(name, append(args, target)...).Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

func openerFor(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", nil, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", nil, nil
	case "windows":
		return "cmd", []string{"/c", "start", ""}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
