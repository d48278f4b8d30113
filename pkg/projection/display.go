package projection

import (
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// Displayer shows a saved image to the user.
type Displayer interface {
	Show(path string) error
}

// Opener hands images to the desktop's default viewer.
type Opener struct {
	Command string
	Args    []string
}

// NewOpener picks the viewer launcher of the current platform.
func NewOpener() *Opener {
	switch runtime.GOOS {
	case "darwin":
		return &Opener{Command: "open"}
	case "windows":
		return &Opener{Command: "rundll32", Args: []string{"url.dll,FileProtocolHandler"}}
	default:
		return &Opener{Command: "xdg-open"}
	}
}

// Show runs the launcher and waits for it to hand the file off.
func (o *Opener) Show(path string) error {
	args := append(append([]string(nil), o.Args...), path)
	out, err := exec.Command(o.Command, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "display: %s %s: %s", o.Command, path, out)
	}
	return nil
}

// NoDisplay discards show requests, for headless runs.
type NoDisplay struct{}

func (NoDisplay) Show(string) error { return nil }
