package prefs

import (
	"fmt"
	"os/exec"
	"strings"
)

// uiServices are the processes restarted by the shared ServiceAllUI
// signal. cfprefsd goes first so the others relaunch with fresh caches.
var uiServices = []string{"cfprefsd", "Dock", "Finder", "SystemUIServer"}

// ExecRestarter implements Restarter via killall(1). macOS relaunches
// these processes automatically after they exit.
type ExecRestarter struct{}

// NewRestarter returns the real killall-backed adapter.
func NewRestarter() *ExecRestarter {
	return &ExecRestarter{}
}

func (r *ExecRestarter) Restart(service string) error {
	if service == ServiceAllUI {
		var failures []string
		for _, svc := range uiServices {
			if err := killall(svc); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", svc, err))
			}
		}
		if len(failures) > 0 {
			return fmt.Errorf("restart incomplete: %s", strings.Join(failures, "; "))
		}
		return nil
	}
	return killall(service)
}

func killall(service string) error {
	cmd := exec.Command("killall", service)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// "No matching processes" is not a failure: the service simply
		// was not running, which is common for SystemUIServer variants.
		if strings.Contains(string(output), "No matching processes") {
			return nil
		}
		return fmt.Errorf("killall %s failed: %w (output: %s)",
			service, err, strings.TrimSpace(string(output)))
	}
	return nil
}
