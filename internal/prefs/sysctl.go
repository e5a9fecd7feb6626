package prefs

import (
	"fmt"
	"os/exec"
	"strings"
)

// ExecSysctl implements Sysctl by shelling out to sysctl(8). Writes go
// through sudo because kernel tunables require root.
type ExecSysctl struct{}

// NewSysctl returns the real sysctl-backed adapter.
func NewSysctl() *ExecSysctl {
	return &ExecSysctl{}
}

func (s *ExecSysctl) Get(name string) (string, error) {
	cmd := exec.Command("sysctl", "-n", name)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("sysctl -n %s failed: %w (stderr: %s)",
				name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("sysctl -n %s failed: %w", name, err)
	}
	return strings.TrimSpace(string(output)), nil
}

func (s *ExecSysctl) Set(name, value string) error {
	cmd := exec.Command("sudo", "sysctl", "-w", fmt.Sprintf("%s=%s", name, value))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("sysctl -w %s=%s failed: %w (output: %s)",
			name, value, err, strings.TrimSpace(string(output)))
	}
	return nil
}
