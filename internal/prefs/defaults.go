package prefs

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// ExecDefaults implements Defaults by shelling out to the defaults(1)
// command. Exports and imports stream the plist payload through stdio so
// no temporary files are involved.
type ExecDefaults struct{}

// NewDefaults returns the real defaults-backed adapter.
func NewDefaults() *ExecDefaults {
	return &ExecDefaults{}
}

func (d *ExecDefaults) Export(domain string) ([]byte, error) {
	cmd := exec.Command("defaults", "export", domain, "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("defaults export %s failed: %w (stderr: %s)",
			domain, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

func (d *ExecDefaults) Import(domain string, data []byte) error {
	cmd := exec.Command("defaults", "import", domain, "-")
	cmd.Stdin = bytes.NewReader(data)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("defaults import %s failed: %w (output: %s)",
			domain, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (d *ExecDefaults) ReadKey(domain, key string) (string, error) {
	cmd := exec.Command("defaults", "read", domain, key)
	output, err := cmd.Output()
	if err != nil {
		// defaults read exits non-zero when the pair does not exist;
		// there is no distinct exit code, so any failure maps to ErrNotFound.
		return "", fmt.Errorf("defaults read %s %s: %w", domain, key, ErrNotFound)
	}
	return strings.TrimSpace(string(output)), nil
}

func (d *ExecDefaults) DeleteKey(domain, key string) error {
	cmd := exec.Command("defaults", "delete", domain, key)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("defaults delete %s %s failed: %w (output: %s)",
			domain, key, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (d *ExecDefaults) DeleteDomain(domain string) error {
	cmd := exec.Command("defaults", "delete", domain)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("defaults delete %s failed: %w (output: %s)",
			domain, err, strings.TrimSpace(string(output)))
	}
	return nil
}
