package app

import (
	"strings"
	"testing"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"backup", "restore", "history", "revert", "prune", "status", "watch"}

	registered := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestRestoreRequiresArgument(t *testing.T) {
	if restoreCmd.Args == nil {
		t.Fatal("restore should require exactly one argument")
	}
	if err := restoreCmd.Args(restoreCmd, []string{}); err == nil {
		t.Error("restore with no arguments should be rejected")
	}
	if err := restoreCmd.Args(restoreCmd, []string{"a", "b"}); err == nil {
		t.Error("restore with two arguments should be rejected")
	}
	if err := restoreCmd.Args(restoreCmd, []string{"latest"}); err != nil {
		t.Errorf("restore with one argument rejected: %v", err)
	}
}

func TestRevertFlagValidation(t *testing.T) {
	reset := func() {
		revertFlagDomain = ""
		revertFlagKey = ""
		revertFlagWindow = 0
		revertFlagYes = false
	}
	t.Cleanup(reset)

	// Both modes at once.
	reset()
	revertFlagDomain = "com.apple.dock"
	revertFlagKey = "autohide"
	revertFlagWindow = 2
	if err := runRevert(revertCmd, nil); err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("mixed modes = %v, want mutually-exclusive error", err)
	}

	// Key mode with half the flags.
	reset()
	revertFlagDomain = "com.apple.dock"
	if err := runRevert(revertCmd, nil); err == nil || !strings.Contains(err.Error(), "both --domain and --key") {
		t.Errorf("half key mode = %v, want both-flags error", err)
	}

	// No mode at all.
	reset()
	if err := runRevert(revertCmd, nil); err == nil || !strings.Contains(err.Error(), "nothing to do") {
		t.Errorf("no mode = %v, want nothing-to-do error", err)
	}
}

func TestBackupFlags(t *testing.T) {
	for _, flag := range []string{"name", "list", "scheduled"} {
		if backupCmd.Flags().Lookup(flag) == nil {
			t.Errorf("backup is missing --%s", flag)
		}
	}
	if restoreCmd.Flags().Lookup("yes") == nil {
		t.Error("restore is missing --yes")
	}
	if pruneCmd.Flags().Lookup("keep") == nil {
		t.Error("prune is missing --keep")
	}
	if historyCmd.Flags().Lookup("hours") == nil {
		t.Error("history is missing --hours")
	}
}
