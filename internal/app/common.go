package app

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ashgrove-systems/prefsafe/internal/config"
	"github.com/ashgrove-systems/prefsafe/internal/history"
	"github.com/ashgrove-systems/prefsafe/internal/logging"
	"github.com/ashgrove-systems/prefsafe/internal/prefs"
	"github.com/ashgrove-systems/prefsafe/internal/snapshots"
	"github.com/ashgrove-systems/prefsafe/internal/snapstore"
	"github.com/ashgrove-systems/prefsafe/internal/store"
)

// env bundles the wired-up components every command needs.
type env struct {
	cfg     *config.Config
	store   *snapstore.Store
	journal *store.Journal
	log     *zap.Logger
}

// openEnv loads configuration, initializes the snapshot store, opens the
// operation journal, and builds the file logger.
func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagBaseDir != "" {
		cfg.BaseDir = flagBaseDir
	}

	st := snapstore.New(cfg.BaseDir)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}

	journal, err := store.Open(filepath.Join(cfg.BaseDir, "prefsafe.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := journal.CreateSchema(); err != nil {
		journal.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	log, err := logging.New(filepath.Join(st.LogsDir(), "prefsafe.log"), cfg.LogLevel)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &env{cfg: cfg, store: st, journal: journal, log: log}, nil
}

func (e *env) close() {
	e.log.Sync()
	e.journal.Close()
}

// manager builds the snapshot Manager backed by the real system adapters.
func (e *env) manager() *snapshots.Manager {
	return snapshots.New(
		e.store,
		prefs.NewDefaults(),
		prefs.NewSysctl(),
		prefs.NewRestarter(),
		e.journal,
		e.cfg.TrackedDomains,
		e.cfg.KernelParams,
		e.log,
	)
}

// historyEngine builds the change-history Engine backed by the real
// system adapters.
func (e *env) historyEngine() *history.Engine {
	return history.NewEngine(
		history.NewEventLog(),
		prefs.NewDefaults(),
		prefs.NewRestarter(),
		e.journal,
		e.cfg.TrackedDomains,
		e.log,
	)
}

// confirm prompts the user with a yes/no question, defaulting to no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
