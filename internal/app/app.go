// Package app wires the client's dependencies together.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"github.com/dori/vikta/internal/config"
	"github.com/dori/vikta/internal/service"
	"github.com/dori/vikta/internal/service/vikunja"
)

// debugLogPath is where debug logging goes when enabled. The log cannot go
// to the terminal without fighting the TUI for the screen.
const debugLogPath = "/tmp/vikta-debug.log"

// App holds the application state and dependencies
type App struct {
	Service  service.Service
	StateDir string

	lockFile *flock.Flock
	logFile  *os.File
}

// New creates a new application instance
func New(cfg *config.Config) (*App, error) {
	app := &App{StateDir: config.StateDir()}

	// Ensure state directory exists
	if err := os.MkdirAll(app.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// Acquire lock to ensure single instance
	if err := app.acquireLock(); err != nil {
		return nil, err
	}

	if err := app.setupLogging(cfg.Debug); err != nil {
		app.releaseLock()
		return nil, err
	}

	app.Service = vikunja.New(cfg.InstanceURL, cfg.APIKey)
	return app, nil
}

// setupLogging silences the logger unless debug mode is on, in which case
// it appends to the debug log file.
func (a *App) setupLogging(debug bool) error {
	if !debug {
		log.SetOutput(io.Discard)
		return nil
	}

	f, err := os.OpenFile(debugLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open debug log: %w", err)
	}
	a.logFile = f
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return nil
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.StateDir, "vikta.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another instance of vikta is already running")
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	a.releaseLock()

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close debug log: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
