// Package launch starts the engine process and reports its lifecycle as a
// stream of states. Start arguments are Go templates with the sprig function
// set, so configs can reference the engine name or install dir.
package launch

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/systemstart/prelaunch/pkg/pipeline"
)

// Launcher implements the pipeline's Launcher contract with os/exec.
type Launcher struct {
	installDir string
	logger     *slog.Logger
}

// New creates a Launcher. installDir is exposed to arg templates.
func New(installDir string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{installDir: installDir, logger: logger}
}

// Launch renders args, starts the engine, and returns its state stream. The
// channel carries Starting and Running immediately, then exactly one
// terminal state when the process exits, and closes.
func (l *Launcher) Launch(path string, args []string) (<-chan pipeline.LaunchState, error) {
	rendered, err := RenderArgs(args, ArgData{
		Engine:     filepath.Base(path),
		EnginePath: path,
		InstallDir: l.installDir,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering start args: %w", err)
	}

	cmd := exec.Command(path, rendered...)
	cmd.Dir = filepath.Dir(path)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine: %w", err)
	}

	l.logger.Info("engine started", "path", path, "args", rendered, "pid", cmd.Process.Pid)

	states := make(chan pipeline.LaunchState, 4)
	states <- pipeline.LaunchStarting
	states <- pipeline.LaunchRunning

	go func() {
		defer close(states)
		if err := cmd.Wait(); err != nil {
			l.logger.Error("engine exited with error", "path", path, "error", err)
			states <- pipeline.LaunchFailed
			return
		}
		l.logger.Info("engine exited", "path", path)
		states <- pipeline.LaunchFinished
	}()

	return states, nil
}
