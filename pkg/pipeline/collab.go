package pipeline

import (
	"context"

	"github.com/systemstart/prelaunch/pkg/api"
)

// Downloader fetches game content into the install directory. Calls block
// until the download settles; step actions run them on their own goroutine
// and advance the pipeline when done. Progress is reported out of band by
// the implementation.
type Downloader interface {
	DownloadResource(ctx context.Context, id string) error
	DownloadEngine(ctx context.Context, id string) error
	DownloadGameNextGen(ctx context.Context, id string) error
	DownloadGames(ctx context.Context, ids []string) error
	DownloadMap(ctx context.Context, id string) error
	DownloadNextGen(ctx context.Context, id string) error
}

// Updater is the launcher self-update client.
type Updater interface {
	// CheckForUpdates reports whether a newer launcher version exists.
	CheckForUpdates(ctx context.Context) (bool, error)
	// DownloadUpdate fetches the installer for the version found by
	// CheckForUpdates.
	DownloadUpdate(ctx context.Context) error
	// QuitAndInstall hands the process over to the downloaded installer.
	QuitAndInstall(silent, force bool)
}

// LaunchState is one observation of the engine process lifecycle.
type LaunchState int

const (
	LaunchStarting LaunchState = iota
	LaunchRunning
	LaunchFinished
	LaunchFailed
)

// Terminal reports whether no further states follow.
func (s LaunchState) Terminal() bool {
	return s == LaunchFinished || s == LaunchFailed
}

func (s LaunchState) String() string {
	switch s {
	case LaunchStarting:
		return "starting"
	case LaunchRunning:
		return "running"
	case LaunchFinished:
		return "finished"
	case LaunchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Launcher starts the engine process. The returned channel carries state
// transitions ending in exactly one terminal state, then closes.
type Launcher interface {
	Launch(path string, args []string) (<-chan LaunchState, error)
}

// Notifier receives fire-and-forget pipeline lifecycle notifications,
// typically rendered by a GUI shell.
type Notifier interface {
	PipelineStarted()
	PipelineStopped()
	PipelineFinished()
	// NextStep announces the step about to execute.
	NextStep(kind, item string)
	// SetNextEnabled toggles the GUI's "next" affordance.
	SetNextEnabled(enabled bool)
	HideWindow()
	// Launched signals that the engine launch was initiated.
	Launched()
}

// ConfigSink receives the remotely fetched configuration once per run.
type ConfigSink interface {
	ApplyRemote(cfg *api.Config) error
}
