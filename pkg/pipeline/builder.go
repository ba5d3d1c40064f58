package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/systemstart/prelaunch/pkg/api"
)

const (
	// DefaultUpdateTimeout bounds the race between the self-update check
	// and the launcher-update step. A check that settles later is ignored.
	DefaultUpdateTimeout = 5 * time.Second

	// DefaultHideDelay is the grace period between launching the engine
	// and hiding the launcher window.
	DefaultHideDelay = 1500 * time.Millisecond

	// quitDelay defers the handoff to the installer so completion
	// notifications reach the GUI first.
	quitDelay = 250 * time.Millisecond
)

// Deps holds the collaborators the pipeline drives. All fields are required
// except FetchConfig and Sink, which are only used when a config URL is set.
type Deps struct {
	Downloader  Downloader
	Updater     Updater
	Launcher    Launcher
	Notifier    Notifier
	Sink        ConfigSink
	FetchConfig func(ctx context.Context) (*api.Config, error)
}

// Options tunes pipeline construction.
type Options struct {
	// Dev suppresses the self-update check.
	Dev bool
	// LocalConfigExists reflects whether a persisted config file was found;
	// on a first run the config refresh moves to the front of the sequence.
	LocalConfigExists bool
	// InstallDir is the root the engine path is derived under.
	InstallDir string

	UpdateTimeout time.Duration // defaults to DefaultUpdateTimeout
	HideDelay     time.Duration // defaults to DefaultHideDelay
}

// builder translates one configuration read into an ordered step sequence
// plus a set of background tasks. It performs no I/O itself; all fallibility
// lives inside the step actions it produces.
type builder struct {
	ctx    context.Context
	cfg    *api.Config
	deps   Deps
	opts   Options
	orch   *Orchestrator
	logger *slog.Logger
}

func (b *builder) build() ([]*Step, []Starter) {
	var steps []*Step
	var tasks []Starter

	if !b.cfg.DisableDownloads {
		// Deferred to the end of the download-derived steps unless this is
		// a first run, where the bundled config may be stale.
		var configStep *Step
		if b.cfg.ConfigURL != "" {
			fetch := NewTask(func() (*api.Config, error) {
				return b.deps.FetchConfig(b.ctx)
			})
			tasks = append(tasks, fetch)
			configStep = b.configUpdateStep(fetch)
			if !b.opts.LocalConfigExists {
				steps = append(steps, configStep)
				configStep = nil
			}
		}

		for _, id := range b.cfg.Resources {
			id := id
			steps = append(steps, b.downloadStep(StepResource, id, func(ctx context.Context) error {
				return b.deps.Downloader.DownloadResource(ctx, id)
			}))
		}

		for _, id := range b.cfg.Engines {
			id := id
			steps = append(steps, b.downloadStep(StepEngine, id, func(ctx context.Context) error {
				return b.deps.Downloader.DownloadEngine(ctx, id)
			}))
		}

		if b.cfg.NextGenGames {
			for _, id := range b.cfg.Games {
				id := id
				steps = append(steps, b.downloadStep(StepGame, id, func(ctx context.Context) error {
					return b.deps.Downloader.DownloadGameNextGen(ctx, id)
				}))
			}
		} else if len(b.cfg.Games) > 0 {
			games := b.cfg.Games
			steps = append(steps, b.downloadStep(StepGames, strings.Join(games, ", "), func(ctx context.Context) error {
				return b.deps.Downloader.DownloadGames(ctx, games)
			}))
		}

		for _, id := range b.cfg.Maps {
			id := id
			steps = append(steps, b.downloadStep(StepMap, id, func(ctx context.Context) error {
				return b.deps.Downloader.DownloadMap(ctx, id)
			}))
		}

		for _, id := range b.cfg.NextGen {
			id := id
			steps = append(steps, b.downloadStep(StepNextGen, id, func(ctx context.Context) error {
				return b.deps.Downloader.DownloadNextGen(ctx, id)
			}))
		}

		if configStep != nil {
			steps = append(steps, configStep)
		}
	}

	if !b.opts.Dev {
		check := NewTask(func() (bool, error) {
			return b.deps.Updater.CheckForUpdates(b.ctx)
		})
		tasks = append(tasks, check)
		steps = append(steps, b.launcherUpdateStep(check))
	}

	if path := b.enginePath(); path != "" {
		steps = append(steps, b.startStep(path))
	}

	return steps, tasks
}

// enginePath resolves the engine executable: the explicit override if
// configured, otherwise derived from the engine name under the install-dir
// convention. Empty means no start step is built.
func (b *builder) enginePath() string {
	if b.cfg.Launch.EnginePath != "" {
		return b.cfg.Launch.EnginePath
	}
	name := b.cfg.EngineName()
	if name == "" {
		return ""
	}
	return filepath.Join(b.opts.InstallDir, "engines", name, name)
}

// configUpdateStep waits on the fetch task, applies the result, and advances
// regardless of outcome. A cancelled fetch means the pipeline was already
// torn down, so that case is a silent no-op.
func (b *builder) configUpdateStep(fetch *Task[*api.Config]) *Step {
	s := &Step{Kind: StepConfigUpdate}
	s.Action = func(*Step) {
		go func() {
			res := <-fetch.Done()
			if res.Err != nil {
				if errors.Is(res.Err, context.Canceled) {
					return
				}
				b.logger.Warn("remote config fetch failed", "error", res.Err)
				b.orch.Advance(false)
				return
			}
			if err := b.deps.Sink.ApplyRemote(res.Value); err != nil {
				b.logger.Warn("remote config apply failed", "error", err)
			}
			b.orch.Advance(false)
		}()
	}
	return s
}

// downloadStep marks the pipeline active and delegates to the downloader on
// a separate goroutine. Success advances; failure leaves the pipeline parked
// so an external driver can retry. The downloader has already reported the
// failure on its own channel.
func (b *builder) downloadStep(kind, item string, download func(context.Context) error) *Step {
	s := &Step{Kind: kind, Item: item}
	s.Action = func(*Step) {
		b.orch.SetActive(true)
		go func() {
			err := download(b.ctx)
			b.orch.SetActive(false)
			if err != nil {
				b.logger.Error("download failed", "step", kind, "item", item, "error", err)
				return
			}
			b.orch.Advance(false)
		}()
	}
	return s
}

// launcherUpdateStep races the update-check task against UpdateTimeout.
// Whichever settles first wins; a late check result is discarded by the
// task's buffered channel. Every failure path logs and advances; a broken
// update check must never strand the pipeline.
func (b *builder) launcherUpdateStep(check *Task[bool]) *Step {
	s := &Step{Kind: StepLauncherUpdate}
	s.Action = func(*Step) {
		go func() {
			select {
			case res := <-check.Done():
				if res.Err != nil {
					b.logger.Warn("update check failed", "error", res.Err)
					b.orch.Advance(false)
					return
				}
				if !res.Value {
					b.logger.Info("launcher is up to date")
					b.orch.Advance(false)
					return
				}
				b.runUpdate()
			case <-time.After(b.opts.UpdateTimeout):
				b.logger.Warn("update check timed out", "timeout", b.opts.UpdateTimeout)
				b.orch.Advance(false)
			}
		}()
	}
	return s
}

func (b *builder) runUpdate() {
	if err := b.deps.Updater.DownloadUpdate(b.ctx); err != nil {
		b.logger.Error("update download failed", "error", err)
		b.orch.Advance(false)
		return
	}
	b.logger.Info("update downloaded, restarting into installer")
	time.AfterFunc(quitDelay, func() {
		b.deps.Updater.QuitAndInstall(b.cfg.Launch.SilentUpdate, true)
	})
}

// startStep launches the engine. After a terminal launcher state the step
// re-enqueues itself at the back of the sequence, on success and on failure
// alike, so a start step stays available for another run.
func (b *builder) startStep(path string) *Step {
	s := &Step{Kind: StepStart, Item: path}
	s.Action = func(self *Step) {
		states, err := b.deps.Launcher.Launch(path, b.cfg.Launch.StartArgs)
		if err != nil {
			b.logger.Error("engine launch failed", "path", path, "error", err)
			b.orch.pushBack(self)
			return
		}
		b.deps.Notifier.Launched()
		go b.watchLaunch(self, states)
	}
	return s
}

// watchLaunch hides the launcher window after the grace delay and
// re-enqueues the start step once the launcher reports a terminal state.
// A terminal state before the delay returns early, so a failed launch
// never hides the window.
func (b *builder) watchLaunch(self *Step, states <-chan LaunchState) {
	hide := time.NewTimer(b.opts.HideDelay)
	defer hide.Stop()

	for {
		select {
		case st, ok := <-states:
			if !ok {
				b.orch.pushBack(self)
				return
			}
			b.logger.Info("engine state", "state", st.String())
			if st.Terminal() {
				b.orch.pushBack(self)
				return
			}
		case <-hide.C:
			b.deps.Notifier.HideWindow()
		}
	}
}
