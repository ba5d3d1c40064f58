package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/systemstart/prelaunch/pkg/api"
	"github.com/systemstart/prelaunch/pkg/download"
	"github.com/systemstart/prelaunch/pkg/fetch"
	"github.com/systemstart/prelaunch/pkg/launch"
	"github.com/systemstart/prelaunch/pkg/logging"
	"github.com/systemstart/prelaunch/pkg/notify"
	"github.com/systemstart/prelaunch/pkg/pipeline"
	"github.com/systemstart/prelaunch/pkg/update"
)

var version = "dev"

const (
	_ = iota
	exitDotenvError
	exitLoadConfigFailed
	exitInstallDirCheckFailed
	exitInstallDirCreateFailed
	exitUpdaterInitFailed
)

const localConfigName = "prelaunch.yaml"

var (
	configFile  string
	installDir  string
	forceStart  bool
	loggingType string
	logLevel    string
	showVersion bool
)

func init() {
	flag.StringVar(
		&configFile,
		"config",
		"prelaunch.yaml",
		"bundled launcher config, used when no local copy exists yet")
	flag.StringVar(
		&installDir,
		"install-dir",
		".",
		"directory content is installed into")
	flag.BoolVar(
		&forceStart,
		"start",
		false,
		"launch the engine even when auto_start is off")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	_ = logging.Initialize(loggingType, logLevel)

	includeEnv()
	ensureInstallDir()

	localPath := filepath.Join(installDir, localConfigName)
	localExists := api.Exists(localPath)
	store := loadConfig(localPath, localExists)
	cfg := store.Current()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := newDriver(notify.NewLog(slog.Default()))

	orch := pipeline.New(ctx, cfg, pipeline.Deps{
		Downloader:  download.New(cfg.ContentURL, installDir, driver.log, slog.Default()),
		Updater:     newUpdater(cfg, driver.log),
		Launcher:    launch.New(installDir, slog.Default()),
		Notifier:    driver,
		Sink:        store,
		FetchConfig: newFetcher(cfg),
	}, pipeline.Options{
		Dev:               version == "dev",
		LocalConfigExists: localExists,
		InstallDir:        installDir,
	}, slog.Default())

	driver.run(ctx, orch)
	slog.Info("done")
}

// driver adapts the logging notifier into something main can wait on: it
// forwards every notification and signals pipeline completion and launch.
type driver struct {
	log      *notify.Log
	finished chan struct{}
	launched chan struct{}
}

func newDriver(log *notify.Log) *driver {
	return &driver{
		log:      log,
		finished: make(chan struct{}, 1),
		launched: make(chan struct{}, 1),
	}
}

func (d *driver) PipelineStarted() { d.log.PipelineStarted() }
func (d *driver) PipelineStopped() { d.log.PipelineStopped() }

func (d *driver) PipelineFinished() {
	d.log.PipelineFinished()
	select {
	case d.finished <- struct{}{}:
	default:
	}
}

func (d *driver) NextStep(kind, item string)  { d.log.NextStep(kind, item) }
func (d *driver) SetNextEnabled(enabled bool) { d.log.SetNextEnabled(enabled) }
func (d *driver) HideWindow()                 { d.log.HideWindow() }

func (d *driver) Launched() {
	d.log.Launched()
	select {
	case d.launched <- struct{}{}:
	default:
	}
}

// run drives the pipeline: one initial advance, then it waits for the steps'
// own continuations to carry it forward.
func (d *driver) run(ctx context.Context, orch *pipeline.Orchestrator) {
	orch.Advance(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.launched:
			d.waitForEngine(ctx, orch)
			return
		case <-d.finished:
			if !orch.AwaitingLaunch() {
				return
			}
			if !forceStart {
				slog.Info("launch pending; re-run with -start or set launch.auto_start")
				return
			}
			orch.Advance(true)
		}
	}
}

// waitForEngine polls until the start step has been re-enqueued, which the
// pipeline does once the engine reports a terminal state.
func (d *driver) waitForEngine(ctx context.Context, orch *pipeline.Orchestrator) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if orch.AwaitingLaunch() {
				slog.Info("engine exited")
				return
			}
		}
	}
}

func loadConfig(localPath string, localExists bool) *api.Store {
	path := configFile
	if localExists {
		path = localPath
	}

	cfg, err := api.Load(path)
	if err != nil {
		slog.Error("failed to load config", "path", path, "error", err)
		os.Exit(exitLoadConfigFailed)
	}

	slog.Info("config loaded", "path", path, "local", localExists)
	return api.NewStore(cfg, localPath)
}

func newFetcher(cfg *api.Config) func(context.Context) (*api.Config, error) {
	if cfg.ConfigURL == "" {
		return nil
	}
	return fetch.New(cfg.ConfigURL).Fetch
}

func newUpdater(cfg *api.Config, progress download.Progress) pipeline.Updater {
	if version == "dev" {
		return nil
	}

	updater, err := update.New(cfg.UpdateURL, version, progress, slog.Default())
	if err != nil {
		slog.Error("failed to initialize updater", "error", err)
		os.Exit(exitUpdaterInitFailed)
	}
	return updater
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Info("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func ensureInstallDir() {
	st, err := os.Stat(installDir)
	if err == nil && !st.IsDir() {
		slog.Error("-install-dir is not a directory", "directory", installDir)
		os.Exit(exitInstallDirCheckFailed)
	}
	if err != nil && !os.IsNotExist(err) {
		slog.Error("failed to check install directory", "directory", installDir, "error", err)
		os.Exit(exitInstallDirCheckFailed)
	}

	if err := os.MkdirAll(installDir, 0o750); err != nil {
		slog.Error("failed to create install directory", "directory", installDir, "error", err)
		os.Exit(exitInstallDirCreateFailed)
	}
}
