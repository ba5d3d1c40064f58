// Package notify provides the default Notifier: a slog sink standing in for
// a GUI shell. Headless runs get a readable progress trail; a real shell
// replaces this with its own implementation.
package notify

import (
	"log/slog"

	"github.com/systemstart/prelaunch/pkg/download"
	"github.com/systemstart/prelaunch/pkg/pipeline"
)

// Log writes every notification to a slog logger.
type Log struct {
	logger *slog.Logger
}

var (
	_ pipeline.Notifier = (*Log)(nil)
	_ download.Progress = (*Log)(nil)
)

// NewLog creates a logging notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) PipelineStarted()  { l.logger.Info("pipeline started") }
func (l *Log) PipelineStopped()  { l.logger.Info("pipeline stopped") }
func (l *Log) PipelineFinished() { l.logger.Info("pipeline finished") }

func (l *Log) NextStep(kind, item string) {
	l.logger.Info("next step", "step", kind, "item", item)
}

func (l *Log) SetNextEnabled(enabled bool) {
	l.logger.Debug("next affordance", "enabled", enabled)
}

func (l *Log) HideWindow() { l.logger.Info("hiding launcher window") }
func (l *Log) Launched()   { l.logger.Info("engine launch initiated") }

func (l *Log) DownloadStarted(tag string) {
	l.logger.Info("download started", "tag", tag)
}

func (l *Log) DownloadProgress(tag string, done, total int64) {
	l.logger.Debug("download progress", "tag", tag, "done", done, "total", total)
}

func (l *Log) DownloadFinished(tag string) {
	l.logger.Info("download finished", "tag", tag)
}
