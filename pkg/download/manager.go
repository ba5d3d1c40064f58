// Package download fetches game content over HTTP into the install
// directory. Progress is reported through a side channel, never back to the
// pipeline as an error it must interpret.
package download

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Content kind directories under the install dir, matching the remote
// repository layout.
const (
	KindResource = "resources"
	KindEngine   = "engines"
	KindGame     = "games"
	KindMap      = "maps"
	KindNextGen  = "nextgen"
)

const copyChunkSize = 64 * 1024

// Progress receives download lifecycle notifications, keyed by a
// "<kind>/<id>" tag.
type Progress interface {
	DownloadStarted(tag string)
	DownloadProgress(tag string, done, total int64)
	DownloadFinished(tag string)
}

// NopProgress discards all notifications.
type NopProgress struct{}

func (NopProgress) DownloadStarted(string)                {}
func (NopProgress) DownloadProgress(string, int64, int64) {}
func (NopProgress) DownloadFinished(string)               {}

// Manager implements the pipeline's Downloader contract.
type Manager struct {
	baseURL    string
	installDir string
	client     *http.Client
	progress   Progress
	logger     *slog.Logger
}

// New creates a Manager downloading from baseURL into installDir.
func New(baseURL, installDir string, progress Progress, logger *slog.Logger) *Manager {
	if progress == nil {
		progress = NopProgress{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		baseURL:    strings.TrimRight(baseURL, "/"),
		installDir: installDir,
		client:     &http.Client{},
		progress:   progress,
		logger:     logger,
	}
}

func (m *Manager) DownloadResource(ctx context.Context, id string) error {
	return m.download(ctx, KindResource, id)
}

func (m *Manager) DownloadEngine(ctx context.Context, id string) error {
	return m.download(ctx, KindEngine, id)
}

func (m *Manager) DownloadGameNextGen(ctx context.Context, id string) error {
	return m.download(ctx, KindGame, id)
}

// DownloadGames fetches all configured games in one pass. Any failure
// aborts the remainder.
func (m *Manager) DownloadGames(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := m.download(ctx, KindGame, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) DownloadMap(ctx context.Context, id string) error {
	return m.download(ctx, KindMap, id)
}

func (m *Manager) DownloadNextGen(ctx context.Context, id string) error {
	return m.download(ctx, KindNextGen, id)
}

func (m *Manager) download(ctx context.Context, kind, id string) error {
	tag := kind + "/" + id

	if m.installed(kind, id) {
		m.logger.Debug("already installed, skipping", "tag", tag)
		return nil
	}

	m.progress.DownloadStarted(tag)

	url := m.baseURL + "/" + kind + "/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", tag, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", tag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", tag, resp.Status)
	}

	if err := m.save(kind, id, tag, resp.Body, resp.ContentLength); err != nil {
		return err
	}

	m.progress.DownloadFinished(tag)
	return nil
}

// save streams the body to a temp file in the target directory and renames
// it into place, so a torn download never looks installed.
func (m *Manager) save(kind, id, tag string, body io.Reader, total int64) error {
	dir := filepath.Join(m.installDir, kind)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, id+".part-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", tag, err)
	}
	defer os.Remove(tmp.Name())

	var done int64
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				tmp.Close()
				return fmt.Errorf("writing %s: %w", tag, writeErr)
			}
			done += int64(n)
			m.progress.DownloadProgress(tag, done, total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			return fmt.Errorf("reading %s: %w", tag, readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tag, err)
	}

	target := filepath.Join(dir, id)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("installing %s: %w", tag, err)
	}

	m.logger.Info("downloaded", "tag", tag, "bytes", done)
	return nil
}

// installed reports whether content for kind/id already exists: either the
// artifact file itself or any file unpacked under a directory of that name.
func (m *Manager) installed(kind, id string) bool {
	fsys := os.DirFS(m.installDir)
	patterns := []string{
		path.Join(kind, id),
		path.Join(kind, id, "**/*"),
	}
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			m.logger.Warn("installed-check glob failed", "pattern", pattern, "error", err)
			continue
		}
		for _, match := range matches {
			st, err := fs.Stat(fsys, match)
			if err == nil && !st.IsDir() {
				return true
			}
		}
	}
	return false
}
