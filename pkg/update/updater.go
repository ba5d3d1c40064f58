// Package update implements the launcher self-update client: a version
// manifest check, an installer download, and the handoff that restarts the
// process into the installer.
package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/systemstart/prelaunch/pkg/download"
)

const (
	checkTimeout    = 5 * time.Second
	maxManifestSize = 64 * 1024

	progressTag = "launcher-update"
)

// manifest is the remote update feed format.
type manifest struct {
	Version string `yaml:"version"`
	URL     string `yaml:"url"`
}

// Client checks a manifest URL against the running version and, when a newer
// release exists, downloads its installer.
type Client struct {
	feedURL  string
	current  *semver.Version
	client   *http.Client
	progress download.Progress
	logger   *slog.Logger

	mu            sync.Mutex
	latest        *manifest
	installerPath string

	// exit is swappable for tests; QuitAndInstall never returns otherwise.
	exit func(code int)
}

// New creates an update client. currentVersion must be valid semver.
func New(feedURL, currentVersion string, progress download.Progress, logger *slog.Logger) (*Client, error) {
	v, err := semver.NewVersion(currentVersion)
	if err != nil {
		return nil, fmt.Errorf("parsing current version %q: %w", currentVersion, err)
	}
	if progress == nil {
		progress = download.NopProgress{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		feedURL:  feedURL,
		current:  v,
		client:   &http.Client{Timeout: checkTimeout},
		progress: progress,
		logger:   logger,
		exit:     os.Exit,
	}, nil
}

// CheckForUpdates fetches the manifest and reports whether it advertises a
// version newer than the running one.
func (c *Client) CheckForUpdates(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return false, fmt.Errorf("building manifest request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetching update manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("fetching update manifest: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return false, fmt.Errorf("reading update manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return false, fmt.Errorf("parsing update manifest: %w", err)
	}

	latest, err := semver.NewVersion(m.Version)
	if err != nil {
		return false, fmt.Errorf("parsing manifest version %q: %w", m.Version, err)
	}

	if !latest.GreaterThan(c.current) {
		return false, nil
	}

	c.mu.Lock()
	c.latest = &m
	c.mu.Unlock()

	c.logger.Info("update available", "current", c.current.String(), "latest", m.Version)
	return true, nil
}

// DownloadUpdate fetches the installer advertised by the last successful
// check into the system temp directory.
func (c *Client) DownloadUpdate(ctx context.Context) error {
	c.mu.Lock()
	m := c.latest
	c.mu.Unlock()
	if m == nil {
		return fmt.Errorf("no update available; check first")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return fmt.Errorf("building installer request: %w", err)
	}

	// Installer downloads are large; the manifest client's short timeout
	// must not apply here.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("downloading installer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading installer: unexpected status %s", resp.Status)
	}

	target := filepath.Join(os.TempDir(), "prelaunch-installer-"+m.Version)
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("creating installer file: %w", err)
	}

	c.progress.DownloadStarted(progressTag)
	done, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("writing installer: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing installer file: %w", closeErr)
	}
	c.progress.DownloadProgress(progressTag, done, resp.ContentLength)
	c.progress.DownloadFinished(progressTag)

	c.mu.Lock()
	c.installerPath = target
	c.mu.Unlock()

	c.logger.Info("installer downloaded", "path", target, "bytes", done)
	return nil
}

// QuitAndInstall starts the downloaded installer and exits the process.
// force is accepted for contract compatibility; the installer is always
// detached before exit.
func (c *Client) QuitAndInstall(silent, force bool) {
	c.mu.Lock()
	path := c.installerPath
	c.mu.Unlock()
	if path == "" {
		c.logger.Error("quit-and-install requested with no downloaded installer")
		return
	}

	var args []string
	if silent {
		args = append(args, "--silent")
	}

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		c.logger.Error("starting installer failed", "path", path, "error", err)
		return
	}

	c.logger.Info("handing off to installer", "path", path, "silent", silent, "force", force)
	c.exit(0)
}
