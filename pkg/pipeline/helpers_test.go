package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/systemstart/prelaunch/pkg/api"
)

type fakeDownloader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeDownloader) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeDownloader) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDownloader) DownloadResource(_ context.Context, id string) error {
	return f.record("resource:" + id)
}

func (f *fakeDownloader) DownloadEngine(_ context.Context, id string) error {
	return f.record("engine:" + id)
}

func (f *fakeDownloader) DownloadGameNextGen(_ context.Context, id string) error {
	return f.record("game:" + id)
}

func (f *fakeDownloader) DownloadGames(_ context.Context, ids []string) error {
	return f.record("games:" + strings.Join(ids, ","))
}

func (f *fakeDownloader) DownloadMap(_ context.Context, id string) error {
	return f.record("map:" + id)
}

func (f *fakeDownloader) DownloadNextGen(_ context.Context, id string) error {
	return f.record("nextgen:" + id)
}

type fakeUpdater struct {
	mu          sync.Mutex
	available   bool
	checkErr    error
	downloadErr error
	block       chan struct{} // when non-nil, CheckForUpdates waits on it

	checks    int
	downloads int
	installs  int
	installed chan struct{}
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{installed: make(chan struct{}, 1)}
}

func (f *fakeUpdater) CheckForUpdates(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.checks++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return f.available, f.checkErr
}

func (f *fakeUpdater) DownloadUpdate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return f.downloadErr
}

func (f *fakeUpdater) QuitAndInstall(bool, bool) {
	f.mu.Lock()
	f.installs++
	f.mu.Unlock()
	select {
	case f.installed <- struct{}{}:
	default:
	}
}

func (f *fakeUpdater) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

type fakeLauncher struct {
	mu       sync.Mutex
	launches []string
	err      error
	states   []LaunchState // sent on the returned channel, then closed unless keepOpen
	keepOpen bool          // leave the channel open, as if the engine kept running
	ch       chan LaunchState
}

func (f *fakeLauncher) Launch(path string, args []string) (<-chan LaunchState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches = append(f.launches, path)

	if f.err != nil {
		return nil, f.err
	}

	ch := make(chan LaunchState, len(f.states))
	for _, st := range f.states {
		ch <- st
	}
	if f.keepOpen {
		f.ch = ch
	} else {
		close(ch)
	}
	return ch, nil
}

func (f *fakeLauncher) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

// closeStates ends a keepOpen launch, as if the engine process exited.
func (f *fakeLauncher) closeStates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.ch)
}

type fakeNotifier struct {
	mu       sync.Mutex
	events   []string
	finished chan struct{}
	launched chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		finished: make(chan struct{}, 16),
		launched: make(chan struct{}, 16),
	}
}

func (f *fakeNotifier) add(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeNotifier) PipelineStarted() { f.add("started") }
func (f *fakeNotifier) PipelineStopped() { f.add("stopped") }

func (f *fakeNotifier) PipelineFinished() {
	f.add("finished")
	f.finished <- struct{}{}
}

func (f *fakeNotifier) NextStep(kind, item string) { f.add("next:" + kind + ":" + item) }
func (f *fakeNotifier) SetNextEnabled(enabled bool) {
	if enabled {
		f.add("enable")
	} else {
		f.add("disable")
	}
}
func (f *fakeNotifier) HideWindow() { f.add("hide") }

func (f *fakeNotifier) Launched() {
	f.add("launched")
	f.launched <- struct{}{}
}

func (f *fakeNotifier) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeSink struct {
	mu      sync.Mutex
	applied []*api.Config
	err     error
}

func (f *fakeSink) ApplyRemote(cfg *api.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, cfg)
	return f.err
}

func (f *fakeSink) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

// testDeps returns deps wired with fresh fakes.
func testDeps() (Deps, *fakeDownloader, *fakeUpdater, *fakeLauncher, *fakeNotifier, *fakeSink) {
	dl := &fakeDownloader{}
	up := newFakeUpdater()
	la := &fakeLauncher{states: []LaunchState{LaunchStarting, LaunchRunning, LaunchFinished}}
	no := newFakeNotifier()
	si := &fakeSink{}
	deps := Deps{
		Downloader: dl,
		Updater:    up,
		Launcher:   la,
		Notifier:   no,
		Sink:       si,
	}
	return deps, dl, up, la, no, si
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting until %s", what)
}
