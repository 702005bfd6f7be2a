// Package lifecycle implements the lifecycle controller (C9): it decides
// whether indexing is needed at startup, supervises the background indexer
// with the same atomic compare-and-swap, mutex-guarded state pattern the
// corpus uses for its own auto-indexing manager, and exposes the open index
// store to the dispatcher concurrently with indexing.
package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hawkxtreme/mini-ai-1c-help/internal/discovery"
	xerrors "github.com/hawkxtreme/mini-ai-1c-help/internal/errors"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/indexpipeline"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/statusline"
	"github.com/hawkxtreme/mini-ai-1c-help/internal/store"
)

// State is one of the four lifecycle states named in §4.9.
type State string

const (
	StateNoPlatform       State = "no_platform"
	StateIndexing         State = "indexing"
	StateReady            State = "ready"
	StateReindexRequested State = "reindex_requested"
)

// indexDirName is the per-product subdirectory appended to the resolved
// base directory (§6.3).
const indexDirName = "com.mini-ai-1c/help"

// estimateFallbackTotal is the progress denominator used for the initial
// "indexing started" line before any container has been opened.
const estimateFallbackTotal = 1000

// findFunc and runIndexFunc are the seams tests substitute for
// discovery.Find and indexpipeline.Run.
type findFunc func() (discovery.Installation, bool)
type runIndexFunc func(ctx context.Context, binPath, version string, s *store.Store, status *statusline.Writer) error

// Controller drives startup, background indexing, and reindex requests. It
// is the single owner of state transitions; the dispatcher reads through
// its accessor methods instead of touching the store or installation
// directly.
type Controller struct {
	status *statusline.Writer
	dbPath string
	find   findFunc
	runIdx runIndexFunc

	mu           sync.RWMutex
	state        State
	installation discovery.Installation
	hasInstall   bool
	store        *store.Store

	running  int32 // atomic CAS guard: only one indexing run at a time
	doneChan chan struct{}
}

// Option configures a Controller at construction time. The zero set of
// options wires real platform discovery and the real indexing pipeline;
// tests substitute fakes via WithFind and WithIndexRunner.
type Option func(*Controller)

// WithFind overrides platform discovery, for tests.
func WithFind(fn findFunc) Option {
	return func(c *Controller) { c.find = fn }
}

// WithIndexRunner overrides the indexing pipeline entry point, for tests.
func WithIndexRunner(fn runIndexFunc) Option {
	return func(c *Controller) { c.runIdx = fn }
}

// NewController creates a controller that reports status on status.
func NewController(status *statusline.Writer, opts ...Option) *Controller {
	c := &Controller{
		status: status,
		find:   discovery.Find,
		runIdx: indexpipeline.Run,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveIndexDir implements §4.9 step 2 / §6.3: the first defined of
// $APPDATA or $HOME, else the user's home directory, else the system
// temporary directory, with "com.mini-ai-1c/help" appended. The directory
// is created if absent.
func ResolveIndexDir() (string, error) {
	base := os.Getenv("APPDATA")
	if base == "" {
		base = os.Getenv("HOME")
	}
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = home
		}
	}
	if base == "" {
		base = os.TempDir()
	}

	dir := filepath.Join(base, indexDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Startup implements the §4.9 startup flow. It never returns an error for
// an absent platform or a fresh/stale index — those lead to NoPlatform or
// Indexing respectively, per contract. It returns an error only for a
// catastrophic store failure.
func (c *Controller) Startup(ctx context.Context) error {
	inst, ok := c.find()
	if !ok {
		c.status.Unavailable("1C Platform not found in standard paths")
		c.setState(StateNoPlatform)
		return nil
	}

	c.mu.Lock()
	c.installation = inst
	c.hasInstall = true
	c.mu.Unlock()

	dir, err := ResolveIndexDir()
	if err != nil {
		return xerrors.NewStoreUnavailableError("resolve_index_dir", "", err)
	}
	c.dbPath = filepath.Join(dir, "help.db")

	if _, statErr := os.Stat(c.dbPath); os.IsNotExist(statErr) {
		return c.startIndexing(ctx, inst)
	}

	s, err := store.Open(c.dbPath)
	if err != nil {
		return c.startIndexing(ctx, inst)
	}

	meta, err := s.ReadMeta(ctx)
	if err != nil || meta.Version != inst.Version || meta.Count == 0 {
		s.Close()
		return c.startIndexing(ctx, inst)
	}

	c.mu.Lock()
	c.store = s
	c.state = StateReady
	c.mu.Unlock()
	c.status.Ready(inst.Version, meta.Count)
	return nil
}

// startIndexing transitions into Indexing and launches the background
// pipeline run. A second call while one is already running is rejected
// with DuplicateReindexError, matching the "busy" contract.
func (c *Controller) startIndexing(ctx context.Context, inst discovery.Installation) error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return &xerrors.DuplicateReindexError{}
	}

	c.mu.Lock()
	s := c.store
	c.mu.Unlock()

	if s == nil {
		var err error
		s, err = store.Open(c.dbPath)
		if err != nil {
			atomic.StoreInt32(&c.running, 0)
			c.status.Unavailable(err.Error())
			return err
		}
	}

	done := make(chan struct{}, 1)

	c.mu.Lock()
	c.store = s
	c.state = StateIndexing
	c.doneChan = done
	c.mu.Unlock()

	c.status.Indexing(0, estimateFallbackTotal, "Запуск индексации...")

	go func() {
		defer atomic.StoreInt32(&c.running, 0)
		defer func() {
			select {
			case done <- struct{}{}:
			default:
			}
		}()

		runErr := c.runIdx(ctx, inst.BinPath, inst.Version, s, c.status)

		c.mu.Lock()
		if runErr != nil {
			c.status.Unavailable("Indexing failed")
			c.state = StateNoPlatform
		} else {
			c.state = StateReady
		}
		c.mu.Unlock()
	}()

	return nil
}

// Reindex implements reindex_1c_help: busy while already indexing,
// PlatformMissingError with no discovered installation, otherwise clears
// the store and relaunches indexing, returning before it completes.
func (c *Controller) Reindex(ctx context.Context) error {
	c.mu.RLock()
	state := c.state
	hasInstall := c.hasInstall
	inst := c.installation
	s := c.store
	c.mu.RUnlock()

	if state == StateIndexing {
		return &xerrors.DuplicateReindexError{}
	}
	if !hasInstall {
		return xerrors.NewPlatformMissingError()
	}

	if s == nil {
		var err error
		s, err = store.Open(c.dbPath)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.store = s
		c.mu.Unlock()
	}

	if err := s.ClearAll(ctx); err != nil {
		return err
	}

	c.setState(StateReindexRequested)
	return c.startIndexing(ctx, inst)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsIndexing reports whether a background indexing run is currently in
// flight.
func (c *Controller) IsIndexing() bool {
	return atomic.LoadInt32(&c.running) == 1
}

// Store returns the currently open index handle, or nil if none is open
// yet (NoPlatform, or Indexing before the store has been created).
func (c *Controller) Store() *store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// Installation returns the discovered installation, if any.
func (c *Controller) Installation() (discovery.Installation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.installation, c.hasInstall
}

// WaitForCompletion blocks until the in-flight indexing run finishes or
// timeout elapses; used only by tests to make the background goroutine's
// completion observable.
func (c *Controller) WaitForCompletion(timeout time.Duration) bool {
	c.mu.RLock()
	done := c.doneChan
	c.mu.RUnlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
