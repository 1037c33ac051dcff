package fft

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	dspfft "github.com/mjibson/go-dsp/fft"

	"github.com/cbegin/synthcore-go/internal/errs"
	"github.com/cbegin/synthcore-go/internal/logger"
	"github.com/cbegin/synthcore-go/internal/workspace"
)

// wisdomHeader tags exported wisdom so foreign text is rejected.
const wisdomHeader = "synthcore-fft-wisdom v1"

// Options configures a Manager.
type Options struct {
	Backend Backend
	// Threads bounds the library's worker pool; 0 means GOMAXPROCS.
	Threads int
	// Wisdom is previously exported wisdom to import during Init.
	Wisdom string
	// Arena, when set, supplies owned workspaces from a pinned region
	// instead of the heap.
	Arena *workspace.Arena
	// LeakCheck is passed to heap workspaces.
	LeakCheck bool
}

// Manager owns the process-wide library state. go-dsp keeps its worker count
// and twiddle tables in package globals, so every configuring call holds the
// write lock; transform execution holds only the read side.
type Manager struct {
	mu          sync.RWMutex
	opts        Options
	initialized bool
	prepared    map[int]struct{}
	live        atomic.Int64
}

var defaultManager = NewManager()

// Default returns the shared process manager.
func Default() *Manager { return defaultManager }

func NewManager() *Manager {
	return &Manager{prepared: map[int]struct{}{}}
}

// Init configures the manager. Calling Init again replaces the options.
func (m *Manager) Init(opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if opts.Backend != Textbook && opts.Backend != Library {
		return errs.New(errs.BackendUnavailable, "fft backend %v", opts.Backend)
	}
	if opts.Threads < 0 {
		return errs.New(errs.InvalidParameter, "fft threads %d", opts.Threads)
	}
	m.opts = opts
	m.initialized = true
	if opts.Backend == Library {
		dspfft.SetWorkerPoolSize(opts.Threads)
	}
	if opts.Wisdom != "" {
		if err := m.importLocked(opts.Wisdom); err != nil {
			return err
		}
	}
	threads := opts.Threads
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	logger.L.Debug("fft: initialized", "backend", opts.Backend, "threads", threads)
	return nil
}

// Shutdown returns the manager to the uninitialized state. Live transforms
// keep working but are reported.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.live.Load(); n > 0 {
		logger.L.Warn("fft: shutdown with live transforms", "count", n)
	}
	if m.opts.Backend == Library {
		dspfft.SetWorkerPoolSize(0)
	}
	m.initialized = false
	m.opts = Options{}
}

func (m *Manager) Backend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts.Backend
}

// Live reports how many transforms have not been released.
func (m *Manager) Live() int { return int(m.live.Load()) }

func (m *Manager) released() { m.live.Add(-1) }

// Create builds a transform of size n. When share is non-nil the new
// transform borrows share's workspace, which requires n <= share.N().
// A positive concurrency resizes the library worker pool, which is process
// wide.
func (m *Manager) Create(n, concurrency int, share Transform) (Transform, error) {
	if !IsPowerOfTwo(n) || n < MinSize {
		return nil, errs.Wrap(errs.InvalidParameter, fmt.Sprintf("n=%d", n), ErrSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}

	var ws *workspace.Aligned
	if share != nil {
		if n > share.N() {
			return nil, errs.Wrap(errs.InvalidParameter, fmt.Sprintf("n=%d share=%d", n, share.N()), ErrShareTooSmall)
		}
		h, ok := share.(holder)
		if !ok {
			return nil, errs.New(errs.InvalidParameter, "foreign transform cannot be shared")
		}
		view, err := h.aligned().Share(n + 2)
		if err != nil {
			return nil, err
		}
		ws = view
	} else if m.opts.Arena != nil {
		w, err := m.opts.Arena.Alloc(n + 2)
		if err != nil {
			return nil, err
		}
		ws = w
	} else {
		ws = workspace.New(n+2, workspace.Config{LeakCheck: m.opts.LeakCheck})
	}

	b := base{n: n, ws: ws, buf: ws.Floats(), owner: m}
	var t Transform
	switch m.opts.Backend {
	case Library:
		if !workspace.IsAligned(b.buf) {
			panic(fmt.Errorf("%w: offset %d", ErrUnaligned, ws.Offset()))
		}
		if concurrency > 0 && concurrency != m.opts.Threads {
			dspfft.SetWorkerPoolSize(concurrency)
			m.opts.Threads = concurrency
		}
		m.prepareLocked(n)
		t = newLibrary(b, m)
	default:
		t = newTextbook(b)
	}
	m.live.Add(1)
	return t, nil
}

func (m *Manager) prepareLocked(n int) {
	if _, ok := m.prepared[n]; ok {
		return
	}
	dspfft.EnsureRadix2Factors(n)
	m.prepared[n] = struct{}{}
}

// ExportWisdom serializes the set of prepared transform sizes.
func (m *Manager) ExportWisdom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, 0, len(m.prepared))
	for n := range m.prepared {
		sizes = append(sizes, n)
	}
	slices.Sort(sizes)
	var sb strings.Builder
	sb.WriteString(wisdomHeader)
	for _, n := range sizes {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// ImportWisdom prepares every size listed in exported wisdom.
func (m *Manager) ImportWisdom(w string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.importLocked(w)
}

func (m *Manager) importLocked(w string) error {
	rest, ok := strings.CutPrefix(strings.TrimSpace(w), wisdomHeader)
	if !ok {
		return errs.New(errs.InvalidParameter, "fft wisdom header missing")
	}
	for _, f := range strings.Fields(rest) {
		n, err := strconv.Atoi(f)
		if err != nil || !IsPowerOfTwo(n) || n < MinSize {
			return errs.New(errs.InvalidParameter, "fft wisdom size %q", f)
		}
		m.prepareLocked(n)
	}
	logger.L.Debug("fft: wisdom imported", "sizes", len(m.prepared))
	return nil
}
