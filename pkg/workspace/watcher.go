package workspace

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeCallback is called once per debounced batch of agent file changes
type ChangeCallback func(names []string) error

// AgentWatcher watches the workspace root for agent files and sub-files
// that are created, changed or removed outside the Manager, such as by
// the agent process itself
type AgentWatcher struct {
	watcher            *fsnotify.Watcher
	root               string
	stabilityThreshold time.Duration
	onChange           ChangeCallback
	done               chan struct{}
	pending            map[string]struct{}
	timer              *time.Timer
	mu                 sync.Mutex
	stopOnce           sync.Once
}

// AgentWatcherConfig holds configuration for the watcher
type AgentWatcherConfig struct {
	Root               string
	StabilityThreshold time.Duration
	OnChange           ChangeCallback
}

// NewAgentWatcher creates a new agent file watcher
func NewAgentWatcher(config AgentWatcherConfig) (*AgentWatcher, error) {
	if config.Root == "" {
		return nil, ErrRootRequired
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if config.StabilityThreshold == 0 {
		config.StabilityThreshold = 100 * time.Millisecond
	}

	return &AgentWatcher{
		watcher:            watcher,
		root:               config.Root,
		stabilityThreshold: config.StabilityThreshold,
		onChange:           config.OnChange,
		done:               make(chan struct{}),
		pending:            make(map[string]struct{}),
	}, nil
}

// WatchAgents returns a watcher that rebuilds AGENTS.md whenever agent
// files change on disk
func (m *Manager) WatchAgents(stabilityThreshold time.Duration) (*AgentWatcher, error) {
	return NewAgentWatcher(AgentWatcherConfig{
		Root:               m.root,
		StabilityThreshold: stabilityThreshold,
		OnChange: func(names []string) error {
			log.Info().
				Str("root", m.root).
				Strs("files", names).
				Msg("Agent files changed on disk")
			return m.RegenerateAgentsMD()
		},
	})
}

// Start starts watching the workspace root. Only the root itself is
// watched since agent files live at the top level.
func (w *AgentWatcher) Start() error {
	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}

	go w.eventLoop()

	log.Info().
		Str("root", w.root).
		Msg("Agent watcher started")

	return nil
}

// Stop stops the watcher
func (w *AgentWatcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	clear(w.pending)
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	log.Info().Msg("Agent watcher stopped")
	return nil
}

// eventLoop processes file system events
func (w *AgentWatcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

// handleEvent queues agent file events and restarts the debounce timer
func (w *AgentWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	name := filepath.Base(event.Name)
	if ParseAgentFileName(name).Kind == KindUnclassified {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.stabilityThreshold, w.flush)
}

// flush hands the pending batch to the callback
func (w *AgentWatcher) flush() {
	select {
	case <-w.done:
		return
	default:
	}

	w.mu.Lock()
	names := make([]string, 0, len(w.pending))
	for name := range w.pending {
		names = append(names, name)
	}
	clear(w.pending)
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(names)

	if len(names) == 0 || w.onChange == nil {
		return
	}

	if err := w.onChange(names); err != nil {
		log.Error().
			Err(err).
			Str("root", w.root).
			Msg("Error handling agent file change")
	}
}
