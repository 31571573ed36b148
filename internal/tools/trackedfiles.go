package tools

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// TrackedFileSet is the registry of files a turn cares about: files the
// assistant itself has written this conversation (ai_tracked) and files
// the user explicitly pinned for the assistant to keep in view
// (user_pinned). A fsnotify watcher keeps ai_tracked entries honest —
// if a tracked file is removed out from under the conversation, it drops
// out of the set rather than silently going stale.
type TrackedFileSet struct {
	mu         sync.Mutex
	aiTracked  map[string]struct{}
	userPinned map[string]struct{}
	watcher    *fsnotify.Watcher
}

// NewTrackedFileSet starts a registry with its own fsnotify watcher. The
// watcher is best-effort: if it can't be created (e.g. inotify instance
// limits), the set still tracks files, it just won't prune on deletion.
func NewTrackedFileSet() *TrackedFileSet {
	s := &TrackedFileSet{
		aiTracked:  make(map[string]struct{}),
		userPinned: make(map[string]struct{}),
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("trackedfiles: watcher unavailable, tracking without deletion pruning", "error", err)
		return s
	}
	s.watcher = w
	go s.watchLoop()
	return s
}

func (s *TrackedFileSet) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0 {
				s.untrack(event.Name)
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// TrackAI records path as written by the assistant this conversation and
// starts watching it for deletion.
func (s *TrackedFileSet) TrackAI(path string) {
	s.mu.Lock()
	s.aiTracked[path] = struct{}{}
	s.mu.Unlock()
	if s.watcher != nil {
		_ = s.watcher.Add(path)
	}
}

// PinUser records path as explicitly requested by the user to stay in
// context across turns, independent of whether the assistant wrote it.
func (s *TrackedFileSet) PinUser(path string) {
	s.mu.Lock()
	s.userPinned[path] = struct{}{}
	s.mu.Unlock()
}

func (s *TrackedFileSet) untrack(path string) {
	s.mu.Lock()
	delete(s.aiTracked, path)
	s.mu.Unlock()
}

// Files returns the union of ai_tracked and user_pinned paths.
func (s *TrackedFileSet) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.aiTracked)+len(s.userPinned))
	for p := range s.aiTracked {
		out = append(out, p)
	}
	for p := range s.userPinned {
		if _, already := s.aiTracked[p]; !already {
			out = append(out, p)
		}
	}
	return out
}

// Clear empties ai_tracked (user_pinned survives) and stops watching the
// cleared paths. Called on conversation compaction, since a fresh
// summarized conversation has no basis for the old ai_tracked set.
func (s *TrackedFileSet) Clear() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.aiTracked))
	for p := range s.aiTracked {
		paths = append(paths, p)
	}
	s.aiTracked = make(map[string]struct{})
	s.mu.Unlock()

	if s.watcher != nil {
		for _, p := range paths {
			_ = s.watcher.Remove(p)
		}
	}
}

// Close stops the underlying watcher, if any.
func (s *TrackedFileSet) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
