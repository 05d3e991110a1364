package core

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Event is a qualifying local filesystem change with an absolute path.
type Event struct {
	Path string
	Kind ChangeKind
}

// watcher wraps fsnotify with recursive semantics: every directory under
// the root is registered, and directories created later are added on the
// fly. Raw fsnotify ops are mapped to ChangeKind before forwarding.
type watcher struct {
	fs     *fsnotify.Watcher
	events chan Event
	log    zerolog.Logger
}

func newWatcher(root string, log zerolog.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		fs:     fw,
		events: make(chan Event, 128),
		log:    log,
	}
	if err := w.addTree(root, nil); err != nil {
		fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// addTree registers every directory below root. When onFile is non-nil it
// is called for each regular file found, which lets a freshly created
// directory surface its existing contents as create events.
func (w *watcher) addTree(root string, onFile func(string)) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			w.log.Warn().Err(err).Str("path", p).Msg("watch: skipping unreadable entry")
			return fs.SkipDir
		}
		if d.IsDir() {
			if err := w.fs.Add(p); err != nil {
				w.log.Warn().Err(err).Str("path", p).Msg("watch: cannot register directory")
			}
		} else if onFile != nil {
			onFile(p)
		}
		return nil
	})
}

func (w *watcher) loop() {
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch: fsnotify error")
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// A directory moved in wholesale carries files fsnotify never
			// reported; surface them as creates.
			_ = w.addTree(ev.Name, func(p string) {
				w.events <- Event{Path: p, Kind: ChangeCreate}
			})
			return
		}
		w.events <- Event{Path: ev.Name, Kind: ChangeCreate}
	case ev.Op&fsnotify.Write != 0:
		w.events <- Event{Path: ev.Name, Kind: ChangeWrite}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.events <- Event{Path: ev.Name, Kind: ChangeDelete}
	}
}

// Events yields mapped events until Close.
func (w *watcher) Events() <-chan Event {
	return w.events
}

func (w *watcher) Close() {
	_ = w.fs.Close()
}
