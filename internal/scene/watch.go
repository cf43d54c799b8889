package scene

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long a file must stay untouched before its change is
// reported.
const DefaultQuiet = 100 * time.Millisecond

// Watcher reports changed scene and script files. A burst of writes to one
// file is reported once, after the file has been quiet for the quiet period,
// so readers never see a half-written file.
type Watcher struct {
	fs      *fsnotify.Watcher
	quiet   time.Duration
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches dirs (non-recursive). quiet <= 0 uses DefaultQuiet.
func NewWatcher(quiet time.Duration, dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	w := &Watcher{
		fs:      fw,
		quiet:   quiet,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and closes Events and Errors. Pending changes are
// dropped. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.fs.Close()
		<-w.done
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.quiet)

		case <-timer.C:
			if !w.flush(pending) {
				return
			}
			clear(pending)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}

		case <-w.closeCh:
			return
		}
	}
}

// flush reports every pending path in name order. It returns false when the
// watcher closed while sending.
func (w *Watcher) flush(pending map[string]struct{}) bool {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		select {
		case w.Events <- p:
		case <-w.closeCh:
			return false
		}
	}
	return true
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return isSceneFile(ev.Name) || IsScriptFile(ev.Name)
}

func isSceneFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// IsScriptFile reports whether path is a scene script.
func IsScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}
