package emotion

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DictionaryWatcher reloads a dictionary file into a detector whenever the
// file changes on disk. A file that fails to parse leaves the previous
// dictionary in place.
type DictionaryWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	detector *Detector
	log      zerolog.Logger

	mu       sync.Mutex
	onReload func(error)

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// WatchDictionary starts watching path. The directory is watched rather than
// the file so editors that save by rename are picked up.
func WatchDictionary(path string, d *Detector, logger zerolog.Logger) (*DictionaryWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	dw := &DictionaryWatcher{
		watcher:  watcher,
		path:     abs,
		detector: d,
		log:      logger.With().Str("component", "emotion").Str("dictionary", abs).Logger(),
		done:     make(chan struct{}),
	}

	dw.wg.Add(1)
	go dw.watchLoop()

	return dw, nil
}

// OnReload registers a callback invoked after every reload attempt
func (dw *DictionaryWatcher) OnReload(fn func(error)) {
	dw.mu.Lock()
	dw.onReload = fn
	dw.mu.Unlock()
}

func (dw *DictionaryWatcher) watchLoop() {
	defer dw.wg.Done()
	for {
		select {
		case <-dw.done:
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != dw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				dw.reload()
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.log.Warn().Err(err).Msg("Dictionary watcher error")
		}
	}
}

func (dw *DictionaryWatcher) reload() {
	dict, err := LoadDictionary(dw.path)
	if err == nil {
		err = dw.detector.SetDictionary(dict)
	}
	if err != nil {
		dw.log.Warn().Err(err).Msg("Dictionary reload failed, keeping previous")
	}
	dw.mu.Lock()
	fn := dw.onReload
	dw.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Close stops the watcher and waits for its goroutine
func (dw *DictionaryWatcher) Close() error {
	var err error
	dw.once.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
		dw.wg.Wait()
	})
	return err
}
