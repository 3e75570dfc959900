package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/pkg/errors"
)

// FileStore keeps one YAML document per song in a directory. With a
// non-zero delay, bursts of saves for the same song collapse into one write.
type FileStore struct {
	dir   string
	delay time.Duration

	mu         sync.Mutex
	debouncers map[string]func(f func())
	pending    map[string]*song.Song
}

func NewFileStore(dir string, delay time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not create song dir")
	}
	return &FileStore{
		dir:        dir,
		delay:      delay,
		debouncers: make(map[string]func(f func())),
		pending:    make(map[string]*song.Song),
	}, nil
}

func (fs *FileStore) Path(id string) string {
	return filepath.Join(fs.dir, id+".yml")
}

func (fs *FileStore) Load(id string) (*song.Song, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if _, err := os.Stat(fs.Path(id)); os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "song %v", id)
	}
	s, err := song.ReadFile(fs.Path(id))
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = id
	}
	return s, nil
}

func (fs *FileStore) write(s *song.Song) error {
	// write then rename so readers never see half a document
	f, err := os.CreateTemp(fs.dir, s.ID+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temp song file")
	}
	tmp := f.Name()
	err = s.EncodeYAML(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "could not write song file")
	}
	if err := os.Rename(tmp, fs.Path(s.ID)); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "could not replace song file")
	}
	return nil
}

func (fs *FileStore) flush(id string) {
	fs.mu.Lock()
	s, ok := fs.pending[id]
	delete(fs.pending, id)
	fs.mu.Unlock()
	if !ok {
		return
	}
	if err := fs.write(s); err != nil {
		fmt.Printf("Could not save song %v: %v\n", id, err)
	}
}

func (fs *FileStore) Save(s *song.Song) error {
	if err := checkID(s.ID); err != nil {
		return err
	}
	if fs.delay == 0 {
		return fs.write(s)
	}

	fs.mu.Lock()
	fs.pending[s.ID] = s
	debounced, ok := fs.debouncers[s.ID]
	if !ok {
		debounced = debounce.New(fs.delay)
		fs.debouncers[s.ID] = debounced
	}
	fs.mu.Unlock()

	id := s.ID
	debounced(func() { fs.flush(id) })
	return nil
}

func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, errors.Wrap(err, "could not read song dir")
	}
	var res []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".yml") {
			res = append(res, strings.TrimSuffix(name, ".yml"))
		}
	}
	return res, nil
}

// Close writes out any saves still waiting on their debounce.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	pending := fs.pending
	fs.pending = make(map[string]*song.Song)
	fs.mu.Unlock()

	var firstErr error
	for _, s := range pending {
		if err := fs.write(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
