package store

import (
	"regexp"
	"sort"
	"sync"

	"github.com/jsphweid/pitchtrack/song"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("song not found")

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func checkID(id string) error {
	if !validID.MatchString(id) {
		return errors.Errorf("invalid song id %q", id)
	}
	return nil
}

// Store persists song documents by id.
type Store interface {
	Load(id string) (*song.Song, error)
	Save(s *song.Song) error
	List() ([]string, error)
	Close() error
}

// Library keeps one live *song.Song per id so concurrent edits to the same
// song share its lock.
type Library struct {
	store Store

	mu    sync.Mutex
	songs map[string]*song.Song
}

func NewLibrary(s Store) *Library {
	return &Library{store: s, songs: make(map[string]*song.Song)}
}

func (l *Library) Get(id string) (*song.Song, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.songs[id]; ok {
		return s, nil
	}
	s, err := l.store.Load(id)
	if err != nil {
		return nil, err
	}
	l.songs[id] = s
	return s, nil
}

// List returns the ids of every stored song, sorted.
func (l *Library) List() ([]string, error) {
	ids, err := l.store.List()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *Library) Save(s *song.Song) error {
	return l.store.Save(s)
}

func (l *Library) Close() error {
	return l.store.Close()
}
