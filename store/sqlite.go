package store

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/jsphweid/pitchtrack/song"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps song documents as YAML in a single sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create table")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(id string) (*song.Song, error) {
	var doc string
	err := s.db.QueryRow("SELECT doc FROM songs WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "song %v", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load song %v", id)
	}
	return song.Decode(bytes.NewReader([]byte(doc)))
}

func (s *SQLiteStore) Save(sng *song.Song) error {
	if err := checkID(sng.ID); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := sng.EncodeYAML(&buf); err != nil {
		return err
	}
	_, err := s.db.Exec(`
	INSERT INTO songs (id, doc, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		sng.ID, buf.String(), time.Now().Unix())
	return errors.Wrapf(err, "failed to save song %v", sng.ID)
}

func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM songs ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list songs")
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
