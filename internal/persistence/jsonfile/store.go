// Package jsonfile persists the journal document as a single JSON file.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"example.com/fitjournal/internal/domain"
	"example.com/fitjournal/internal/observability"
)

const defaultFileMode os.FileMode = 0o644

// Operation names used in errors and metrics.
const (
	OpLoad      = "load"
	OpSave      = "save"
	OpUpdate    = "update"
	OpCreate    = "create"
	OpIncrement = "increment_participants"
)

// Store owns the document file. Reads are lock-free; every write path holds mu for its whole
// load-modify-save sequence so concurrent updates are linearised.
type Store struct {
	path      string
	mu        sync.Mutex
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// NewStore constructs a Store for the document at path.
func NewStore(path string) *Store {
	return &Store{path: path, writeFile: WriteFileAtomic}
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the whole document.
func (s *Store) Load(ctx context.Context) (db domain.Database, err error) {
	defer track(OpLoad, &err)()
	if err := ctx.Err(); err != nil {
		return domain.Database{}, err
	}
	return s.load()
}

// Save replaces the whole document.
func (s *Store) Save(ctx context.Context, db domain.Database) (err error) {
	defer track(OpSave, &err)()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(OpSave, db)
}

// Update applies fn to the current document and saves the result. Nothing is written when fn
// or the load fails.
func (s *Store) Update(ctx context.Context, fn func(*domain.Database) error) (db domain.Database, err error) {
	defer track(OpUpdate, &err)()
	if err := ctx.Err(); err != nil {
		return domain.Database{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(OpUpdate, fn)
}

// IncrementParticipants adds one participant and returns the committed count.
func (s *Store) IncrementParticipants(ctx context.Context) (participants int, err error) {
	defer track(OpIncrement, &err)()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.update(OpIncrement, func(db *domain.Database) error {
		db.Challenge.Participants++
		return nil
	})
	if err != nil {
		return 0, err
	}
	observability.RecordParticipants(db.Challenge.Participants)
	return db.Challenge.Participants, nil
}

// Create writes db only when no document exists yet.
func (s *Store) Create(ctx context.Context, db domain.Database) (err error) {
	defer track(OpCreate, &err)()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Lstat(s.path); err == nil {
		return s.fail(OpCreate, domain.ErrDocumentExists, nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return s.fail(OpCreate, domain.ErrStorageIO, err)
	}
	return s.save(OpCreate, db)
}

func (s *Store) update(op string, fn func(*domain.Database) error) (domain.Database, error) {
	db, err := s.load()
	if err != nil {
		return domain.Database{}, err
	}
	if err := fn(&db); err != nil {
		return domain.Database{}, err
	}
	if err := s.save(op, db); err != nil {
		return domain.Database{}, err
	}
	return db, nil
}

func (s *Store) load() (domain.Database, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Database{}, s.fail(OpLoad, domain.ErrDocumentNotFound, nil)
		}
		return domain.Database{}, s.fail(OpLoad, domain.ErrStorageIO, err)
	}

	db, err := Decode(data)
	if err != nil {
		return domain.Database{}, s.fail(OpLoad, domain.ErrCorruptState, err)
	}
	return db, nil
}

// save must be called with mu held.
func (s *Store) save(op string, db domain.Database) error {
	db.Normalize()
	if err := db.Validate(); err != nil {
		return s.fail(op, domain.ErrCorruptState, err)
	}

	data, err := Encode(db)
	if err != nil {
		return s.fail(op, domain.ErrCorruptState, err)
	}

	perm := defaultFileMode
	if info, err := os.Stat(s.path); err == nil && info.Mode().IsRegular() {
		perm = info.Mode().Perm()
	}

	if err := s.writeFile(s.path, data, perm); err != nil {
		return s.fail(op, domain.ErrStorageIO, err)
	}
	return nil
}

func (s *Store) fail(op string, kind, cause error) error {
	return &domain.StoreError{Op: op, Path: s.path, Kind: kind, Err: cause}
}

// Decode parses a serialised document and checks its invariants.
func Decode(data []byte) (domain.Database, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Database{}, errors.New("document is not a JSON object")
	}

	var db domain.Database
	if err := json.Unmarshal(trimmed, &db); err != nil {
		return domain.Database{}, err
	}
	db.Normalize()
	if err := db.Validate(); err != nil {
		return domain.Database{}, err
	}
	return db, nil
}

// Encode serialises the document with two-space indentation and without HTML escaping.
func Encode(db domain.Database) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// track records the operation's outcome once the deferred call runs.
func track(op string, errp *error) func() {
	started := time.Now()
	return func() {
		observability.RecordStoreOp(op, started, *errp)
	}
}
