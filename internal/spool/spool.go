// Package spool keeps recordings whose upload failed on local disk so they
// survive a restart and can be retried later. Each entry is one
// msgpack-encoded, zstd-compressed file.
package spool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jengzang/uav-ground-control/internal/spatial"
)

const fileSuffix = ".msgpack.zst"

// ErrNotFound is returned for an unknown entry id
var ErrNotFound = errors.New("spool entry not found")

// Entry is an unsaved trajectory
type Entry struct {
	ID         string             `msgpack:"id"`
	Name       string             `msgpack:"name"`
	Points     []spatial.Waypoint `msgpack:"points"`
	Duration   int64              `msgpack:"duration"`
	Distance   float64            `msgpack:"distance"`
	RecordedAt time.Time          `msgpack:"recorded_at"`
	LastError  string             `msgpack:"last_error"`
	Attempts   int                `msgpack:"attempts"`
}

// Spool is a directory of entries
type Spool struct {
	dir string
	mu  sync.Mutex
}

// Open creates dir if needed and returns a spool rooted there
func Open(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Dir returns the spool directory
func (s *Spool) Dir() string { return s.dir }

// Put writes e, assigning an id when it has none. The file is replaced
// atomically.
func (s *Spool) Put(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if !validID(e.ID) {
		return fmt.Errorf("invalid spool id %q", e.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create spool file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, e); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close spool file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(e.ID)); err != nil {
		return fmt.Errorf("failed to commit spool file: %w", err)
	}
	return nil
}

// Get reads one entry
func (s *Spool) Get(id string) (*Entry, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.path(id))
}

// List returns every entry, oldest recording first. Unreadable files are
// skipped and reported in the returned error alongside the good entries.
func (s *Spool) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}

	var (
		entries []Entry
		errs    []error
	)
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileSuffix) {
			continue
		}
		e, err := s.read(filepath.Join(s.dir, de.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
	return entries, errors.Join(errs...)
}

// Remove deletes an entry
func (s *Spool) Remove(id string) error {
	if !validID(id) {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *Spool) path(id string) string {
	return filepath.Join(s.dir, id+fileSuffix)
}

func (s *Spool) read(path string) (*Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	e, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return e, nil
}

func encode(w io.Writer, e *Entry) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(e); err != nil {
		return fmt.Errorf("failed to encode spool entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

func decode(r io.Reader) (*Entry, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var e Entry
	if err := msgpack.NewDecoder(zr).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode spool entry: %w", err)
	}
	return &e, nil
}

// validID keeps ids to a single path element
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
