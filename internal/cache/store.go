package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/jbandes/spacepod-go/internal/entry"
)

// Store filenames that are not cache entries.
const (
	lockFilename  = ".lock"
	stateFilename = "state.json"
)

// CoordinationError is returned when the cross-process file lock on the
// store directory cannot be acquired or released.
type CoordinationError struct {
	Path string
	Err  error
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("file coordination failed for %s: %v", e.Path, e.Err)
}

func (e *CoordinationError) Unwrap() error { return e.Err }

// storeState is the shared persisted state sitting next to the entries,
// coordinating poll frequency across the processes using the store.
type storeState struct {
	LastChecked time.Time `json:"last_checked"`
}

// Store is the on-disk cache: one directory holding a {date}.json metadata
// file and a bare {date} image file per entry, shared between the app and
// widget processes.
//
// Every read or write of the directory happens inside an advisory file-lock
// scope on a lock file at the directory root. Reads take the lock shared,
// writes exclusive, so a reader in either process never observes a
// half-written pair of files.
type Store struct {
	dir       string
	retention time.Duration
	logger    zerolog.Logger

	now func() time.Time
}

// NewStore creates a store rooted at dir, pruning entries older than
// retentionDays.
func NewStore(dir string, retentionDays int, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:       dir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// withLock runs fn while holding the store's advisory lock.
func (s *Store) withLock(exclusive bool, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	fl := flock.New(filepath.Join(s.dir, lockFilename))
	var err error
	if exclusive {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if err != nil {
		return &CoordinationError{Path: s.dir, Err: err}
	}
	defer fl.Unlock()
	return fn()
}

// Load scans the store into a fresh Index. Corrupt metadata files are
// skipped, entries past the retention window are deleted, and entries whose
// image file is missing are excluded without being deleted: a writer in the
// other process may be mid-write, and its metadata will pair up on the next
// scan.
func (s *Store) Load() (*Index, error) {
	var kept []entry.Entry
	var stale []entry.Entry

	cutoff := s.now().Add(-s.retention)

	err := s.withLock(false, func() error {
		files, err := os.ReadDir(s.dir)
		if err != nil {
			return err
		}

		present := make(map[string]bool, len(files))
		for _, f := range files {
			present[f.Name()] = true
		}

		for _, f := range files {
			name := f.Name()
			if filepath.Ext(name) != entry.MetadataExt || name == stateFilename {
				continue
			}
			data, err := os.ReadFile(filepath.Join(s.dir, name))
			if err != nil {
				s.logger.Warn().Err(err).Str("file", name).Msg("unreadable cache entry")
				continue
			}
			e, err := entry.DecodeMetadata(data)
			if err != nil {
				s.logger.Warn().Err(err).Str("file", name).Msg("invalid cache entry")
				continue
			}
			if e.Date.Time().Before(cutoff) {
				stale = append(stale, e)
				continue
			}
			if !present[e.ImageFilename] {
				s.logger.Debug().Str("date", e.Date.String()).Msg("metadata without image, skipping")
				continue
			}
			kept = append(kept, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, e := range stale {
		s.logger.Debug().Str("date", e.Date.String()).Msg("pruning expired entry")
		s.Remove(e)
	}

	idx := NewIndex()
	for _, e := range kept {
		idx.Insert(e)
	}
	return idx, nil
}

// Write persists an entry: the image file is moved into place first, then
// the metadata file is written atomically, all under one exclusive lock
// scope, and the shared last-checked timestamp is stamped. An image file
// already present for the same date means the other process got there
// first; that counts as success.
func (s *Store) Write(e entry.Entry, metadata []byte, imageSrc string) error {
	return s.withLock(true, func() error {
		imageDest := filepath.Join(s.dir, e.ImageFilename)
		if err := s.placeImage(imageSrc, imageDest); err != nil {
			return err
		}

		dataDest := filepath.Join(s.dir, e.DataFilename)
		tmpPath := dataDest + ".tmp"
		if err := os.WriteFile(tmpPath, metadata, 0o644); err != nil {
			return err
		}
		if err := os.Rename(tmpPath, dataDest); err != nil {
			os.Remove(tmpPath)
			return err
		}

		s.writeStateLocked(storeState{LastChecked: s.now()})
		return nil
	})
}

// placeImage moves src to dest, tolerating an already-populated destination
// and temp directories on a different filesystem.
func (s *Store) placeImage(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if _, statErr := os.Stat(dest); statErr == nil {
		s.logger.Debug().Str("file", dest).Msg("image already cached, continuing")
		os.Remove(src)
		return nil
	}
	// Rename across filesystems fails; copy via a temp name in the store
	// directory, then rename into place.
	tmpPath := dest + ".tmp"
	if err := copyFile(src, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	os.Remove(src)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Remove deletes an entry's metadata and image files. Pruning is
// best-effort: failures are logged, never fatal.
func (s *Store) Remove(e entry.Entry) {
	err := s.withLock(true, func() error {
		for _, name := range []string{e.DataFilename, e.ImageFilename} {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
				s.logger.Warn().Err(err).Str("file", name).Msg("failed to remove cache file")
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("date", e.Date.String()).Msg("failed to remove cache entry")
	}
}

// Clear deletes the entire store directory. Debug use only.
func (s *Store) Clear() error {
	return s.withLock(true, func() error {
		files, err := os.ReadDir(s.dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.Name() == lockFilename {
				continue
			}
			if err := os.RemoveAll(filepath.Join(s.dir, f.Name())); err != nil {
				return err
			}
		}
		return nil
	})
}

// LastChecked returns the shared timestamp of the last successful upstream
// check, and whether one has been recorded.
func (s *Store) LastChecked() (time.Time, bool, error) {
	var state storeState
	var found bool
	err := s.withLock(false, func() error {
		data, err := os.ReadFile(filepath.Join(s.dir, stateFilename))
		if err != nil {
			return nil
		}
		if err := json.Unmarshal(data, &state); err != nil {
			s.logger.Warn().Err(err).Msg("invalid store state file")
			return nil
		}
		found = !state.LastChecked.IsZero()
		return nil
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return state.LastChecked, found, nil
}

// writeStateLocked persists the shared state. Callers must hold the
// exclusive lock.
func (s *Store) writeStateLocked(state storeState) {
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode store state")
		return
	}
	path := filepath.Join(s.dir, stateFilename)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write store state")
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		s.logger.Warn().Err(err).Msg("failed to write store state")
	}
}

// entryFiles reports whether both files of an entry named by key are
// present on disk.
func (s *Store) entryFiles(key string) (metadata, image bool) {
	_, err := os.Stat(filepath.Join(s.dir, key+entry.MetadataExt))
	metadata = err == nil
	_, err = os.Stat(filepath.Join(s.dir, key))
	image = err == nil
	return metadata, image
}
