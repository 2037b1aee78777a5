package suggest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldmap/fieldmap/pkg/errors"
	"github.com/fieldmap/fieldmap/pkg/logging"
)

// FileStore persists suggestions in a single JSON file. Every operation is a
// fresh read-modify-write under a sidecar lock file, so reads are never
// cached across calls and concurrent writers from other processes serialize
// on the lock. Writes go to a temp file and rename into place: an add or
// delete either fully succeeds or leaves the store exactly as it was.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

const (
	lockRetryInterval = 25 * time.Millisecond
	lockStaleAfter    = 5 * time.Second
)

// NewFileStore creates a file-backed store at path. The parent directory is
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns all suggestions for a template/field pair, freshly read from
// disk. Entries fingerprinted against the given headers rank first.
func (fs *FileStore) Get(template, field string, headers []string) ([]Suggestion, error) {
	unlock, err := fs.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	all, err := fs.load()
	if err != nil {
		return nil, err
	}
	return filter(all, template, field, HeadersID(headers)), nil
}

// Add persists a suggestion unless an equal one already exists. When an
// equal entry exists and headers are supplied, its fingerprint is refreshed.
func (fs *FileStore) Add(s Suggestion, headers []string) error {
	unlock, err := fs.lock()
	if err != nil {
		return err
	}
	defer unlock()

	all, err := fs.load()
	if err != nil {
		return err
	}

	if s.HeaderID == "" {
		s.HeaderID = HeadersID(headers)
	}

	id := identityOf(s)
	for i, existing := range all {
		if identityOf(existing) != id {
			continue
		}
		if s.HeaderID != "" && existing.HeaderID != s.HeaderID {
			all[i].HeaderID = s.HeaderID
			return fs.save(all)
		}
		return nil
	}

	all = append(all, s)
	return fs.save(all)
}

// Update modifies the display text or columns of the suggestion matched by
// sel.
func (fs *FileStore) Update(template, field string, sel Selector, upd Update) (bool, error) {
	unlock, err := fs.lock()
	if err != nil {
		return false, err
	}
	defer unlock()

	all, err := fs.load()
	if err != nil {
		return false, err
	}

	for i := range all {
		if !matches(all[i], template, field, sel) {
			continue
		}
		if upd.Display != nil {
			all[i].Display = *upd.Display
		}
		if upd.Columns != nil {
			all[i].Columns = upd.Columns
		}
		return true, fs.save(all)
	}
	return false, nil
}

// Delete removes the single suggestion matched by sel.
func (fs *FileStore) Delete(template, field string, sel Selector) (bool, error) {
	unlock, err := fs.lock()
	if err != nil {
		return false, err
	}
	defer unlock()

	all, err := fs.load()
	if err != nil {
		return false, err
	}

	kept := all[:0:0]
	removed := false
	for _, s := range all {
		if !removed && matches(s, template, field, sel) {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if !removed {
		return false, nil
	}
	return true, fs.save(kept)
}

// Remove deletes all suggestions for a template/field pair of the given
// kind; an empty kind removes all kinds.
func (fs *FileStore) Remove(template, field string, kind Kind) error {
	unlock, err := fs.lock()
	if err != nil {
		return err
	}
	defer unlock()

	all, err := fs.load()
	if err != nil {
		return err
	}

	tc, fc := canon(template), canon(field)
	kept := all[:0:0]
	for _, s := range all {
		if canon(s.Template) == tc && canon(s.Field) == fc && (kind == "" || s.Kind == kind) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == len(all) {
		return nil
	}
	return fs.save(kept)
}

// load reads and dedupes the store file. A missing file is an empty store; a
// corrupt file is treated as empty rather than blocking every future write.
func (fs *FileStore) load() ([]Suggestion, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", fs.path, err)
	}

	var all []Suggestion
	if err := json.Unmarshal(data, &all); err != nil {
		logging.Warn().Str("path", fs.path).Err(err).Msg("Suggestion store corrupt, treating as empty")
		return nil, nil
	}

	deduped := dedupe(all)
	if len(deduped) != len(all) {
		// Compact the ledger in place.
		if err := fs.save(deduped); err != nil {
			return nil, err
		}
	}
	return deduped, nil
}

// save atomically replaces the store file.
func (fs *FileStore) save(all []Suggestion) error {
	if all == nil {
		all = []Suggestion{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return errors.WrapParse("json", fs.path, err)
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".suggestions-*.json")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapIO("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapIO("write", fs.path, err)
	}
	return nil
}

// lock acquires the sidecar lock file, taking over locks older than
// lockStaleAfter from crashed writers. It returns the release function.
func (fs *FileStore) lock() (func(), error) {
	lockPath := fs.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(lockPath), err)
	}

	deadline := time.Now().Add(lockStaleAfter + time.Second)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, errors.WrapIO("lock", lockPath, err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			logging.Warn().Str("path", lockPath).Msg("Removing stale suggestion store lock")
			os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, errors.NewIOError("lock", lockPath, errors.New("timed out waiting for suggestion store lock"))
		}
		time.Sleep(lockRetryInterval)
	}
}
