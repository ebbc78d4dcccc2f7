package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/LexxLuey/fascraft/internal/depgraph"
)

const (
	snapshotsDir = "snapshots"
	objectsDir   = "objects"
	indexFile    = "index.json"
)

// ErrNotFound is returned when no snapshot matches an id or tag.
var ErrNotFound = errors.New("snapshot not found")

// Store keeps snapshots on disk. Graph documents are stored once per
// content hash, so saving an unchanged graph costs only the metadata.
type Store struct {
	mu      sync.RWMutex
	rootDir string
	index   *SnapshotIndex
}

// NewStore creates or opens a snapshot store at the given directory.
func NewStore(rootDir string) (*Store, error) {
	s := &Store{rootDir: rootDir}

	for _, dir := range []string{
		filepath.Join(rootDir, snapshotsDir),
		filepath.Join(rootDir, objectsDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	if err := s.loadIndex(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read snapshot index: %w", err)
		}
		s.index = &SnapshotIndex{Snapshots: []SnapshotSummary{}, UpdatedAt: time.Now()}
	}
	return s, nil
}

// Save persists snap and its graph document. When snap has no parent, the
// latest snapshot of the same project becomes its parent.
func (s *Store) Save(snap *Snapshot) error {
	if snap.Document == nil {
		return fmt.Errorf("save snapshot %s: no graph document", snap.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Tag != "" {
		for _, summary := range s.index.Snapshots {
			if summary.Tag == snap.Tag {
				return fmt.Errorf("save snapshot: tag %q already used by %s", snap.Tag, summary.ID)
			}
		}
	}
	if snap.ParentID == "" {
		if latest, ok := s.latestLocked(snap.Project); ok {
			snap.ParentID = latest.ID
		}
	}

	content, err := json.Marshal(snap.Document)
	if err != nil {
		return fmt.Errorf("marshal graph document: %w", err)
	}
	if err := s.writeObject(snap.ContentHash, content); err != nil {
		return fmt.Errorf("store graph object: %w", err)
	}

	snapDir := filepath.Join(s.rootDir, snapshotsDir, snap.ID)
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	snapData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapDir, "snapshot.json"), snapData, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.index.Snapshots = append(s.index.Snapshots, snap.Summary())
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Load retrieves a snapshot by ID together with its graph document.
func (s *Store) Load(id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *Store) loadLocked(id string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.rootDir, snapshotsDir, id, "snapshot.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read snapshot %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}

	content, err := s.readObject(snap.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("read graph object of %s: %w", id, err)
	}
	doc, err := depgraph.ParseDocument(content)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	snap.Document = doc
	return &snap, nil
}

// List returns all snapshot summaries, newest first.
func (s *Store) List() []SnapshotSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]SnapshotSummary, len(s.index.Snapshots))
	copy(result, s.index.Snapshots)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// FindByTag returns the snapshot with the given tag.
func (s *Store) FindByTag(tag string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, summary := range s.index.Snapshots {
		if summary.Tag == tag {
			return s.loadLocked(summary.ID)
		}
	}
	return nil, fmt.Errorf("snapshot with tag %q: %w", tag, ErrNotFound)
}

// Resolve finds a snapshot by tag, by id, or "latest" for the most recent
// one of any project.
func (s *Store) Resolve(ref string) (*Snapshot, error) {
	if ref == "latest" {
		s.mu.RLock()
		defer s.mu.RUnlock()
		latest, ok := s.latestLocked("")
		if !ok {
			return nil, fmt.Errorf("latest snapshot: %w", ErrNotFound)
		}
		return s.loadLocked(latest.ID)
	}
	if snap, err := s.FindByTag(ref); err == nil {
		return snap, nil
	}
	return s.Load(ref)
}

// latestLocked returns the newest summary of project, or of any project
// when project is empty.
func (s *Store) latestLocked(project string) (SnapshotSummary, bool) {
	var latest SnapshotSummary
	found := false
	for _, summary := range s.index.Snapshots {
		if project != "" && summary.Project != project {
			continue
		}
		if !found || !summary.CreatedAt.Before(latest.CreatedAt) {
			latest = summary
			found = true
		}
	}
	return latest, found
}

// Delete removes a snapshot. Graph objects are kept because other
// snapshots may share them.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.rootDir, snapshotsDir, id)); err != nil {
		return fmt.Errorf("remove snapshot dir: %w", err)
	}

	filtered := s.index.Snapshots[:0]
	for _, summary := range s.index.Snapshots {
		if summary.ID != id {
			filtered = append(filtered, summary)
		}
	}
	s.index.Snapshots = filtered
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

func (s *Store) writeObject(hash string, content []byte) error {
	dir := filepath.Join(s.rootDir, objectsDir, hash[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	objPath := filepath.Join(dir, hash[2:])
	if _, err := os.Stat(objPath); err == nil {
		return nil // already stored
	}
	return os.WriteFile(objPath, content, 0o644)
}

func (s *Store) readObject(hash string) ([]byte, error) {
	if len(hash) < 3 {
		return nil, fmt.Errorf("invalid content hash %q", hash)
	}
	return os.ReadFile(filepath.Join(s.rootDir, objectsDir, hash[:2], hash[2:]))
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.rootDir, indexFile))
	if err != nil {
		return err
	}
	s.index = &SnapshotIndex{}
	return json.Unmarshal(data, s.index)
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.rootDir, indexFile), data, 0o644)
}
