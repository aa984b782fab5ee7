package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"postforge/internal/services"
)

const maxCollisionSuffix = 1000

// Filesystem archives snapshots as JSON files.
type Filesystem struct {
	root   string
	prefix string
	now    func() time.Time
}

// NewFilesystem archives under dir/prefix.
func NewFilesystem(dir, prefix string) (*Filesystem, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("archive: directory required")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	root := dir
	if prefix != "" {
		root = filepath.Join(dir, filepath.FromSlash(prefix))
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create %s: %w", root, err)
	}
	return &Filesystem{root: root, prefix: prefix, now: time.Now}, nil
}

// Root returns the directory holding per-document folders.
func (f *Filesystem) Root() string {
	return f.root
}

// Store writes snap to a new file. Files are created exclusively; a name
// collision picks the next free -N suffix.
func (f *Filesystem) Store(ctx context.Context, snap Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "", err)
	}
	docDir, err := f.documentDir(snap.DocumentID)
	if err != nil {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "", err)
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = f.now()
	}
	snap.CapturedAt = snap.CapturedAt.UTC()
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "encode", err)
	}
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "create document directory", err)
	}

	base := fmt.Sprintf("%s-%d", Token(snap.Stage), snap.CapturedAt.UnixMilli())
	for attempt := 0; attempt < maxCollisionSuffix; attempt++ {
		name := base + ".json"
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d.json", base, attempt)
		}
		path := filepath.Join(docDir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "create file", err)
		}
		if _, err := file.Write(body); err != nil {
			file.Close()
			return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "write file", err)
		}
		if err := file.Close(); err != nil {
			return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "close file", err)
		}
		return f.location(snap.DocumentID, name), nil
	}
	return "", services.Wrap(services.ErrArchive, snap.Stage, "store snapshot", "no free file name for "+base, nil)
}

// List returns the snapshots of documentID ordered by capture time.
func (f *Filesystem) List(ctx context.Context, documentID string) ([]Entry, error) {
	docDir, err := f.documentDir(documentID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(docDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	var out []Entry
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		snap, err := readSnapshot(filepath.Join(docDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Location:   f.location(documentID, entry.Name()),
			DocumentID: snap.DocumentID,
			Stage:      snap.Stage,
			CapturedAt: snap.CapturedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].Location < out[j].Location
		}
		return out[i].CapturedAt.Before(out[j].CapturedAt)
	})
	return out, nil
}

// Read loads the snapshot at a location returned by Store.
func (f *Filesystem) Read(location string) (Snapshot, error) {
	rel := strings.TrimPrefix(location, f.prefix+"/")
	if f.prefix == "" {
		rel = location
	}
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(path, f.root+string(os.PathSeparator)) {
		return Snapshot{}, fmt.Errorf("archive: location %q outside archive", location)
	}
	return readSnapshot(path)
}

// HealthCheck confirms the archive root is a writable directory.
func (f *Filesystem) HealthCheck(context.Context) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("archive root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive root %s is not a directory", f.root)
	}
	probe, err := os.CreateTemp(f.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("archive root not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// Close is a no-op.
func (f *Filesystem) Close() error {
	return nil
}

func (f *Filesystem) documentDir(documentID string) (string, error) {
	id := strings.TrimSpace(documentID)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid document id %q", documentID)
	}
	return filepath.Join(f.root, id), nil
}

func (f *Filesystem) location(documentID, name string) string {
	parts := []string{strings.TrimSpace(documentID), name}
	if f.prefix != "" {
		parts = append([]string{f.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func readSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}
