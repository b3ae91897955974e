package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

// DefaultFileName is the ledger file kept inside the video folder.
const DefaultFileName = ".uploaded.json"

// fileDocument is the on-disk layout. Uploaded and LastUpdated are the
// historical format; Entries adds per-item commit details.
type fileDocument struct {
	Uploaded    []string             `json:"uploaded"`
	LastUpdated string               `json:"last_updated"`
	Entries     map[string]fileEntry `json:"entries,omitempty"`
}

type fileEntry struct {
	CommittedAt string `json:"committed_at"`
	PublishedID string `json:"published_id,omitempty"`
}

// FileLedger stores the ledger as a single JSON file that is rewritten in
// full and atomically on every commit.
type FileLedger struct {
	path string
	log  *slog.Logger
	now  func() time.Time

	mu sync.Mutex // serialises read-modify-write within this process

	// rename is os.Rename; tests replace it to simulate a crash before the
	// new file is swapped in.
	rename func(oldpath, newpath string) error
}

// NewFileLedger returns a ledger backed by path. The file is created on the
// first commit.
func NewFileLedger(path string, log *slog.Logger) (*FileLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileLedger{
		path:   path,
		log:    log.With("ledger", path),
		now:    time.Now,
		rename: os.Rename,
	}, nil
}

// Path returns the ledger file location.
func (l *FileLedger) Path() string { return l.path }

func (l *FileLedger) Contains(ctx context.Context, id string) (bool, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return false, err
	}
	_, ok := entries[id]
	return ok, nil
}

func (l *FileLedger) Count(ctx context.Context) (int, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// All reads the ledger from disk. A missing file is an empty ledger; an
// unreadable or corrupt file is logged and also treated as empty.
func (l *FileLedger) All(ctx context.Context) (map[string]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := l.load()
	if err != nil {
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			l.log.Warn("Ledger store is corrupt, starting from an empty ledger.", "error", err)
			return map[string]models.LedgerEntry{}, nil
		}
		return nil, err
	}
	return doc.toEntries(), nil
}

// Commit adds entry and persists the whole ledger before returning.
// Committing an ID that is already present keeps its first CommittedAt.
func (l *FileLedger) Commit(ctx context.Context, entry models.LedgerEntry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("ledger entry ID is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.CommittedAt.IsZero() {
		entry.CommittedAt = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.All(ctx)
	if err != nil {
		return err
	}
	if existing, ok := entries[entry.ID]; ok {
		entry.CommittedAt = existing.CommittedAt
		if entry.PublishedID == "" {
			entry.PublishedID = existing.PublishedID
		}
	}
	entries[entry.ID] = entry

	data, err := json.MarshalIndent(newFileDocument(entries, l.now()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	data = append(data, '\n')
	if err := l.writeAtomic(data); err != nil {
		return fmt.Errorf("failed to persist ledger %s: %w", l.path, err)
	}
	l.log.Info("Marked item as processed.", "item", entry.ID, "publishedId", entry.PublishedID)
	return nil
}

func (l *FileLedger) load() (*fileDocument, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fileDocument{}, nil
		}
		return nil, &CorruptError{Path: l.path, Err: err}
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Path: l.path, Err: err}
	}
	return &doc, nil
}

// writeAtomic writes data to a temp file in the ledger's directory, syncs
// it, renames it over the ledger and syncs the directory. After a crash the
// ledger is either the old file or the new one.
func (l *FileLedger) writeAtomic(data []byte) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := l.rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer d.Close()
	// Some filesystems do not support fsync on directories.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) && !errors.Is(err, syscall.EINVAL) {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}

func newFileDocument(entries map[string]models.LedgerEntry, now time.Time) fileDocument {
	doc := fileDocument{
		Uploaded:    make([]string, 0, len(entries)),
		LastUpdated: now.Format(time.RFC3339),
		Entries:     make(map[string]fileEntry, len(entries)),
	}
	for id, e := range entries {
		doc.Uploaded = append(doc.Uploaded, id)
		fe := fileEntry{PublishedID: e.PublishedID}
		if !e.CommittedAt.IsZero() {
			fe.CommittedAt = e.CommittedAt.Format(time.RFC3339Nano)
		}
		doc.Entries[id] = fe
	}
	sort.Strings(doc.Uploaded)
	return doc
}

func (d *fileDocument) toEntries() map[string]models.LedgerEntry {
	out := make(map[string]models.LedgerEntry, len(d.Uploaded)+len(d.Entries))
	// Files written by older versions only carry the last_updated stamp.
	fallback, _ := time.Parse(time.RFC3339Nano, d.LastUpdated)
	for _, id := range d.Uploaded {
		if id == "" {
			continue
		}
		out[id] = models.LedgerEntry{ID: id, CommittedAt: fallback}
	}
	for id, fe := range d.Entries {
		if id == "" {
			continue
		}
		e := models.LedgerEntry{ID: id, CommittedAt: fallback, PublishedID: fe.PublishedID}
		if ts, err := time.Parse(time.RFC3339Nano, fe.CommittedAt); err == nil {
			e.CommittedAt = ts
		}
		out[id] = e
	}
	return out
}
