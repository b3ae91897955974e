package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

// DirSource lists videos directly inside a local folder. Subdirectories and
// dot-files are ignored.
type DirSource struct {
	dir        string
	extensions extensionSet
}

// NewDirSource creates the folder if it does not exist yet.
func NewDirSource(dir string, extensions []string) (*DirSource, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("video folder is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create video folder %s: %w", dir, err)
	}
	return &DirSource{dir: dir, extensions: newExtensionSet(extensions)}, nil
}

// Dir returns the watched folder.
func (s *DirSource) Dir() string { return s.dir }

// List returns matching files sorted by name.
func (s *DirSource) List(ctx context.Context) ([]models.CandidateItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list video folder %s: %w", s.dir, err)
	}

	var items []models.CandidateItem
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !s.extensions.allows(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		items = append(items, models.CandidateItem{
			ID:   name,
			Path: filepath.Join(s.dir, name),
			Size: info.Size(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	for i := range items {
		items[i].Order = i
	}
	return items, nil
}

func (s *DirSource) Open(ctx context.Context, item models.CandidateItem) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(item.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", item.Path, err)
	}
	return f, nil
}
