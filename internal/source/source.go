// Package source enumerates candidate videos in a watched location and
// picks the next one that has not been processed yet.
package source

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

// DefaultExtensions are the video types picked up when none are configured.
var DefaultExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv"}

// Lister enumerates candidates in a deterministic order and opens their
// content for upload. Each List call re-reads the location.
type Lister interface {
	List(ctx context.Context) ([]models.CandidateItem, error)
	Open(ctx context.Context, item models.CandidateItem) (io.ReadCloser, error)
}

// NextUnprocessed returns the first listed candidate for which processed
// reports false, or nil when every candidate has been processed.
func NextUnprocessed(ctx context.Context, lister Lister, processed func(id string) bool) (*models.CandidateItem, error) {
	next, _, err := Select(ctx, lister, processed)
	return next, err
}

// Pending counts the candidates that are not processed yet.
func Pending(ctx context.Context, lister Lister, processed func(id string) bool) (int, error) {
	_, pending, err := Select(ctx, lister, processed)
	return pending, err
}

// Select lists the source once and returns the next unprocessed candidate
// (nil when none is left) together with the number of unprocessed ones.
func Select(ctx context.Context, lister Lister, processed func(id string) bool) (*models.CandidateItem, int, error) {
	items, err := lister.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	var next *models.CandidateItem
	pending := 0
	for i := range items {
		if processed != nil && processed(items[i].ID) {
			continue
		}
		if next == nil {
			item := items[i]
			next = &item
		}
		pending++
	}
	return next, pending, nil
}

// extensionSet normalises an allow-list to lowercase entries with a
// leading dot.
type extensionSet map[string]bool

func newExtensionSet(exts []string) extensionSet {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(extensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

func (s extensionSet) allows(name string) bool {
	return s[strings.ToLower(path.Ext(name))]
}
