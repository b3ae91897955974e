package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/dailyuploadflow/internal/gcp"
	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"google.golang.org/api/iterator"
)

// BucketSource lists videos stored directly under a prefix of a Cloud
// Storage bucket. Objects in deeper "folders" are ignored.
type BucketSource struct {
	client     *storage.Client
	bucket     string
	prefix     string
	extensions extensionSet
}

// NewBucketSource returns a source over gs://bucket/prefix.
func NewBucketSource(client *storage.Client, bucket, prefix string, extensions []string) (*BucketSource, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &BucketSource{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		extensions: newExtensionSet(extensions),
	}, nil
}

// List returns matching objects sorted by base name.
func (s *BucketSource) List(ctx context.Context) ([]models.CandidateItem, error) {
	query := &storage.Query{Prefix: s.prefix, Delimiter: "/"}
	if err := query.SetAttrSelection([]string{"Name", "Size"}); err != nil {
		return nil, fmt.Errorf("failed to build object query: %w", err)
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var items []models.CandidateItem
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in gs://%s/%s: %w", s.bucket, s.prefix, err)
		}
		// Synthetic prefix entries carry no Name.
		if attrs.Name == "" {
			continue
		}
		id := strings.TrimPrefix(attrs.Name, s.prefix)
		if id == "" || strings.Contains(id, "/") || strings.HasPrefix(id, ".") || !s.extensions.allows(id) {
			continue
		}
		items = append(items, models.CandidateItem{
			ID:   path.Base(id),
			Path: fmt.Sprintf("gs://%s/%s", s.bucket, attrs.Name),
			Size: attrs.Size,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	for i := range items {
		items[i].Order = i
	}
	return items, nil
}

// Open streams the object named by item.Path.
func (s *BucketSource) Open(ctx context.Context, item models.CandidateItem) (io.ReadCloser, error) {
	bucket, object, err := gcp.ParseGCSURI(item.Path)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", item.Path, err)
	}
	return r, nil
}
