package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CandidateItem is one video discovered in the watched location.
// ID is the base name of the file or object and is what the ledger records.
type CandidateItem struct {
	ID    string `json:"id"`
	Path  string `json:"path"` // local path or gs:// URI
	Size  int64  `json:"size"`
	Order int    `json:"order"`
}

// ContentBundle is the generated metadata published alongside a video.
type ContentBundle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ContentLimits bounds the fields of a ContentBundle.
type ContentLimits struct {
	MaxTitle       int
	MaxDescription int
	MaxTags        int
}

// DefaultContentLimits mirrors YouTube's metadata limits.
var DefaultContentLimits = ContentLimits{
	MaxTitle:       100,
	MaxDescription: 5000,
	MaxTags:        10,
}

// Normalize trims the bundle to the given limits. Tags are deduplicated
// case-insensitively, keeping the first spelling seen.
func (b ContentBundle) Normalize(limits ContentLimits) ContentBundle {
	out := ContentBundle{
		Title:       truncateRunes(strings.TrimSpace(b.Title), limits.MaxTitle),
		Description: truncateRunes(strings.TrimSpace(b.Description), limits.MaxDescription),
	}
	seen := make(map[string]struct{}, len(b.Tags))
	for _, tag := range b.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if limits.MaxTags > 0 && len(out.Tags) >= limits.MaxTags {
			break
		}
		out.Tags = append(out.Tags, tag)
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// PublishRecord is what the publishing service reports for one upload.
type PublishRecord struct {
	PublishedID string `json:"publishedId"`
	URL         string `json:"url"`
	OK          bool   `json:"ok"`
}

// LedgerEntry records that an item was published.
type LedgerEntry struct {
	ID          string    `json:"id" firestore:"id"`
	CommittedAt time.Time `json:"committed_at" firestore:"committedAt"`
	PublishedID string    `json:"published_id,omitempty" firestore:"publishedId,omitempty"`
}
