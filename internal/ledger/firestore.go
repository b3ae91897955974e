package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the Firestore collection used when none is configured.
const DefaultCollection = "uploadedVideos"

// FirestoreLedger keeps one document per processed item, keyed by item ID.
// Commit creates the document once; repeating it keeps the first entry,
// like FileLedger.
type FirestoreLedger struct {
	client     *firestore.Client
	collection string
	log        *slog.Logger
	now        func() time.Time
}

// NewFirestoreLedger returns a ledger stored in the given collection.
func NewFirestoreLedger(client *firestore.Client, collection string, log *slog.Logger) (*FirestoreLedger, error) {
	if client == nil {
		return nil, errors.New("firestore client is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = slog.Default()
	}
	return &FirestoreLedger{
		client:     client,
		collection: collection,
		log:        log.With("collection", collection),
		now:        time.Now,
	}, nil
}

func (l *FirestoreLedger) doc(id string) (*firestore.DocumentRef, error) {
	// Document IDs cannot contain '/' and cannot be "." or "..".
	if id == "" || id == "." || id == ".." || strings.Contains(id, "/") {
		return nil, fmt.Errorf("item ID %q cannot be used as a Firestore document ID", id)
	}
	return l.client.Collection(l.collection).Doc(id), nil
}

func (l *FirestoreLedger) Contains(ctx context.Context, id string) (bool, error) {
	ref, err := l.doc(id)
	if err != nil {
		return false, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to read ledger document %s: %w", id, err)
	}
	return snap.Exists(), nil
}

func (l *FirestoreLedger) Commit(ctx context.Context, entry models.LedgerEntry) error {
	ref, err := l.doc(entry.ID)
	if err != nil {
		return err
	}
	if entry.CommittedAt.IsZero() {
		entry.CommittedAt = l.now()
	}
	if _, err := ref.Create(ctx, entry); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			l.log.Info("Item already marked as processed.", "item", entry.ID)
			return nil
		}
		return fmt.Errorf("failed to write ledger document %s: %w", entry.ID, err)
	}
	l.log.Info("Marked item as processed.", "item", entry.ID, "publishedId", entry.PublishedID)
	return nil
}

func (l *FirestoreLedger) Count(ctx context.Context) (int, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (l *FirestoreLedger) All(ctx context.Context) (map[string]models.LedgerEntry, error) {
	docs, err := l.client.Collection(l.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger documents: %w", err)
	}
	out := make(map[string]models.LedgerEntry, len(docs))
	for _, snap := range docs {
		var entry models.LedgerEntry
		if err := snap.DataTo(&entry); err != nil {
			l.log.Warn("Skipping unreadable ledger document.", "docId", snap.Ref.ID, "error", err)
			entry = models.LedgerEntry{}
		}
		// The document ID is authoritative.
		entry.ID = snap.Ref.ID
		out[entry.ID] = entry
	}
	return out, nil
}
