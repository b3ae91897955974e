package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

// Publisher uploads a video with its metadata and reports where it landed.
type Publisher interface {
	Publish(ctx context.Context, item models.CandidateItem, bundle models.ContentBundle) (models.PublishRecord, error)
}

// OpenFunc opens the content of a candidate item for reading.
type OpenFunc func(ctx context.Context, item models.CandidateItem) (io.ReadCloser, error)

// UploaderConfig holds the YouTube publishing options.
type UploaderConfig struct {
	CategoryID    string
	PrivacyStatus string
	// ChunkSize is the resumable upload chunk size in bytes; 0 means
	// googleapi.DefaultUploadChunkSize. A file smaller than one chunk is
	// sent in a single request.
	ChunkSize int
	// Thumbnails attaches an image named like the video (.jpg, .jpeg, .png)
	// when one sits next to it.
	Thumbnails bool
}

var thumbnailExtensions = []string{".jpg", ".jpeg", ".png"}

// YouTubeUploader publishes videos through the YouTube Data API using
// resumable uploads.
type YouTubeUploader struct {
	svc    *youtube.Service
	open   OpenFunc
	config UploaderConfig
	log    *slog.Logger
}

// NewYouTubeUploader creates an uploader that reads video content with open.
func NewYouTubeUploader(svc *youtube.Service, open OpenFunc, config UploaderConfig, log *slog.Logger) (*YouTubeUploader, error) {
	if svc == nil {
		return nil, errors.New("youtube service is required")
	}
	if open == nil {
		return nil, errors.New("open function is required")
	}
	if config.CategoryID == "" {
		config.CategoryID = "22"
	}
	if config.PrivacyStatus == "" {
		config.PrivacyStatus = "public"
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = googleapi.DefaultUploadChunkSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &YouTubeUploader{svc: svc, open: open, config: config, log: log}, nil
}

func (u *YouTubeUploader) Publish(ctx context.Context, item models.CandidateItem, bundle models.ContentBundle) (models.PublishRecord, error) {
	logCtx := u.log.With("item", item.ID, "path", item.Path)
	logCtx.Info("Uploading video.", "size", item.Size, "privacy", u.config.PrivacyStatus)

	r, err := u.open(ctx, item)
	if err != nil {
		return models.PublishRecord{}, err
	}
	defer r.Close()

	call := u.svc.Videos.Insert([]string{"snippet", "status"}, buildVideo(bundle, u.config)).
		Media(r, googleapi.ChunkSize(u.config.ChunkSize)).
		ProgressUpdater(progressLogger(logCtx, item.Size)).
		Context(ctx)
	resp, err := call.Do()
	if err != nil {
		logCtx.Error("YouTube upload failed.", "error", err)
		return models.PublishRecord{}, fmt.Errorf("failed to upload %s: %w", item.ID, describeAPIError(err))
	}
	if resp == nil || resp.Id == "" {
		return models.PublishRecord{}, fmt.Errorf("upload of %s returned no video ID", item.ID)
	}

	record := models.PublishRecord{
		PublishedID: resp.Id,
		URL:         WatchURL(resp.Id),
		OK:          true,
	}
	logCtx.Info("Video uploaded successfully.", "videoId", record.PublishedID, "url", record.URL)

	if u.config.Thumbnails {
		u.attachThumbnail(ctx, logCtx, item, record.PublishedID)
	}
	return record, nil
}

// attachThumbnail is best effort: the video is already public, so a
// thumbnail failure must not fail the publish stage.
func (u *YouTubeUploader) attachThumbnail(ctx context.Context, logCtx *slog.Logger, item models.CandidateItem, videoID string) {
	thumb := findThumbnail(item.Path)
	if thumb == "" {
		return
	}
	f, err := os.Open(thumb)
	if err != nil {
		logCtx.Warn("Could not open thumbnail.", "thumbnail", thumb, "error", err)
		return
	}
	defer f.Close()
	if _, err := u.svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do(); err != nil {
		logCtx.Warn("Thumbnail upload failed.", "thumbnail", thumb, "error", describeAPIError(err))
		return
	}
	logCtx.Info("Thumbnail uploaded.", "thumbnail", thumb)
}

func buildVideo(bundle models.ContentBundle, config UploaderConfig) *youtube.Video {
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       bundle.Title,
			Description: bundle.Description,
			Tags:        bundle.Tags,
			CategoryId:  config.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: config.PrivacyStatus,
		},
	}
}

// findThumbnail looks for an image with the same stem next to a local video.
func findThumbnail(videoPath string) string {
	if videoPath == "" || strings.HasPrefix(videoPath, "gs://") {
		return ""
	}
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	for _, ext := range thumbnailExtensions {
		candidate := base + ext
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

// progressLogger logs upload progress in 10% steps.
func progressLogger(logCtx *slog.Logger, size int64) googleapi.ProgressUpdater {
	lastStep := int64(-1)
	return func(current, total int64) {
		if total <= 0 {
			total = size
		}
		if total <= 0 {
			return
		}
		step := current * 10 / total
		if step == lastStep {
			return
		}
		lastStep = step
		logCtx.Info("Upload progress.", "percent", current*100/total)
	}
}

// WatchURL returns the public URL of a YouTube video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func describeAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("youtube API error %d: %s: %w", gerr.Code, gerr.Message, err)
	}
	return err
}
