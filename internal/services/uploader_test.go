package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func TestNewYouTubeUploader_Defaults(t *testing.T) {
	if _, err := NewYouTubeUploader(nil, nil, UploaderConfig{}, nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
	u, err := NewYouTubeUploader(&youtube.Service{}, func(ctx context.Context, item models.CandidateItem) (io.ReadCloser, error) {
		return nil, nil
	}, UploaderConfig{}, nil)
	if err != nil {
		t.Fatalf("NewYouTubeUploader: %v", err)
	}
	if u.config.CategoryID != "22" || u.config.PrivacyStatus != "public" || u.config.ChunkSize != googleapi.DefaultUploadChunkSize {
		t.Fatalf("unexpected defaults %+v", u.config)
	}
}

func TestBuildVideo(t *testing.T) {
	bundle := models.ContentBundle{Title: "T", Description: "D", Tags: []string{"a", "b"}}
	v := buildVideo(bundle, UploaderConfig{CategoryID: "27", PrivacyStatus: "unlisted"})
	if v.Snippet.Title != "T" || v.Snippet.Description != "D" || len(v.Snippet.Tags) != 2 {
		t.Fatalf("unexpected snippet %+v", v.Snippet)
	}
	if v.Snippet.CategoryId != "27" || v.Status.PrivacyStatus != "unlisted" {
		t.Fatalf("unexpected category/status %s/%s", v.Snippet.CategoryId, v.Status.PrivacyStatus)
	}
}

func TestFindThumbnail(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if got := findThumbnail(video); got != "" {
		t.Fatalf("expected no thumbnail, got %q", got)
	}
	png := filepath.Join(dir, "clip.png")
	if err := os.WriteFile(png, []byte("png"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := findThumbnail(video); got != png {
		t.Fatalf("expected %q, got %q", png, got)
	}
	jpg := filepath.Join(dir, "clip.jpg")
	if err := os.WriteFile(jpg, []byte("jpg"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if got := findThumbnail(video); got != jpg {
		t.Fatalf("expected .jpg to win, got %q", got)
	}
	if got := findThumbnail("gs://bucket/clip.mp4"); got != "" {
		t.Fatalf("expected no thumbnail lookup for bucket items, got %q", got)
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("abc123"); got != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected URL %q", got)
	}
}

func TestDescribeAPIError(t *testing.T) {
	err := describeAPIError(&googleapi.Error{Code: 403, Message: "quotaExceeded"})
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != 403 {
		t.Fatalf("expected wrapped googleapi.Error, got %v", err)
	}
	plain := errors.New("boom")
	if describeAPIError(plain) != plain {
		t.Fatalf("expected non-API errors to pass through")
	}
}

func TestProgressLogger_UsesItemSizeWhenTotalUnknown(t *testing.T) {
	update := progressLogger(quietLogger(), 100)
	// Must not divide by zero or panic for any combination.
	update(0, 0)
	update(50, 0)
	update(100, 100)
	progressLogger(quietLogger(), 0)(10, 0)
}

// fakeYouTube serves the two upload endpoints the uploader calls.
type fakeYouTube struct {
	mu    sync.Mutex
	paths []string
	fail  bool
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case f.fail:
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
	case strings.HasSuffix(r.URL.Path, "/videos"):
		_, _ = io.WriteString(w, `{"id":"vid123","kind":"youtube#video"}`)
	case strings.HasSuffix(r.URL.Path, "/thumbnails/set"):
		_, _ = io.WriteString(w, `{"items":[]}`)
	default:
		http.NotFound(w, r)
	}
}

func newFakeUploader(t *testing.T, fake *fakeYouTube, thumbnails bool) *YouTubeUploader {
	t.Helper()
	return newFakeUploaderWith(t, fake, UploaderConfig{Thumbnails: thumbnails}, quietLogger())
}

func newFakeUploaderWith(t *testing.T, fake http.Handler, config UploaderConfig, log *slog.Logger) *YouTubeUploader {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := youtube.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("youtube.NewService: %v", err)
	}
	open := func(ctx context.Context, item models.CandidateItem) (io.ReadCloser, error) {
		return os.Open(item.Path)
	}
	u, err := NewYouTubeUploader(svc, open, config, log)
	if err != nil {
		t.Fatalf("NewYouTubeUploader: %v", err)
	}
	return u
}

func TestYouTubeUploader_Publish(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "clip.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeYouTube{}
	u := newFakeUploader(t, fake, true)

	rec, err := u.Publish(context.Background(), models.CandidateItem{ID: "clip.mp4", Path: video, Size: 6}, models.ContentBundle{Title: "Clip"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !rec.OK || rec.PublishedID != "vid123" || rec.URL != WatchURL("vid123") {
		t.Fatalf("unexpected record %+v", rec)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.paths) != 2 || !strings.HasSuffix(fake.paths[1], "/thumbnails/set") {
		t.Fatalf("expected upload then thumbnail, got %v", fake.paths)
	}
}

func TestYouTubeUploader_PublishAPIError(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	u := newFakeUploader(t, &fakeYouTube{fail: true}, false)

	_, err := u.Publish(context.Background(), models.CandidateItem{ID: "clip.mp4", Path: video}, models.ContentBundle{Title: "Clip"})
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusForbidden {
		t.Fatalf("expected wrapped 403 googleapi.Error, got %v", err)
	}
}

func TestYouTubeUploader_PublishOpenError(t *testing.T) {
	u := newFakeUploader(t, &fakeYouTube{}, false)
	_, err := u.Publish(context.Background(), models.CandidateItem{ID: "gone.mp4", Path: filepath.Join(t.TempDir(), "gone.mp4")}, models.ContentBundle{Title: "Gone"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

// resumableYouTube implements the resumable upload session protocol: a
// POST opens the session, then PUTs carry the chunks.
type resumableYouTube struct {
	mu          sync.Mutex
	uploadTypes []string
	chunks      int
	received    int
}

func (f *resumableYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := io.Copy(io.Discard, r.Body)
	switch r.Method {
	case http.MethodPost:
		f.uploadTypes = append(f.uploadTypes, r.URL.Query().Get("uploadType"))
		w.Header().Set("Location", "http://"+r.Host+"/upload/session/1")
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		f.chunks++
		f.received += int(n)
		// "bytes 0-262143/*" while more chunks follow, "bytes a-b/total" for the last.
		if strings.HasSuffix(r.Header.Get("Content-Range"), "/*") {
			w.Header().Set("Range", "bytes=0-"+strconv.Itoa(f.received-1))
			if r.Header.Get("X-GUploader-No-308") == "yes" {
				w.Header().Set("X-Http-Status-Code-Override", "308")
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusPermanentRedirect)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"vidBig","kind":"youtube#video"}`)
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func TestYouTubeUploader_PublishIsResumableAndReportsProgress(t *testing.T) {
	const size = 600 * 1024
	video := filepath.Join(t.TempDir(), "long.mp4")
	if err := os.WriteFile(video, bytes.Repeat([]byte{1}, size), 0o644); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	fake := &resumableYouTube{}
	u := newFakeUploaderWith(t, fake, UploaderConfig{ChunkSize: googleapi.MinUploadChunkSize}, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rec, err := u.Publish(ctx, models.CandidateItem{ID: "long.mp4", Path: video, Size: size}, models.ContentBundle{Title: "Long"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if rec.PublishedID != "vidBig" {
		t.Fatalf("unexpected record %+v", rec)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fmt.Sprint(fake.uploadTypes) != "[resumable]" {
		t.Fatalf("uploadType values = %v, want [resumable]", fake.uploadTypes)
	}
	if fake.chunks < 2 || fake.received != size {
		t.Fatalf("expected the file in several chunks, got %d chunks and %d bytes", fake.chunks, fake.received)
	}
	if !strings.Contains(logs.String(), "Upload progress.") {
		t.Fatalf("progress was never logged:\n%s", logs.String())
	}
}
