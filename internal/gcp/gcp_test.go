package gcp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("DUF_TEST_INT", "42")
	t.Setenv("DUF_TEST_BAD_INT", "forty")
	t.Setenv("DUF_TEST_FLOAT", "0.25")
	t.Setenv("DUF_TEST_BOOL", "yes")
	t.Setenv("DUF_TEST_DURATION", "90s")
	t.Setenv("DUF_TEST_LIST", " .mp4, ,.MOV ")

	if got := GetEnv("DUF_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv fallback: got %q", got)
	}
	if got := GetEnvInt("DUF_TEST_INT", 1); got != 42 {
		t.Fatalf("GetEnvInt: got %d", got)
	}
	if got := GetEnvInt("DUF_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt bad value: got %d", got)
	}
	if got := GetEnvFloat("DUF_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("GetEnvFloat: got %v", got)
	}
	if got := GetEnvBool("DUF_TEST_BOOL", false); !got {
		t.Fatalf("GetEnvBool: expected true")
	}
	if got := GetEnvDuration("DUF_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("GetEnvDuration: got %v", got)
	}
	list := GetEnvList("DUF_TEST_LIST", nil)
	if len(list) != 2 || list[0] != ".mp4" || list[1] != ".MOV" {
		t.Fatalf("GetEnvList: got %#v", list)
	}
}

func TestBlankEnvKeepsFallback(t *testing.T) {
	t.Setenv("DUF_TEST_BLANK", "  ")
	if got := GetEnvNonEmpty("DUF_TEST_BLANK", "from-file"); got != "from-file" {
		t.Fatalf("GetEnvNonEmpty blank: got %q", got)
	}
	if got := GetEnv("DUF_TEST_BLANK", "from-file"); got != "  " {
		t.Fatalf("GetEnv keeps set values verbatim, got %q", got)
	}
	t.Setenv("DUF_TEST_SET", " value ")
	if got := GetEnvNonEmpty("DUF_TEST_SET", "x"); got != "value" {
		t.Fatalf("GetEnvNonEmpty: got %q", got)
	}
	if got := GetEnvList("DUF_TEST_BLANK", []string{".mp4"}); len(got) != 1 || got[0] != ".mp4" {
		t.Fatalf("GetEnvList blank: got %#v", got)
	}
	if got := GetEnvInt("DUF_TEST_BLANK", 5); got != 5 {
		t.Fatalf("GetEnvInt blank: got %d", got)
	}
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://videos/queue/a.mp4")
	if err != nil {
		t.Fatalf("ParseGCSURI: %v", err)
	}
	if bucket != "videos" || object != "queue/a.mp4" {
		t.Fatalf("unexpected split: %q %q", bucket, object)
	}
	for _, bad := range []string{"videos/a.mp4", "gs://videos", "gs:///a.mp4"} {
		if _, _, err := ParseGCSURI(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLoadToken(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "token.json")
	if err := os.WriteFile(good, []byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tok, err := loadToken(good)
	if err != nil {
		t.Fatalf("loadToken: %v", err)
	}
	if tok.RefreshToken != "r" {
		t.Fatalf("unexpected refresh token %q", tok.RefreshToken)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadToken(empty); err == nil {
		t.Fatalf("expected error for token without credentials")
	}
	if _, err := loadToken(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing token file")
	}
}

func TestWorkflowName(t *testing.T) {
	got := WorkflowName("p", "us-central1", "wf")
	if got != "projects/p/locations/us-central1/workflows/wf" {
		t.Fatalf("unexpected workflow name %q", got)
	}
}
