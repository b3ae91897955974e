package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	for _, p := range parts {
		if txt, ok := p.(genai.Text); ok {
			f.prompts = append(f.prompts, string(txt))
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.text)}},
		}},
	}, nil
}

func TestTitleAndTagsFromName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		tags  []string
	}{
		{name: "my_first-video", title: "My First Video", tags: []string{"first", "video"}},
		{name: "  go   is FUN ", title: "Go Is Fun", tags: []string{"fun"}},
		{name: "", title: "", tags: nil},
	}
	for _, tc := range tests {
		if got := TitleFromName(tc.name); got != tc.title {
			t.Errorf("TitleFromName(%q) = %q, want %q", tc.name, got, tc.title)
		}
		if got := TagsFromName(tc.name); !reflect.DeepEqual(got, tc.tags) {
			t.Errorf("TagsFromName(%q) = %#v, want %#v", tc.name, got, tc.tags)
		}
	}

	long := strings.Repeat("word_", 40)
	if got := []rune(TitleFromName(long)); len(got) > 100 {
		t.Fatalf("title not bounded: %d runes", len(got))
	}
}

func TestStem(t *testing.T) {
	for in, want := range map[string]string{
		"a.mp4":              "a",
		"dir/clip.final.mov": "clip.final",
		"noext":              "noext",
	} {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVertexDescriber_Generate(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"description\": \"Watch this 🎬\", \"tags\": [\"Travel\", \"vlog\", \"travel\"]}\n```"}
	d := newVertexDescriber(gen, models.DefaultContentLimits, quietLogger())

	bundle, err := d.Generate(context.Background(), models.CandidateItem{ID: "summer_travel_vlog.mp4"}, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bundle.Title != "Summer Travel Vlog" {
		t.Fatalf("unexpected title %q", bundle.Title)
	}
	if bundle.Description != "Watch this 🎬" {
		t.Fatalf("unexpected description %q", bundle.Description)
	}
	if want := []string{"summer", "travel", "vlog"}; !reflect.DeepEqual(bundle.Tags, want) {
		t.Fatalf("tags = %v, want %v", bundle.Tags, want)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "summer_travel_vlog") || !strings.Contains(gen.prompts[0], "No additional information.") {
		t.Fatalf("unexpected prompt: %v", gen.prompts)
	}
}

func TestVertexDescriber_PassesNotes(t *testing.T) {
	gen := &fakeGenerator{text: `{"description": "ok"}`}
	d := newVertexDescriber(gen, models.DefaultContentLimits, quietLogger())
	if _, err := d.Generate(context.Background(), models.CandidateItem{ID: "a.mp4"}, "Filmed in Hanoi"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "Filmed in Hanoi") {
		t.Fatalf("notes missing from prompt: %s", gen.prompts[0])
	}
}

func TestVertexDescriber_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "api error", gen: &fakeGenerator{err: errors.New("quota exceeded")}},
		{name: "empty", gen: &fakeGenerator{text: "  "}},
		{name: "refusal", gen: &fakeGenerator{text: "As a large language model I cannot help."}},
		{name: "not json", gen: &fakeGenerator{text: "Here is your description"}},
		{name: "no description", gen: &fakeGenerator{text: `{"tags": ["a"]}`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := newVertexDescriber(tc.gen, models.DefaultContentLimits, quietLogger())
			if _, err := d.Generate(context.Background(), models.CandidateItem{ID: "a.mp4"}, ""); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestResponseText_NilSafe(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestFilenameDescriber(t *testing.T) {
	d := NewFilenameDescriber(models.ContentLimits{MaxTitle: 100, MaxDescription: 5000, MaxTags: 2})
	bundle, err := d.Generate(context.Background(), models.CandidateItem{ID: "learn-go_in_one_day.mkv"}, "Part 1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bundle.Title != "Learn Go In One Day" {
		t.Fatalf("unexpected title %q", bundle.Title)
	}
	if !strings.Contains(bundle.Description, "Part 1") {
		t.Fatalf("notes missing from description: %q", bundle.Description)
	}
	if want := []string{"learn", "one"}; !reflect.DeepEqual(bundle.Tags, want) {
		t.Fatalf("tags = %v, want %v", bundle.Tags, want)
	}

	if _, err := d.Generate(context.Background(), models.CandidateItem{ID: "__.mp4"}, ""); err == nil {
		t.Fatalf("expected error for a name without words")
	}
}
