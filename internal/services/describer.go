package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/dailyuploadflow/internal/gcp"
	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

// Describer produces the title, description and tags for a video.
type Describer interface {
	Generate(ctx context.Context, item models.CandidateItem, notes string) (models.ContentBundle, error)
}

// contentGenerator is the part of *genai.GenerativeModel we use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// VertexDescriber writes descriptions with Gemini on Vertex AI. The title
// and the base tags come from the file name; the model adds the body and
// extra tags.
type VertexDescriber struct {
	model  contentGenerator
	limits models.ContentLimits
	log    *slog.Logger
}

// NewVertexDescriber wraps the description model of a VertexClient.
func NewVertexDescriber(client *gcp.VertexClient, limits models.ContentLimits, log *slog.Logger) (*VertexDescriber, error) {
	if client == nil || client.DescriptionModel == nil {
		return nil, errors.New("vertex client with a description model is required")
	}
	return newVertexDescriber(client.DescriptionModel, limits, log), nil
}

func newVertexDescriber(model contentGenerator, limits models.ContentLimits, log *slog.Logger) *VertexDescriber {
	if log == nil {
		log = slog.Default()
	}
	return &VertexDescriber{model: model, limits: limits, log: log}
}

// descriptionDraft is the JSON object we ask Gemini to return.
type descriptionDraft struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (d *VertexDescriber) Generate(ctx context.Context, item models.CandidateItem, notes string) (models.ContentBundle, error) {
	name := Stem(item.ID)
	logCtx := d.log.With("item", item.ID)
	logCtx.Info("Generating description.", "videoName", name)

	if strings.TrimSpace(notes) == "" {
		notes = "No additional information."
	}
	prompt := genai.Text(fmt.Sprintf(gcp.DescriptionUserPrompt, name, notes))

	resp, err := d.model.GenerateContent(ctx, prompt)
	if err != nil {
		logCtx.Error("Call to Vertex AI failed.", "error", err)
		return models.ContentBundle{}, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	draft, err := parseDescriptionDraft(responseText(resp))
	if err != nil {
		logCtx.Error("Unusable description from Vertex AI.", "error", err)
		return models.ContentBundle{}, err
	}

	bundle := models.ContentBundle{
		Title:       TitleFromName(name),
		Description: draft.Description,
		Tags:        append(TagsFromName(name), draft.Tags...),
	}.Normalize(d.limits)
	logCtx.Info("Generated description.", "title", bundle.Title, "tags", len(bundle.Tags), "descriptionLength", len(bundle.Description))
	return bundle, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func parseDescriptionDraft(raw string) (descriptionDraft, error) {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return descriptionDraft{}, errors.New("gemini returned an empty response")
	}

	lower := strings.ToLower(content)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return descriptionDraft{}, fmt.Errorf("gemini response indicates refusal: %q", phrase)
		}
	}

	var draft descriptionDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return descriptionDraft{}, fmt.Errorf("failed to parse gemini JSON response: %w", err)
	}
	if strings.TrimSpace(draft.Description) == "" {
		return descriptionDraft{}, errors.New("gemini response has no description")
	}
	return draft, nil
}

// FilenameDescriber derives everything from the file name. It needs no
// network access and is used when no LLM provider is configured.
type FilenameDescriber struct {
	limits models.ContentLimits
}

func NewFilenameDescriber(limits models.ContentLimits) *FilenameDescriber {
	return &FilenameDescriber{limits: limits}
}

func (d *FilenameDescriber) Generate(ctx context.Context, item models.CandidateItem, notes string) (models.ContentBundle, error) {
	if err := ctx.Err(); err != nil {
		return models.ContentBundle{}, err
	}
	name := Stem(item.ID)
	title := TitleFromName(name)
	if title == "" {
		return models.ContentBundle{}, fmt.Errorf("cannot derive a title from %q", item.ID)
	}
	var b strings.Builder
	b.WriteString(title)
	if notes = strings.TrimSpace(notes); notes != "" {
		b.WriteString("\n\n")
		b.WriteString(notes)
	}
	b.WriteString("\n\nIf you enjoyed this video, like, share and subscribe for more.")
	return models.ContentBundle{
		Title:       title,
		Description: b.String(),
		Tags:        TagsFromName(name),
	}.Normalize(d.limits), nil
}

// Stem returns the file name without directory and extension.
func Stem(id string) string {
	base := path.Base(strings.ReplaceAll(id, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// TitleFromName turns "my_first-video" into "My First Video".
func TitleFromName(name string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	for i, w := range words {
		words[i] = capitalize(w)
	}
	title := strings.Join(words, " ")
	return models.ContentBundle{Title: title}.Normalize(models.DefaultContentLimits).Title
}

// TagsFromName keeps the lowercased words longer than two characters.
func TagsFromName(name string) []string {
	var tags []string
	for _, w := range strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(name)) {
		if len([]rune(w)) > 2 {
			tags = append(tags, strings.ToLower(w))
		}
	}
	return tags
}

func capitalize(w string) string {
	runes := []rune(strings.ToLower(w))
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
