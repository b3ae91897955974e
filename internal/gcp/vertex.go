package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Description Model Prompts ---
const DescriptionSystemPrompt = "You are an expert YouTube copywriter. You write engaging, SEO-friendly video descriptions from the little information you are given. You must output your response as a single valid JSON object."
const DescriptionUserPrompt = `Write a YouTube description for the video below.

Video name: %s

Requirements:
1. The description must be engaging and make people want to watch.
2. Optimise it for search with keywords relevant to the video name.
3. Aim for 200 to 500 words.
4. Include a short introduction, the main content, what the viewer gains, and a call to action (like, share, subscribe).
5. Use emoji where they fit.

Additional context:
%s

Respond with a JSON object with exactly these keys:
- "description": the full description text.
- "tags": an array of at most 10 short keyword strings.
Do not include any text before or after the JSON object.`

// DescriptionModelConfig configures the Gemini model used for video descriptions.
type DescriptionModelConfig struct {
	Model       string
	Temperature float32
}

// VertexClient holds the pre-configured generative model for this app.
type VertexClient struct {
	DescriptionModel *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding the description model.
func NewVertexClient(ctx context.Context, projectID, region string, cfg DescriptionModelConfig) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	descriptionModel := baseClient.GenerativeModel(cfg.Model)
	descriptionModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(DescriptionSystemPrompt)},
	}
	descriptionModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(cfg.Temperature),
	}

	return &VertexClient{
		DescriptionModel: descriptionModel,
		baseClient:       baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
