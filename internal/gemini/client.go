package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/reeys/reeys-backend/internal/config"
	"github.com/reeys/reeys-backend/internal/models"
)

// Client wraps the Gemini SDK for the two operations the backend needs:
// image-to-image generation and vision-based suggestion generation.
type Client struct {
	client *genai.Client
	image  *genai.GenerativeModel
	vision *genai.GenerativeModel
	log    *slog.Logger
}

func NewClient(ctx context.Context, cfg config.Config, log *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAIAPIKey))
	if err != nil {
		return nil, fmt.Errorf("new genai client: %w", err)
	}

	safety := []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	}

	image := client.GenerativeModel(cfg.ImageModel)
	image.SetTemperature(0.7)
	image.SetTopK(40)
	image.SetTopP(0.95)
	image.SetMaxOutputTokens(1024)
	image.SafetySettings = safety

	vision := client.GenerativeModel(cfg.VisionModel)
	vision.SetTemperature(0.8)
	vision.SetTopK(40)
	vision.SetTopP(0.95)
	vision.SetMaxOutputTokens(1024)
	vision.SafetySettings = safety
	vision.ResponseMIMEType = "application/json"
	vision.ResponseSchema = suggestionsSchema()

	return &Client{
		client: client,
		image:  image,
		vision: vision,
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateImage produces a new image from the original plus a prompt. The
// optional reference image steers the style.
func (c *Client) GenerateImage(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error) {
	parts := []genai.Part{
		genai.Text(imageGenerationPrompt(prompt)),
		genai.ImageData("jpeg", original),
	}
	if len(reference) > 0 {
		parts = append(parts, genai.ImageData("jpeg", reference))
	}

	resp, err := c.image.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no image data in response")
}

// GenerateSuggestions asks the vision model for aesthetic transformations of
// the given image. Callers are expected to fall back on any error.
func (c *Client) GenerateSuggestions(ctx context.Context, image []byte) ([]models.Suggestion, error) {
	parts := []genai.Part{
		genai.Text(suggestionsPrompt),
		genai.ImageData("jpeg", image),
	}

	resp, err := c.vision.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok || text == "" {
				continue
			}
			var suggestions []models.Suggestion
			if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
				c.log.Error("suggestions response is not valid JSON", "err", err)
				continue
			}
			if len(suggestions) > 0 {
				return suggestions, nil
			}
		}
	}
	return nil, fmt.Errorf("no suggestions in response")
}

func suggestionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {
					Type:        genai.TypeString,
					Description: "A short catchy title (3-6 words) for display on chips",
				},
				"prompt": {
					Type:        genai.TypeString,
					Description: "A detailed prompt for image generation (can be longer and more descriptive)",
				},
			},
			Required: []string{"title", "prompt"},
		},
	}
}
