package gemini

import (
	"fmt"

	"github.com/reeys/reeys-backend/internal/models"
)

func imageGenerationPrompt(userPrompt string) string {
	return fmt.Sprintf("Based on this image, create a new version: %s. Answer me by a picture, don't ask detail.", userPrompt)
}

const suggestionsPrompt = `
Analyze this image and generate exactly 20 aesthetic transformation suggestions based on popular visual aesthetics. Transform the image while preserving the subject's face and key features.

For each aesthetic, provide:
- A short catchy title (3-6 words) for display on chips (example: "📚 Dark Academia", "🤖 Cyberpunk Aesthetic")
- A detailed prompt that transforms the image into that aesthetic while keeping the subject's face recognizable

Generate exactly 20 unique aesthetic transformations based on what you observe in the image.
`

// FallbackSuggestions returns the fixed list served when the vision model
// fails or returns an unusable response.
func FallbackSuggestions() []models.Suggestion {
	return []models.Suggestion{
		{
			Title:  "📚 Dark Academia",
			Prompt: "Transform into Dark Academia aesthetic with vintage clothing, moody library background, and intellectual atmosphere while preserving face details",
		},
		{
			Title:  "🤖 Cyberpunk Aesthetic",
			Prompt: "Transform into cyberpunk aesthetic with neon lights, futuristic clothing, and dystopian tech-noir background while keeping face recognizable",
		},
		{
			Title:  "✨ Y2K Retro",
			Prompt: "Transform into Y2K aesthetic with early 2000s metallic clothing, futuristic-retro accessories, and glossy finish while preserving facial features",
		},
		{
			Title:  "🌸 Soft Girl Aesthetic",
			Prompt: "Transform into Soft Girl aesthetic with pastel colors, kawaii elements, gentle feminine styling while maintaining face details",
		},
		{
			Title:  "🖤 Gothic Style",
			Prompt: "Transform into Gothic aesthetic with dramatic dark makeup, mysterious clothing, and moody atmosphere while keeping face recognizable",
		},
		{
			Title:  "💜 80s Synthwave",
			Prompt: "Transform into 80s aesthetic with neon synthwave colors, retro-futuristic styling, and vibrant background while preserving face",
		},
		{
			Title:  "🌻 Cottagecore Vibes",
			Prompt: "Transform into Cottagecore aesthetic with countryside setting, floral elements, and rustic charm while maintaining facial features",
		},
		{
			Title:  "🎵 K-Pop Style",
			Prompt: "Transform into K-Pop aesthetic with street luxury fashion, bold trendy styling, and modern urban background while keeping face details",
		},
		{
			Title:  "🧚 Fairycore Magic",
			Prompt: "Transform into Fairycore aesthetic with ethereal styling, magical flowers, sparkles, and dreamy atmosphere while preserving face",
		},
		{
			Title:  "🎸 Grunge Alternative",
			Prompt: "Transform into Grunge aesthetic with distressed clothing, alternative styling, and edgy urban background while maintaining face",
		},
		{
			Title:  "💎 Vaporwave Dream",
			Prompt: "Transform into Vaporwave aesthetic with pastel pink and blue colors, retro computer graphics, and nostalgic atmosphere while keeping face recognizable",
		},
		{
			Title:  "☀️ Clean Girl Look",
			Prompt: "Transform into Clean Girl aesthetic with minimal natural makeup, effortless styling, and bright natural lighting while preserving facial features",
		},
		{
			Title:  "💗 Barbiecore Pink",
			Prompt: "Transform into Barbiecore aesthetic with hot pink styling, glamorous doll-like perfection, and luxurious background while maintaining face details",
		},
		{
			Title:  "📼 90s Nostalgia",
			Prompt: "Transform into 90s aesthetic with grunge casual clothing, alternative rock styling, and vintage filter while keeping face recognizable",
		},
		{
			Title:  "🎌 Animecore Style",
			Prompt: "Transform into Animecore aesthetic with manga-inspired styling, vibrant colors, and stylized anime elements while preserving face",
		},
		{
			Title:  "⚙️ Steampunk Victorian",
			Prompt: "Transform into Steampunk aesthetic with Victorian-industrial styling, brass gears, vintage tech elements while maintaining facial features",
		},
		{
			Title:  "🌅 VSCO Golden Hour",
			Prompt: "Transform into VSCO Girl aesthetic with casual eco-friendly styling, golden hour lighting, and natural background while keeping face details",
		},
		{
			Title:  "👑 Royalcore Elegance",
			Prompt: "Transform into Royalcore aesthetic with regal clothing, luxurious palace-like background, and elegant styling while preserving face",
		},
		{
			Title:  "🧜 Mermaidcore Ocean",
			Prompt: "Transform into Mermaidcore aesthetic with aquatic elements, shells, oceanic mystique, and underwater vibes while maintaining face",
		},
		{
			Title:  "🎨 Art Academia",
			Prompt: "Transform into Art Academia aesthetic with artistic bohemian styling, museum gallery background, and creative atmosphere while keeping face recognizable",
		},
	}
}
