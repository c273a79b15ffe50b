package service

import (
	"context"
	"log/slog"

	"github.com/reeys/reeys-backend/internal/gemini"
	"github.com/reeys/reeys-backend/internal/models"
)

// Suggestions produces aesthetic transformation prompts for an image. It
// never fails: any gateway error degrades to the fixed fallback list.
type Suggestions struct {
	gateway Gateway
	log     *slog.Logger
}

func NewSuggestions(gateway Gateway, log *slog.Logger) *Suggestions {
	return &Suggestions{gateway: gateway, log: log}
}

func (s *Suggestions) Generate(ctx context.Context, image []byte) []models.Suggestion {
	suggestions, err := s.gateway.GenerateSuggestions(ctx, image)
	if err != nil {
		s.log.Error("suggestion generation failed, serving fallback", "err", err)
		return gemini.FallbackSuggestions()
	}
	if len(suggestions) == 0 {
		return gemini.FallbackSuggestions()
	}
	return suggestions
}
