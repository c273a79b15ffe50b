package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reeys/reeys-backend/internal/apperr"
	"github.com/reeys/reeys-backend/internal/models"
	"github.com/reeys/reeys-backend/internal/service"
)

type generateImageRequest struct {
	OriginalImage  string `json:"originalImage"`
	Prompt         string `json:"prompt"`
	ReferenceImage string `json:"referenceImage"`
}

type generateImageResponse struct {
	ImageData       string `json:"imageData"`
	TokensRemaining int    `json:"tokensRemaining"`
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		s.writeError(w, apperr.New(apperr.Unauthenticated, "Authentication required"))
		return
	}

	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.InvalidArgument, "Invalid request data"))
		return
	}
	if err := requireFields(map[string]string{
		"originalImage": req.OriginalImage,
		"prompt":        req.Prompt,
	}); err != nil {
		s.writeError(w, err)
		return
	}

	original, err := base64.StdEncoding.DecodeString(req.OriginalImage)
	if err != nil {
		s.writeError(w, apperr.New(apperr.InvalidArgument, "originalImage is not valid base64"))
		return
	}
	var reference []byte
	if req.ReferenceImage != "" {
		reference, err = base64.StdEncoding.DecodeString(req.ReferenceImage)
		if err != nil {
			s.writeError(w, apperr.New(apperr.InvalidArgument, "referenceImage is not valid base64"))
			return
		}
	}

	result, err := s.generator.GenerateSingle(r.Context(), auth.UID, original, req.Prompt, reference)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, generateImageResponse{
		ImageData:       base64.StdEncoding.EncodeToString(result.ImageData),
		TokensRemaining: result.TokensRemaining,
	})
}

type suggestionsRequest struct {
	ImageData string `json:"imageData"`
}

type suggestionsResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// handleGenerateSuggestions never hard-fails past input validation: a bad
// image or gateway failure degrades to the fallback list.
func (s *Server) handleGenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.InvalidArgument, "Invalid request data"))
		return
	}
	if req.ImageData == "" {
		s.writeError(w, apperr.New(apperr.InvalidArgument, "Missing image data"))
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageData)
	if err != nil {
		s.log.Warn("suggestions image is not valid base64, serving fallback")
		image = nil
	}

	suggestions := s.suggestions.Generate(r.Context(), image)
	s.writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

type generatePackRequest struct {
	OriginalImage string `json:"originalImage"`
	PackID        string `json:"packId"`
}

type generatePackResponse struct {
	Images          []service.PackImage `json:"images"`
	PackName        string              `json:"packName"`
	TokensRemaining int                 `json:"tokensRemaining"`
	GeneratedCount  int                 `json:"generatedCount"`
	TotalPrompts    int                 `json:"totalPrompts"`
}

func (s *Server) handleGeneratePack(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		s.writeError(w, apperr.New(apperr.Unauthenticated, "Authentication required"))
		return
	}

	var req generatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.InvalidArgument, "Invalid request data"))
		return
	}
	if err := requireFields(map[string]string{
		"originalImage": req.OriginalImage,
		"packId":        req.PackID,
	}); err != nil {
		s.writeError(w, err)
		return
	}

	original, err := base64.StdEncoding.DecodeString(req.OriginalImage)
	if err != nil {
		s.writeError(w, apperr.New(apperr.InvalidArgument, "originalImage is not valid base64"))
		return
	}

	result, err := s.generator.GeneratePack(r.Context(), auth.UID, req.PackID, original)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, generatePackResponse{
		Images:          result.Images,
		PackName:        result.PackName,
		TokensRemaining: result.TokensRemaining,
		GeneratedCount:  result.GeneratedCount,
		TotalPrompts:    result.TotalPrompts,
	})
}

type firstTimeUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type firstTimeUserResponse struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message"`
	IsNewUser     bool        `json:"isNewUser"`
	Role          models.Role `json:"role,omitempty"`
	WelcomeTokens int         `json:"welcomeTokens,omitempty"`
	Balance       int         `json:"balance,omitempty"`
}

func (s *Server) handleFirstTimeUser(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		s.writeError(w, apperr.New(apperr.Unauthenticated, "Authentication required"))
		return
	}

	var req firstTimeUserRequest
	if r.Body != nil {
		// Body is optional; identity claims fill the gaps.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	email := req.Email
	if email == "" {
		email = auth.Email
	}
	name := req.Name
	if name == "" {
		name = auth.Name
	}

	result, err := s.users.InitFirstTime(r.Context(), auth.UID, email, name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, firstTimeUserResponse{
		Success:       result.Success,
		Message:       result.Message,
		IsNewUser:     result.IsNewUser,
		Role:          result.Role,
		WelcomeTokens: result.WelcomeTokens,
		Balance:       result.Balance,
	})
}

type packSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PromptCount int    `json:"promptCount"`
}

type listPacksResponse struct {
	Packs []packSummary `json:"packs"`
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := s.generator.ListPacks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	summaries := make([]packSummary, 0, len(packs))
	for _, p := range packs {
		summaries = append(summaries, packSummary{
			ID:          p.ID,
			Name:        p.Name,
			PromptCount: len(p.Prompts),
		})
	}
	s.writeJSON(w, http.StatusOK, listPacksResponse{Packs: summaries})
}

type transactionEntry struct {
	Event       string `json:"event"`
	Amount      int    `json:"amount"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type tokenHistoryResponse struct {
	Balance      int                `json:"balance"`
	Transactions []transactionEntry `json:"transactions"`
}

func (s *Server) handleTokenHistory(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		s.writeError(w, apperr.New(apperr.Unauthenticated, "Authentication required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, apperr.New(apperr.InvalidArgument, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	balance, err := s.ledger.GetBalance(r.Context(), auth.UID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	txns, err := s.ledger.History(r.Context(), auth.UID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	entries := make([]transactionEntry, 0, len(txns))
	for _, t := range txns {
		entries = append(entries, transactionEntry{
			Event:       t.Event,
			Amount:      t.Amount,
			Description: t.Description,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, tokenHistoryResponse{Balance: balance, Transactions: entries})
}

type imageResponse struct {
	ID        string   `json:"id"`
	ImageURL  string   `json:"imageUrl"`
	FileName  string   `json:"fileName"`
	Prompts   []string `json:"prompts"`
	CreatedAt string   `json:"createdAt"`
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		s.writeError(w, apperr.New(apperr.Unauthenticated, "Authentication required"))
		return
	}

	img, err := s.generator.ImageByID(r.Context(), auth.UID, chi.URLParam(r, "imageID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, imageResponse{
		ID:        img.ID,
		ImageURL:  img.ImageURL,
		FileName:  img.FileName,
		Prompts:   img.Prompts,
		CreatedAt: img.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperr.Newf(apperr.InvalidArgument, "Missing required parameters: %s", strings.Join(missing, ", "))
	}
	return nil
}
