package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/reeys/reeys-backend/internal/models"
)

const superwallAliasPrefix = "$SuperwallAlias:"

type superwallPayload struct {
	Type string `json:"type"`
	Data struct {
		OriginalAppUserID string `json:"originalAppUserId"`
		ProductID         string `json:"productId"`
	} `json:"data"`
}

// handleSuperwallWebhook processes purchase-provider events. Everything the
// state machine recognizes or deliberately ignores gets a 200 so the
// provider does not retry; only bad auth or an unusable payload rejects.
func (s *Server) handleSuperwallWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Superwall-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
		s.log.Warn("webhook verification failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	var payload superwallPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.log.Error("webhook payload is not valid JSON", "err", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	userID := strings.TrimPrefix(payload.Data.OriginalAppUserID, superwallAliasPrefix)
	if userID == "" {
		s.log.Error("webhook carries no user id", "type", payload.Type)
		http.Error(w, "No user ID", http.StatusBadRequest)
		return
	}

	evt := models.WebhookEvent{
		Type:      payload.Type,
		UserID:    userID,
		ProductID: payload.Data.ProductID,
	}
	s.log.Info("processing webhook event", "type", evt.Type, "uid", evt.UserID, "product_id", evt.ProductID)

	if err := s.subscriptions.HandleEvent(r.Context(), evt); err != nil {
		s.log.Error("webhook handling failed", "type", evt.Type, "uid", evt.UserID, "err", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
