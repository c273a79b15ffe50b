package api

import (
	"encoding/json"
	"net/http"

	"github.com/reeys/reeys-backend/internal/apperr"
)

type errorBody struct {
	Code    apperr.Code    `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.Internal {
		s.log.Error("request failed", "err", err)
	}
	s.writeJSON(w, apperr.HTTPStatus(appErr.Code), errorEnvelope{Error: errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}
