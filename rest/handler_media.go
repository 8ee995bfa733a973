package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/social"
	"github.com/mohitkumar/canvasflow/tier"
	"github.com/mohitkumar/canvasflow/youtube"
	"go.uber.org/zap"
)

type transcribeRequest struct {
	URL       string `json:"url"`
	SkipCache bool   `json:"skipCache"`
}

type socialFetchRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var invalidURL youtube.InvalidURLError
	var unsupported social.UnsupportedURLError
	var chainErr *tier.ChainError
	switch {
	case errors.As(err, &invalidURL), errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.Is(err, tier.ErrNoTierAvailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &chainErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.youtube == nil {
		respondWithError(w, http.StatusServiceUnavailable, "youtube service not configured")
		return
	}
	var req transcribeRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}
	res, err := s.youtube.Transcribe(r.Context(), req.URL, youtube.TranscribeOptions{SkipCache: req.SkipCache})
	if err != nil {
		logger.Error("error transcribing video", zap.String("url", req.URL), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if s.youtube == nil {
		respondWithError(w, http.StatusServiceUnavailable, "youtube service not configured")
		return
	}
	var req transcribeRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}
	cmp, err := s.youtube.CompareEngines(r.Context(), req.URL)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, cmp)
}

func (s *Server) HandleSocialFetch(w http.ResponseWriter, r *http.Request) {
	if s.social == nil {
		respondWithError(w, http.StatusServiceUnavailable, "social service not configured")
		return
	}
	var req socialFetchRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}
	res, err := s.social.Fetch(r.Context(), req.URL, req.UserID)
	if err != nil {
		logger.Error("error fetching social post", zap.String("url", req.URL), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}
