package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jpalmerr/msgboard/internal/apperr"
	"github.com/jpalmerr/msgboard/internal/metrics"
	"github.com/jpalmerr/msgboard/internal/store"
)

// maxRequestBodySize caps JSON request bodies.
const maxRequestBodySize = 1 << 20 // 1MB

// postRequest is the body of POST /messages.
type postRequest struct {
	Message *string `json:"message" validate:"required"`
}

// reactionRequest is the body of POST /like and POST /dislike.
type reactionRequest struct {
	Timestamp string `json:"timestamp" validate:"required"`
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// handleMessages lists messages (GET) or posts one (POST).
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.store.All())
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost appends a message and fans it out.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	msg, err := s.store.Append(*req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cfg.Metrics.MessagePosted()

	s.hub.Publish(msg)
	s.writeJSON(w, http.StatusCreated, msg)
}

// handleLike increments likes on the message named by timestamp.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, metrics.ReactionLike, s.store.IncrementLike)
}

// handleDislike increments dislikes on the message named by timestamp.
func (s *Server) handleDislike(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, metrics.ReactionDislike, s.store.IncrementDislike)
}

func (s *Server) handleReaction(w http.ResponseWriter, r *http.Request, kind string, react func(string) (store.Message, error)) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reactionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	msg, err := react(req.Timestamp)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cfg.Metrics.Reacted(kind)

	s.hub.Publish(msg)
	s.writeJSON(w, http.StatusOK, msg)
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status      string `json:"status"`
	Messages    int    `json:"messages"`
	Subscribers int    `json:"subscribers"`
}

// handleHealth reports liveness and current counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Messages:    s.store.Len(),
		Subscribers: s.hub.Count(),
	})
}

// decode reads a size-limited JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid JSON body")
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation(fmt.Sprintf("%s is required", verrs[0].Field()))
		}
		return apperr.Internal("request validation failed", err)
	}
	return nil
}

// writeJSON writes v with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps err to a status and an {"error": ...} body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	} else {
		s.logger.Debug("request rejected", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: apperr.MessageOf(err)})
}
