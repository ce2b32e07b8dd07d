package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"msgboard/auth"
	"msgboard/domain"
	apperrors "msgboard/errors"
)

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) listMessages(w http.ResponseWriter, _ *http.Request) {
	payloads, err := s.board.Messages()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if payloads == nil {
		payloads = []domain.Payload{}
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	identity := s.identityFrom(r)
	if identity == nil {
		s.writeError(w, apperrors.ErrAuthRequired)
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed body")
		return
	}
	payload, err := s.board.Post(*identity, req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request) {
	identity := s.identityFrom(r)
	if identity == nil {
		s.writeError(w, apperrors.ErrAuthRequired)
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed body")
		return
	}
	payload, err := s.board.Edit(*identity, id, req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	identity := s.identityFrom(r)
	if identity == nil {
		s.writeError(w, apperrors.ErrAuthRequired)
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	if err := s.board.Remove(*identity, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed body")
		return
	}
	user, err := s.auth.Register(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed body")
		return
	}
	token, err := s.auth.Login(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// writeError maps the error taxonomy onto HTTP statuses; anything
// outside the taxonomy is logged and reported as a plain 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrAuthRequired), errors.Is(err, apperrors.ErrBadCredentials):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperrors.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrUsernameTaken):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string][]string{"errors": {msg}})
}
