package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed pdf_generated"`
}

// MountAdmin mounts the session inspection routes behind Basic Auth. It is a
// no-op when admin credentials are not configured.
func (s *Server) MountAdmin(r chi.Router) {
	if !s.Cfg.AdminEnabled() {
		return
	}
	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Use(BasicAuthGuard(s.Cfg.AdminUsername, s.Cfg.AdminPasswordHash))
		ar.Get("/sessions/{id}", s.AdminGetSession())
		ar.Delete("/sessions/{id}", s.AdminDeleteSession())
		ar.Post("/sessions/{id}/status", s.AdminSetStatus())
	})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if verrs := ValidateID("id", id); verrs != nil {
		writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), verrs)
		return "", false
	}
	return id, true
}

// AdminGetSession returns the full session record.
func (s *Server) AdminGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionIDParam(w, r)
		if !ok {
			return
		}
		sess, err := s.Sessions.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// AdminDeleteSession removes a session; unknown ids also get 204.
func (s *Server) AdminDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionIDParam(w, r)
		if !ok {
			return
		}
		if err := s.Sessions.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminSetStatus advances the session lifecycle. Moving backwards is 409.
func (s *Server) AdminSetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionIDParam(w, r)
		if !ok {
			return
		}
		var req statusRequest
		if details, err := decodeAndValidate(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		if err := s.Sessions.MarkStatus(r.Context(), id, domain.SessionStatus(req.Status)); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": req.Status})
	}
}
