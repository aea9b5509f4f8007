package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// IssueTokenHandler mints a one-time login token (POST /api/login). The
// widget persists it, opens the login page with it, and polls it.
func (s *Server) IssueTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := uuid.New().String()
		if err := s.attempts.Create(token); err != nil {
			log.Err(err).Msg("failed to create login attempt")
			http.Error(w, "failed to create login attempt", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}

// PollLoginHandler is the long-poll side of the handshake
// (GET /api/login?token=). A completed attempt answers with the identity
// right away; a pending one is held open up to the poll-hold window and
// then answered with {done:false} so the widget re-polls.
func (s *Server) PollLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusBadRequest)
			return
		}

		done, err := s.attempts.Wait(token)
		if err != nil {
			http.Error(w, "unknown token", http.StatusNotFound)
			return
		}

		hold := time.NewTimer(s.pollHold)
		defer hold.Stop()

		select {
		case <-done:
		case <-hold.C:
			w.Header().Set("Content-Type", contentTypeJSON)
			_ = json.NewEncoder(w).Encode(map[string]bool{"done": false})
			return
		case <-r.Context().Done():
			return // client went away, nothing to write
		}

		attempt, err := s.attempts.Get(token)
		if err != nil {
			// Completed and pruned between the wakeup and the read.
			http.Error(w, "unknown token", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user":  attempt.User,
			"photo": attempt.Photo,
		})
	}
}
