package server

import (
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
)

// OIDCRedirectHandler sends the browser to the upstream identity provider
// (GET /login/oidc?token=). The widget's login token rides along inside the
// signed state parameter and comes back in the callback.
func (s *Server) OIDCRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusBadRequest)
			return
		}
		if _, err := s.attempts.Get(token); err != nil {
			http.Error(w, "unknown or expired login token", http.StatusNotFound)
			return
		}

		state, nonce, err := s.stateSigner.Sign(token)
		if err != nil {
			log.Err(err).Msg("failed to sign federated login state")
			http.Error(w, "failed to start federated login", http.StatusInternalServerError)
			return
		}

		authURL := s.oidc.OAuth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OIDCCallbackHandler finishes the federated flow (GET /login/callback):
// verify the state, exchange the code, verify the ID token and its nonce,
// then complete the widget's pending attempt from the token claims.
func (s *Server) OIDCCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc), http.StatusBadRequest)
			return
		}
		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		loginToken, nonce, err := s.stateSigner.Verify(state)
		if err != nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		oauth2Token, err := s.oidc.OAuth2Config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("Token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			http.Error(w, "No ID token in response", http.StatusInternalServerError)
			return
		}

		idToken, err := s.oidc.OidcVerifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			http.Error(w, fmt.Sprintf("ID token verification failed: %v", err), http.StatusInternalServerError)
			return
		}

		var claims struct {
			Nonce   string `json:"nonce"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := idToken.Claims(&claims); err != nil {
			http.Error(w, fmt.Sprintf("Failed to extract claims: %v", err), http.StatusInternalServerError)
			return
		}

		// Validate nonce to prevent replay attacks
		if claims.Nonce != nonce {
			http.Error(w, "Invalid nonce", http.StatusUnauthorized)
			return
		}

		user := claims.Name
		if user == "" {
			user = claims.Email
		}
		if user == "" {
			http.Error(w, "ID token carries no usable identity", http.StatusInternalServerError)
			return
		}

		if err := s.completeAttempt(w, loginToken, user, claims.Picture); err != nil {
			return
		}
		s.renderSuccess(w, user, claims.Picture)
	}
}
