package server

import (
	"net/http"
	"net/url"

	"github.com/hal9ai/h9login/internal/errors"
	"github.com/hal9ai/h9login/users"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName  string
	Token    string
	Error    string
	Email    string // Preserve email on error
	ShowOIDC bool
}

// SuccessPageData contains data for rendering the signed-in page
type SuccessPageData struct {
	AppName string
	User    string
	Photo   string
}

// LoginPageHandler displays the login page (GET /login?token=)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl, err := lookupTemplate("login.html")
	if err != nil {
		log.Err(err).Msg("Failed to parse login template")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusBadRequest)
			return
		}

		// Only tokens minted by POST /api/login get a login form
		if _, err := s.attempts.Get(token); err != nil {
			http.Error(w, "unknown or expired login token", http.StatusNotFound)
			return
		}

		data := LoginPageData{
			AppName:  s.config.GetAppName(),
			Token:    token,
			Error:    r.URL.Query().Get("error"),
			Email:    r.URL.Query().Get("email"),
			ShowOIDC: s.oidc != nil,
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}
}

// LoginSubmissionHandler processes the login form submission (POST /login).
// On success it completes the widget's pending attempt, which releases
// every held poll for that token.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		token := r.FormValue("token")
		email := r.FormValue("email")
		password := r.FormValue("password")

		if token == "" {
			http.Error(w, "missing token parameter", http.StatusBadRequest)
			return
		}
		if email == "" || password == "" {
			s.renderLoginError(w, r, token, "Email and password are required", email)
			return
		}

		user, err := s.authenticate(email, password)
		if err != nil {
			if errors.Is(err, errors.ErrUserBlocked) {
				s.renderLoginError(w, r, token, "Account is blocked. Contact support.", email)
				return
			}
			// Don't reveal whether the user exists
			s.renderLoginError(w, r, token, "Invalid email or password", email)
			return
		}

		if err := s.completeAttempt(w, token, user.Username, user.Photo); err != nil {
			return
		}
		s.renderSuccess(w, user.Username, user.Photo)
	}
}

// authenticate resolves the submitted credentials to a user.
func (s *Server) authenticate(email, password string) (*users.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUserNotFound, "authenticate %q", email)
	}
	if user.Blocked {
		return nil, errors.Wrapf(errors.ErrUserBlocked, "authenticate %q", email)
	}
	if !user.CheckPassword(password) {
		return nil, errors.Wrapf(errors.ErrInvalidCredentials, "authenticate %q", email)
	}
	return user, nil
}

// completeAttempt resolves the pending attempt; the HTTP error response has
// already been written when an error is returned.
func (s *Server) completeAttempt(w http.ResponseWriter, token, user, photo string) error {
	err := s.attempts.Complete(token, user, photo)
	if err == nil {
		return nil
	}
	if errors.Is(err, errors.ErrAttemptNotFound) {
		http.Error(w, "unknown or expired login token", http.StatusNotFound)
		return err
	}
	log.Err(err).Str("token", token).Msg("failed to complete login attempt")
	http.Error(w, "failed to complete login", http.StatusInternalServerError)
	return err
}

func (s *Server) renderSuccess(w http.ResponseWriter, user, photo string) {
	data := SuccessPageData{
		AppName: s.config.GetAppName(),
		User:    user,
		Photo:   photo,
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := s.successTmpl.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render success template")
	}
}

// renderLoginError redirects back to the login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, token, errorMsg, email string) {
	redirectURL := RouteLogin + "?token=" + url.QueryEscape(token) + "&error=" + url.QueryEscape(errorMsg)
	if email != "" {
		redirectURL += "&email=" + url.QueryEscape(email)
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}
